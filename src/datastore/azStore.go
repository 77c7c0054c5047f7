/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
// Implementation of the object store for datasets hosted on azure blob storage.
package datastore

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/yugabyte/yb-tokenizer/src/errs"
	"github.com/yugabyte/yb-tokenizer/src/utils/az"
)

const azDownloadRetries = 10

type AzStore struct {
	accountURL string
	client     *azblob.Client
}

func NewAzStore(accountURL string) (*AzStore, error) {
	client, err := az.NewClient(accountURL)
	if err != nil {
		return nil, err
	}
	return &AzStore{accountURL: accountURL, client: client}, nil
}

func (s *AzStore) Fetch(ctx context.Context, container, key string) (io.ReadCloser, error) {
	get, err := s.client.DownloadStream(ctx, container, key, nil)
	if err != nil {
		if az.IsNotFound(err) {
			return nil, errs.NewObjectNotFoundError(container, key, err)
		}
		return nil, fmt.Errorf("create download stream for %s/%s/%s: %w", s.accountURL, container, key, err)
	}
	return get.NewRetryReader(ctx, &azblob.RetryReaderOptions{MaxRetries: azDownloadRetries}), nil
}

func (s *AzStore) Store(ctx context.Context, container, key string, body io.Reader) error {
	_, err := s.client.UploadStream(ctx, container, key, body, nil)
	if err != nil {
		return fmt.Errorf("upload stream to %s/%s/%s: %w", s.accountURL, container, key, err)
	}
	return nil
}
