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
// Implementation of the object store for datasets hosted on gcs buckets.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/yugabyte/yb-tokenizer/src/errs"
	"github.com/yugabyte/yb-tokenizer/src/utils/gcs"
)

type GCSStore struct {
	client *storage.Client
}

func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if gcs.IsNotFound(err) {
			return nil, errs.NewObjectNotFoundError(bucket, key, err)
		}
		return nil, fmt.Errorf("get reader for gs://%s/%s: %w", bucket, key, err)
	}
	return r, nil
}

func (s *GCSStore) Store(ctx context.Context, bucket, key string, body io.Reader) error {
	// Cancelling ctx before Close aborts the upload, the object is created on Close.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		return errors.Join(fmt.Errorf("write gs://%s/%s: %w", bucket, key, err), w.Close())
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}
