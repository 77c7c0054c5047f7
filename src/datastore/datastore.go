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
package datastore

import (
	"context"
	"fmt"
	"io"

	"github.com/samber/lo"
)

const (
	S3_STORE    = "s3"
	GCS_STORE   = "gcs"
	AZURE_STORE = "azure"
	LOCAL_STORE = "local"
	BLOB_STORE  = "blob"
)

// ObjectStore reads and writes whole objects addressed by container and key.
// A container is an S3 or GCS bucket, an Azure container, a directory under
// the root of a local store or a key prefix in a blob URL store.
//
// Fetch returns an error matching errs.ErrObjectNotFound when the object does
// not exist. Store either stores the whole body or fails.
type ObjectStore interface {
	Fetch(ctx context.Context, container, key string) (io.ReadCloser, error)
	Store(ctx context.Context, container, key string, body io.Reader) error
}

type Config struct {
	Type string
	// Root directory for local stores, bucket URL for blob stores.
	URL string
	// https://<account>.blob.core.windows.net
	AzureAccountURL string
	AWSRegion       string
}

func StoreTypes() []string {
	return []string{S3_STORE, GCS_STORE, AZURE_STORE, LOCAL_STORE, BLOB_STORE}
}

func ValidateType(storeType string) error {
	if !lo.Contains(StoreTypes(), storeType) {
		return fmt.Errorf("invalid store type %q, valid types = %v", storeType, StoreTypes())
	}
	return nil
}

func NewObjectStore(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Type {
	case S3_STORE:
		return NewS3Store(ctx, cfg.AWSRegion)
	case GCS_STORE:
		return NewGCSStore(ctx)
	case AZURE_STORE:
		return NewAzStore(cfg.AzureAccountURL)
	case LOCAL_STORE:
		return NewLocalStore(cfg.URL)
	case BLOB_STORE:
		return OpenBlobStore(ctx, cfg.URL)
	default:
		return nil, ValidateType(cfg.Type)
	}
}
