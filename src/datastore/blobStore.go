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
// Implementation of the object store over a gocloud bucket URL (mem://, file://).
package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/yugabyte/yb-tokenizer/src/errs"
)

// BlobStore keeps every container as a key prefix of one bucket.
type BlobStore struct {
	bucket *blob.Bucket
}

func OpenBlobStore(ctx context.Context, bucketURL string) (*BlobStore, error) {
	if bucketURL == "" {
		return nil, fmt.Errorf("blob store needs a bucket url, e.g. mem:// or file:///path")
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return NewBlobStore(bucket), nil
}

func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

func (s *BlobStore) blobKey(container, key string) string {
	if container == "" {
		return key
	}
	return path.Join(container, key)
}

func (s *BlobStore) Fetch(ctx context.Context, container, key string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, s.blobKey(container, key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, errs.NewObjectNotFoundError(container, key, err)
		}
		return nil, fmt.Errorf("open reader for %s: %w", s.blobKey(container, key), err)
	}
	return r, nil
}

func (s *BlobStore) Store(ctx context.Context, container, key string, body io.Reader) error {
	// The blob becomes visible on Close; cancelling ctx first discards it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := s.bucket.NewWriter(ctx, s.blobKey(container, key), nil)
	if err != nil {
		return fmt.Errorf("open writer for %s: %w", s.blobKey(container, key), err)
	}
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		return errors.Join(fmt.Errorf("write %s: %w", s.blobKey(container, key), err), w.Close())
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", s.blobKey(container, key), err)
	}
	return nil
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}
