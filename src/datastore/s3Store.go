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
// Implementation of the object store for datasets hosted on s3 buckets.
package datastore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yugabyte/yb-tokenizer/src/errs"
	s3utils "github.com/yugabyte/yb-tokenizer/src/utils/s3"
)

type S3Store struct {
	client *s3.Client
}

func NewS3Store(ctx context.Context, region string) (*S3Store, error) {
	client, err := s3utils.NewClient(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewS3StoreWithClient(client), nil
}

func NewS3StoreWithClient(client *s3.Client) *S3Store {
	return &S3Store{client: client}
}

func (s *S3Store) Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if s3utils.IsNotFound(err) {
			return nil, errs.NewObjectNotFoundError(bucket, key, err)
		}
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// Store uploads body with a single PutObject call. An unseekable body can only
// be signed over https, so callers pass a file.
func (s *S3Store) Store(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
