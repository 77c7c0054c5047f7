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
// Implementation of the object store for datasets on the machine running yb-tokenizer.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yugabyte/yb-tokenizer/src/errs"
)

// LocalStore maps container/key to <root>/<container>/<key>. With an empty
// container, keys are relative to root.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local store needs a root directory")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path of %q: %w", root, err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

// Path returns the file backing container/key.
func (s *LocalStore) Path(container, key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(container), filepath.FromSlash(key))
	if p != s.root && !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q of container %q is outside of %s", key, container, s.root)
	}
	return p, nil
}

// KeyOf is the inverse of Path for containerless keys.
func (s *LocalStore) KeyOf(path string) (string, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside of %s", path, s.root)
	}
	return filepath.ToSlash(rel), nil
}

func (s *LocalStore) Fetch(ctx context.Context, container, key string) (io.ReadCloser, error) {
	p, err := s.Path(container, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.NewObjectNotFoundError(container, key, err)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return f, nil
}

// Store writes body to a temporary file next to the target and renames it
// into place, so readers never see a partial object.
func (s *LocalStore) Store(ctx context.Context, container, key string, body io.Reader) (err error) {
	p, err := s.Path(container, key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", p, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = io.Copy(tmp, body); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp.Name(), p, err)
	}
	return nil
}
