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
package objectkey

import (
	"fmt"
	"path"
	"strings"

	"github.com/yugabyte/yb-tokenizer/src/errs"
)

const (
	DEFAULT_METADATA_SUFFIX = "_pii_fields.json"
	DEFAULT_EXTENSION       = "csv"
	DEFAULT_RAW_PREFIX      = "raw/"
	DEFAULT_OUTPUT_PREFIX   = "tokenized/"
	DEFAULT_RESTORED_PREFIX = "detokenized/"
	TOKENIZED_NAME_SUFFIX   = "_tokenized"
)

// Options controls the naming convention. The zero value means the defaults.
type Options struct {
	MetadataSuffix string
	Extension      string
	RawPrefix      string
	OutputPrefix   string
	RestoredPrefix string
}

func DefaultOptions() Options {
	return Options{
		MetadataSuffix: DEFAULT_METADATA_SUFFIX,
		Extension:      DEFAULT_EXTENSION,
		RawPrefix:      DEFAULT_RAW_PREFIX,
		OutputPrefix:   DEFAULT_OUTPUT_PREFIX,
		RestoredPrefix: DEFAULT_RESTORED_PREFIX,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MetadataSuffix == "" {
		o.MetadataSuffix = d.MetadataSuffix
	}
	if o.Extension == "" {
		o.Extension = d.Extension
	}
	o.Extension = strings.TrimPrefix(o.Extension, ".")
	if o.RawPrefix == "" {
		o.RawPrefix = d.RawPrefix
	}
	if o.OutputPrefix == "" {
		o.OutputPrefix = d.OutputPrefix
	}
	if o.RestoredPrefix == "" {
		o.RestoredPrefix = d.RestoredPrefix
	}
	return o
}

// Keys are the object identifiers used by one invocation.
type Keys struct {
	Container   string
	MetadataKey string
	DatasetName string
	RawKey      string
	OutputKey   string
	// RestoredKey is where a detokenized copy of OutputKey is written.
	RestoredKey string
}

func (k *Keys) String() string {
	return fmt.Sprintf("%s: metadata=%q raw=%q output=%q", k.Container, k.MetadataKey, k.RawKey, k.OutputKey)
}

// Resolve derives the raw dataset and output keys from the key of a field
// metadata object. Only the base name of metadataKey is significant:
// "any/prefix/X_pii_fields.json" resolves to "raw/X.csv" and
// "tokenized/X_tokenized.csv".
func Resolve(container, metadataKey string, opts Options) (*Keys, error) {
	opts = opts.withDefaults()
	base := path.Base(metadataKey)
	if metadataKey == "" || strings.HasSuffix(metadataKey, "/") || !strings.HasSuffix(base, opts.MetadataSuffix) {
		return nil, errs.NewInvalidMetadataPathError(metadataKey, opts.MetadataSuffix)
	}
	name := strings.TrimSuffix(base, opts.MetadataSuffix)
	if name == "" {
		return nil, errs.NewInvalidMetadataPathError(metadataKey, opts.MetadataSuffix)
	}
	return &Keys{
		Container:   container,
		MetadataKey: metadataKey,
		DatasetName: name,
		RawKey:      fmt.Sprintf("%s%s.%s", opts.RawPrefix, name, opts.Extension),
		OutputKey:   fmt.Sprintf("%s%s%s.%s", opts.OutputPrefix, name, TOKENIZED_NAME_SUFFIX, opts.Extension),
		RestoredKey: fmt.Sprintf("%s%s.%s", opts.RestoredPrefix, name, opts.Extension),
	}, nil
}

// IsMetadataKey reports whether key follows the metadata naming convention.
func IsMetadataKey(key string, opts Options) bool {
	_, err := Resolve("", key, opts)
	return err == nil
}
