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
package fieldspec

import (
	"sort"
	"strings"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/encoding/unicode"

	"github.com/yugabyte/yb-tokenizer/src/errs"
)

// FieldSpec is the set of column names whose values are to be masked.
// It is immutable once parsed.
type FieldSpec struct {
	fields mapset.Set[string]
}

func New(names ...string) FieldSpec {
	return FieldSpec{fields: mapset.NewThreadUnsafeSet[string](names...)}
}

func (fs FieldSpec) Contains(name string) bool {
	if fs.fields == nil {
		return false
	}
	return fs.fields.Contains(name)
}

func (fs FieldSpec) Len() int {
	if fs.fields == nil {
		return 0
	}
	return fs.fields.Cardinality()
}

func (fs FieldSpec) IsEmpty() bool {
	return fs.Len() == 0
}

// Names returns the field names in sorted order.
func (fs FieldSpec) Names() []string {
	if fs.fields == nil {
		return nil
	}
	names := fs.fields.ToSlice()
	sort.Strings(names)
	return names
}

// Missing returns the field names that do not appear in header, sorted.
func (fs FieldSpec) Missing(header []string) []string {
	if fs.fields == nil {
		return nil
	}
	present := mapset.NewThreadUnsafeSet[string](header...)
	missing := fs.fields.Difference(present).ToSlice()
	sort.Strings(missing)
	return missing
}

func (fs FieldSpec) String() string {
	return "[" + strings.Join(fs.Names(), ", ") + "]"
}

// Parse reads a metadata payload: a bracketed list of quoted string literals,
// for example `["email", 'ssn']`. The payload may start with a UTF-8 BOM and
// may be surrounded by whitespace. Nothing other than the literal list syntax
// is accepted.
func Parse(data []byte) (FieldSpec, error) {
	if !utf8.Valid(data) {
		return FieldSpec{}, errs.NewInvalidFieldSpecError(0, "payload is not valid UTF-8")
	}
	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return FieldSpec{}, errs.NewInvalidFieldSpecError(0, "decode: %v", err)
	}
	p := &parser{src: strings.TrimSpace(string(decoded))}
	if p.src == "" {
		return FieldSpec{}, errs.NewInvalidFieldSpecError(0, "empty document")
	}
	names, err := p.parseList()
	if err != nil {
		return FieldSpec{}, err
	}
	return New(names...), nil
}
