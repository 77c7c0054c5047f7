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
package tokenizer

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/samber/lo"
)

const (
	BASE64_CODEC     = "base64"
	BASE64_URL_CODEC = "base64url"
	HEX_CODEC        = "hex"

	DEFAULT_CODEC = BASE64_CODEC
)

// Codec is a reversible, ASCII-producing encoding of the UTF-8 bytes of a value.
// It is not encryption: anyone can decode.
type Codec interface {
	Name() string
	Encode(value string) string
	Decode(token string) (string, error)
}

type base64Codec struct {
	name string
	enc  *base64.Encoding
}

func (c *base64Codec) Name() string {
	return c.name
}

func (c *base64Codec) Encode(value string) string {
	return c.enc.EncodeToString([]byte(value))
}

func (c *base64Codec) Decode(token string) (string, error) {
	bs, err := c.enc.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%s decode: %w", c.name, err)
	}
	return validUTF8(c.name, bs)
}

type hexCodec struct{}

func (hexCodec) Name() string {
	return HEX_CODEC
}

func (hexCodec) Encode(value string) string {
	return hex.EncodeToString([]byte(value))
}

func (hexCodec) Decode(token string) (string, error) {
	bs, err := hex.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("hex decode: %w", err)
	}
	return validUTF8(HEX_CODEC, bs)
}

func validUTF8(codec string, bs []byte) (string, error) {
	if !utf8.Valid(bs) {
		return "", fmt.Errorf("%s decode: result is not valid UTF-8", codec)
	}
	return string(bs), nil
}

var codecs = map[string]Codec{
	BASE64_CODEC:     &base64Codec{name: BASE64_CODEC, enc: base64.StdEncoding},
	BASE64_URL_CODEC: &base64Codec{name: BASE64_URL_CODEC, enc: base64.URLEncoding},
	HEX_CODEC:        hexCodec{},
}

func CodecNames() []string {
	names := lo.Keys(codecs)
	sort.Strings(names)
	return names
}

func NewCodec(name string) (Codec, error) {
	if name == "" {
		name = DEFAULT_CODEC
	}
	c, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q, valid codecs = %v", name, CodecNames())
	}
	return c, nil
}
