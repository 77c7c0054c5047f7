package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase64Codec(t *testing.T) {
	codec, err := NewCodec("")
	require.NoError(t, err)
	assert.Equal(t, BASE64_CODEC, codec.Name())

	cases := map[string]string{
		"a@x.com":           "YUB4LmNvbQ==",
		"alice@example.com": "YWxpY2VAZXhhbXBsZS5jb20=",
		"123-45-6789":       "MTIzLTQ1LTY3ODk=",
		"Zoë":               "Wm/Dqw==",
	}
	for value, token := range cases {
		assert.Equal(t, token, codec.Encode(value), value)
		decoded, err := codec.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, value, decoded)
	}
}

func TestCodecsRoundTrip(t *testing.T) {
	values := []string{"x", "alice@example.com", "Zoë, \"quoted\"\nnext line", "日本語"}
	for _, name := range CodecNames() {
		codec, err := NewCodec(name)
		require.NoError(t, err)
		for _, value := range values {
			token := codec.Encode(value)
			assert.NotContains(t, token, ",", name)
			decoded, err := codec.Decode(token)
			require.NoError(t, err, name)
			assert.Equal(t, value, decoded, name)
		}
	}
}

func TestCodecDecodeErrors(t *testing.T) {
	b64, _ := NewCodec(BASE64_CODEC)
	_, err := b64.Decode("not base64!")
	assert.Error(t, err)

	// "/w==" is the single byte 0xff
	_, err = b64.Decode("/w==")
	assert.ErrorContains(t, err, "not valid UTF-8")

	hex, _ := NewCodec(HEX_CODEC)
	_, err = hex.Decode("abc")
	assert.Error(t, err)
	v, err := hex.Decode("616263")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestNewCodecUnknown(t *testing.T) {
	_, err := NewCodec("rot13")
	assert.ErrorContains(t, err, "rot13")
	assert.Equal(t, []string{"base64", "base64url", "hex"}, CodecNames())
}
