package fieldspec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yugabyte/yb-tokenizer/src/errs"
)

func TestParseValidLists(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{`["email","ssn"]`, []string{"email", "ssn"}},
		{`['email', 'ssn']`, []string{"email", "ssn"}},
		{"  [\n  \"email\",\n  'phone',\n]\n", []string{"email", "phone"}},
		{`["a", "a", "b"]`, []string{"a", "b"}},
		{`[]`, nil},
		{`[ ]`, nil},
		{`["first name", "Last,Name"]`, []string{"Last,Name", "first name"}},
		{`["it's", 'say "hi"']`, []string{"it's", `say "hi"`}},
		{`["tab\tsep", "quote\"d", 'back\\slash']`, []string{"back\\slash", "quote\"d", "tab\tsep"}},
		{`["caf\xe9", "été", "\U0001F600"]`, []string{"café", "été", "😀"}},
		{`["\101\102"]`, []string{"AB"}},
		{`["naïve", "名前"]`, []string{"naïve", "名前"}},
		{"[\"long\\\nname\"]", []string{"longname"}},
	}
	for _, tt := range tests {
		spec, err := Parse([]byte(tt.input))
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, spec.Names(), tt.input)
	}
}

func TestParseStripsBOM(t *testing.T) {
	spec, err := Parse(append([]byte("\xef\xbb\xbf"), []byte(` ["email"] `)...))
	require.NoError(t, err)
	assert.True(t, spec.Contains("email"))
	assert.Equal(t, 1, spec.Len())
}

func TestParseRejectsEverythingElse(t *testing.T) {
	for _, input := range []string{
		"",
		"   \n",
		"not a list",
		`"email"`,
		`{"email"}`,
		`("email", "ssn")`,
		`["email", 1]`,
		`["email", None]`,
		`[email]`,
		`["email",, "ssn"]`,
		`[, "ssn"]`,
		`["email" "ssn"]`,
		`["email"`,
		`["email]`,
		`["email"] + ["ssn"]`,
		`["email"]; import os`,
		`__import__('os').system('id')`,
		`[f"email"]`,
		`[b"email"]`,
		`[r"email"]`,
		`["email", ["nested"]]`,
		`["bad \q escape"]`,
		`["bad \x4"]`,
		`["bad \uD800"]`,
		"[\"new\nline\"]",
		`["""triple"""]`,
	} {
		_, err := Parse([]byte(input))
		assert.Error(t, err, input)
		assert.True(t, errors.Is(err, errs.ErrInvalidFieldSpec), input)
	}
}

func TestParseRejectsInvalidUTF8(t *testing.T) {
	_, err := Parse([]byte("[\"\xff\xfe\"]"))
	assert.ErrorIs(t, err, errs.ErrInvalidFieldSpec)
}

func TestParseErrorOffset(t *testing.T) {
	_, err := Parse([]byte(`["email", 42]`))
	var specErr *errs.InvalidFieldSpecError
	require.True(t, errors.As(err, &specErr))
	assert.Equal(t, 10, specErr.Offset)
}

func TestFieldSpecIsCaseSensitive(t *testing.T) {
	spec := New("Email")
	assert.True(t, spec.Contains("Email"))
	assert.False(t, spec.Contains("email"))
	assert.False(t, spec.Contains("Email "))
}

func TestMissing(t *testing.T) {
	spec := New("email", "ssn", "phone")
	assert.Equal(t, []string{"phone"}, spec.Missing([]string{"id", "email", "ssn"}))
	assert.Empty(t, New().Missing([]string{"id"}))
	assert.Empty(t, FieldSpec{}.Missing([]string{"id"}))
}

func TestZeroFieldSpec(t *testing.T) {
	var spec FieldSpec
	assert.True(t, spec.IsEmpty())
	assert.False(t, spec.Contains("x"))
	assert.Equal(t, "[]", spec.String())
}
