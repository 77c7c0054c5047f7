//go:build unit

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "0 B", HumanBytes(0))
	assert.Equal(t, "0 B", HumanBytes(-5))
	assert.Equal(t, "1.5 kB", HumanBytes(1500))
	assert.Equal(t, "2.0 MB", HumanBytes(2*1000*1000))
}

func TestReadInput(t *testing.T) {
	p := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"container":"c"}`), 0644))
	data, err := ReadInput(p)
	require.NoError(t, err)
	assert.Equal(t, `{"container":"c"}`, string(data))
	assert.True(t, FileOrFolderExists(p))

	_, err = ReadInput(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.False(t, FileOrFolderExists(filepath.Join(t.TempDir(), "missing.json")))
}

func TestErrExitUsesHook(t *testing.T) {
	var code int
	SetExitHook(func(c int) { code = c })
	defer SetExitHook(nil)
	ErrExit("store output: %w", os.ErrPermission)
	assert.Equal(t, 1, code)
	assert.ErrorIs(t, ErrExitErr, os.ErrPermission)
}

func TestSdump(t *testing.T) {
	type cfg struct {
		Codec string
		Jobs  int
	}
	out := Sdump(cfg{Codec: "base64", Jobs: 4})
	assert.Contains(t, out, `Codec: (string) (len=6) "base64"`)
	assert.Contains(t, out, "Jobs: (int) 4")
}
