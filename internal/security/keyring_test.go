package security

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyStoreUsesKeyring(t *testing.T) {
	keyring.MockInit()
	ks, err := NewKeyStore(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, ks.Set("llm_api_key", "sk-test-123456"))
	got, err := ks.Get("llm_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123456", got)

	require.NoError(t, ks.Delete("llm_api_key"))
	_, err = ks.Get("llm_api_key")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeyStoreFallsBackToVault(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keychain"))
	t.Cleanup(keyring.MockInit)

	dir := t.TempDir()
	ks, err := NewKeyStoreWithPassword(dir, "master")
	require.NoError(t, err)
	require.NoError(t, ks.Set("telegram_token", "123:abc"))
	assert.FileExists(t, filepath.Join(dir, vaultFile))

	// A second store with the same password reads the same vault.
	ks2, err := NewKeyStoreWithPassword(dir, "master")
	require.NoError(t, err)
	got, err := ks2.Get("telegram_token")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", got)

	wrong, err := NewKeyStoreWithPassword(dir, "other")
	require.NoError(t, err)
	_, err = wrong.Get("telegram_token")
	assert.Error(t, err)
}

func TestVaultWithoutKeyFails(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keychain"))
	t.Cleanup(keyring.MockInit)

	ks, err := NewKeyStore(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Error(t, ks.Set("x", "y"))
}

func TestResolve(t *testing.T) {
	keyring.MockInit()
	ks, err := NewKeyStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, ks.Set("llm_api_key", "secret"))

	v, err := ks.Resolve("plain", "llm_api_key")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)

	v, err = ks.Resolve(Placeholder, "llm_api_key")
	require.NoError(t, err)
	assert.Equal(t, "secret", v)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", MaskKey("short"))
	assert.Equal(t, "sk-...cdef", MaskKey("sk-0123456789abcdef"))
	assert.Equal(t, Placeholder, MaskKey(Placeholder))
}

func TestIsPathSafe(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "work")
	tests := []struct {
		path string
		want bool
	}{
		{ws, true},
		{filepath.Join(ws, "a", "b.txt"), true},
		{filepath.Join(ws, "..", "work-other", "x"), false},
		{ws + "-other", false},
		{filepath.Join(ws, "..", "..", "etc"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPathSafe(tt.path, ws), tt.path)
	}

	_, err := ResolveInWorkspace(ws, "../escape.txt")
	assert.Error(t, err)
	p, err := ResolveInWorkspace(ws, "notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, "notes", "a.md"), p)
}

func TestValidateWorkspaceCreatesDir(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "new-ws")
	require.NoError(t, ValidateWorkspace(ws))
	assert.DirExists(t, ws)
	assert.Error(t, ValidateWorkspace(""))
}
