package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	key := DeriveKey("test-password", salt)
	plaintext := []byte("super secret API key sk-abc123")

	encrypted, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, string(plaintext), encrypted)

	decrypted, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptWrongKey(t *testing.T) {
	salt, _ := GenerateSalt()
	key1 := DeriveKey("password1", salt)
	key2 := DeriveKey("password2", salt)

	encrypted, err := Encrypt([]byte("secret"), key1)
	require.NoError(t, err)

	_, err = Decrypt(encrypted, key2)
	assert.Error(t, err, "expected decryption to fail with wrong key")
}

func TestDecryptRejectsGarbage(t *testing.T) {
	key := DeriveKey("pw", []byte("fixed-salt-value"))
	_, err := Decrypt("not base64!", key)
	assert.Error(t, err)
	_, err = Decrypt("AAAA", key)
	assert.Error(t, err)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("fixed-salt-value")
	key1 := DeriveKey("password", salt)
	key2 := DeriveKey("password", salt)

	assert.Equal(t, key1, key2, "same password and salt should produce same key")
	assert.Len(t, key1, argonKeyLen)
}
