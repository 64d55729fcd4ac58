package security

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "streamtap"
	vaultFile      = "vault.enc"
	saltFile       = "vault.salt"

	// Placeholder marks a config value whose secret lives in the KeyStore.
	Placeholder = "[keyring]"
)

// ErrKeyNotFound is returned when neither the OS keychain nor the vault
// holds the requested secret.
var ErrKeyNotFound = errors.New("key not found")

// KeyStore manages secure storage of API keys.
// Primary: OS Keychain. Fallback: encrypted file.
type KeyStore struct {
	mu            sync.Mutex
	encryptionKey []byte // derived from master password
	vaultPath     string
}

// NewKeyStore creates a key store whose vault lives in dir.
// masterKey is the AES key derived from master password (may be nil if using keyring only).
func NewKeyStore(dir string, masterKey []byte) (*KeyStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &KeyStore{
		encryptionKey: masterKey,
		vaultPath:     filepath.Join(dir, vaultFile),
	}, nil
}

// NewKeyStoreWithPassword derives the vault key from password with Argon2id.
// The salt is created on first use and kept next to the vault.
func NewKeyStoreWithPassword(dir, password string) (*KeyStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	saltPath := filepath.Join(dir, saltFile)
	salt, err := os.ReadFile(saltPath)
	if errors.Is(err, os.ErrNotExist) {
		if salt, err = GenerateSalt(); err != nil {
			return nil, err
		}
		err = os.WriteFile(saltPath, salt, 0600)
	}
	if err != nil {
		return nil, fmt.Errorf("vault salt: %w", err)
	}
	return NewKeyStore(dir, DeriveKey(password, salt))
}

// Set stores a secret (tries keyring first, falls back to encrypted file).
func (ks *KeyStore) Set(name, value string) error {
	if err := keyring.Set(keyringService, name, value); err == nil {
		return nil
	}
	return ks.setInVault(name, value)
}

// Get retrieves a secret.
func (ks *KeyStore) Get(name string) (string, error) {
	if val, err := keyring.Get(keyringService, name); err == nil {
		return val, nil
	}
	return ks.getFromVault(name)
}

// Delete removes a secret.
func (ks *KeyStore) Delete(name string) error {
	_ = keyring.Delete(keyringService, name)
	return ks.deleteFromVault(name)
}

// Resolve returns value unless it is the keyring placeholder, in which case
// the secret stored under name is returned.
func (ks *KeyStore) Resolve(value, name string) (string, error) {
	if value != Placeholder {
		return value, nil
	}
	return ks.Get(name)
}

// MaskKey returns a masked version of an API key for display.
func MaskKey(key string) string {
	if key == Placeholder {
		return key
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}

// Vault operations (encrypted JSON file)
func (ks *KeyStore) loadVault() (map[string]string, error) {
	data, err := os.ReadFile(ks.vaultPath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	if ks.encryptionKey == nil {
		return nil, fmt.Errorf("no encryption key set")
	}

	plaintext, err := Decrypt(string(data), ks.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt vault: %w", err)
	}

	var vault map[string]string
	if err := json.Unmarshal(plaintext, &vault); err != nil {
		return nil, fmt.Errorf("parse vault: %w", err)
	}
	return vault, nil
}

func (ks *KeyStore) saveVault(vault map[string]string) error {
	if ks.encryptionKey == nil {
		return fmt.Errorf("no encryption key set")
	}

	data, err := json.Marshal(vault)
	if err != nil {
		return err
	}

	encrypted, err := Encrypt(data, ks.encryptionKey)
	if err != nil {
		return err
	}

	return os.WriteFile(ks.vaultPath, []byte(encrypted), 0600)
}

func (ks *KeyStore) setInVault(name, value string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	vault, err := ks.loadVault()
	if err != nil {
		return err
	}
	vault[name] = value
	return ks.saveVault(vault)
}

func (ks *KeyStore) getFromVault(name string) (string, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	vault, err := ks.loadVault()
	if err != nil {
		return "", err
	}
	val, ok := vault[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	return val, nil
}

func (ks *KeyStore) deleteFromVault(name string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	vault, err := ks.loadVault()
	if err != nil {
		return nil // nothing to delete
	}
	if _, ok := vault[name]; !ok {
		return nil
	}
	delete(vault, name)
	return ks.saveVault(vault)
}
