package vault

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	fileExt       = ".vault"
	keyInfo       = "ssok-token-vault-v1"
	minSecretSize = 16
	saltSize      = 32
)

var _ Vault = (*FileVault)(nil)

// FileVault keeps one XChaCha20-Poly1305 sealed file per key in a private folder.
// The key name is bound as associated data so files cannot be swapped between keys.
type FileVault struct {
	dir  string
	aead cipher.AEAD
	mu   sync.RWMutex
}

// NewFileVault derives the encryption key from secret with HKDF-SHA256.
// The salt is a per-folder random value persisted next to the sealed files.
func NewFileVault(dir string, secret []byte) (*FileVault, error) {
	if len(secret) < minSecretSize {
		return nil, fmt.Errorf("[NewFileVault] secret must be at least %d bytes", minSecretSize)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("[NewFileVault] create folder: %w", err)
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, "salt"))
	if err != nil {
		return nil, fmt.Errorf("[NewFileVault] salt: %w", err)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("[NewFileVault] derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[NewFileVault] cipher: %w", err)
	}

	return &FileVault{dir: dir, aead: aead}, nil
}

func (v *FileVault) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	sealed, err := os.ReadFile(v.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	nonceSize := v.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("read %s: sealed value truncated", key)
	}
	plain, err := v.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return plain, nil
}

func (v *FileVault) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	nonce := make([]byte, v.aead.NonceSize(), v.aead.NonceSize()+len(value)+v.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, value, []byte(key))

	v.mu.Lock()
	defer v.mu.Unlock()
	return writeAtomic(v.path(key), sealed)
}

func (v *FileVault) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.Remove(v.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (v *FileVault) path(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(v.dir, hex.EncodeToString(h[:])+fileExt)
}

// loadOrCreateSalt creates the salt only when the folder has none. A salt of
// the wrong size is an error; the sealed files depend on it.
func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	switch {
	case err == nil && len(salt) == saltSize:
		return salt, nil
	case err == nil:
		return nil, fmt.Errorf("%s has %d bytes, want %d", path, len(salt), saltSize)
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := writeAtomic(path, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// writeAtomic writes to a temp file and renames it over the target.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			return fmt.Errorf("rename temp file: %v; remove temp file: %w", err, removeErr)
		}
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
