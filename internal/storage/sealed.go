package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yndnr/cepip-console/pkg/crypto/adaptive"
	"github.com/yndnr/cepip-console/pkg/secret"
)

// SealedStore encrypts values before handing them to the wrapped Store.
// The entry name is bound as additional data, so a value copied under
// another name fails to open.
type SealedStore struct {
	inner  Store
	cipher adaptive.Cipher
}

// NewSealedStore wraps inner with a cipher built from key.
func NewSealedStore(inner Store, key []byte) (*SealedStore, error) {
	c, err := adaptive.New(key)
	if err != nil {
		return nil, fmt.Errorf("storage: sealed store: %w", err)
	}
	return &SealedStore{inner: inner, cipher: c}, nil
}

// Get returns ErrCorrupt when the stored value does not open with the
// current key.
func (s *SealedStore) Get(ctx context.Context, key string) (string, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	plain, err := adaptive.OpenString(s.cipher, sealed, key)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return plain, nil
}

func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	sealed, err := adaptive.SealString(s.cipher, value, key)
	if err != nil {
		return fmt.Errorf("storage: seal %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *SealedStore) Close() error {
	return s.inner.Close()
}

// LoadOrCreateKey reads a raw key from path, creating a random one with
// mode 0600 when the file does not exist.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != adaptive.KeySize {
			return nil, fmt.Errorf("storage: key file %s: %w", path, adaptive.ErrKeySize)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("storage: read key file: %w", err)
	}

	key, err = secret.RandomBytes(adaptive.KeySize)
	if err != nil {
		return nil, fmt.Errorf("storage: generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage: create key dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("storage: create key file: %w", err)
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("storage: write key file: %w", err)
	}
	return key, nil
}

// Unwrap returns the wrapped Store.
func (s *SealedStore) Unwrap() Store { return s.inner }
