package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/cepip-console/internal/telemetry/logger"
)

// Persisted entries of the console session.
const (
	KeyAccessToken = "access_token"
	KeyUser        = "user"
)

var (
	// ErrKeyNotFound is returned by Get for absent entries.
	ErrKeyNotFound = errors.New("storage: key not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("storage: store closed")

	// ErrCorrupt is returned when a stored value cannot be decoded,
	// for instance a sealed value that no longer decrypts.
	ErrCorrupt = errors.New("storage: stored value is corrupt")
)

// Store is a small durable string map.
type Store interface {
	// Get returns ErrKeyNotFound for absent keys.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Engine names accepted by Open.
const (
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// Config selects and configures a Store.
type Config struct {
	Engine string
	// Dir holds the Badger database.
	Dir string
	// Encrypt seals values with the key in KeyFile.
	Encrypt bool
	// KeyFile defaults to <Dir>/session.key.
	KeyFile string
	Badger  BadgerConfig
}

// DefaultConfig returns a Badger backed, encrypted configuration under dir.
func DefaultConfig(dir string) Config {
	return Config{
		Engine:  EngineBadger,
		Dir:     dir,
		Encrypt: true,
		Badger:  DefaultBadgerConfig(),
	}
}

// Open builds the Store described by cfg.
func Open(cfg Config, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Default()
	}

	var (
		base Store
		err  error
	)
	switch cfg.Engine {
	case EngineBadger, "":
		base, err = NewBadgerStore(filepath.Join(cfg.Dir, "session"), cfg.Badger, log)
	case EngineMemory:
		base = NewMemoryStore()
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Encrypt {
		return base, nil
	}

	keyFile := cfg.KeyFile
	if keyFile == "" {
		keyFile = filepath.Join(cfg.Dir, "session.key")
	}
	key, err := LoadOrCreateKey(keyFile)
	if err != nil {
		base.Close()
		return nil, err
	}
	sealed, err := NewSealedStore(base, key)
	if err != nil {
		base.Close()
		return nil, err
	}
	return sealed, nil
}

// CollectorOf returns the metrics collector of s, looking through
// wrapping stores. Stores without metrics report false.
func CollectorOf(s Store) (prometheus.Collector, bool) {
	for s != nil {
		if c, ok := s.(interface{ Collector() prometheus.Collector }); ok {
			return c.Collector(), true
		}
		u, ok := s.(interface{ Unwrap() Store })
		if !ok {
			return nil, false
		}
		s = u.Unwrap()
	}
	return nil, false
}
