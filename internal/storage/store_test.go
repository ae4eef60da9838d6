package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/cepip-console/internal/telemetry/logger"
)

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, KeyAccessToken, "tok-1"))
	require.NoError(t, s.Set(ctx, KeyUser, `{"name":"Ana"}`))

	v, err := s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v)

	require.NoError(t, s.Set(ctx, KeyAccessToken, "tok-2"))
	v, err = s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", v)

	require.NoError(t, s.Delete(ctx, KeyAccessToken))
	require.NoError(t, s.Delete(ctx, KeyAccessToken), "deleting an absent key")
	_, err = s.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	v, err = s.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ana"}`, v)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	storeContract(t, s)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Close())
	_, err := s.Get(context.Background(), KeyUser)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), KeyUser, "x"), ErrClosed)
}

func TestBadgerStore(t *testing.T) {
	s, err := NewBadgerStore(t.TempDir(), DefaultBadgerConfig(), logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)

	_, err = s.GC(context.Background())
	assert.NoError(t, err)

	lsm, vlog := s.Size()
	assert.GreaterOrEqual(t, lsm+vlog, int64(0))
	assert.NotNil(t, s.Collector())
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultBadgerConfig()
	ctx := context.Background()

	s, err := NewBadgerStore(dir, cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyAccessToken, "persisted"))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	s, err = NewBadgerStore(dir, cfg, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "persisted", v)
}

func TestBadgerStore_ClosedRefusesOperations(t *testing.T) {
	s, err := NewBadgerStore(t.TempDir(), DefaultBadgerConfig(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(context.Background(), KeyUser)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), KeyUser, "x"), ErrClosed)
}

func TestBadgerStore_WaitsForLockHolder(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultBadgerConfig()
	cfg.LockTimeout = 2 * time.Second
	ctx := context.Background()

	s, err := NewBadgerStore(dir, cfg, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	// Another handle keeps the directory locked for a moment.
	holder, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	released := time.AfterFunc(100*time.Millisecond, func() { _ = holder.Close() })
	defer released.Stop()

	require.NoError(t, s.Set(ctx, KeyAccessToken, "after-wait"))
	v, err := s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "after-wait", v)
}

func TestBadgerStore_LockTimeout(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultBadgerConfig()
	cfg.LockTimeout = 50 * time.Millisecond
	cfg.GCOnClose = false

	s, err := NewBadgerStore(dir, cfg, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	holder, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	defer holder.Close()

	err = s.Set(context.Background(), KeyAccessToken, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory lock")
}

func TestOpen_TwoStoresShareDirectory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a, err := Open(DefaultConfig(dir), logger.Nop())
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(DefaultConfig(dir), logger.Nop())
	require.NoError(t, err, "a second store on the same directory must open")
	defer b.Close()

	require.NoError(t, a.Set(ctx, KeyAccessToken, "from-a"))
	v, err := b.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "from-a", v)

	var g errgroup.Group
	for i := range 10 {
		s := a
		if i%2 == 1 {
			s = b
		}
		g.Go(func() error {
			return s.Set(ctx, KeyUser, fmt.Sprintf(`{"n":%d}`, i))
		})
	}
	require.NoError(t, g.Wait())

	va, err := a.Get(ctx, KeyUser)
	require.NoError(t, err)
	vb, err := b.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}

func TestNewBadgerStore_RequiresDir(t *testing.T) {
	_, err := NewBadgerStore("", DefaultBadgerConfig(), nil)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(dir string) Config
		wantErr bool
	}{
		{"badger encrypted", func(dir string) Config { return DefaultConfig(dir) }, false},
		{"badger plain", func(dir string) Config {
			c := DefaultConfig(dir)
			c.Encrypt = false
			return c
		}, false},
		{"memory encrypted", func(dir string) Config {
			c := DefaultConfig(dir)
			c.Engine = EngineMemory
			return c
		}, false},
		{"unknown engine", func(dir string) Config {
			c := DefaultConfig(dir)
			c.Engine = "bolt"
			return c
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg(t.TempDir()), logger.Nop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			storeContract(t, s)
		})
	}
}

func TestCollectorOf(t *testing.T) {
	s, err := Open(DefaultConfig(t.TempDir()), logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	c, ok := CollectorOf(s)
	assert.True(t, ok, "sealed badger store should expose badger metrics")
	assert.NotNil(t, c)

	_, ok = CollectorOf(NewMemoryStore())
	assert.False(t, ok)
}

func TestOpen_EncryptedValuesAreNotPlaintext(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	ctx := context.Background()

	s, err := Open(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyAccessToken, "super-secret-token"))
	require.NoError(t, s.Close())

	cfg.Encrypt = false
	raw, err := Open(cfg, logger.Nop())
	require.NoError(t, err)
	defer raw.Close()

	v, err := raw.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.NotContains(t, v, "super-secret-token")

	info, err := os.Stat(filepath.Join(dir, "session.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
