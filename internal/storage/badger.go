package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/cepip-console/internal/telemetry/logger"
)

// BadgerConfig tunes the embedded database. The defaults are sized for a
// few kilobytes of session state rather than a server workload.
type BadgerConfig struct {
	// LockTimeout bounds how long an operation waits for another process
	// (a running console, a parallel command) to release the database.
	LockTimeout time.Duration
	// GCOnClose runs one value log GC pass when the store is closed.
	GCOnClose        bool
	GCThreshold      float64
	CacheSize        int64
	MemTableSize     int64
	ValueLogFileSize int64
	SyncWrites       bool
}

// DefaultBadgerConfig returns settings suited to a CLI state directory.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		LockTimeout:      5 * time.Second,
		GCOnClose:        true,
		GCThreshold:      0.5,
		CacheSize:        4 << 20,
		MemTableSize:     8 << 20,
		ValueLogFileSize: 16 << 20,
		SyncWrites:       true,
	}
}

const (
	lockRetryMin = 10 * time.Millisecond
	lockRetryMax = 200 * time.Millisecond
)

// BadgerStore implements Store on Badger v3. Badger locks its directory
// for as long as a database is open, so the store opens it for each
// operation and closes it right after. Several cepip-cli processes can
// then share one state directory; an operation that finds the directory
// locked retries until LockTimeout.
type BadgerStore struct {
	dir  string
	opts badger.Options
	cfg  BadgerConfig
	log  logger.Logger

	// mu serialises opens within this process.
	mu     sync.Mutex
	closed bool
}

// NewBadgerStore prepares the database in dir, creating it if needed.
func NewBadgerStore(dir string, cfg BadgerConfig, log logger.Logger) (*BadgerStore, error) {
	if dir == "" {
		return nil, errors.New("badger: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "storage", "engine", EngineBadger)

	opts := badger.DefaultOptions(dir).
		WithLogger(&badgerLogger{log: log}).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1)
	if cfg.CacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.CacheSize)
	}
	if cfg.MemTableSize > 0 {
		opts = opts.WithMemTableSize(cfg.MemTableSize)
	}
	if cfg.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(cfg.ValueLogFileSize)
	}

	s := &BadgerStore{dir: dir, opts: opts, cfg: cfg, log: log}
	// Open once so a broken directory is reported now, not on first use.
	if err := s.withDB(context.Background(), func(*badger.DB) error { return nil }); err != nil {
		return nil, err
	}
	log.Debug("state store ready", "dir", dir)
	return s, nil
}

// withDB opens the database, runs fn and closes it again.
func (s *BadgerStore) withDB(ctx context.Context, fn func(db *badger.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	ferr := fn(db)
	if cerr := db.Close(); cerr != nil && ferr == nil {
		ferr = fmt.Errorf("badger: close: %w", cerr)
	}
	return ferr
}

func (s *BadgerStore) open(ctx context.Context) (*badger.DB, error) {
	deadline := time.Now().Add(s.cfg.LockTimeout)
	wait := lockRetryMin
	for {
		db, err := badger.Open(s.opts)
		if err == nil {
			return db, nil
		}
		if !isLocked(err) || time.Now().After(deadline) {
			return nil, fmt.Errorf("badger: open %s: %w", s.dir, err)
		}
		s.log.Debug("state store busy, retrying", "wait", wait)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("badger: open %s: %w", s.dir, ctx.Err())
		case <-time.After(wait):
		}
		wait = min(wait*2, lockRetryMax)
	}
}

// isLocked reports the error Badger returns when another handle holds the
// directory lock.
func isLocked(err error) bool {
	return strings.Contains(err.Error(), "Cannot acquire directory lock")
}

func (s *BadgerStore) Get(ctx context.Context, key string) (string, error) {
	var value []byte
	err := s.withDB(ctx, func(db *badger.DB) error {
		return db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if err != nil {
				return err
			}
			value, err = item.ValueCopy(nil)
			return err
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return "", ErrKeyNotFound
	case err != nil:
		return "", s.wrap("get", key, err)
	}
	return string(value), nil
}

func (s *BadgerStore) Set(ctx context.Context, key, value string) error {
	err := s.withDB(ctx, func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(key), []byte(value))
		})
	})
	return s.wrap("set", key, err)
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	err := s.withDB(ctx, func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		})
	})
	return s.wrap("delete", key, err)
}

func (s *BadgerStore) wrap(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrClosed), errors.Is(err, badger.ErrDBClosed):
		return ErrClosed
	}
	return fmt.Errorf("badger: %s %s: %w", op, key, err)
}

// GC runs value log garbage collection until Badger reports nothing left
// to rewrite. It returns the number of rewritten log files.
func (s *BadgerStore) GC(ctx context.Context) (int, error) {
	rewrites := 0
	err := s.withDB(ctx, func(db *badger.DB) error {
		for ctx.Err() == nil {
			err := db.RunValueLogGC(s.cfg.GCThreshold)
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("badger: gc: %w", err)
			}
			rewrites++
		}
		return nil
	})
	return rewrites, err
}

// Size returns the on-disk LSM and value log sizes in bytes. It reads the
// directory rather than opening the database, so it never waits for the
// lock.
func (s *BadgerStore) Size() (lsm, vlog int64) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".sst":
			lsm += info.Size()
		case ".vlog":
			vlog += info.Size()
		}
	}
	return lsm, vlog
}

// Collector exposes the store size as a Prometheus metric.
func (s *BadgerStore) Collector() prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "cepip",
		Subsystem: "state",
		Name:      "size_bytes",
		Help:      "Size of the local session store on disk (LSM + value log).",
	}, func() float64 {
		lsm, vlog := s.Size()
		return float64(lsm + vlog)
	})
}

// Close runs the final GC pass, if configured, and refuses further
// operations. Safe to call twice.
func (s *BadgerStore) Close() error {
	if s.cfg.GCOnClose {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LockTimeout+time.Second)
		if _, err := s.GC(ctx); err != nil && !errors.Is(err, ErrClosed) {
			s.log.Warn("state store gc failed", "error", err)
		}
		cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.log.Debug("state store closed")
	}
	return nil
}

// badgerLogger routes Badger's internal logging into our logger. Badger is
// chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
