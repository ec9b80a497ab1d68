// Package store persists users, credit balances, documents, and the
// append-only enhancement audit log in an embedded BadgerDB instance.
// Balance mutations run inside serializable transactions, which is what
// makes the ledger's reserve step atomic per user.
package store

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Config holds the knobs for opening a store.
type Config struct {
	// Dir is the directory for BadgerDB files. Ignored when InMemory is set.
	Dir string

	// InMemory opens a throwaway store with no disk persistence. Used by
	// tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// DefaultConfig returns production defaults for the given data directory.
func DefaultConfig(dir string) Config {
	return Config{Dir: dir, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests: no disk I/O.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) the store described by cfg.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", cfg.Dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying on commit conflicts
// so concurrent balance mutations serialize instead of failing.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
}

// badgerLogger adapts Badger's internal logging to charmbracelet/log,
// demoting its chatty info output to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Errorf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Warnf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debugf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Debugf("badger: "+format, args...)
}
