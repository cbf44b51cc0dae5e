// Package storage is the persistent record store: a single bbolt file mapping video ids to
// encoded records.
//
// bbolt takes an exclusive file lock on open, so only one process can own the store at a
// time. Every mutation runs inside a write transaction, which means a record is never
// visible half-merged, and a failed transaction leaves the file as it was.
package storage

import (
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/vodarchive/collate/internal/record"
	bolt "go.etcd.io/bbolt"
	"os"
	"path/filepath"
	"time"
)

const (
	videosBucket       = "videos"
	metaBucket         = "meta"
	defaultLockTimeout = 5 * time.Second
)

var ErrLocked = errors.New("store is locked by another process")

// Store handles persistent record operations on disk
type Store struct {
	path        string
	lockTimeout time.Duration
	db          *bolt.DB
}

type Config struct {
	// Path of the store file. It is created on first use.
	Path string
	// LockTimeout bounds how long Start waits for another process to release the file.
	LockTimeout time.Duration
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Path == "" {
		errGrp = append(errGrp, errors.New("store path is required"))
	}
	if c.LockTimeout < 0 {
		errGrp = append(errGrp, errors.New("lock timeout cannot be negative"))
	}
	return errors.Join(errGrp...)
}

// New creates a new record store. Call Start to open the underlying file and Stop to
// release it.
func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	timeout := cfg.LockTimeout
	if timeout == 0 {
		timeout = defaultLockTimeout
	}

	return &Store{
		path:        cfg.Path,
		lockTimeout: timeout,
	}, nil
}

// Start opens the store file, creating it and its buckets when missing.
func (s *Store) Start() error {
	if s.db != nil {
		return errors.New("store already open")
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	start := time.Now()
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: s.lockTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return fmt.Errorf("%w: %s", ErrLocked, s.path)
		}
		return fmt.Errorf("open %q: %w", s.path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{videosBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	log.Debug().Str("path", s.path).Str("duration", time.Since(start).String()).Msg("Store opened")
	return nil
}

// Stop closes the store file. It is safe to call on a store that was never started.
func (s *Store) Stop() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}

func (s *Store) Name() string {
	return "Record Store"
}

// Path returns the location of the store file.
func (s *Store) Path() string {
	return s.path
}

// Update runs fn inside a single write transaction. Returning an error from fn rolls back
// every change fn made.
func (s *Store) Update(fn func(tx *Tx) error) error {
	if s.db == nil {
		return errors.New("store is not open")
	}
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(wrapTx(btx))
	})
}

// View runs fn inside a read transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	if s.db == nil {
		return errors.New("store is not open")
	}
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(wrapTx(btx))
	})
}

// Get returns the record stored for id, or a record.ErrNotFound error.
func (s *Store) Get(id string) (*record.VideoRecord, error) {
	var got *record.VideoRecord
	err := s.View(func(tx *Tx) error {
		r, exists, err := tx.Get(id)
		if err != nil {
			return err
		}
		if !exists {
			return record.NewError(record.ErrNotFound, "%s", id)
		}
		got = r
		return nil
	})
	return got, err
}

// Put replaces the record stored for id.
func (s *Store) Put(id string, r *record.VideoRecord) error {
	return s.Update(func(tx *Tx) error {
		return tx.Put(id, r)
	})
}

// ForEach calls fn for every record. Iteration order is an implementation detail and
// must not be relied on for presentation.
func (s *Store) ForEach(fn func(id string, r *record.VideoRecord) error) error {
	return s.View(func(tx *Tx) error {
		return tx.ForEach(fn)
	})
}

// Keys returns every video id in the store.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.View(func(tx *Tx) error {
		keys = make([]string, 0, tx.videos.Stats().KeyN)
		return tx.videos.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Len returns the number of records in the store.
func (s *Store) Len() (int, error) {
	var n int
	err := s.View(func(tx *Tx) error {
		n = tx.videos.Stats().KeyN
		return nil
	})
	return n, err
}
