package storage

import (
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	backupFileGlob     = "backup-*.db"
	defaultBackupLimit = 5
)

// Backup writes a consistent copy of the store into dir and prunes the oldest copies so
// that at most limit remain. A limit of zero uses the default. It returns the path of the
// new copy.
func (s *Store) Backup(dir string, limit int) (string, error) {
	if s.db == nil {
		return "", errors.New("store is not open")
	}
	if limit < 0 {
		return "", fmt.Errorf("backup limit must not be negative, got %d", limit)
	}
	if limit == 0 {
		limit = defaultBackupLimit
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	start := time.Now()
	filename := filepath.Join(dir, fmt.Sprintf("backup-%d.db", start.UnixNano()))

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(filename, 0600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}

	log.Debug().Str("duration", time.Since(start).String()).Msgf("Backup saved to %s", filename)

	maintainBackupLimit(dir, limit)
	return filename, nil
}

// maintainBackupLimit checks the number of backup files in the directory and prunes the oldest
// ones if the limit is exceeded.
func maintainBackupLimit(dir string, limit int) {
	files, err := filepath.Glob(filepath.Join(dir, backupFileGlob))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list backup files")
		return
	}

	if len(files) <= limit {
		return
	}

	// The names carry a fixed-width nanosecond timestamp, so lexical order is chronological.
	sort.Strings(files)

	for i := 0; i < len(files)-limit; i++ {
		if err = os.Remove(files[i]); err != nil {
			log.Error().Err(err).Msgf("Failed to remove old backup %s", files[i])
		} else {
			log.Debug().Msgf("Pruned old backup: %s", files[i])
		}
	}
}
