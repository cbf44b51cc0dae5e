// Package journal keeps an append-only record of committed import sources next to the
// store, one JSON document per line.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const defaultSuffix = ".journal"

// Entry describes one import source that was merged and committed.
type Entry struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Shape     string    `json:"shape"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

type Manager struct {
	mu   sync.Mutex
	file *os.File
	path string
}

type Config struct {
	// StorePath is the record store file; the journal lives beside it.
	StorePath string
}

func (c *Config) validate() error {
	var errGrp []error
	if c.StorePath == "" {
		errGrp = append(errGrp, errors.New("store path cannot be empty"))
	}
	return errors.Join(errGrp...)
}

// New creates a journal manager. The file itself is opened by Start.
func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Manager{
		path: PathFor(cfg.StorePath),
	}, nil
}

// PathFor returns the journal location for a store file.
func PathFor(storePath string) string {
	return filepath.Clean(storePath) + defaultSuffix
}

// Start opens the journal for appending, creating it when missing.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0750); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	file, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}
	m.file = file
	return nil
}

func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

func (m *Manager) Name() string {
	return "Import Journal"
}

// Path returns the journal file location.
func (m *Manager) Path() string {
	return m.path
}

// Append writes the entry to the journal file, followed by a newline.
func (m *Manager) Append(e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return errors.New("journal is not open")
	}

	jsonData, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if _, err = m.file.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write to journal: %w", err)
	}
	return m.file.Sync()
}

// Load reads every entry of the journal in the order they were written. A missing journal
// yields no entries.
func (m *Manager) Load() ([]Entry, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed journal entry")
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}
