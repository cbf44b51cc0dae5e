package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

const lastImportKey = "last_import"

// ImportMarker records the most recent source committed by an import run.
type ImportMarker struct {
	RunID  string    `json:"run_id"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

// Stats is a summary of the store for operators.
type Stats struct {
	Records    int           `json:"records"`
	LastImport *ImportMarker `json:"last_import,omitempty"`
}

// MarkImport stores m as the last import marker inside the caller's transaction, so the
// marker commits or rolls back together with the merged rows.
func (t *Tx) MarkImport(m *ImportMarker) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal import marker: %w", err)
	}
	return t.SetMeta(lastImportKey, b)
}

// Stats returns the record count and the last import marker.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}
	err := s.View(func(tx *Tx) error {
		stats.Records = tx.videos.Stats().KeyN
		raw := tx.Meta(lastImportKey)
		if raw == nil {
			return nil
		}
		m := &ImportMarker{}
		if err := json.Unmarshal(raw, m); err != nil {
			return fmt.Errorf("failed to parse import marker: %w", err)
		}
		stats.LastImport = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
