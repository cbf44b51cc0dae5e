package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/vodarchive/collate/internal/journal"
	"github.com/vodarchive/collate/internal/storage"
	"time"
)

type BackupCommand struct {
	Dir   string `long:"backup-dir" value-name:"DIR" description:"directory for the copies (default: backups)"`
	Limit *int   `long:"limit" value-name:"N" description:"number of copies to keep (default: 5)"`

	env *Env
}

func (c *BackupCommand) Execute(_ []string) error {
	cfg, err := c.env.Settings()
	if err != nil {
		return err
	}

	dir := cfg.BackupDir
	if c.Dir != "" {
		dir = c.Dir
	}
	limit := pick(c.Limit, cfg.BackupLimit)
	if limit <= 0 {
		return usageError("--limit must be positive")
	}

	return c.env.withStore("backup", false, func(_ context.Context, s *storage.Store, _ *journal.Manager) error {
		path, err := s.Backup(dir, limit)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.env.Stdout, path)
		return err
	})
}

type StatsCommand struct {
	env *Env
}

func (c *StatsCommand) Execute(_ []string) error {
	return c.env.withStore("stats", false, func(_ context.Context, s *storage.Store, _ *journal.Manager) error {
		stats, err := s.Stats()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	})
}

type ImportHistoryCommand struct {
	Run string `long:"run" value-name:"ID" description:"only entries of this import run"`

	env *Env
}

// Execute reads the journal file directly; the store itself is not opened.
func (c *ImportHistoryCommand) Execute(_ []string) error {
	cfg, err := c.env.Settings()
	if err != nil {
		return err
	}

	j, err := journal.New(&journal.Config{StorePath: cfg.Database})
	if err != nil {
		return err
	}
	entries, err := j.Load()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", j.Path(), err)
	}

	shown := 0
	for _, e := range entries {
		if c.Run != "" && e.RunID != c.Run {
			continue
		}
		if _, err = fmt.Fprintf(c.env.Stdout, "%s %s %s %s %d\n",
			e.Timestamp.UTC().Format(time.RFC3339), e.RunID, e.Shape, e.Source, e.Rows); err != nil {
			return err
		}
		shown++
	}
	log.Debug().Int("entries", shown).Str("path", j.Path()).Msg("Import history")
	return nil
}
