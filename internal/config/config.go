// Package config reads the optional key=value settings file. Command-line flags override
// anything read here.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultFileName = "collate.conf"

	defaultDatabase        = "twitchy.db"
	defaultCSVDir          = "../csv"
	defaultUserDomain      = "twitch.tv"
	defaultProbeTimeout    = 10 * time.Second
	defaultSampleSize      = 5000
	defaultSampleSuccesses = 1000
	defaultProgressEvery   = 50
	defaultBackupDir       = "backups"
	defaultBackupLimit     = 5
	defaultLockTimeout     = 5 * time.Second
)

type Config struct {
	Database   string
	CSVDir     string
	UserDomain string

	ProbeTimeout    time.Duration
	SampleSize      int
	SampleSuccesses int
	ProgressEvery   int

	BackupDir   string
	BackupLimit int

	LockTimeout time.Duration
	Debug       bool
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database:        defaultDatabase,
		CSVDir:          defaultCSVDir,
		UserDomain:      defaultUserDomain,
		ProbeTimeout:    defaultProbeTimeout,
		SampleSize:      defaultSampleSize,
		SampleSuccesses: defaultSampleSuccesses,
		ProgressEvery:   defaultProgressEvery,
		BackupDir:       defaultBackupDir,
		BackupLimit:     defaultBackupLimit,
		LockTimeout:     defaultLockTimeout,
	}
}

// Load returns the defaults overlaid with the file at path. A missing file is only an error
// when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			log.Debug().Str("path", path).Msg("No config file, using defaults")
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err = cfg.parse(file); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("line %d: expected key=value", lineNo)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		var err error
		switch key {
		case "database":
			c.Database = value
		case "csv_dir":
			c.CSVDir = value
		case "user_domain":
			c.UserDomain = value
		case "backup_dir":
			c.BackupDir = value
		case "probe_timeout":
			c.ProbeTimeout, err = seconds(value)
		case "lock_timeout":
			c.LockTimeout, err = seconds(value)
		case "sample_size":
			c.SampleSize, err = positive(value)
		case "sample_successes":
			c.SampleSuccesses, err = positive(value)
		case "progress_every":
			c.ProgressEvery, err = positive(value)
		case "backup_limit":
			c.BackupLimit, err = positive(value)
		case "debug":
			c.Debug = value == "true"
		default:
			log.Warn().Str("key", key).Int("line", lineNo).Msg("Ignoring unknown config key")
		}
		if err != nil {
			return fmt.Errorf("line %d: invalid %s value: %w", lineNo, key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func seconds(value string) (time.Duration, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return time.Duration(n) * time.Second, nil
}

func positive(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}
