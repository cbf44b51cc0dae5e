// Package importer merges the crawl CSV sources into the record store.
//
// Sources are processed strictly in the order given. Each source is merged inside one store
// transaction: a malformed row rolls that source back and aborts the run, while sources
// committed before it stay in the store. Scalar fields are last-writer-wins; mirror indices
// only ever accumulate.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vodarchive/collate/internal/journal"
	"github.com/vodarchive/collate/internal/record"
	"github.com/vodarchive/collate/internal/storage"
	"io"
	"os"
	"time"
)

const DefaultUserDomain = "twitch.tv"

var ErrMalformedInput = errors.New("malformed input")

type recordStore interface {
	Update(fn func(tx *storage.Tx) error) error
}

type recorder interface {
	Append(e *journal.Entry) error
}

type Importer struct {
	store   recordStore
	journal recorder
	parser  *rowParser
	now     func() time.Time
}

type Config struct {
	Store   recordStore
	Journal recorder
	// UserDomain is the host whose first path segment names the owning user in highlights
	// urls. Defaults to DefaultUserDomain.
	UserDomain string
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Store == nil {
		errGrp = append(errGrp, errors.New("store cannot be nil"))
	}
	if c.Journal == nil {
		errGrp = append(errGrp, errors.New("journal cannot be nil"))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Importer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	domain := cfg.UserDomain
	if domain == "" {
		domain = DefaultUserDomain
	}
	return &Importer{
		store:   cfg.Store,
		journal: cfg.Journal,
		parser:  newRowParser(domain),
		now:     time.Now,
	}, nil
}

// SourceResult is the outcome of one committed source.
type SourceResult struct {
	Source string
	Shape  Shape
	Rows   int
}

// Summary describes an import run. On failure it still lists the sources that committed.
type Summary struct {
	RunID   string
	Sources []SourceResult
}

// Run imports every source in order.
func (i *Importer) Run(ctx context.Context, sources []Source) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		log.Info().Str("run", summary.RunID).Str("shape", src.Shape.String()).Msgf("Processing %s", src.Name())
		start := time.Now()

		rows, err := i.importSource(summary.RunID, src)
		if err != nil {
			return summary, err
		}

		if err = i.journal.Append(&journal.Entry{
			RunID:     summary.RunID,
			Source:    src.Path,
			Shape:     src.Shape.String(),
			Rows:      rows,
			Timestamp: i.now(),
		}); err != nil {
			return summary, fmt.Errorf("source %s committed but journal append failed: %w", src.Name(), err)
		}

		summary.Sources = append(summary.Sources, SourceResult{Source: src.Path, Shape: src.Shape, Rows: rows})
		log.Debug().Int("rows", rows).Str("duration", time.Since(start).String()).Msgf("Committed %s", src.Name())
	}

	return summary, nil
}

// importSource merges one file inside a single write transaction and returns the number of
// data rows merged.
func (i *Importer) importSource(runID string, src Source) (int, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	rows := 0
	err = i.store.Update(func(tx *storage.Tx) error {
		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1

		for {
			fields, readErr := reader.Read()
			if errors.Is(readErr, io.EOF) {
				break
			}
			if readErr != nil {
				return fmt.Errorf("%w: %s: %v", ErrMalformedInput, src.Name(), readErr)
			}
			line, _ := reader.FieldPos(0)

			r, ok, parseErr := i.parser.parse(src.Shape, fields)
			if parseErr != nil {
				return fmt.Errorf("%w: %s line %d: %v", ErrMalformedInput, src.Name(), line, parseErr)
			}
			if !ok {
				continue
			}

			if err := tx.Merge(r.videoID, func(rec *record.VideoRecord) error {
				r.apply(rec)
				return nil
			}); err != nil {
				return fmt.Errorf("%s line %d: %w", src.Name(), line, err)
			}
			rows++
		}

		return tx.MarkImport(&storage.ImportMarker{
			RunID:  runID,
			Source: src.Path,
			At:     i.now(),
		})
	})
	if err != nil {
		return 0, err
	}
	return rows, nil
}
