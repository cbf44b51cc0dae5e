package commands

import (
	"context"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/vodarchive/collate/internal/importer"
	"github.com/vodarchive/collate/internal/journal"
	"github.com/vodarchive/collate/internal/storage"
)

type ImportCommand struct {
	CSVDir     string   `long:"csv-dir" value-name:"DIR" description:"directory holding the default source files (default: ../csv)"`
	Highlights []string `long:"highlights" value-name:"FILE" description:"highlights source (id,url,date,views,length); repeatable"`
	Mirrors    []string `long:"mirrors" value-name:"FILE" description:"mirror list source (video_id,index,url,type); repeatable"`
	Discovery  []string `long:"discovery" value-name:"FILE" description:"discovery source (video_id,user,views); repeatable"`
	UserDomain string   `long:"user-domain" value-name:"HOST" description:"host whose first path segment names the user in highlights urls"`

	env *Env
}

// sources returns the explicit files when any were given, otherwise the default manifest.
func (c *ImportCommand) sources(csvDir string) []importer.Source {
	if len(c.Highlights)+len(c.Mirrors)+len(c.Discovery) > 0 {
		return importer.Ordered(c.Highlights, c.Mirrors, c.Discovery)
	}
	return importer.DefaultSources(csvDir)
}

func (c *ImportCommand) Execute(args []string) error {
	if len(args) > 0 {
		return usageError("import takes no positional arguments, got %v", args)
	}
	cfg, err := c.env.Settings()
	if err != nil {
		return err
	}

	csvDir := cfg.CSVDir
	if c.CSVDir != "" {
		csvDir = c.CSVDir
	}
	domain := cfg.UserDomain
	if c.UserDomain != "" {
		domain = c.UserDomain
	}
	sources := c.sources(csvDir)

	return c.env.withStore("import", true, func(ctx context.Context, s *storage.Store, j *journal.Manager) error {
		imp, err := importer.New(&importer.Config{Store: s, Journal: j, UserDomain: domain})
		if err != nil {
			return err
		}

		summary, err := imp.Run(ctx, sources)
		rows := 0
		for _, src := range summary.Sources {
			rows += src.Rows
		}
		if err != nil {
			return fmt.Errorf("import run %s stopped after %d of %d sources: %w",
				summary.RunID, len(summary.Sources), len(sources), err)
		}

		log.Info().Str("run", summary.RunID).Int("sources", len(summary.Sources)).Int("rows", rows).
			Msg("Import complete")
		return nil
	})
}
