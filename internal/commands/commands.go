// Package commands is the command-line surface: one go-flags command per operation, each
// opening the store for the length of a single invocation.
package commands

import (
	"context"
	"errors"
	"fmt"
	flags "github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vodarchive/collate/internal/app"
	"github.com/vodarchive/collate/internal/config"
	"github.com/vodarchive/collate/internal/journal"
	"github.com/vodarchive/collate/internal/storage"
	"io"
)

// GlobalOptions apply to every command.
type GlobalOptions struct {
	Database string `long:"database" value-name:"PATH" description:"record store file (default: twitchy.db)"`
	Config   string `long:"config" value-name:"PATH" description:"settings file (default: collate.conf when present)"`
	Debug    bool   `long:"debug" description:"enable debug logging"`
}

// Env carries the global options and the output stream into each command.
type Env struct {
	Global GlobalOptions
	Stdout io.Writer

	settings *config.Config
}

// Settings returns the config file values overlaid with the global flags.
func (e *Env) Settings() (*config.Config, error) {
	if e.settings != nil {
		return e.settings, nil
	}

	path, required := e.Global.Config, true
	if path == "" {
		path, required = config.DefaultFileName, false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}

	if e.Global.Database != "" {
		cfg.Database = e.Global.Database
	}
	if e.Global.Debug {
		cfg.Debug = true
	}
	e.settings = cfg
	return cfg, nil
}

// storeOp is the body of a command that needs the store open.
type storeOp func(ctx context.Context, s *storage.Store, j *journal.Manager) error

// withStore opens the store (and the import journal when withJournal is set), runs op and
// closes everything again, whatever op returns.
func (e *Env) withStore(name string, withJournal bool, op storeOp) error {
	cfg, err := e.Settings()
	if err != nil {
		return err
	}

	store, err := storage.New(&storage.Config{Path: cfg.Database, LockTimeout: cfg.LockTimeout})
	if err != nil {
		return err
	}
	deps := []app.Dependency{store}

	var j *journal.Manager
	if withJournal {
		if j, err = journal.New(&journal.Config{StorePath: cfg.Database}); err != nil {
			return err
		}
		deps = append(deps, j)
	}

	application, err := app.CreateApp(&app.Config{ServiceName: name}, deps...)
	if err != nil {
		return err
	}
	return application.Run(context.Background(), func(ctx context.Context) error {
		return op(ctx, store, j)
	})
}

// NewParser builds the parser with every command registered against env.
func NewParser(env *Env) *flags.Parser {
	parser := flags.NewNamedParser("collate", flags.HelpFlag|flags.PassDoubleDash)
	parser.ShortDescription = "Collate crawled video metadata into a queryable store"

	if _, err := parser.AddGroup("Global Options", "", &env.Global); err != nil {
		panic(err)
	}

	commands := []struct {
		name, short string
		data        flags.Commander
	}{
		{"import", "Merge the crawl CSV sources into the store", &ImportCommand{env: env}},
		{"get", "Print the full record of a video", &GetCommand{env: env}},
		{"get-mirrors", "Print the mirror urls of a video", &GetMirrorsCommand{env: env}},
		{"get-mirrors-batch", "Print the mirror urls of every video listed in a file", &GetMirrorsBatchCommand{env: env}},
		{"missing-mirrors", "List videos with no mirror information", &MissingMirrorsCommand{env: env}},
		{"list", "Filter, count or rank the records", &ListCommand{env: env}},
		{"sample-size", "Estimate the average mirror file size by probing a sample", &SampleSizeCommand{env: env}},
		{"missing-user", "List requested users that own no video", &MissingUserCommand{env: env}},
		{"backup", "Write a consistent copy of the store", &BackupCommand{env: env}},
		{"stats", "Print record count and last import", &StatsCommand{env: env}},
		{"import-history", "Print the import journal", &ImportHistoryCommand{env: env}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.short+".", c.data); err != nil {
			panic(err)
		}
	}

	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return usageError("a command is required")
		}
		cfg, err := env.Settings()
		if err != nil {
			return err
		}
		level := zerolog.InfoLevel
		if cfg.Debug {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		return cmd.Execute(args)
	}
	return parser
}

// Run parses args and executes the selected command, writing results to stdout.
func Run(args []string, stdout io.Writer) error {
	env := &Env{Stdout: stdout}
	parser := NewParser(env)

	_, err := parser.ParseArgs(args)
	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
		_, _ = fmt.Fprintln(stdout, flagsErr.Message)
		return nil
	}
	return err
}

// Main runs the command line and returns the process exit code.
func Main(args []string, stdout io.Writer) int {
	err := Run(args, stdout)
	code := ExitCode(err)
	if err != nil {
		log.Error().Int("exit", code).Msg(err.Error())
	}
	return code
}
