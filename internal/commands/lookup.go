package commands

import (
	"context"
	"github.com/vodarchive/collate/internal/journal"
	"github.com/vodarchive/collate/internal/lines"
	"github.com/vodarchive/collate/internal/lookup"
	"github.com/vodarchive/collate/internal/storage"
)

// withLookup runs fn against a lookup over the open store.
func (e *Env) withLookup(name string, fn func(ctx context.Context, l *lookup.Lookup) error) error {
	return e.withStore(name, false, func(ctx context.Context, s *storage.Store, _ *journal.Manager) error {
		l, err := lookup.New(&lookup.Config{Store: s})
		if err != nil {
			return err
		}
		return fn(ctx, l)
	})
}

type videoIDArg struct {
	VideoID string `positional-arg-name:"video-id" required:"yes"`
}

type GetCommand struct {
	Args videoIDArg `positional-args:"yes" required:"yes"`

	env *Env
}

func (c *GetCommand) Execute(_ []string) error {
	return c.env.withLookup("get", func(_ context.Context, l *lookup.Lookup) error {
		return l.Get(c.Args.VideoID, c.env.Stdout)
	})
}

type GetMirrorsCommand struct {
	Args videoIDArg `positional-args:"yes" required:"yes"`

	env *Env
}

func (c *GetMirrorsCommand) Execute(_ []string) error {
	return c.env.withLookup("get-mirrors", func(_ context.Context, l *lookup.Lookup) error {
		return l.Mirrors(c.Args.VideoID, c.env.Stdout)
	})
}

type GetMirrorsBatchCommand struct {
	Args struct {
		File string `positional-arg-name:"ids-file" required:"yes"`
	} `positional-args:"yes" required:"yes"`

	env *Env
}

func (c *GetMirrorsBatchCommand) Execute(_ []string) error {
	ids, err := lines.ReadFile(c.Args.File)
	if err != nil {
		return err
	}
	return c.env.withLookup("get-mirrors-batch", func(ctx context.Context, l *lookup.Lookup) error {
		return l.MirrorsBatch(ctx, ids, c.env.Stdout)
	})
}

type MissingMirrorsCommand struct {
	ViewsMin *int64 `long:"views-min" value-name:"N" description:"only videos with at least N views"`
	User     string `long:"user" value-name:"NAME" description:"only videos of this user (case-insensitive)"`

	env *Env
}

func (c *MissingMirrorsCommand) Execute(_ []string) error {
	filter := &lookup.MissingFilter{ViewsMin: c.ViewsMin, User: c.User}
	return c.env.withLookup("missing-mirrors", func(ctx context.Context, l *lookup.Lookup) error {
		return l.MissingMirrors(ctx, filter, c.env.Stdout)
	})
}

type MissingUserCommand struct {
	User     string `long:"user" value-name:"NAME" description:"user to look for"`
	UserFile string `long:"user-file" value-name:"FILE" description:"file of users to look for, one per line"`

	env *Env
}

func (c *MissingUserCommand) Execute(_ []string) error {
	var users []string
	switch {
	case c.User != "" && c.UserFile != "":
		return usageError("--user and --user-file are mutually exclusive")
	case c.User != "":
		users = []string{c.User}
	case c.UserFile != "":
		var err error
		if users, err = lines.ReadFile(c.UserFile); err != nil {
			return err
		}
	default:
		return usageError("one of --user or --user-file is required")
	}

	return c.env.withLookup("missing-user", func(ctx context.Context, l *lookup.Lookup) error {
		return l.MissingUsers(ctx, users, c.env.Stdout)
	})
}
