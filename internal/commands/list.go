package commands

import (
	"context"
	"github.com/vodarchive/collate/internal/journal"
	"github.com/vodarchive/collate/internal/lines"
	"github.com/vodarchive/collate/internal/query"
	"github.com/vodarchive/collate/internal/storage"
)

type ListCommand struct {
	Type       string `long:"type" default:"records" choice:"records" choice:"mirrors" description:"list videos or their mirror urls"`
	CountOnly  bool   `long:"count-only" description:"print only the number of matches, or the number of their mirrors with --type=mirrors"`
	TopPerUser int    `long:"top-per-user" value-name:"N" description:"print the N most viewed videos of each user"`

	ViewsMin   *int64 `long:"views-min" value-name:"N" description:"at least N views"`
	ViewsMax   *int64 `long:"views-max" value-name:"N" description:"at most N views"`
	MirrorsMin *int   `long:"mirrors-min" value-name:"N" description:"at least N mirrors; videos with unknown mirrors are kept"`
	MirrorsMax *int   `long:"mirrors-max" value-name:"N" description:"at most N mirrors; videos with unknown mirrors are kept"`
	DateMin    string `long:"date-min" value-name:"Y-M-D" description:"first mirror dated on or after this day"`
	DateMax    string `long:"date-max" value-name:"Y-M-D" description:"first mirror dated on or before this day"`
	VideoType  string `long:"video-type" choice:"a" choice:"c" description:"first character of the video id"`

	User        string `long:"user" value-name:"NAME" description:"only this user (case-insensitive)"`
	UserFile    string `long:"user-file" value-name:"FILE" description:"only users listed in FILE"`
	NotUserFile string `long:"not-user-file" value-name:"FILE" description:"exclude users listed in FILE"`

	env *Env
}

// request turns the flags into a query request. Files are read here so a bad path fails
// before the store is opened.
func (c *ListCommand) request() (*query.Request, error) {
	req := &query.Request{
		Type:       query.OutputType(c.Type),
		CountOnly:  c.CountOnly,
		TopPerUser: c.TopPerUser,
		Filter: query.Filter{
			ViewsMin:   c.ViewsMin,
			ViewsMax:   c.ViewsMax,
			MirrorsMin: c.MirrorsMin,
			MirrorsMax: c.MirrorsMax,
			VideoType:  c.VideoType,
			User:       c.User,
		},
	}

	if c.DateMin != "" {
		d, err := query.ParseDate(c.DateMin)
		if err != nil {
			return nil, err
		}
		req.Filter.DateMin = &d
	}
	if c.DateMax != "" {
		d, err := query.ParseDate(c.DateMax)
		if err != nil {
			return nil, err
		}
		req.Filter.DateMax = &d
	}

	var err error
	if req.Filter.UserIn, err = userSet(c.UserFile); err != nil {
		return nil, err
	}
	if req.Filter.UserNotIn, err = userSet(c.NotUserFile); err != nil {
		return nil, err
	}
	if err = req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// userSet loads a lower-cased user set, or nil when path is empty.
func userSet(path string) (map[string]struct{}, error) {
	if path == "" {
		return nil, nil
	}
	users, err := lines.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return lines.LowerSet(users), nil
}

func (c *ListCommand) Execute(_ []string) error {
	req, err := c.request()
	if err != nil {
		return err
	}

	return c.env.withStore("list", false, func(ctx context.Context, s *storage.Store, _ *journal.Manager) error {
		engine, err := query.New(&query.Config{Store: s})
		if err != nil {
			return err
		}
		return engine.List(ctx, req, c.env.Stdout)
	})
}
