// Package query evaluates filters over every record in the store and renders the matches in
// one of several output modes.
package query

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/vodarchive/collate/internal/record"
	"io"
	"sort"
	"strconv"
	"time"
)

// OutputType selects what a listing is about.
type OutputType string

const (
	// Records lists one line per matching video.
	Records OutputType = "records"
	// Mirrors lists the mirror urls of matching videos.
	Mirrors OutputType = "mirrors"
)

// Request is one listing: a filter plus the output mode.
type Request struct {
	Filter Filter
	Type   OutputType
	// CountOnly prints a single total instead of enumerating: the number of matching records,
	// or the sum of their mirror counts for Mirrors.
	CountOnly bool
	// TopPerUser, when positive, groups matches by user and prints the N most viewed videos
	// of each. Only valid with Records and without CountOnly.
	TopPerUser int
}

// Validate reports requests that cannot be listed.
func (r *Request) Validate() error {
	var errGrp []error
	if err := r.Filter.Validate(); err != nil {
		errGrp = append(errGrp, err)
	}
	switch r.Type {
	case Records, Mirrors:
	default:
		errGrp = append(errGrp, fmt.Errorf("%w: unknown output type %q", ErrInvalidFilter, r.Type))
	}
	if r.TopPerUser < 0 {
		errGrp = append(errGrp, fmt.Errorf("%w: top per user cannot be negative", ErrInvalidFilter))
	}
	if r.TopPerUser > 0 && r.Type != Records {
		errGrp = append(errGrp, fmt.Errorf("%w: top per user only supports the records type",
			ErrConflictingFilters))
	}
	if r.TopPerUser > 0 && r.CountOnly {
		errGrp = append(errGrp, fmt.Errorf("%w: top per user cannot be combined with count only",
			ErrConflictingFilters))
	}
	return errors.Join(errGrp...)
}

// Scanner iterates every record of a store.
type Scanner interface {
	ForEach(fn func(id string, r *record.VideoRecord) error) error
}

type Engine struct {
	store Scanner
}

type Config struct {
	Store Scanner
}

func (c *Config) validate() error {
	if c.Store == nil {
		return errors.New("store cannot be nil")
	}
	return nil
}

func New(cfg *Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{store: cfg.Store}, nil
}

// ranked is one top-per-user candidate.
type ranked struct {
	id    string
	views *int64
	count record.MirrorCount
}

// List scans the store and writes the output of req to w. Invalid requests are rejected
// before the scan starts.
func (e *Engine) List(ctx context.Context, req *Request, w io.Writer) error {
	if err := req.Validate(); err != nil {
		return err
	}

	start := time.Now()
	match := req.Filter.matcher()
	out := bufio.NewWriter(w)

	var (
		scanned int
		matched int
		total   int
		byUser  map[string][]ranked
	)
	if req.TopPerUser > 0 {
		byUser = make(map[string][]ranked)
	}

	err := e.store.ForEach(func(id string, r *record.VideoRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		scanned++
		if !match(id, r) {
			return nil
		}
		matched++

		switch {
		case req.CountOnly && req.Type == Mirrors:
			total += r.MirrorCount().Or(0)
		case req.CountOnly:
			total++
		case byUser != nil:
			user := userField(r)
			byUser[user] = append(byUser[user], ranked{id: id, views: r.Views, count: r.MirrorCount()})
		case req.Type == Mirrors:
			for _, url := range r.SortedMirrors() {
				if _, err := fmt.Fprintln(out, url); err != nil {
					return err
				}
			}
		default:
			if err := writeRecordLine(out, id, userField(r), r.Views, r.MirrorCount()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if req.CountOnly {
		if _, err = fmt.Fprintln(out, total); err != nil {
			return err
		}
	}
	if byUser != nil {
		if err = writeTopPerUser(out, byUser, req.TopPerUser); err != nil {
			return err
		}
	}

	log.Debug().Int("scanned", scanned).Int("matched", matched).
		Str("duration", time.Since(start).String()).Msg("List complete")
	return out.Flush()
}

// writeTopPerUser prints users in ascending order and, for each, its n most viewed
// videos. Ties on views fall back to descending video id; missing views rank last.
func writeTopPerUser(w io.Writer, byUser map[string][]ranked, n int) error {
	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	for _, user := range users {
		videos := byUser[user]
		sort.Slice(videos, func(i, j int) bool {
			vi, vj := viewsOrLowest(videos[i].views), viewsOrLowest(videos[j].views)
			if vi != vj {
				return vi > vj
			}
			return videos[i].id > videos[j].id
		})
		if len(videos) > n {
			videos = videos[:n]
		}
		for _, v := range videos {
			if err := writeRecordLine(w, v.id, user, v.views, v.count); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRecordLine(w io.Writer, id, user string, views *int64, count record.MirrorCount) error {
	_, err := fmt.Fprintln(w, id, user, viewsField(views), count)
	return err
}

// userField is the lower-cased user, or None when no source supplied one.
func userField(r *record.VideoRecord) string {
	if user, ok := r.NormalizedUser(); ok {
		return user
	}
	return "None"
}

func viewsField(views *int64) string {
	if views == nil {
		return "None"
	}
	return strconv.FormatInt(*views, 10)
}

func viewsOrLowest(views *int64) int64 {
	if views == nil {
		return -1
	}
	return *views
}
