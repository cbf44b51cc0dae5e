// Package lookup answers the point and set-difference questions asked of the store: a single
// record, the mirrors of one or many ids, ids missing mirror data, and users missing from
// the store entirely.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/vodarchive/collate/internal/record"
	"io"
	"sort"
	"strings"
)

// Store is the read side of the record store.
type Store interface {
	Get(id string) (*record.VideoRecord, error)
	ForEach(fn func(id string, r *record.VideoRecord) error) error
}

type Lookup struct {
	store Store
}

type Config struct {
	Store Store
}

func (c *Config) validate() error {
	if c.Store == nil {
		return errors.New("store cannot be nil")
	}
	return nil
}

func New(cfg *Config) (*Lookup, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Lookup{store: cfg.Store}, nil
}

// Get writes the full record for id as indented JSON.
func (l *Lookup) Get(id string, w io.Writer) error {
	r, err := l.store.Get(id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err = enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode record %s: %w", id, err)
	}
	return nil
}

// Mirrors writes the mirror urls of id in index order.
func (l *Lookup) Mirrors(id string, w io.Writer) error {
	r, err := l.store.Get(id)
	if err != nil {
		return err
	}

	urls, err := r.ListMirrors(id)
	if err != nil {
		return err
	}
	for _, url := range urls {
		if _, err = fmt.Fprintln(w, url); err != nil {
			return err
		}
	}
	return nil
}

// BatchError lists the ids a batch lookup skipped, with the reason for each.
type BatchError struct {
	Failed map[string]error
}

func (e *BatchError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "%d of the requested ids failed:", len(ids))
	for _, id := range ids {
		fmt.Fprintf(&b, "\n  %s: %v", id, e.Failed[id])
	}
	return b.String()
}

// MirrorsBatch writes the mirrors of every id in order. An id that fails is logged and
// skipped; the failures are returned together as a *BatchError once every id was tried.
func (l *Lookup) MirrorsBatch(ctx context.Context, ids []string, w io.Writer) error {
	failed := make(map[string]error)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := l.Mirrors(id, w)
		switch {
		case err == nil:
		case errors.Is(err, record.ErrNotFound),
			errors.Is(err, record.ErrExplicitNoMirrors),
			errors.Is(err, record.ErrMirrorsUnknown):
			log.Warn().Err(err).Str("id", id).Msg("Skipping id")
			failed[id] = err
		default:
			return err
		}
	}

	if len(failed) > 0 {
		return &BatchError{Failed: failed}
	}
	return nil
}

// MissingFilter narrows the missing-mirrors report.
type MissingFilter struct {
	ViewsMin *int64
	User     string
}

func (f *MissingFilter) match(r *record.VideoRecord) bool {
	if f.ViewsMin != nil && (r.Views == nil || *r.Views < *f.ViewsMin) {
		return false
	}
	if f.User != "" {
		user, ok := r.NormalizedUser()
		if !ok || user != strings.ToLower(f.User) {
			return false
		}
	}
	return true
}

// MissingMirrors writes, in ascending order, every id whose mirror knowledge is unknown.
// Records explicitly marked as having no mirrors are not missing.
func (l *Lookup) MissingMirrors(ctx context.Context, f *MissingFilter, w io.Writer) error {
	var missing []string
	err := l.store.ForEach(func(id string, r *record.VideoRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.MirrorCount().IsKnown() || !f.match(r) {
			return nil
		}
		missing = append(missing, id)
		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(missing)
	return writeLines(w, missing)
}

// MissingUsers writes, lower-cased and in ascending order, every requested user that owns no
// record in the store.
func (l *Lookup) MissingUsers(ctx context.Context, users []string, w io.Writer) error {
	wanted := make(map[string]struct{}, len(users))
	for _, u := range users {
		wanted[strings.ToLower(u)] = struct{}{}
	}

	err := l.store.ForEach(func(_ string, r *record.VideoRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if user, ok := r.NormalizedUser(); ok {
			delete(wanted, user)
		}
		return nil
	})
	if err != nil {
		return err
	}

	missing := make([]string, 0, len(wanted))
	for u := range wanted {
		missing = append(missing, u)
	}
	sort.Strings(missing)
	return writeLines(w, missing)
}

func writeLines(w io.Writer, values []string) error {
	for _, v := range values {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	return nil
}
