package query

import (
	"errors"
	"fmt"
	"github.com/vodarchive/collate/internal/record"
	"strings"
)

var (
	// ErrConflictingFilters is returned when mutually exclusive options are combined.
	ErrConflictingFilters = errors.New("conflicting filters")
	// ErrInvalidFilter is returned for a filter value that cannot be evaluated.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Filter is the set of optional predicates a record must satisfy. A zero Filter matches
// every record.
//
// Records with no views never pass a views bound. Records with no user never pass User or
// UserIn, and always pass UserNotIn. Mirror-count bounds never exclude a record whose mirror
// knowledge is unknown.
type Filter struct {
	ViewsMin *int64
	ViewsMax *int64

	// At most one of User, UserIn and UserNotIn may be set. Comparisons are case-insensitive;
	// the sets must hold lower-cased names.
	User      string
	UserIn    map[string]struct{}
	UserNotIn map[string]struct{}

	// VideoType is matched against the first character of the video id.
	VideoType string

	MirrorsMin *int
	MirrorsMax *int

	// Date bounds are checked against the date embedded in the first mirror url. Setting
	// either one excludes records with no mirrors.
	DateMin *Date
	DateMax *Date
}

type predicate func(id string, r *record.VideoRecord) bool

// Validate reports option combinations that cannot be evaluated together.
func (f *Filter) Validate() error {
	var errGrp []error

	userFilters := 0
	if f.User != "" {
		userFilters++
	}
	if f.UserIn != nil {
		userFilters++
	}
	if f.UserNotIn != nil {
		userFilters++
	}
	if userFilters > 1 {
		errGrp = append(errGrp, fmt.Errorf("%w: only one of user, user-in and user-not-in may be given",
			ErrConflictingFilters))
	}

	if f.VideoType != "" && len(f.VideoType) != 1 {
		errGrp = append(errGrp, fmt.Errorf("%w: video type %q must be a single character",
			ErrInvalidFilter, f.VideoType))
	}
	if f.ViewsMin != nil && f.ViewsMax != nil && *f.ViewsMin > *f.ViewsMax {
		errGrp = append(errGrp, fmt.Errorf("%w: views-min is greater than views-max", ErrInvalidFilter))
	}
	if f.MirrorsMin != nil && f.MirrorsMax != nil && *f.MirrorsMin > *f.MirrorsMax {
		errGrp = append(errGrp, fmt.Errorf("%w: mirrors-min is greater than mirrors-max", ErrInvalidFilter))
	}
	if f.DateMin != nil && f.DateMax != nil && f.DateMin.Compare(*f.DateMax) > 0 {
		errGrp = append(errGrp, fmt.Errorf("%w: date-min is after date-max", ErrInvalidFilter))
	}

	return errors.Join(errGrp...)
}

// predicates returns one check per active option.
func (f *Filter) predicates() []predicate {
	var preds []predicate

	if f.VideoType != "" {
		prefix := f.VideoType
		preds = append(preds, func(id string, _ *record.VideoRecord) bool {
			return strings.HasPrefix(id, prefix)
		})
	}

	if f.ViewsMin != nil || f.ViewsMax != nil {
		lo, hi := f.ViewsMin, f.ViewsMax
		preds = append(preds, func(_ string, r *record.VideoRecord) bool {
			if r.Views == nil {
				return false
			}
			if lo != nil && *r.Views < *lo {
				return false
			}
			return hi == nil || *r.Views <= *hi
		})
	}

	switch {
	case f.User != "":
		want := strings.ToLower(f.User)
		preds = append(preds, func(_ string, r *record.VideoRecord) bool {
			user, ok := r.NormalizedUser()
			return ok && user == want
		})
	case f.UserIn != nil:
		allow := f.UserIn
		preds = append(preds, func(_ string, r *record.VideoRecord) bool {
			user, ok := r.NormalizedUser()
			if !ok {
				return false
			}
			_, found := allow[user]
			return found
		})
	case f.UserNotIn != nil:
		deny := f.UserNotIn
		preds = append(preds, func(_ string, r *record.VideoRecord) bool {
			user, ok := r.NormalizedUser()
			if !ok {
				return true
			}
			_, found := deny[user]
			return !found
		})
	}

	if f.DateMin != nil || f.DateMax != nil {
		lo, hi := f.DateMin, f.DateMax
		preds = append(preds, func(_ string, r *record.VideoRecord) bool {
			url, ok := r.FirstMirror()
			if !ok {
				return false
			}
			d, found := ExtractDate(url)
			if !found {
				return true
			}
			if lo != nil && d.Compare(*lo) < 0 {
				return false
			}
			return hi == nil || d.Compare(*hi) <= 0
		})
	}

	if f.MirrorsMin != nil || f.MirrorsMax != nil {
		lo, hi := f.MirrorsMin, f.MirrorsMax
		preds = append(preds, func(_ string, r *record.VideoRecord) bool {
			n, known := r.MirrorCount().Get()
			if !known {
				return true
			}
			if lo != nil && n < *lo {
				return false
			}
			return hi == nil || n <= *hi
		})
	}

	return preds
}

// matcher folds the active predicates into one check.
func (f *Filter) matcher() predicate {
	preds := f.predicates()
	return func(id string, r *record.VideoRecord) bool {
		for _, p := range preds {
			if !p(id, r) {
				return false
			}
		}
		return true
	}
}

// Match reports whether the record stored under id passes every active predicate.
func (f *Filter) Match(id string, r *record.VideoRecord) bool {
	return f.matcher()(id, r)
}
