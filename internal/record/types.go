package record

import (
	"sort"
	"strings"
)

// VideoRecord is the aggregate of everything the sources have told us about one video.
//
// Example:
//
//	VideoRecord{
//	  User:    ptr("SomeStreamer"),
//	  Views:   ptr(int64(1200)),
//	  Type:    ptr("a"),
//	  Mirrors: map[int]string{
//	    0: "http://store.example/.../2014-03-05/part0.flv",
//	    1: "http://store.example/.../2014-03-05/part1.flv",
//	  },
//	}
//
// A nil field means no source has supplied it yet. Mirrors and NoMirrors together carry
// the mirror knowledge of the record, see MirrorCount.
type VideoRecord struct {
	User      *string        `json:"user,omitempty" msgpack:"user,omitempty"`
	Views     *int64         `json:"views,omitempty" msgpack:"views,omitempty"`
	Type      *string        `json:"type,omitempty" msgpack:"type,omitempty"`
	Mirrors   map[int]string `json:"mirrors,omitempty" msgpack:"mirrors,omitempty"`
	NoMirrors bool           `json:"no_mirrors,omitempty" msgpack:"no_mirrors,omitempty"`
}

// SetUser records the owning account exactly as the source spelled it.
func (r *VideoRecord) SetUser(user string) {
	r.User = &user
}

// SetViews overwrites the view count.
func (r *VideoRecord) SetViews(views int64) {
	r.Views = &views
}

// SetType overwrites the mirror/category tag.
func (r *VideoRecord) SetType(t string) {
	r.Type = &t
}

// AddMirror stores url at index. Existing indices are never removed, only overwritten
// when re-supplied.
func (r *VideoRecord) AddMirror(index int, url string) {
	if r.Mirrors == nil {
		r.Mirrors = make(map[int]string)
	}
	r.Mirrors[index] = url
}

// MarkNoMirrors records the explicit signal that the video has no mirrors.
func (r *VideoRecord) MarkNoMirrors() {
	r.NoMirrors = true
}

// NormalizedUser returns the lower-cased user and whether a user is known.
func (r *VideoRecord) NormalizedUser() (string, bool) {
	if r.User == nil {
		return "", false
	}
	return strings.ToLower(*r.User), true
}

// MirrorCount reports the three-state mirror knowledge of the record.
func (r *VideoRecord) MirrorCount() MirrorCount {
	switch {
	case len(r.Mirrors) > 0:
		return Known(len(r.Mirrors))
	case r.NoMirrors:
		return Known(0)
	default:
		return Unknown()
	}
}

// MirrorIndices returns the mirror indices in ascending order.
func (r *VideoRecord) MirrorIndices() []int {
	indices := make([]int, 0, len(r.Mirrors))
	for i := range r.Mirrors {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// SortedMirrors returns the mirror URLs ordered by ascending index.
func (r *VideoRecord) SortedMirrors() []string {
	urls := make([]string, 0, len(r.Mirrors))
	for _, i := range r.MirrorIndices() {
		urls = append(urls, r.Mirrors[i])
	}
	return urls
}

// FirstMirror returns the URL with the lowest index.
func (r *VideoRecord) FirstMirror() (string, bool) {
	if len(r.Mirrors) == 0 {
		return "", false
	}
	if url, ok := r.Mirrors[0]; ok {
		return url, true
	}
	return r.Mirrors[r.MirrorIndices()[0]], true
}

// ListMirrors returns the mirror URLs of the record in index order, or the error that
// explains why they cannot be listed.
func (r *VideoRecord) ListMirrors(videoID string) ([]string, error) {
	if r.NoMirrors {
		return nil, NewError(ErrExplicitNoMirrors, "%s", videoID)
	}
	if len(r.Mirrors) == 0 {
		return nil, NewError(ErrMirrorsUnknown, "%s", videoID)
	}
	return r.SortedMirrors(), nil
}
