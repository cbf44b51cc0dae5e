package importer

import (
	"fmt"
	"path/filepath"
)

// Shape is the fixed column layout of an input CSV.
type Shape int

const (
	// Highlights rows are (id, url, date, views, length). The user comes from the url.
	Highlights Shape = iota
	// MirrorList rows are (video_id, index, url, type).
	MirrorList
	// DiscoveryTop rows are (video_id, user, views).
	DiscoveryTop
)

func (s Shape) String() string {
	switch s {
	case Highlights:
		return "highlights"
	case MirrorList:
		return "mirrors"
	case DiscoveryTop:
		return "discovery"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// columns is the exact number of fields a row of the shape carries.
func (s Shape) columns() int {
	switch s {
	case Highlights:
		return 5
	case MirrorList:
		return 4
	case DiscoveryTop:
		return 3
	default:
		return 0
	}
}

// headerSentinel is the first-column label that marks a header row.
func (s Shape) headerSentinel() string {
	if s == Highlights {
		return "id"
	}
	return "video_id"
}

// Source is one named input file of a known shape.
type Source struct {
	Path  string
	Shape Shape
}

func (s Source) Name() string {
	return filepath.Base(s.Path)
}

var (
	defaultHighlights = []string{
		"highlights_top.csv",
		"highlights_top_02.csv",
		"highlights_top_03.csv",
		"highlights_top_04.csv",
	}
	defaultMirrorLists = []string{
		"highlights_top_flv_01.csv",
		"highlights_top_flv_02-03.csv",
		"disco_top_1000_views_flv.csv",
		"suggestions_19553_flv.csv",
		"suggestions_missed19553_19616_flv.csv",
		"suggestions_flv_19795_and_socialblade.csv",
	}
	defaultDiscovery = []string{
		"video_top_discovery.csv",
		"video_discovery_rand200k_suggestions-id19553.csv",
		"video_suggestions-id19616.csv",
		"video_suggestions_missed_from_19553_19616.csv",
		"video_suggestions-id19795.csv",
	}
)

// DefaultSources returns the standard crawl manifest rooted at dir.
func DefaultSources(dir string) []Source {
	return Ordered(
		joinAll(dir, defaultHighlights),
		joinAll(dir, defaultMirrorLists),
		joinAll(dir, defaultDiscovery),
	)
}

// Ordered builds the processing order: every highlights source, then every mirror list,
// then every discovery source, each group in the order given.
func Ordered(highlights, mirrorLists, discovery []string) []Source {
	sources := make([]Source, 0, len(highlights)+len(mirrorLists)+len(discovery))
	for _, p := range highlights {
		sources = append(sources, Source{Path: p, Shape: Highlights})
	}
	for _, p := range mirrorLists {
		sources = append(sources, Source{Path: p, Shape: MirrorList})
	}
	for _, p := range discovery {
		sources = append(sources, Source{Path: p, Shape: DiscoveryTop})
	}
	return sources
}

func joinAll(dir string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}
