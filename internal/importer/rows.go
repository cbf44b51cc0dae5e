package importer

import (
	"fmt"
	"github.com/vodarchive/collate/internal/record"
	"regexp"
	"strconv"
)

// row is one parsed input line, ready to be merged into the record for videoID.
type row struct {
	videoID string
	apply   func(r *record.VideoRecord)
}

type rowParser struct {
	userPattern *regexp.Regexp
}

func newRowParser(userDomain string) *rowParser {
	return &rowParser{
		userPattern: regexp.MustCompile(regexp.QuoteMeta(userDomain) + `/([^/?#]+)`),
	}
}

// parse converts raw CSV fields into a row. It returns ok=false for header rows.
func (p *rowParser) parse(shape Shape, fields []string) (*row, bool, error) {
	if len(fields) != shape.columns() {
		return nil, false, fmt.Errorf("expected %d columns, got %d", shape.columns(), len(fields))
	}
	if fields[0] == shape.headerSentinel() {
		return nil, false, nil
	}
	if fields[0] == "" {
		return nil, false, fmt.Errorf("empty video id")
	}

	var (
		r   *row
		err error
	)
	switch shape {
	case Highlights:
		r, err = p.parseHighlights(fields)
	case MirrorList:
		r, err = p.parseMirrorList(fields)
	case DiscoveryTop:
		r, err = p.parseDiscovery(fields)
	default:
		err = fmt.Errorf("unsupported shape %s", shape)
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (p *rowParser) parseHighlights(fields []string) (*row, error) {
	id, url := fields[0], fields[1]
	views, err := parseViews(fields[3])
	if err != nil {
		return nil, err
	}

	match := p.userPattern.FindStringSubmatch(url)
	if match == nil {
		return nil, fmt.Errorf("no user in url %q", url)
	}
	user := match[1]

	return &row{
		videoID: id,
		apply: func(r *record.VideoRecord) {
			r.SetUser(user)
			r.SetViews(views)
		},
	}, nil
}

func (p *rowParser) parseMirrorList(fields []string) (*row, error) {
	id, url, videoType := fields[0], fields[2], fields[3]
	index, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("invalid mirror index %q", fields[1])
	}
	if index < -1 {
		return nil, fmt.Errorf("mirror index %d out of range", index)
	}

	return &row{
		videoID: id,
		apply: func(r *record.VideoRecord) {
			if index == -1 {
				r.MarkNoMirrors()
			} else {
				r.AddMirror(index, url)
			}
			r.SetType(videoType)
		},
	}, nil
}

func (p *rowParser) parseDiscovery(fields []string) (*row, error) {
	id, user := fields[0], fields[1]
	views, err := parseViews(fields[2])
	if err != nil {
		return nil, err
	}

	return &row{
		videoID: id,
		apply: func(r *record.VideoRecord) {
			r.SetUser(user)
			r.SetViews(views)
		},
	}, nil
}

func parseViews(s string) (int64, error) {
	views, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid views %q", s)
	}
	if views < 0 {
		return 0, fmt.Errorf("negative views %d", views)
	}
	return views, nil
}
