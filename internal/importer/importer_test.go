package importer

import (
	"context"
	"errors"
	"github.com/stretchr/testify/require"
	"github.com/vodarchive/collate/internal/journal"
	"github.com/vodarchive/collate/internal/record"
	"github.com/vodarchive/collate/internal/storage"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fixture struct {
	dir      string
	store    *storage.Store
	journal  *journal.Manager
	importer *Importer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	req := require.New(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "twitchy.db")

	s, err := storage.New(&storage.Config{Path: dbPath, LockTimeout: 100 * time.Millisecond})
	req.NoError(err)
	req.NoError(s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	j, err := journal.New(&journal.Config{StorePath: dbPath})
	req.NoError(err)
	req.NoError(j.Start())
	t.Cleanup(func() { _ = j.Stop() })

	imp, err := New(&Config{Store: s, Journal: j})
	req.NoError(err)

	return &fixture{dir: dir, store: s, journal: j, importer: imp}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("empty config", func(t *testing.T) {
		got, err := New(&Config{})
		require.Error(t, err)
		require.Nil(t, got)
		require.Equal(t, "store cannot be nil\njournal cannot be nil", err.Error())
	})
}

func TestImporter_ScalarsLastWriterWins(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	f := newFixture(t)

	first := f.write(t, "highlights_1.csv", "id,url,date,views,length\n"+
		"a100,http://www.twitch.tv/SomeUser/b/100,2014-03-05,10,300\n")
	second := f.write(t, "highlights_2.csv",
		"a100,http://www.twitch.tv/SomeUser/b/100,2014-03-05,99,300\n")

	summary, err := f.importer.Run(context.Background(), Ordered([]string{first, second}, nil, nil))
	req.NoError(err)
	req.Len(summary.Sources, 2)
	req.NotEmpty(summary.RunID)

	got, err := f.store.Get("a100")
	req.NoError(err)
	req.Equal(int64(99), *got.Views)
	req.Equal("SomeUser", *got.User)
	req.False(got.MirrorCount().IsKnown())
}

func TestImporter_ExplicitNoMirrors(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	f := newFixture(t)

	src := f.write(t, "flv.csv", "video_id,index,url,type\na200,-1,,\n")

	_, err := f.importer.Run(context.Background(), Ordered(nil, []string{src}, nil))
	req.NoError(err)

	got, err := f.store.Get("a200")
	req.NoError(err)
	req.True(got.NoMirrors)
	req.NotContains(got.Mirrors, -1)
	n, known := got.MirrorCount().Get()
	req.True(known)
	req.Zero(n)
	req.NotNil(got.Type)
}

func TestImporter_MirrorsAccumulate(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	f := newFixture(t)

	first := f.write(t, "flv_1.csv", "video_id,index,url,type\n"+
		"a300,0,http://m/0.flv,a\n"+
		"a300,2,http://m/2.flv,a\n")
	second := f.write(t, "flv_2.csv", "a300,1,http://m/1.flv,c\n")
	third := f.write(t, "flv_3.csv", "a300,-1,,\n")

	_, err := f.importer.Run(context.Background(), Ordered(nil, []string{first, second, third}, nil))
	req.NoError(err)

	got, err := f.store.Get("a300")
	req.NoError(err)
	req.Equal(map[int]string{0: "http://m/0.flv", 1: "http://m/1.flv", 2: "http://m/2.flv"}, got.Mirrors)
	req.True(got.NoMirrors)
	req.Equal("", *got.Type)
}

func TestImporter_DiscoveryAndOrder(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	f := newFixture(t)

	// given out of group order on purpose: discovery is still processed last
	discovery := f.write(t, "video_top.csv", "video_id,username,views\na400,Later,500\n")
	highlights := f.write(t, "highlights.csv", "a400,http://www.twitch.tv/Earlier/b/400,x,5,1\n")

	summary, err := f.importer.Run(context.Background(), Ordered([]string{highlights}, nil, []string{discovery}))
	req.NoError(err)
	req.Equal(DiscoveryTop, summary.Sources[1].Shape)
	req.Equal(1, summary.Sources[1].Rows)

	got, err := f.store.Get("a400")
	req.NoError(err)
	req.Equal("Later", *got.User)
	req.Equal(int64(500), *got.Views)

	entries, err := f.journal.Load()
	req.NoError(err)
	req.Len(entries, 2)
	req.Equal(summary.RunID, entries[0].RunID)
	req.Equal("highlights", entries[0].Shape)

	stats, err := f.store.Stats()
	req.NoError(err)
	req.Equal(discovery, stats.LastImport.Source)
}

func TestImporter_MalformedAbortsRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	good := f.write(t, "good.csv", "video_id,index,url,type\na500,0,http://m/0.flv,a\n")
	tests := map[string]struct {
		content string
		shape   Shape
	}{
		"wrong column count":    {content: "a501,0,http://m/0.flv\n", shape: MirrorList},
		"non-integer index":     {content: "a501,zero,http://m/0.flv,a\n", shape: MirrorList},
		"index below -1":        {content: "a501,-2,,\n", shape: MirrorList},
		"non-integer views":     {content: "a501,someone,lots\n", shape: DiscoveryTop},
		"negative views":        {content: "a501,someone,-4\n", shape: DiscoveryTop},
		"url without user":      {content: "a501,http://elsewhere.example/x,d,1,1\n", shape: Highlights},
		"empty video id":        {content: ",someone,4\n", shape: DiscoveryTop},
		"unbalanced csv quotes": {content: "a501,\"someone,4\n", shape: DiscoveryTop},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			// the bad file starts with a valid row that must be rolled back with the rest
			var valid string
			switch tc.shape {
			case Highlights:
				valid = "a502,http://www.twitch.tv/u/b/1,d,1,1\n"
			case MirrorList:
				valid = "a502,0,http://m/0.flv,a\n"
			case DiscoveryTop:
				valid = "a502,u,1\n"
			}
			bad := f.write(t, "bad_"+name+".csv", valid+tc.content)

			sources := []Source{{Path: good, Shape: MirrorList}, {Path: bad, Shape: tc.shape}}
			summary, err := f.importer.Run(context.Background(), sources)
			req.Error(err)
			req.True(errors.Is(err, ErrMalformedInput), "expected %v to wrap %v", err, ErrMalformedInput)
			req.Len(summary.Sources, 1)

			_, err = f.store.Get("a500")
			req.NoError(err)
			_, err = f.store.Get("a502")
			req.True(errors.Is(err, record.ErrNotFound))
		})
	}
}

func TestImporter_MissingSource(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.importer.Run(context.Background(), DefaultSources(filepath.Join(f.dir, "nowhere")))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrMalformedInput))
}

func TestImporter_CancelledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	src := f.write(t, "d.csv", "a600,u,1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.importer.Run(ctx, Ordered(nil, nil, []string{src}))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, summary.Sources)
}

func TestImporter_CustomUserDomain(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	f := newFixture(t)

	imp, err := New(&Config{Store: f.store, Journal: f.journal, UserDomain: "video.example"})
	req.NoError(err)

	src := f.write(t, "h.csv", "a700,https://video.example/Owner/v/700?t=1,d,3,1\n")
	_, err = imp.Run(context.Background(), Ordered([]string{src}, nil, nil))
	req.NoError(err)

	got, err := f.store.Get("a700")
	req.NoError(err)
	req.Equal("Owner", *got.User)
}
