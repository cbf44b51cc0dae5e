package storage

import (
	"errors"
	"github.com/stretchr/testify/require"
	"github.com/vodarchive/collate/internal/record"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := New(&Config{Path: path, LockTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		_ = s.Stop()
	})
	return s
}

func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()
		got, err := New(&Config{LockTimeout: -1})
		require.Error(t, err)
		require.Nil(t, got)
		require.Equal(t, "store path is required\nlock timeout cannot be negative", err.Error())
	})

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		got, err := New(&Config{Path: filepath.Join(t.TempDir(), "videos.db")})
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, defaultLockTimeout, got.lockTimeout)
		require.Equal(t, "Record Store", got.Name())
	})
}

func TestStore_Lifecycle(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "nested", "videos.db")

	s, err := New(&Config{Path: path})
	req.NoError(err)

	// closed stores refuse work rather than panic
	req.Error(s.Put("a1", &record.VideoRecord{}))
	req.NoError(s.Stop())

	req.NoError(s.Start())
	req.Error(s.Start())

	r := &record.VideoRecord{}
	r.SetViews(7)
	req.NoError(s.Put("a1", r))
	req.NoError(s.Stop())

	// durable across reopen
	reopened := newTestStore(t, path)
	got, err := reopened.Get("a1")
	req.NoError(err)
	req.Equal(int64(7), *got.Views)
}

func TestStore_ExclusiveOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "videos.db")
	_ = newTestStore(t, path)

	second, err := New(&Config{Path: path, LockTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	err = second.Start()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrLocked))
}

func TestStore_GetNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, filepath.Join(t.TempDir(), "videos.db"))

	got, err := s.Get("missing")
	require.Nil(t, got)
	require.True(t, errors.Is(err, record.ErrNotFound))
}

func TestStore_UpdateRollsBack(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	s := newTestStore(t, filepath.Join(t.TempDir(), "videos.db"))

	err := s.Update(func(tx *Tx) error {
		if err := tx.Merge("a1", func(r *record.VideoRecord) error {
			r.SetUser("first")
			return nil
		}); err != nil {
			return err
		}
		return errors.New("bad row")
	})
	req.Error(err)

	_, err = s.Get("a1")
	req.True(errors.Is(err, record.ErrNotFound))

	n, err := s.Len()
	req.NoError(err)
	req.Zero(n)
}

func TestTx_Merge(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	s := newTestStore(t, filepath.Join(t.TempDir(), "videos.db"))

	req.NoError(s.Update(func(tx *Tx) error {
		return tx.Merge("a1", func(r *record.VideoRecord) error {
			r.AddMirror(0, "u0")
			r.AddMirror(2, "u2")
			return nil
		})
	}))
	req.NoError(s.Update(func(tx *Tx) error {
		return tx.Merge("a1", func(r *record.VideoRecord) error {
			r.AddMirror(1, "u1")
			r.SetUser("late")
			return nil
		})
	}))

	got, err := s.Get("a1")
	req.NoError(err)
	req.Equal(map[int]string{0: "u0", 1: "u1", 2: "u2"}, got.Mirrors)
	req.Equal("late", *got.User)

	req.Error(s.Update(func(tx *Tx) error {
		return tx.Put("", &record.VideoRecord{})
	}))
}

func TestStore_KeysAndForEach(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	s := newTestStore(t, filepath.Join(t.TempDir(), "videos.db"))

	for _, id := range []string{"c3", "a1", "b2"} {
		req.NoError(s.Put(id, &record.VideoRecord{}))
	}

	keys, err := s.Keys()
	req.NoError(err)
	sort.Strings(keys)
	req.Equal([]string{"a1", "b2", "c3"}, keys)

	seen := 0
	req.NoError(s.ForEach(func(id string, r *record.VideoRecord) error {
		seen++
		return nil
	}))
	req.Equal(3, seen)

	stop := errors.New("stop")
	err = s.ForEach(func(id string, r *record.VideoRecord) error {
		return stop
	})
	req.ErrorIs(err, stop)

	n, err := s.Len()
	req.NoError(err)
	req.Equal(3, n)
}

func TestStore_Stats(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	s := newTestStore(t, filepath.Join(t.TempDir(), "videos.db"))

	stats, err := s.Stats()
	req.NoError(err)
	req.Zero(stats.Records)
	req.Nil(stats.LastImport)

	at := time.Date(2014, 3, 5, 0, 0, 0, 0, time.UTC)
	req.NoError(s.Update(func(tx *Tx) error {
		if err := tx.Put("a1", &record.VideoRecord{}); err != nil {
			return err
		}
		return tx.MarkImport(&ImportMarker{RunID: "run-1", Source: "x.csv", At: at})
	}))

	stats, err = s.Stats()
	req.NoError(err)
	req.Equal(1, stats.Records)
	req.Equal("run-1", stats.LastImport.RunID)
	req.Equal("x.csv", stats.LastImport.Source)
	req.True(at.Equal(stats.LastImport.At))
}
