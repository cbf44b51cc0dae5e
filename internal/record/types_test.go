package record

import (
	"errors"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestVideoRecord_MirrorCount(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		record    *VideoRecord
		wantN     int
		wantKnown bool
		wantStr   string
	}{
		"unknown when no mirror source touched it": {
			record:  &VideoRecord{},
			wantStr: "None",
		},
		"known empty when explicitly marked": {
			record:    &VideoRecord{NoMirrors: true},
			wantN:     0,
			wantKnown: true,
			wantStr:   "0",
		},
		"known non-empty is the size of the mapping": {
			record:    &VideoRecord{Mirrors: map[int]string{0: "a", 2: "c", 5: "f"}},
			wantN:     3,
			wantKnown: true,
			wantStr:   "3",
		},
		"empty mapping without the flag stays unknown": {
			record:  &VideoRecord{Mirrors: map[int]string{}},
			wantStr: "None",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			got := tc.record.MirrorCount()
			n, known := got.Get()
			req.Equal(tc.wantKnown, known)
			req.Equal(tc.wantN, n)
			req.Equal(tc.wantStr, got.String())
		})
	}
}

func TestVideoRecord_SortedMirrors(t *testing.T) {
	t.Parallel()
	r := &VideoRecord{}
	r.AddMirror(2, "c")
	r.AddMirror(0, "a")
	r.AddMirror(1, "b")

	require.Equal(t, []string{"a", "b", "c"}, r.SortedMirrors())
	require.Equal(t, []int{0, 1, 2}, r.MirrorIndices())

	first, ok := r.FirstMirror()
	require.True(t, ok)
	require.Equal(t, "a", first)
}

func TestVideoRecord_FirstMirrorWithoutIndexZero(t *testing.T) {
	t.Parallel()
	r := &VideoRecord{Mirrors: map[int]string{4: "e", 3: "d"}}

	first, ok := r.FirstMirror()
	require.True(t, ok)
	require.Equal(t, "d", first)

	_, ok = (&VideoRecord{}).FirstMirror()
	require.False(t, ok)
}

func TestVideoRecord_ListMirrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		record  *VideoRecord
		want    []string
		wantErr error
	}{
		"explicit no mirrors": {
			record:  &VideoRecord{NoMirrors: true},
			wantErr: ErrExplicitNoMirrors,
		},
		"explicit flag wins over learned indices": {
			record:  &VideoRecord{NoMirrors: true, Mirrors: map[int]string{0: "a"}},
			wantErr: ErrExplicitNoMirrors,
		},
		"unknown": {
			record:  &VideoRecord{},
			wantErr: ErrMirrorsUnknown,
		},
		"listed in index order": {
			record: &VideoRecord{Mirrors: map[int]string{1: "b", 0: "a"}},
			want:   []string{"a", "b"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			got, err := tc.record.ListMirrors("a123")
			if tc.wantErr != nil {
				req.True(errors.Is(err, tc.wantErr), "expected %v to wrap %v", err, tc.wantErr)
				req.Contains(err.Error(), "a123")
				return
			}
			req.NoError(err)
			req.Equal(tc.want, got)
		})
	}
}

func TestVideoRecord_NormalizedUser(t *testing.T) {
	t.Parallel()
	r := &VideoRecord{}
	_, ok := r.NormalizedUser()
	require.False(t, ok)

	r.SetUser("MixedCase")
	got, ok := r.NormalizedUser()
	require.True(t, ok)
	require.Equal(t, "mixedcase", got)
	require.Equal(t, "MixedCase", *r.User)
}

func TestCodec(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	in := &VideoRecord{}
	in.SetUser("someone")
	in.SetViews(42)
	in.SetType("a")
	in.AddMirror(0, "http://x/0.flv")
	in.AddMirror(3, "http://x/3.flv")

	b, err := Encode(in)
	req.NoError(err)

	out, err := Decode(b)
	req.NoError(err)
	req.Equal(in, out)

	empty, err := Encode(&VideoRecord{NoMirrors: true})
	req.NoError(err)
	decoded, err := Decode(empty)
	req.NoError(err)
	req.True(decoded.NoMirrors)
	req.Nil(decoded.Mirrors)
	req.Nil(decoded.User)

	_, err = Decode([]byte{0xc1})
	req.Error(err)
}
