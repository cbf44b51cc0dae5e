package lines

import (
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		input    string
		expected []string
	}{
		"empty":            {input: "", expected: nil},
		"trims whitespace": {input: "  a100 \n\tv200\t\n", expected: []string{"a100", "v200"}},
		"skips blanks":     {input: "a\n\n   \nb", expected: []string{"a", "b"}},
		"windows newlines": {input: "a\r\nb\r\n", expected: []string{"a", "b"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := Read(strings.NewReader(tc.input))
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "users.txt")
	req.NoError(os.WriteFile(path, []byte("SomeUser\nother\n"), 0644))

	got, err := ReadFile(path)
	req.NoError(err)
	req.Equal([]string{"SomeUser", "other"}, got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	req.Error(err)
}

func TestLowerSet(t *testing.T) {
	t.Parallel()
	got := LowerSet([]string{"SomeUser", "someuser", "Other"})
	require.Len(t, got, 2)
	require.Contains(t, got, "someuser")
	require.Contains(t, got, "other")
}
