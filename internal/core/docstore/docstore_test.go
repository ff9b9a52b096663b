package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"notes/a.md", "notes/a.md", false},
		{"  notes//b.md ", "notes/b.md", false},
		{`notes\c.md`, "notes/c.md", false},
		{"a/../b.md", "b.md", false},
		{"", "", true},
		{"/etc/passwd", "", true},
		{"../escape.md", "", true},
		{"a/../../escape.md", "", true},
		{".", "", true},
	}

	for _, tt := range tests {
		got, err := CleanPath(tt.in)
		if tt.wantErr {
			require.ErrorIs(t, err, ErrInvalidPath, "CleanPath(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "CleanPath(%q)", tt.in)
		require.Equal(t, tt.want, got)
	}
}

func storeContract(t *testing.T, s Store) {
	t.Helper()

	e, err := s.Exists("dir/note.md")
	require.NoError(t, err)
	require.Nil(t, e)

	_, err = s.Read("dir/note.md")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateDirectory("dir"))
	e, err = s.Exists("dir")
	require.NoError(t, err)
	require.NotNil(t, e)
	require.True(t, e.IsDir)

	require.NoError(t, s.Create("dir/note.md", []byte("one")))
	err = s.Create("dir/note.md", []byte("two"))
	require.True(t, errors.Is(err, ErrAlreadyExists), "second create: %v", err)

	data, err := s.Read("dir/note.md")
	require.NoError(t, err)
	require.Equal(t, "one", string(data))

	require.NoError(t, s.Write("dir/note.md", []byte("three")))
	data, err = s.Read("dir/note.md")
	require.NoError(t, err)
	require.Equal(t, "three", string(data))

	// Write creates missing parents
	require.NoError(t, s.Write(".hidden/state.json", []byte("{}")))
	e, err = s.Exists(".hidden")
	require.NoError(t, err)
	require.NotNil(t, e)

	_, err = s.Exists("../outside")
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestFS_Contract(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	storeContract(t, s)
}

func TestMemory_Contract(t *testing.T) {
	storeContract(t, NewMemory())
}

func TestFS_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir)
	require.NoError(t, err)

	require.NoError(t, s.Write("state.json", []byte(`{"a":1}`)))
	require.NoError(t, s.Write("state.json", []byte(`{"a":2}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	b, err := os.ReadFile(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	require.Equal(t, `{"a":2}`, string(b))
}

func TestMemory_FailWith(t *testing.T) {
	m := NewMemory()
	boom := errors.New("disk full")
	m.FailWith = boom

	require.ErrorIs(t, m.Write("a.md", nil), boom)
	require.ErrorIs(t, m.Create("b.md", nil), boom)
	require.Empty(t, m.Files())
}
