package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock returns times one second apart starting at base.
func steppingClock(base time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestOSFileSystem_CreateAndRead(t *testing.T) {
	dir := t.TempDir()
	var fsys FileSystem = OSFileSystem{}

	path := filepath.Join(dir, "out", "a.txt")
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))

	w, err := fsys.Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.True(t, fsys.Exists(path))
	assert.False(t, fsys.Exists(filepath.Join(dir, "nope")))

	matches, err := fsys.Glob(filepath.Join(dir, "*", "*.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, matches)
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("out/sub", 0o755))
	require.NoError(t, m.WriteFile("out/sub/a.json", []byte(`{}`), 0o600))

	b, err := m.ReadFile("out/sub/../sub/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))

	info, err := m.Stat("out/sub/a.json")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Size())
	assert.Equal(t, os.FileMode(0o600), info.Mode())

	dirInfo, err := m.Stat("out")
	require.NoError(t, err)
	assert.True(t, dirInfo.IsDir())

	// Returned data is a copy.
	b[0] = 'X'
	again, _ := m.ReadFile("out/sub/a.json")
	assert.Equal(t, `{}`, string(again))
}

func TestMemoryFileSystem_RequiresParentDir(t *testing.T) {
	m := NewMemoryFileSystem()

	err := m.WriteFile("missing/a.txt", nil, 0o644)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = m.Create("missing/b.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	// The working directory always exists.
	require.NoError(t, m.WriteFile("top.txt", nil, 0o644))
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("out", 0o755))

	w, err := m.Create("out/img.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)

	b, _ := m.ReadFile("out/img.png")
	assert.Empty(t, b)

	require.NoError(t, w.Close())
	b, _ = m.ReadFile("out/img.png")
	assert.Equal(t, "abc", string(b))

	_, err = w.Write([]byte("more"))
	assert.True(t, errors.Is(err, fs.ErrClosed))
	assert.True(t, errors.Is(w.Close(), fs.ErrClosed))
}

func TestMemoryFileSystem_Open(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("a.txt", []byte("data"), 0o644))

	f, err := m.Open("a.txt")
	require.NoError(t, err)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "a.txt", info.Name())

	_, err = m.Open("b.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystem_MkdirOverFile(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("a", nil, 0o644))
	assert.Error(t, m.MkdirAll("a", 0o755))
}

func TestMemoryFileSystem_GlobAndFiles(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("x", 0o755))
	require.NoError(t, m.MkdirAll("y", 0o755))
	for _, name := range []string{"x/kilter.sqlite3", "y/kilter.sqlite3-wal", "y/notes.txt", "root.sqlite3"} {
		require.NoError(t, m.WriteFile(name, nil, 0o644))
	}

	got, err := m.Glob("*/*.sqlite3*")
	require.NoError(t, err)
	assert.Equal(t, []string{"x/kilter.sqlite3", "y/kilter.sqlite3-wal"}, got)

	_, err = m.Glob("[")
	assert.Error(t, err)

	assert.Equal(t, []string{"root.sqlite3", "x/kilter.sqlite3", "y/kilter.sqlite3-wal", "y/notes.txt"}, m.Files())
}

func TestLatest(t *testing.T) {
	m := NewMemoryFileSystem()
	m.Now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, m.MkdirAll("old", 0o755))
	require.NoError(t, m.MkdirAll("new", 0o755))

	require.NoError(t, m.WriteFile("new/kilter.sqlite3", nil, 0o644))
	require.NoError(t, m.WriteFile("old/kilter.sqlite3", nil, 0o644))

	got, err := Latest(m, "*/*.sqlite3*")
	require.NoError(t, err)
	assert.Equal(t, "old/kilter.sqlite3", got)

	require.NoError(t, m.WriteFile("new/kilter.sqlite3", []byte("x"), 0o644))
	got, err = Latest(m, "*/*.sqlite3*")
	require.NoError(t, err)
	assert.Equal(t, "new/kilter.sqlite3", got)
}

func TestLatest_TieBrokenByName(t *testing.T) {
	m := NewMemoryFileSystem()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return fixed }
	require.NoError(t, m.MkdirAll("a", 0o755))
	require.NoError(t, m.MkdirAll("b", 0o755))
	require.NoError(t, m.WriteFile("b/k.sqlite3", nil, 0o644))
	require.NoError(t, m.WriteFile("a/k.sqlite3", nil, 0o644))

	got, err := Latest(m, "*/*.sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "b/k.sqlite3", got)
}

func TestLatest_NoMatch(t *testing.T) {
	_, err := Latest(NewMemoryFileSystem(), "*/*.sqlite3*")
	assert.True(t, errors.Is(err, ErrNoMatch))

	_, err = Latest(OSFileSystem{}, filepath.Join(t.TempDir(), "*", "*.sqlite3*"))
	assert.True(t, errors.Is(err, ErrNoMatch))
}
