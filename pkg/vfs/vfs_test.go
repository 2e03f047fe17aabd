package vfs

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainFS hides the afero implementation so the generic wrappers are used.
type plainFS struct {
	FS
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "/", Clean(""))
	assert.Equal(t, "/a/b", Clean("a//b/"))
	assert.Equal(t, "/a/b", Join("/a", "b"))
	assert.Equal(t, []string{"a", "b"}, Split("/a/b"))
	assert.Empty(t, Split("/"))
	assert.Equal(t, []string{"/", "/a"}, Ancestors("/a/b"))
	assert.Empty(t, Ancestors("/"))
}

func TestMemStateAndChildren(t *testing.T) {
	fs := NewMem()
	require.NoError(t, WriteFile(fs, "/d/b.txt", []byte("b")))
	require.NoError(t, WriteFile(fs, "/d/a.txt", []byte("a")))
	require.NoError(t, fs.CreateDir("/d/sub"))

	st, err := fs.State("/d")
	require.NoError(t, err)
	assert.Equal(t, Directory, st)

	st, err = fs.State("/d/a.txt")
	require.NoError(t, err)
	assert.Equal(t, Regular, st)

	st, err = fs.State("/missing")
	require.NoError(t, err)
	assert.Equal(t, NotFound, st)

	children, err := fs.Children("/d")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "a.txt", State: Regular},
		{Name: "b.txt", State: Regular},
		{Name: "sub", State: Directory},
	}, children)
}

func TestOpenAppendTruncate(t *testing.T) {
	fs := NewMem()
	f, err := fs.Open("/log", ModeWrite|ModeCreate|ModeAppend)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = f.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	size, err := fs.Size("/log")
	require.NoError(t, err)
	assert.EqualValues(t, 11, size)

	require.NoError(t, fs.Truncate("/log", 5))
	data, err := ReadFile(fs, "/log")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = fs.Open("/log", ModeWrite|ModeCreate|ModeExclusive)
	assert.Error(t, err)
}

func TestRenameAndRemove(t *testing.T) {
	fs := NewMem()
	require.NoError(t, WriteFile(fs, "/tmp", []byte("x")))
	require.NoError(t, fs.Rename("/tmp", "/final"))

	ok, err := Exists(fs, "/tmp")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.Remove("/final"))
	ok, err = Exists(fs, "/final")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOSBackend(t *testing.T) {
	dir := t.TempDir()
	fs := NewOS(dir)
	require.NoError(t, WriteFile(fs, "/nested/file.txt", []byte("on disk")))

	st, err := NewOS(filepath.Join(dir, "nested")).State("/file.txt")
	require.NoError(t, err)
	assert.Equal(t, Regular, st)
}

func TestSub(t *testing.T) {
	for name, base := range map[string]FS{"afero": NewMem(), "generic": plainFS{NewMem()}} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, WriteFile(base, "/outer/repo/a.txt", []byte("a")))
			sub := Sub(base, "/outer/repo")

			data, err := ReadFile(sub, "/a.txt")
			require.NoError(t, err)
			assert.Equal(t, "a", string(data))

			require.NoError(t, WriteFile(sub, "/b.txt", []byte("b")))
			data, err = ReadFile(base, "/outer/repo/b.txt")
			require.NoError(t, err)
			assert.Equal(t, "b", string(data))

			assert.Equal(t, base, Sub(base, "/"))
		})
	}
}

func TestReadOnly(t *testing.T) {
	for name, base := range map[string]FS{"afero": NewMem(), "generic": plainFS{NewMem()}} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, WriteFile(base, "/a", []byte("a")))
			ro := ReadOnly(base)

			data, err := ReadFile(ro, "/a")
			require.NoError(t, err)
			assert.Equal(t, "a", string(data))

			assert.Error(t, WriteFile(ro, "/b", []byte("b")))
			assert.Error(t, ro.Remove("/a"))
			assert.Error(t, ro.Rename("/a", "/c"))
		})
	}
}

func TestZipBackend(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("docs/")
	require.NoError(t, err)
	w, err := zw.Create("docs/readme.txt")
	require.NoError(t, err)
	_, err = io.WriteString(w, "zipped")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	fs := NewZip(zr)

	st, err := fs.State("/docs")
	require.NoError(t, err)
	assert.Equal(t, Directory, st)

	children, err := fs.Children("/docs")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "readme.txt", State: Regular}}, children)

	data, err := ReadFile(fs, "/docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "zipped", string(data))

	assert.Error(t, WriteFile(fs, "/new", []byte("x")))
}
