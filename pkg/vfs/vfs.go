// Package vfs is the filesystem boundary of the object store. The store,
// the workspace and the CLI only see the FS interface, so a repository can
// live on local disk, in memory, inside a zip archive, or under any prefix
// of a larger namespace.
package vfs

import (
	"errors"
	"io"
	"path"
	"strings"
)

// State is the kind of node found at a path.
type State int

const (
	NotFound State = iota
	Regular
	Directory
)

func (s State) String() string {
	switch s {
	case Regular:
		return "regular"
	case Directory:
		return "directory"
	default:
		return "not-found"
	}
}

// Mode selects the capabilities of a handle returned by Open.
type Mode int

const (
	ModeRead Mode = 1 << iota
	ModeWrite
	ModeCreate
	ModeAppend
	ModeTruncate
	ModeExclusive
)

// ErrReadOnly is returned by mutating operations on a read-only FS.
var ErrReadOnly = errors.New("read-only filesystem")

// Entry is one child of a directory.
type Entry struct {
	Name  string
	State State
}

// File is a byte-stream handle with random access.
type File interface {
	io.Reader
	io.Writer
	io.ReaderAt
	io.Seeker
	io.Closer
	Name() string
	Sync() error
}

// FS is the set of filesystem primitives the object store consumes. Paths
// are slash-separated and rooted at "/".
type FS interface {
	State(p string) (State, error)
	// Children lists the entries of a directory in ascending name order.
	Children(p string) ([]Entry, error)
	Open(p string, mode Mode) (File, error)
	Size(p string) (int64, error)
	Remove(p string) error
	Truncate(p string, size int64) error
	// CreateDir creates p and any missing parents.
	CreateDir(p string) error
	Rename(oldpath, newpath string) error
}

// Clean returns the canonical absolute form of p.
func Clean(p string) string {
	return path.Clean("/" + p)
}

// Join joins a directory and a child name.
func Join(dir, name string) string {
	return path.Join(Clean(dir), name)
}

// Split breaks a path into its components, dropping the leading root.
// Split("/") is empty.
func Split(p string) []string {
	p = strings.TrimPrefix(Clean(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Ancestors returns every proper ancestor of p from the root down,
// starting with "/". The root has no ancestors.
func Ancestors(p string) []string {
	parts := Split(p)
	out := make([]string, 0, len(parts))
	cur := "/"
	for _, part := range parts {
		out = append(out, cur)
		cur = path.Join(cur, part)
	}
	return out
}

// Exists reports whether anything is present at p.
func Exists(fs FS, p string) (bool, error) {
	st, err := fs.State(p)
	if err != nil {
		return false, err
	}
	return st != NotFound, nil
}

// ReadFile reads the whole file at p.
func ReadFile(fs FS, p string) ([]byte, error) {
	f, err := fs.Open(p, ModeRead)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// WriteFile replaces the file at p with data, creating parents as needed.
func WriteFile(fs FS, p string, data []byte) error {
	if dir := path.Dir(Clean(p)); dir != "/" {
		if err := fs.CreateDir(dir); err != nil {
			return err
		}
	}
	f, err := fs.Open(p, ModeWrite|ModeCreate|ModeTruncate)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
