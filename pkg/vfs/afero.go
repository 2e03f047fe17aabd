package vfs

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/afero/zipfs"
)

// New adapts an afero filesystem.
func New(fs afero.Fs) FS {
	return &aferoFS{fs: fs}
}

// NewOS returns an FS rooted at dir on the local disk.
func NewOS(dir string) FS {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// NewMem returns an empty in-memory FS.
func NewMem() FS {
	return New(afero.NewMemMapFs())
}

// NewZip returns a read-only FS over the contents of a zip archive.
func NewZip(r *zip.Reader) FS {
	return New(afero.NewReadOnlyFs(zipfs.New(r)))
}

// Sub returns an FS whose root is dir inside fs. It is how a repository
// found below the namespace root gets mounted as its own filesystem.
func Sub(fs FS, dir string) FS {
	dir = Clean(dir)
	if dir == "/" {
		return fs
	}
	if a, ok := fs.(*aferoFS); ok {
		return New(afero.NewBasePathFs(a.fs, dir))
	}
	return &subFS{fs: fs, dir: dir}
}

// ReadOnly returns a view of fs that rejects every mutation.
func ReadOnly(fs FS) FS {
	if a, ok := fs.(*aferoFS); ok {
		return New(afero.NewReadOnlyFs(a.fs))
	}
	return &readOnlyFS{FS: fs}
}

type aferoFS struct {
	fs afero.Fs
}

func (a *aferoFS) State(p string) (State, error) {
	fi, err := a.fs.Stat(Clean(p))
	if err != nil {
		// A file standing in for a directory component also means absent.
		if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
			return NotFound, nil
		}
		return NotFound, err
	}
	if fi.IsDir() {
		return Directory, nil
	}
	return Regular, nil
}

func (a *aferoFS) Children(p string) ([]Entry, error) {
	infos, err := afero.ReadDir(a.fs, Clean(p))
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		switch {
		case fi.IsDir():
			out = append(out, Entry{Name: fi.Name(), State: Directory})
		case fi.Mode().IsRegular():
			out = append(out, Entry{Name: fi.Name(), State: Regular})
		}
	}
	return out, nil
}

func (a *aferoFS) Open(p string, mode Mode) (File, error) {
	f, err := a.fs.OpenFile(Clean(p), openFlags(mode), 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (a *aferoFS) Size(p string) (int64, error) {
	fi, err := a.fs.Stat(Clean(p))
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("size %s: is a directory", p)
	}
	return fi.Size(), nil
}

func (a *aferoFS) Remove(p string) error {
	return a.fs.Remove(Clean(p))
}

func (a *aferoFS) Truncate(p string, size int64) error {
	f, err := a.fs.OpenFile(Clean(p), os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *aferoFS) CreateDir(p string) error {
	return a.fs.MkdirAll(Clean(p), 0o755)
}

func (a *aferoFS) Rename(oldpath, newpath string) error {
	return a.fs.Rename(Clean(oldpath), Clean(newpath))
}

func openFlags(mode Mode) int {
	var flag int
	switch {
	case mode&ModeRead != 0 && mode&ModeWrite != 0:
		flag = os.O_RDWR
	case mode&ModeWrite != 0:
		flag = os.O_WRONLY
	default:
		flag = os.O_RDONLY
	}
	if mode&ModeCreate != 0 {
		flag |= os.O_CREATE
	}
	if mode&ModeAppend != 0 {
		flag |= os.O_APPEND
	}
	if mode&ModeTruncate != 0 {
		flag |= os.O_TRUNC
	}
	if mode&ModeExclusive != 0 {
		flag |= os.O_EXCL
	}
	return flag
}
