package vfs

import "path"

type subFS struct {
	fs  FS
	dir string
}

func (s *subFS) real(p string) string {
	return path.Join(s.dir, Clean(p))
}

func (s *subFS) State(p string) (State, error)      { return s.fs.State(s.real(p)) }
func (s *subFS) Children(p string) ([]Entry, error) { return s.fs.Children(s.real(p)) }
func (s *subFS) Open(p string, mode Mode) (File, error) {
	return s.fs.Open(s.real(p), mode)
}
func (s *subFS) Size(p string) (int64, error)        { return s.fs.Size(s.real(p)) }
func (s *subFS) Remove(p string) error               { return s.fs.Remove(s.real(p)) }
func (s *subFS) Truncate(p string, size int64) error { return s.fs.Truncate(s.real(p), size) }
func (s *subFS) CreateDir(p string) error            { return s.fs.CreateDir(s.real(p)) }
func (s *subFS) Rename(oldpath, newpath string) error {
	return s.fs.Rename(s.real(oldpath), s.real(newpath))
}

type readOnlyFS struct {
	FS
}

func (r *readOnlyFS) Open(p string, mode Mode) (File, error) {
	if mode&^ModeRead != 0 {
		return nil, ErrReadOnly
	}
	return r.FS.Open(p, mode)
}

func (r *readOnlyFS) Remove(string) error          { return ErrReadOnly }
func (r *readOnlyFS) Truncate(string, int64) error { return ErrReadOnly }
func (r *readOnlyFS) CreateDir(string) error       { return ErrReadOnly }
func (r *readOnlyFS) Rename(string, string) error  { return ErrReadOnly }
