// Package repo ties the object store, the history index and the tip
// pointer together into a repository handle, and implements the commit
// engine and read resolution on top of them.
package repo

import (
	"errors"
	"path"
	"sync"

	"go.uber.org/zap"

	"github.com/odvcencio/cairn/pkg/history"
	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// MetaDir is the metadata directory at the root of every repository.
const MetaDir = ".cairn"

var (
	ErrNotRepository   = errors.New("not a cairn repository")
	ErrUnknownRevision = errors.New("unknown revision")
	ErrNoSuchPath      = errors.New("no such path")

	// Re-exported so callers need not import the store package to test
	// for these conditions.
	ErrCorrupted = store.ErrCorrupted
	ErrNotFound  = store.ErrNotFound
)

// Repo is an open repository. The catalog, history and tip are loaded in
// full on Open and owned by the handle until Close.
type Repo struct {
	FS    vfs.FS       // repository namespace, rooted at the repository root
	Store *store.Store // catalog and content log

	hist *history.Index
	log  *zap.Logger
	cfg  *Config

	mu  sync.Mutex // serializes commits
	tip object.ID
}

// Option configures a Repo.
type Option func(*Repo)

// WithLogger sets the logger passed to the repository and its indices.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repo) {
		if l != nil {
			r.log = l
		}
	}
}

func metaPath(name string) string {
	return path.Join("/", MetaDir, name)
}

// Logger returns the logger the repository was opened with.
func (r *Repo) Logger() *zap.Logger {
	return r.log
}
