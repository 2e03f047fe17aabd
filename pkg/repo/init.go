package repo

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/odvcencio/cairn/pkg/history"
	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// Init creates a new repository at the root of fs. It creates the .cairn/
// directory with the content, catalog and history logs, an empty tip and a
// default config. Returns an error wrapping store.ErrExists if a non-empty
// content log is already present.
func Init(fs vfs.FS, opts ...Option) (*Repo, error) {
	dir := metaPath("")

	// The store refuses to overwrite a populated content log, so it goes first.
	if err := store.Init(fs, dir); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := history.Init(fs, metaPath(history.LogName)); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := writeTip(fs, object.ZeroID); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	ok, err := vfs.Exists(fs, metaPath(ConfigName))
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if !ok {
		if err := writeConfig(fs, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
	}
	return Open(fs, opts...)
}

// Open opens the repository rooted at the root of fs, replaying the
// catalog and history logs and reading the tip.
func Open(fs vfs.FS, opts ...Option) (*Repo, error) {
	r := &Repo{FS: fs, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	ok, err := vfs.Exists(fs, metaPath(store.CatalogLogName))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("open: %w", ErrNotRepository)
	}

	if r.cfg, err = LoadConfig(fs); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if r.Store, err = store.Open(fs, metaPath(""), store.WithLogger(r.log.Named("store"))); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if r.hist, err = history.Open(fs, metaPath(history.LogName), history.WithLogger(r.log.Named("history"))); err != nil {
		r.Store.Close()
		return nil, fmt.Errorf("open: %w", err)
	}
	if r.tip, err = readTip(fs); err != nil {
		r.Close()
		return nil, fmt.Errorf("open: %w", err)
	}
	if !r.tip.IsZero() {
		if e, ok := r.Store.Lookup(r.tip); !ok || e.Kind != object.KindRevision {
			r.Close()
			return nil, fmt.Errorf("open: %w: tip %s is not a catalogued revision", ErrCorrupted, r.tip)
		}
	}

	r.log.Debug("repository opened",
		zap.Int("objects", r.Store.Len()),
		zap.Int("paths", r.hist.Len()),
		zap.Stringer("tip", r.tip),
	)
	return r, nil
}

// OpenAt locates the repository containing p on fs and opens it on a view
// of fs rooted at the repository root. It also returns p relative to that
// root.
func OpenAt(fs vfs.FS, p string, opts ...Option) (*Repo, string, error) {
	found, root, inside, err := Locate(fs, p)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", p, err)
	}
	if !found {
		return nil, "", fmt.Errorf("open %s: %w (or any parent up to /)", p, ErrNotRepository)
	}
	r, err := Open(vfs.Sub(fs, root), opts...)
	if err != nil {
		return nil, "", err
	}
	return r, inside, nil
}

// Sync flushes every log.
func (r *Repo) Sync() error {
	return multierr.Append(r.Store.Sync(), r.hist.Sync())
}

// Close releases the log handles. The logs are already durable, so
// nothing is re-serialized.
func (r *Repo) Close() error {
	var err error
	if r.Store != nil {
		err = multierr.Append(err, r.Store.Close())
	}
	if r.hist != nil {
		err = multierr.Append(err, r.hist.Close())
	}
	return err
}
