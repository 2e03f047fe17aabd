// Package workspace is the mutable side of a repository: an overlay of new
// or changed files on top of a base revision plus the set of paths marked
// for removal.
//
// The live tree holds only what changed. Anything the base revision has
// that is absent from the live tree is carried forward unchanged unless it
// has been marked removed. Removals are mirrored in a shadow tree so that
// the commit engine can tell which directories need work without walking
// the whole tree.
package workspace

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// ErrInvalidPath is returned for paths that cannot be marked for removal.
var ErrInvalidPath = errors.New("invalid workspace path")

// Workspace is a live directory tree plus its removal set.
type Workspace struct {
	fs      vfs.FS
	root    string
	ignore  map[string]bool
	removed map[string]bool
	shadow  *shadow
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithIgnore hides entries with the given names, at any depth, from the
// live tree.
func WithIgnore(names ...string) Option {
	return func(w *Workspace) {
		for _, n := range names {
			w.ignore[n] = true
		}
	}
}

// New returns a workspace whose live tree is the directory root on fs.
func New(fs vfs.FS, root string, opts ...Option) *Workspace {
	w := &Workspace{
		fs:      fs,
		root:    vfs.Clean(root),
		ignore:  make(map[string]bool),
		removed: make(map[string]bool),
		shadow:  newShadow(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workspace) real(p string) string {
	return vfs.Join(w.root, vfs.Clean(p))
}

func (w *Workspace) ignored(p string) bool {
	for _, part := range vfs.Split(p) {
		if w.ignore[part] {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Removal set
// ---------------------------------------------------------------------------

// MarkRemove records p as removed. Marking twice is a no-op.
func (w *Workspace) MarkRemove(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("mark remove %q: %w: not absolute", p, ErrInvalidPath)
	}
	parts := vfs.Split(p)
	if len(parts) == 0 {
		return fmt.Errorf("mark remove %q: %w: cannot remove the root", p, ErrInvalidPath)
	}
	for _, part := range parts {
		if !object.ValidName(part) {
			return fmt.Errorf("mark remove %q: %w: bad component %q", p, ErrInvalidPath, part)
		}
	}
	p = vfs.Clean(p)
	w.removed[p] = true
	w.shadow.insert(p)
	return nil
}

// UnmarkRemove forgets a removal and prunes shadow ancestors that no longer
// lead to one.
func (w *Workspace) UnmarkRemove(p string) {
	p = vfs.Clean(p)
	if !w.removed[p] {
		return
	}
	delete(w.removed, p)
	w.shadow.prune(p, func(q string) bool { return w.removed[q] })
}

// IsMarkedRemove reports whether p itself was marked removed.
func (w *Workspace) IsMarkedRemove(p string) bool {
	return w.removed[vfs.Clean(p)]
}

// IsAffected reports whether p is in the shadow tree: it was removed, or a
// removal lies somewhere below it.
func (w *Workspace) IsAffected(p string) bool {
	return w.shadow.has(vfs.Clean(p))
}

// AffectedRemove returns the sorted names of p's direct shadow children.
func (w *Workspace) AffectedRemove(p string) []string {
	return w.shadow.childNames(vfs.Clean(p))
}

// IsUnaffected reports whether the subtree at p can be carried over from
// the base revision as is. Walking from the root down, an affected path
// forces a revisit, while a path absent from the live tree means nothing
// below it changed.
func (w *Workspace) IsUnaffected(p string) (bool, error) {
	p = vfs.Clean(p)
	for _, q := range append(vfs.Ancestors(p), p) {
		if w.IsAffected(q) {
			return false, nil
		}
		st, err := w.State(q)
		if err != nil {
			return false, err
		}
		if st == vfs.NotFound {
			return true, nil
		}
	}
	return false, nil
}

// Removed returns every path marked removed, sorted.
func (w *Workspace) Removed() []string {
	out := make([]string, 0, len(w.removed))
	for p := range w.removed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Reset clears the removal set.
func (w *Workspace) Reset() {
	w.removed = make(map[string]bool)
	w.shadow = newShadow()
}

// ---------------------------------------------------------------------------
// Live tree
// ---------------------------------------------------------------------------

// State reports what the live tree holds at p.
func (w *Workspace) State(p string) (vfs.State, error) {
	if w.ignored(p) {
		return vfs.NotFound, nil
	}
	return w.fs.State(w.real(p))
}

// Children lists the live entries of directory p, without ignored names.
func (w *Workspace) Children(p string) ([]vfs.Entry, error) {
	entries, err := w.fs.Children(w.real(p))
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if !w.ignore[e.Name] {
			out = append(out, e)
		}
	}
	return out, nil
}

// Open opens the live file at p for reading.
func (w *Workspace) Open(p string) (vfs.File, error) {
	return w.fs.Open(w.real(p), vfs.ModeRead)
}

// Size returns the size of the live file at p.
func (w *Workspace) Size(p string) (int64, error) {
	return w.fs.Size(w.real(p))
}
