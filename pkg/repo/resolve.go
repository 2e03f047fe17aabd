package repo

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// IDMarker prefixes a final path component that names an object directly,
// as in "/docs/@<hex id>".
const IDMarker = "@"

// Resolve maps a path in a revision to the id of the object there. A zero
// rev means the tip. Absent paths, unknown revisions and paths that pass
// through a file resolve to the zero id without error.
//
// If the final component is IDMarker followed by a hex id, revision
// resolution is skipped and that id is returned when it is catalogued.
func (r *Repo) Resolve(rev object.ID, p string) (object.ID, error) {
	parts := vfs.Split(p)
	if n := len(parts); n > 0 && strings.HasPrefix(parts[n-1], IDMarker) {
		id, err := object.ParseID(strings.TrimPrefix(parts[n-1], IDMarker))
		if err != nil || !r.Store.Has(id) {
			return object.ZeroID, nil
		}
		return id, nil
	}

	if rev.IsZero() {
		rev = r.Tip()
		if rev.IsZero() {
			return object.ZeroID, nil
		}
	}
	revision, err := r.ReadRevision(rev)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrKindMismatch) {
			return object.ZeroID, nil
		}
		return object.ZeroID, fmt.Errorf("resolve %s: %w", p, err)
	}

	current := revision.Tree
	for _, part := range parts {
		e, ok := r.Store.Lookup(current)
		if !ok {
			return object.ZeroID, fmt.Errorf("resolve %s: %w: %s missing from catalog", p, ErrCorrupted, current)
		}
		if e.Kind != object.KindTree {
			return object.ZeroID, nil
		}
		t, err := r.ReadTree(current)
		if err != nil {
			return object.ZeroID, fmt.Errorf("resolve %s: %w", p, err)
		}
		next, ok := t[part]
		if !ok {
			return object.ZeroID, nil
		}
		current = next
	}
	return current, nil
}

// OpenForRead returns a read view of a content object.
func (r *Repo) OpenForRead(id object.ID) (*io.SectionReader, error) {
	sr, err := r.Store.Read(id)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	return sr, nil
}

// Stat returns the catalog entry for id.
func (r *Repo) Stat(id object.ID) (store.Entry, bool) {
	return r.Store.Lookup(id)
}

// ReadTree loads and decodes a tree object.
func (r *Repo) ReadTree(id object.ID) (object.Tree, error) {
	data, err := r.Store.ReadAll(id, object.KindTree)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", id, err)
	}
	t, err := object.UnmarshalTree(data)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w: %v", id, ErrCorrupted, err)
	}
	return t, nil
}

// ReadRevision loads and decodes a revision object.
func (r *Repo) ReadRevision(id object.ID) (*object.Revision, error) {
	data, err := r.Store.ReadAll(id, object.KindRevision)
	if err != nil {
		return nil, fmt.Errorf("read revision %s: %w", id, err)
	}
	rev, err := object.UnmarshalRevision(data)
	if err != nil {
		return nil, fmt.Errorf("read revision %s: %w: %v", id, ErrCorrupted, err)
	}
	rev.ID = id
	return rev, nil
}

// Log walks the revision chain starting from start (the tip when zero),
// returning up to limit revisions newest first. A limit of zero or less
// means no limit.
func (r *Repo) Log(start object.ID, limit int) ([]*object.Revision, error) {
	if start.IsZero() {
		start = r.Tip()
	}
	var revs []*object.Revision
	current := start
	for !current.IsZero() && (limit <= 0 || len(revs) < limit) {
		rev, err := r.ReadRevision(current)
		if err != nil {
			if current == start && (errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrKindMismatch)) {
				return nil, fmt.Errorf("log: %s: %w", start, ErrUnknownRevision)
			}
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrKindMismatch) {
				return nil, fmt.Errorf("log: %w: parent %s is not a catalogued revision", ErrCorrupted, current)
			}
			return nil, fmt.Errorf("log: %w", err)
		}
		revs = append(revs, rev)
		current = rev.Parent
	}
	return revs, nil
}

// WalkFunc is called for every file reached by Walk.
type WalkFunc func(p string, e store.Entry) error

// Walk visits every content object under tree depth first, in name order,
// with its path relative to the tree.
func (r *Repo) Walk(tree object.ID, fn WalkFunc) error {
	return r.walk(tree, "/", fn)
}

func (r *Repo) walk(id object.ID, p string, fn WalkFunc) error {
	e, ok := r.Store.Lookup(id)
	if !ok {
		return fmt.Errorf("walk %s: %w: %s missing from catalog", p, ErrCorrupted, id)
	}
	switch e.Kind {
	case object.KindContent:
		return fn(p, e)
	case object.KindTree:
	default:
		return fmt.Errorf("walk %s: %w: unexpected %s", p, ErrCorrupted, e.Kind)
	}

	t, err := r.ReadTree(id)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.walk(t[name], vfs.Join(p, name), fn); err != nil {
			return err
		}
	}
	return nil
}
