package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/odvcencio/cairn/pkg/history"
	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
	"github.com/odvcencio/cairn/pkg/workspace"
)

// CommitOptions describes the revision to create.
type CommitOptions struct {
	Message   string
	Author    string // defaults to the configured user, then $USER
	Submitter string // defaults to the configured submitter, then Author
	Base      object.ID
	Time      time.Time // defaults to now
}

// SnapshotError reports the workspace path at which a commit failed.
type SnapshotError struct {
	Path string
	Err  error
}

func (e *SnapshotError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("snapshot %s: %v", e.Path, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Commit snapshots ws on top of opts.Base and makes the result the tip.
//
//  1. Resolve the base revision to its root tree
//  2. Snapshot the workspace against that tree
//  3. Append the revision and overwrite the tip
//  4. Record history for every path the snapshot touched
//  5. Return the revision
//
// Only the subtrees the workspace changed are read or hashed. If any step
// before the tip write fails, the tip is left where it was; objects already
// appended stay in the log unreferenced.
func (r *Repo) Commit(ws *workspace.Workspace, opts CommitOptions) (*object.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 1. Resolve base.
	var baseTree object.ID
	if !opts.Base.IsZero() {
		base, err := r.ReadRevision(opts.Base)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrKindMismatch) {
				return nil, fmt.Errorf("commit: base %s: %w", opts.Base, ErrUnknownRevision)
			}
			return nil, fmt.Errorf("commit: %w", err)
		}
		if !base.Parent.IsZero() {
			if e, ok := r.Store.Lookup(base.Parent); !ok || e.Kind != object.KindRevision {
				return nil, fmt.Errorf("commit: %w: parent %s of base %s is not catalogued", ErrCorrupted, base.Parent, opts.Base)
			}
		}
		baseTree = base.Tree
	}

	// 2. Snapshot.
	s := &snapshotter{
		r:       r,
		ws:      ws,
		trees:   make(map[object.ID]object.Tree),
		touched: make(map[string]object.ID),
	}
	root, err := s.snapshot(baseTree, "/")
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if root.IsZero() {
		// An empty live tree with no base still commits an empty root.
		e, err := r.Store.Append(object.KindTree, object.MarshalTree(nil))
		if err != nil {
			return nil, fmt.Errorf("commit: write tree: %w", err)
		}
		root = e.ID
	}

	// 3. Build and write the revision, then move the tip.
	when := opts.Time
	if when.IsZero() {
		when = time.Now()
	}
	author := opts.Author
	if author == "" {
		author = r.defaultAuthor()
	}
	submitter := opts.Submitter
	if submitter == "" {
		submitter = r.defaultSubmitter(author)
	}
	rev := &object.Revision{
		Parent:    opts.Base,
		Tree:      root,
		Timestamp: when.UnixNano(),
		Author:    author,
		Submitter: submitter,
		Message:   opts.Message,
	}
	e, err := r.Store.Append(object.KindRevision, object.MarshalRevision(rev))
	if err != nil {
		return nil, fmt.Errorf("commit: write revision: %w", err)
	}
	rev.ID = e.ID
	if err := r.Store.Sync(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if err := writeTip(r.FS, rev.ID); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	r.tip = rev.ID

	// 4. Record history deltas.
	recorded := 0
	for _, p := range s.order {
		wrote, err := r.hist.Record(p, rev.ID, s.touched[p])
		if err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		if wrote {
			recorded++
		}
	}
	if err := r.hist.Sync(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	r.log.Info("committed",
		zap.String("revision", rev.ID.Short()),
		zap.String("parent", rev.Parent.Short()),
		zap.Int("touched", len(s.order)),
		zap.Int("history", recorded),
	)

	// 5. Return the revision.
	return rev, nil
}

// snapshotter carries the state of one commit's tree walk.
type snapshotter struct {
	r  *Repo
	ws *workspace.Workspace

	trees   map[object.ID]object.Tree // decoded old trees, by id
	touched map[string]object.ID      // path -> new id, zero when removed
	order   []string
}

func (s *snapshotter) touch(p string, id object.ID) {
	if _, ok := s.touched[p]; !ok {
		s.order = append(s.order, p)
	}
	s.touched[p] = id
}

// snapshot returns the id of the object at p after applying the
// workspace's changes to the old object id.
func (s *snapshotter) snapshot(id object.ID, p string) (object.ID, error) {
	skip, err := s.ws.IsUnaffected(p)
	if err != nil {
		return object.ZeroID, &SnapshotError{Path: p, Err: err}
	}
	if skip {
		return id, nil
	}

	st, err := s.ws.State(p)
	if err != nil {
		return object.ZeroID, &SnapshotError{Path: p, Err: err}
	}
	switch st {
	case vfs.Regular:
		return s.file(p)
	case vfs.Directory:
		return s.dir(id, p, true)
	default:
		// Not live, but something below it was removed.
		return s.dir(id, p, false)
	}
}

func (s *snapshotter) file(p string) (object.ID, error) {
	f, err := s.ws.Open(p)
	if err != nil {
		return object.ZeroID, &SnapshotError{Path: p, Err: err}
	}
	defer f.Close()

	e, err := s.r.Store.AppendReader(object.KindContent, f)
	if err != nil {
		return object.ZeroID, &SnapshotError{Path: p, Err: err}
	}
	s.touch(p, e.ID)
	return e.ID, nil
}

func (s *snapshotter) dir(id object.ID, p string, live bool) (object.ID, error) {
	entries, isTree, err := s.loadTree(id)
	if err != nil {
		return object.ZeroID, &SnapshotError{Path: p, Err: err}
	}
	if !isTree {
		if !live {
			// Everything marked below p sits under a file.
			return object.ZeroID, s.missing(p)
		}
		// A file became a directory.
		entries = make(object.Tree)
	}

	// Removals and the directories leading to them.
	for _, name := range s.ws.AffectedRemove(p) {
		child := vfs.Join(p, name)
		old, ok := entries[name]
		present := false
		if live {
			st, err := s.ws.State(child)
			if err != nil {
				return object.ZeroID, &SnapshotError{Path: child, Err: err}
			}
			present = st != vfs.NotFound
		}

		if s.ws.IsMarkedRemove(child) {
			switch {
			case ok:
				delete(entries, name)
				s.remove(child)
			case !present:
				return object.ZeroID, s.missing(child)
			}
			continue
		}
		if present {
			continue // handled with the live children below
		}
		if !ok {
			return object.ZeroID, s.missing(child)
		}
		next, err := s.snapshot(old, child)
		if err != nil {
			return object.ZeroID, err
		}
		entries[name] = next
	}

	// New and changed entries.
	if live {
		children, err := s.ws.Children(p)
		if err != nil {
			return object.ZeroID, &SnapshotError{Path: p, Err: err}
		}
		for _, c := range children {
			child := vfs.Join(p, c.Name)
			if !object.ValidName(c.Name) || s.ws.IsMarkedRemove(child) {
				continue
			}
			next, err := s.snapshot(entries[c.Name], child)
			if err != nil {
				return object.ZeroID, err
			}
			entries[c.Name] = next
		}
	}

	e, err := s.r.Store.Append(object.KindTree, object.MarshalTree(entries))
	if err != nil {
		return object.ZeroID, &SnapshotError{Path: p, Err: err}
	}
	s.touch(p, e.ID)
	return e.ID, nil
}

// remove records p, and every path below it whose history says it is
// still present, as removed.
func (s *snapshotter) remove(p string) {
	s.touch(p, object.ZeroID)
	s.r.hist.Walk(p, func(q string, entries []history.Entry) {
		if len(entries) > 0 && !entries[len(entries)-1].Content.IsZero() {
			s.touch(q, object.ZeroID)
		}
	})
}

// missing reports a removal that names nothing in the base revision. The
// error carries the first marked path at or below p.
func (s *snapshotter) missing(p string) error {
	target := p
	prefix := strings.TrimSuffix(p, "/") + "/"
	for _, r := range s.ws.Removed() {
		if r == p || strings.HasPrefix(r, prefix) {
			target = r
			break
		}
	}
	return &SnapshotError{Path: target, Err: fmt.Errorf("remove: %w", ErrNoSuchPath)}
}

// loadTree returns a private copy of the tree at id. isTree is false when
// id names a content object. A zero id is the empty tree.
func (s *snapshotter) loadTree(id object.ID) (object.Tree, bool, error) {
	if id.IsZero() {
		return make(object.Tree), true, nil
	}
	if t, ok := s.trees[id]; ok {
		return t.Clone(), true, nil
	}

	e, ok := s.r.Store.Lookup(id)
	if !ok {
		return nil, false, fmt.Errorf("%w: tree entry %s missing from catalog", ErrCorrupted, id)
	}
	switch e.Kind {
	case object.KindContent:
		return nil, false, nil
	case object.KindTree:
	default:
		return nil, false, fmt.Errorf("%w: %s is a %s, want tree", ErrCorrupted, id, e.Kind)
	}

	t, err := s.r.ReadTree(id)
	if err != nil {
		return nil, false, err
	}
	s.trees[id] = t
	return t.Clone(), true, nil
}
