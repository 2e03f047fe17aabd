package repo

import (
	"bytes"
	"fmt"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// TipName is the file holding the id of the latest revision.
const TipName = "tip"

// readTip reads the tip file: a header followed by nothing (no revisions
// yet) or one id. An absent or zero-length tip file also means no
// revisions yet.
func readTip(fs vfs.FS) (object.ID, error) {
	st, err := fs.State(metaPath(TipName))
	if err != nil {
		return object.ZeroID, fmt.Errorf("read tip: %w", err)
	}
	if st == vfs.NotFound {
		return object.ZeroID, nil
	}
	data, err := vfs.ReadFile(fs, metaPath(TipName))
	if err != nil {
		return object.ZeroID, fmt.Errorf("read tip: %w", err)
	}
	if len(data) == 0 {
		return object.ZeroID, nil
	}
	if err := store.CheckHeader(bytes.NewReader(data), store.TipMagic); err != nil {
		return object.ZeroID, fmt.Errorf("read tip: %w", err)
	}
	rest := data[store.HeaderSize:]
	switch len(rest) {
	case 0:
		return object.ZeroID, nil
	case object.IDSize:
		id, _ := object.IDFromBytes(rest)
		return id, nil
	default:
		return object.ZeroID, fmt.Errorf("read tip: %w: %d trailing bytes", ErrCorrupted, len(rest))
	}
}

// writeTip replaces the tip file through a temp file and a rename, so a
// concurrent reader sees either the old or the new id.
func writeTip(fs vfs.FS, id object.ID) error {
	buf := store.Header(store.TipMagic)
	if !id.IsZero() {
		buf = append(buf, id[:]...)
	}

	tmp := metaPath(TipName + ".tmp")
	if err := vfs.WriteFile(fs, tmp, buf); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("write tip: %w", err)
	}
	if err := fs.Rename(tmp, metaPath(TipName)); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("write tip: rename: %w", err)
	}
	return nil
}

// Tip returns the id of the latest revision, or the zero id if nothing has
// been committed.
func (r *Repo) Tip() object.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tip
}
