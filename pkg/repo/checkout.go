package repo

import (
	"fmt"
	"io"
	"path"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// Checkout writes every file of a revision (the tip when rev is zero)
// under dir on dst, creating directories as needed. Existing files are
// overwritten; nothing is deleted. Returns the number of files written.
func (r *Repo) Checkout(rev object.ID, dst vfs.FS, dir string) (int, error) {
	if rev.IsZero() {
		rev = r.Tip()
		if rev.IsZero() {
			return 0, fmt.Errorf("checkout: %w: nothing committed", ErrUnknownRevision)
		}
	}
	revision, err := r.ReadRevision(rev)
	if err != nil {
		return 0, fmt.Errorf("checkout: %w", err)
	}

	n := 0
	err = r.Walk(revision.Tree, func(p string, e store.Entry) error {
		if err := r.checkoutFile(dst, vfs.Join(dir, p), e.ID); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("checkout: %w", err)
	}
	r.log.Sugar().Debugf("checked out %d files from %s into %s", n, rev.Short(), dir)
	return n, nil
}

func (r *Repo) checkoutFile(dst vfs.FS, target string, id object.ID) error {
	src, err := r.OpenForRead(id)
	if err != nil {
		return err
	}
	if err := dst.CreateDir(path.Dir(target)); err != nil {
		return fmt.Errorf("mkdir for %s: %w", target, err)
	}
	f, err := dst.Open(target, vfs.ModeWrite|vfs.ModeCreate|vfs.ModeTruncate)
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return f.Close()
}
