package repo

import (
	"github.com/odvcencio/cairn/pkg/history"
)

// History returns the revisions at which the object at p changed, oldest
// first. A zero Content marks a removal.
func (r *Repo) History(p string) []history.Entry {
	return r.hist.Entries(p)
}

// HistoryUnder calls fn for p and every path below it that has history.
func (r *Repo) HistoryUnder(p string, fn func(path string, entries []history.Entry)) {
	r.hist.Walk(p, fn)
}
