// Package history keeps, for every path, the list of revisions at which
// the path's object id changed. The list lives in an immutable radix tree
// keyed by path and is persisted as an append-only log of deltas.
package history

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
	"go.uber.org/zap"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// LogName is the file name of the history log inside the metadata dir.
const LogName = "history.log"

// Entry records that Content became the path's id at Revision. A zero
// Content means the path was removed.
type Entry struct {
	Revision object.ID
	Content  object.ID
}

// Index is the in-memory history map plus its open log.
type Index struct {
	fs   vfs.FS
	path string
	log  *zap.Logger

	mu    sync.RWMutex
	paths *iradix.Tree // path -> []Entry
	file  vfs.File
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for replay and record diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.log = l
		}
	}
}

// Init writes an empty history log at p.
func Init(fs vfs.FS, p string) error {
	if err := vfs.WriteFile(fs, p, store.Header(store.HistoryMagic)); err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	return nil
}

// Open replays the history log at p.
func Open(fs vfs.FS, p string, opts ...Option) (*Index, error) {
	ix := &Index{
		fs:    fs,
		path:  p,
		log:   zap.NewNop(),
		paths: iradix.New(),
	}
	for _, opt := range opts {
		opt(ix)
	}

	ok, err := vfs.Exists(fs, p)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("open history: %s: %w", p, store.ErrNotFound)
	}
	ix.file, err = fs.Open(p, vfs.ModeRead|vfs.ModeWrite|vfs.ModeAppend)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	size, err := fs.Size(p)
	if err != nil {
		ix.file.Close()
		return nil, fmt.Errorf("open history: %w", err)
	}
	records, err := ix.replay(io.NewSectionReader(ix.file, 0, size))
	if err != nil {
		ix.file.Close()
		return nil, fmt.Errorf("open history: %w", err)
	}
	ix.log.Debug("history replayed", zap.Int("records", records), zap.Int("paths", ix.paths.Len()))
	return ix, nil
}

func (ix *Index) replay(r io.Reader) (int, error) {
	if err := store.CheckHeader(r, store.HistoryMagic); err != nil {
		return 0, err
	}
	dec := object.NewDecoder(r)
	txn := ix.paths.Txn()
	n := 0
	for ; dec.More(); n++ {
		p, e, err := decodeRecord(dec)
		if err != nil {
			return n, fmt.Errorf("%w: history record %d: %v", store.ErrCorrupted, n, err)
		}
		var list []Entry
		if v, ok := txn.Get([]byte(p)); ok {
			list = v.([]Entry)
		}
		txn.Insert([]byte(p), append(list, e))
	}
	ix.paths = txn.Commit()
	return n, nil
}

func decodeRecord(dec *object.Decoder) (string, Entry, error) {
	var e Entry
	p, err := dec.String()
	if err != nil {
		return "", e, err
	}
	if e.Revision, err = dec.ID(); err != nil {
		return "", e, err
	}
	if e.Content, err = dec.ID(); err != nil {
		return "", e, err
	}
	return p, e, nil
}

func encodeRecord(p string, e Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := object.NewEncoder(&buf)
	enc.String(p)
	enc.ID(e.Revision)
	enc.ID(e.Content)
	return buf.Bytes(), enc.Err()
}

func (ix *Index) entries(p string) []Entry {
	v, ok := ix.paths.Get([]byte(p))
	if !ok {
		return nil
	}
	return v.([]Entry)
}

// Last returns the most recent entry for p.
func (ix *Index) Last(p string) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	list := ix.entries(vfs.Clean(p))
	if len(list) == 0 {
		return Entry{}, false
	}
	return list[len(list)-1], true
}

// Entries returns every entry for p, oldest first.
func (ix *Index) Entries(p string) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return cloneEntries(ix.entries(vfs.Clean(p)))
}

func cloneEntries(list []Entry) []Entry {
	out := make([]Entry, len(list))
	copy(out, list)
	return out
}

// Record appends {rev, content} to p's list unless content equals the last
// recorded id. It reports whether an entry was written.
func (ix *Index) Record(p string, rev, content object.ID) (bool, error) {
	p = vfs.Clean(p)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	list := ix.entries(p)
	if len(list) > 0 && list[len(list)-1].Content == content {
		return false, nil
	}
	if len(list) == 0 && content.IsZero() {
		// Removing a path that never had history is not a change.
		return false, nil
	}

	e := Entry{Revision: rev, Content: content}
	rec, err := encodeRecord(p, e)
	if err != nil {
		return false, fmt.Errorf("record history %s: %w", p, err)
	}
	if _, err := ix.file.Seek(0, io.SeekEnd); err != nil {
		return false, fmt.Errorf("record history %s: %w", p, err)
	}
	if _, err := ix.file.Write(rec); err != nil {
		return false, fmt.Errorf("record history %s: %w", p, err)
	}

	// Never append in place: older trees may still share the backing array.
	next := make([]Entry, len(list), len(list)+1)
	copy(next, list)
	ix.paths, _, _ = ix.paths.Insert([]byte(p), append(next, e))
	return true, nil
}

// Walk calls fn for p and every path below it that has history, in
// ascending path order. fn receives a copy of each entry list.
func (ix *Index) Walk(p string, fn func(path string, entries []Entry)) {
	p = vfs.Clean(p)
	ix.mu.RLock()
	root := ix.paths.Root()
	ix.mu.RUnlock()

	prefix := p
	if p != "/" {
		prefix = p + "/"
	}
	if p != "/" {
		if v, ok := root.Get([]byte(p)); ok {
			fn(p, cloneEntries(v.([]Entry)))
		}
	}
	root.WalkPrefix([]byte(prefix), func(k []byte, v interface{}) bool {
		fn(string(k), cloneEntries(v.([]Entry)))
		return false
	})
}

// Len returns the number of paths with history.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.paths.Len()
}

// Sync flushes the log.
func (ix *Index) Sync() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.file.Sync()
}

// Close releases the log handle.
func (ix *Index) Close() error {
	if ix.file == nil {
		return nil
	}
	err := ix.file.Close()
	ix.file = nil
	return err
}
