// Package store implements the object catalog and the content log: every
// object's bytes are appended once to a single log file and located
// through an in-memory catalog replayed from its own append-only log.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/vfs"
)

const (
	ContentLogName = "content.log"
	CatalogLogName = "catalog.log"

	// catalogRecordSize is kind u32 + id + size u64 + offset u64.
	catalogRecordSize = 4 + object.IDSize + 8 + 8
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrCorrupted    = errors.New("repository corrupted")
	ErrExists       = errors.New("already exists")
	ErrKindMismatch = errors.New("object kind mismatch")
)

// Entry locates one object in the content log.
type Entry struct {
	Kind   object.Kind
	ID     object.ID
	Size   uint64
	Offset uint64
}

// Store is an open catalog plus content log. Lookups and reads may run
// concurrently with one writer.
type Store struct {
	fs  vfs.FS
	dir string
	log *zap.Logger

	mu      sync.RWMutex
	entries map[object.ID]Entry
	content vfs.File // append handle
	reader  vfs.File // read handle, so readers never move the writer's offset
	catalog vfs.File

	readMu sync.Mutex
}

// lockedReaderAt serializes ReadAt on the shared read handle. Not every
// backend implements ReadAt without touching the handle's offset.
type lockedReaderAt struct {
	mu *sync.Mutex
	f  io.ReaderAt
}

func (l lockedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.ReadAt(p, off)
}

func (s *Store) readerAt() io.ReaderAt {
	return lockedReaderAt{mu: &s.readMu, f: s.reader}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for append and replay diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Init creates an empty content log and catalog log in dir. It fails with
// ErrExists if dir already holds a non-empty content log.
func Init(fs vfs.FS, dir string) error {
	contentPath := path.Join(dir, ContentLogName)
	st, err := fs.State(contentPath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	if st == vfs.Regular {
		size, err := fs.Size(contentPath)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		if size > 0 {
			return fmt.Errorf("init store: %s: %w", contentPath, ErrExists)
		}
	}

	if err := fs.CreateDir(dir); err != nil {
		return fmt.Errorf("init store: mkdir %s: %w", dir, err)
	}
	if err := vfs.WriteFile(fs, contentPath, Header(ContentMagic)); err != nil {
		return fmt.Errorf("init store: write %s: %w", ContentLogName, err)
	}
	if err := vfs.WriteFile(fs, path.Join(dir, CatalogLogName), Header(CatalogMagic)); err != nil {
		return fmt.Errorf("init store: write %s: %w", CatalogLogName, err)
	}
	return nil
}

// Open opens the logs in dir and replays the whole catalog into memory.
func Open(fs vfs.FS, dir string, opts ...Option) (*Store, error) {
	s := &Store{
		fs:      fs,
		dir:     dir,
		log:     zap.NewNop(),
		entries: make(map[object.ID]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.open(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) open() error {
	contentPath := path.Join(s.dir, ContentLogName)
	catalogPath := path.Join(s.dir, CatalogLogName)
	for _, p := range []string{contentPath, catalogPath} {
		ok, err := vfs.Exists(s.fs, p)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		if !ok {
			return fmt.Errorf("open store: %s: %w", p, ErrNotFound)
		}
	}

	var err error
	if s.content, err = s.fs.Open(contentPath, vfs.ModeRead|vfs.ModeWrite|vfs.ModeAppend); err != nil {
		return fmt.Errorf("open store: %s: %w", ContentLogName, err)
	}
	if s.reader, err = s.fs.Open(contentPath, vfs.ModeRead); err != nil {
		return fmt.Errorf("open store: %s: %w", ContentLogName, err)
	}
	if s.catalog, err = s.fs.Open(catalogPath, vfs.ModeRead|vfs.ModeWrite|vfs.ModeAppend); err != nil {
		return fmt.Errorf("open store: %s: %w", CatalogLogName, err)
	}

	contentSize, err := s.fs.Size(contentPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := CheckHeader(io.NewSectionReader(s.readerAt(), 0, contentSize), ContentMagic); err != nil {
		return fmt.Errorf("open store: %s: %w", ContentLogName, err)
	}

	catalogSize, err := s.fs.Size(catalogPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := s.replay(io.NewSectionReader(s.catalog, 0, catalogSize), uint64(contentSize)); err != nil {
		return fmt.Errorf("open store: %s: %w", CatalogLogName, err)
	}

	s.log.Debug("store opened",
		zap.String("dir", s.dir),
		zap.Int("objects", len(s.entries)),
		zap.Int64("content_bytes", contentSize),
	)
	return nil
}

func (s *Store) replay(r io.Reader, contentSize uint64) error {
	if err := CheckHeader(r, CatalogMagic); err != nil {
		return err
	}
	dec := object.NewDecoder(r)
	for n := 0; dec.More(); n++ {
		e, err := decodeEntry(dec)
		if err != nil {
			return fmt.Errorf("%w: record %d: %v", ErrCorrupted, n, err)
		}
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: record %d: unknown kind %d", ErrCorrupted, n, e.Kind)
		}
		if e.Offset < HeaderSize || e.Offset+e.Size > contentSize {
			return fmt.Errorf("%w: record %d: range [%d, %d) outside content log of %d bytes",
				ErrCorrupted, n, e.Offset, e.Offset+e.Size, contentSize)
		}
		s.entries[e.ID] = e
	}
	return nil
}

func decodeEntry(dec *object.Decoder) (Entry, error) {
	var e Entry
	kind, err := dec.Uint32()
	if err != nil {
		return e, err
	}
	e.Kind = object.Kind(kind)
	if e.ID, err = dec.ID(); err != nil {
		return e, err
	}
	if e.Size, err = dec.Uint64(); err != nil {
		return e, err
	}
	if e.Offset, err = dec.Uint64(); err != nil {
		return e, err
	}
	return e, nil
}

func encodeEntry(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(catalogRecordSize)
	enc := object.NewEncoder(&buf)
	enc.Uint32(uint32(e.Kind))
	enc.ID(e.ID)
	enc.Uint64(e.Size)
	enc.Uint64(e.Offset)
	return buf.Bytes()
}

// Lookup returns the catalog entry for id.
func (s *Store) Lookup(id object.ID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Has reports whether id is catalogued.
func (s *Store) Has(id object.ID) bool {
	_, ok := s.Lookup(id)
	return ok
}

// Len returns the number of catalogued objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns the catalogued objects of kind in log order. A zero kind
// returns every object.
func (s *Store) Entries(kind object.Kind) []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if kind == 0 || e.Kind == kind {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Append stores data as an object of kind. If an object with the same id
// is already catalogued its entry is returned and nothing is written.
func (s *Store) Append(kind object.Kind, data []byte) (Entry, error) {
	id := object.HashObject(kind, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		s.log.Debug("dedup hit", zap.Stringer("kind", kind), zap.Stringer("id", id))
		return e, nil
	}

	off, err := s.content.Seek(0, io.SeekEnd)
	if err != nil {
		return Entry{}, fmt.Errorf("append %s: seek: %w", kind, err)
	}
	if _, err := s.content.Write(data); err != nil {
		return Entry{}, fmt.Errorf("append %s: write content: %w", kind, err)
	}
	return s.record(Entry{Kind: kind, ID: id, Size: uint64(len(data)), Offset: uint64(off)})
}

// AppendReader stores everything in r as an object of kind. The content is
// hashed in one pass and only copied into the log when it is new.
func (s *Store) AppendReader(kind object.Kind, r io.ReadSeeker) (Entry, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return Entry{}, fmt.Errorf("append %s: %w", kind, err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Entry{}, fmt.Errorf("append %s: %w", kind, err)
	}
	id, err := object.HashReader(kind, r, size)
	if err != nil {
		return Entry{}, fmt.Errorf("append %s: %w", kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		s.log.Debug("dedup hit", zap.Stringer("kind", kind), zap.Stringer("id", id))
		return e, nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Entry{}, fmt.Errorf("append %s: %w", kind, err)
	}
	off, err := s.content.Seek(0, io.SeekEnd)
	if err != nil {
		return Entry{}, fmt.Errorf("append %s: seek: %w", kind, err)
	}
	n, err := io.Copy(s.content, io.LimitReader(r, size))
	if err != nil {
		return Entry{}, fmt.Errorf("append %s: write content: %w", kind, err)
	}
	if n != size {
		return Entry{}, fmt.Errorf("append %s: source changed while copying (%d of %d bytes)", kind, n, size)
	}
	return s.record(Entry{Kind: kind, ID: id, Size: uint64(size), Offset: uint64(off)})
}

// record persists e to the catalog log and then publishes it in memory.
// The caller holds s.mu.
func (s *Store) record(e Entry) (Entry, error) {
	if _, err := s.catalog.Seek(0, io.SeekEnd); err != nil {
		return Entry{}, fmt.Errorf("append %s: seek catalog: %w", e.Kind, err)
	}
	if _, err := s.catalog.Write(encodeEntry(e)); err != nil {
		return Entry{}, fmt.Errorf("append %s: write catalog: %w", e.Kind, err)
	}
	s.entries[e.ID] = e
	s.log.Debug("object appended",
		zap.Stringer("kind", e.Kind),
		zap.Stringer("id", e.ID),
		zap.Uint64("size", e.Size),
		zap.Uint64("offset", e.Offset),
	)
	return e, nil
}

// Read returns a read view over a content object.
func (s *Store) Read(id object.ID) (*io.SectionReader, error) {
	e, ok := s.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("read %s: %w", id, ErrNotFound)
	}
	if e.Kind != object.KindContent {
		return nil, fmt.Errorf("read %s: %w: got %s, want %s", id, ErrKindMismatch, e.Kind, object.KindContent)
	}
	return io.NewSectionReader(s.readerAt(), int64(e.Offset), int64(e.Size)), nil
}

// ReadAll returns the bytes of an object, checking its kind.
func (s *Store) ReadAll(id object.ID, kind object.Kind) ([]byte, error) {
	e, ok := s.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("read %s %s: %w", kind, id, ErrNotFound)
	}
	if e.Kind != kind {
		return nil, fmt.Errorf("read %s: %w: got %s, want %s", id, ErrKindMismatch, e.Kind, kind)
	}
	buf := make([]byte, e.Size)
	if _, err := io.ReadFull(io.NewSectionReader(s.readerAt(), int64(e.Offset), int64(e.Size)), buf); err != nil {
		return nil, fmt.Errorf("read %s %s: %w", kind, id, err)
	}
	return buf, nil
}

// Sync flushes both logs to stable storage.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return multierr.Combine(s.content.Sync(), s.catalog.Sync())
}

// Close releases the log handles. The logs are already durable; nothing is
// rewritten.
func (s *Store) Close() error {
	var err error
	for _, f := range []vfs.File{s.content, s.reader, s.catalog} {
		if f != nil {
			err = multierr.Append(err, f.Close())
		}
	}
	s.content, s.reader, s.catalog = nil, nil, nil
	return err
}
