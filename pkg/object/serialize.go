package object

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformed reports bytes that do not decode as the expected object.
var ErrMalformed = errors.New("malformed object")

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// ValidName reports whether name may appear as a tree entry.
func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}

// MarshalTree serializes a Tree. Entries are written in ascending name
// order so equal trees always produce equal bytes:
//
//	uvarint count
//	count × (uvarint len, name bytes, 32-byte id)
func MarshalTree(t Tree) []byte {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.Size(uint64(len(names)))
	for _, name := range names {
		enc.String(name)
		enc.ID(t[name])
	}
	return buf.Bytes()
}

// UnmarshalTree parses a Tree from its serialized form. Out-of-order or
// duplicate names are rejected since they cannot come from MarshalTree.
func UnmarshalTree(data []byte) (Tree, error) {
	dec := NewDecoder(bytes.NewReader(data))
	count, err := dec.Size()
	if err != nil {
		return nil, fmt.Errorf("%w: tree count: %v", ErrMalformed, err)
	}
	if count > uint64(len(data)) {
		return nil, fmt.Errorf("%w: tree count %d exceeds size", ErrMalformed, count)
	}

	t := make(Tree, count)
	prev := ""
	for i := uint64(0); i < count; i++ {
		name, err := dec.String()
		if err != nil {
			return nil, fmt.Errorf("%w: tree entry %d name: %v", ErrMalformed, i, err)
		}
		if !ValidName(name) {
			return nil, fmt.Errorf("%w: tree entry %d: invalid name %q", ErrMalformed, i, name)
		}
		if i > 0 && name <= prev {
			return nil, fmt.Errorf("%w: tree entry %q out of order", ErrMalformed, name)
		}
		id, err := dec.ID()
		if err != nil {
			return nil, fmt.Errorf("%w: tree entry %q id: %v", ErrMalformed, name, err)
		}
		t[name] = id
		prev = name
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing bytes after tree", ErrMalformed)
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Revision
// ---------------------------------------------------------------------------

// MarshalRevision serializes every field of r except ID:
//
//	parent id, tree id, timestamp i64, author, submitter, message
func MarshalRevision(r *Revision) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.ID(r.Parent)
	enc.ID(r.Tree)
	enc.Int64(r.Timestamp)
	enc.String(r.Author)
	enc.String(r.Submitter)
	enc.String(r.Message)
	return buf.Bytes()
}

// RevisionID computes the id r would be stored under.
func RevisionID(r *Revision) ID {
	return HashObject(KindRevision, MarshalRevision(r))
}

// UnmarshalRevision parses a Revision. The returned ID is left zero; the
// caller knows which id it looked up.
func UnmarshalRevision(data []byte) (*Revision, error) {
	dec := NewDecoder(bytes.NewReader(data))
	r := &Revision{}
	var err error
	if r.Parent, err = dec.ID(); err != nil {
		return nil, fmt.Errorf("%w: revision parent: %v", ErrMalformed, err)
	}
	if r.Tree, err = dec.ID(); err != nil {
		return nil, fmt.Errorf("%w: revision tree: %v", ErrMalformed, err)
	}
	if r.Timestamp, err = dec.Int64(); err != nil {
		return nil, fmt.Errorf("%w: revision timestamp: %v", ErrMalformed, err)
	}
	if r.Author, err = dec.String(); err != nil {
		return nil, fmt.Errorf("%w: revision author: %v", ErrMalformed, err)
	}
	if r.Submitter, err = dec.String(); err != nil {
		return nil, fmt.Errorf("%w: revision submitter: %v", ErrMalformed, err)
	}
	if r.Message, err = dec.String(); err != nil {
		return nil, fmt.Errorf("%w: revision message: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing bytes after revision", ErrMalformed)
	}
	return r, nil
}
