package object

import "fmt"

// Kind identifies the kind of object stored. The numeric value is what the
// catalog persists, so existing values must never be renumbered.
type Kind uint32

const (
	KindContent  Kind = 1
	KindTree     Kind = 2
	KindRevision Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindTree:
		return "tree"
	case KindRevision:
		return "revision"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= KindContent && k <= KindRevision
}

// Tree maps child names to the ids of their objects. A child is either
// another tree or a content object; which one is recorded by the catalog,
// not by the tree.
type Tree map[string]ID

// Clone returns an independent copy of t. A nil tree clones to an empty one.
func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for name, id := range t {
		out[name] = id
	}
	return out
}

// Revision is one snapshot in the history chain. ID is derived from the
// other fields and is never part of the serialized form.
type Revision struct {
	ID        ID
	Parent    ID
	Tree      ID
	Timestamp int64 // unix nanoseconds
	Author    string
	Submitter string
	Message   string
}
