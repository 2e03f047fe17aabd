package workspace

import (
	"sort"

	"github.com/odvcencio/cairn/pkg/vfs"
)

// shadow mirrors every path marked for removal together with its
// ancestors. A path is in the shadow exactly when some removal lies at or
// below it.
type shadow struct {
	root *shadowNode
}

type shadowNode struct {
	parent   *shadowNode
	name     string
	children map[string]*shadowNode
}

func newShadow() *shadow {
	return &shadow{root: &shadowNode{}}
}

func (s *shadow) find(p string) *shadowNode {
	n := s.root
	for _, part := range vfs.Split(p) {
		n = n.children[part]
		if n == nil {
			return nil
		}
	}
	return n
}

// insert creates p and all of its ancestors.
func (s *shadow) insert(p string) {
	n := s.root
	for _, part := range vfs.Split(p) {
		child := n.children[part]
		if child == nil {
			if n.children == nil {
				n.children = make(map[string]*shadowNode)
			}
			child = &shadowNode{parent: n, name: part}
			n.children[part] = child
		}
		n = child
	}
}

// prune removes p if it has no children and keep(p) is false, then walks
// upward doing the same for each ancestor. The root is never removed.
func (s *shadow) prune(p string, keep func(string) bool) {
	n := s.find(p)
	for n != nil && n != s.root {
		if len(n.children) > 0 || keep(p) {
			return
		}
		delete(n.parent.children, n.name)
		n = n.parent
		p = vfs.Clean(p + "/..")
	}
}

func (s *shadow) has(p string) bool {
	n := s.find(p)
	if n == nil {
		return false
	}
	// The root is always present; it only counts once something hangs off it.
	return n != s.root || len(n.children) > 0
}

func (s *shadow) childNames(p string) []string {
	n := s.find(p)
	if n == nil || len(n.children) == 0 {
		return nil
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *shadow) empty() bool {
	return len(s.root.children) == 0
}
