// Package cattree maintains an in-memory hierarchy of categories addressed by
// " > " separated paths, with free-text todos attached to nodes, and renders
// it as a collapsible HTML document.
package cattree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins the segments of a category path.
const Separator = " > "

var (
	// ErrEmptyPath is returned for a path with no segments.
	ErrEmptyPath = errors.New("cattree: empty category path")
	// ErrEmptySegment is returned when a path contains a blank segment,
	// e.g. "A >  > B", "A > B >" or "> A".
	ErrEmptySegment = errors.New("cattree: empty path segment")
	// ErrEmptyTodo is returned when attaching a blank todo.
	ErrEmptyTodo = errors.New("cattree: empty todo")
)

// Node is a named point in the hierarchy. Children keep the order in which
// they were first created.
type Node struct {
	Name  string
	Todos []string

	children []*Node
	index    map[string]int
}

func newNode(name string) *Node {
	return &Node{Name: name, index: make(map[string]int)}
}

// Children returns the node's subcategories in insertion order.
func (n *Node) Children() []*Node {
	return n.children
}

// Child returns the direct subcategory with the given name, or nil.
func (n *Node) Child(name string) *Node {
	i, ok := n.index[name]
	if !ok {
		return nil
	}
	return n.children[i]
}

// Collapsible reports whether the node has anything to expand.
func (n *Node) Collapsible() bool {
	return len(n.children) > 0 || len(n.Todos) > 0
}

func (n *Node) ensureChild(name string) (*Node, bool) {
	if c := n.Child(name); c != nil {
		return c, false
	}
	c := newNode(name)
	n.index[name] = len(n.children)
	n.children = append(n.children, c)
	return c, true
}

// Tree owns the root-level categories. It is not safe for concurrent use.
type Tree struct {
	root *Node
	size int
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: newNode("")}
}

// SplitPath splits a category path into trimmed segments.
func SplitPath(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	parts := strings.Split(path, Separator)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || danglingSeparator(p) {
			return nil, fmt.Errorf("%w in %q", ErrEmptySegment, path)
		}
		parts[i] = p
	}
	return parts, nil
}

// danglingSeparator reports whether seg still holds a separator whose
// surrounding spaces were trimmed away, as in "A > B >" or "> A".
func danglingSeparator(seg string) bool {
	sep := strings.TrimSpace(Separator)
	return seg == sep || strings.HasPrefix(seg, sep+" ") || strings.HasSuffix(seg, " "+sep)
}

// ParseCategories creates every node addressed by paths. Paths already
// present are left as they are. All paths are validated first, so an invalid
// path leaves the tree unchanged.
func (t *Tree) ParseCategories(paths []string) error {
	split := make([][]string, 0, len(paths))
	for _, p := range paths {
		segs, err := SplitPath(p)
		if err != nil {
			return err
		}
		split = append(split, segs)
	}
	for _, segs := range split {
		t.ensure(segs)
	}
	return nil
}

// Ensure creates the chain of nodes for path and returns the terminal node.
func (t *Tree) Ensure(path string) (*Node, error) {
	segs, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	return t.ensure(segs), nil
}

func (t *Tree) ensure(segs []string) *Node {
	cur := t.root
	for _, s := range segs {
		var created bool
		cur, created = cur.ensureChild(s)
		if created {
			t.size++
		}
	}
	return cur
}

// AddTodo appends todo to the node at categoryPath, creating missing nodes
// on the way. The same todo may be added more than once.
func (t *Tree) AddTodo(categoryPath, todo string) error {
	if strings.TrimSpace(todo) == "" {
		return ErrEmptyTodo
	}
	n, err := t.Ensure(categoryPath)
	if err != nil {
		return err
	}
	n.Todos = append(n.Todos, todo)
	return nil
}

// Lookup returns the node at path without creating anything.
func (t *Tree) Lookup(path string) (*Node, bool) {
	segs, err := SplitPath(path)
	if err != nil {
		return nil, false
	}
	cur := t.root
	for _, s := range segs {
		cur = cur.Child(s)
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Roots returns the top-level categories in insertion order.
func (t *Tree) Roots() []*Node {
	return t.root.children
}

// Len returns the total number of nodes.
func (t *Tree) Len() int {
	return t.size
}

// Walk visits every node depth-first in insertion order, passing the node's
// render id and depth (0 for roots). Returning false skips the node's
// descendants.
func (t *Tree) Walk(fn func(id string, depth int, n *Node) bool) {
	walk(t.root.children, "", 0, fn)
}

func walk(nodes []*Node, parentID string, depth int, fn func(string, int, *Node) bool) {
	for i, n := range nodes {
		id := NodeID(parentID, i)
		if fn(id, depth, n) {
			walk(n.children, id, depth+1, fn)
		}
	}
}

// NodeID derives a child's render id from its parent's id and its index
// among siblings. Root-level nodes have an empty parent id.
func NodeID(parentID string, index int) string {
	if parentID == "" {
		return strconv.Itoa(index)
	}
	return parentID + "_" + strconv.Itoa(index)
}
