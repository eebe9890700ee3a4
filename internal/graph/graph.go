// Package graph builds the dependency tree for a project manifest,
// detects circular reference chains, and flattens the tree into a
// deduplicated install order. Resolution is decoupled from network I/O
// through an injected Loader, so the traversal itself is testable offline.
package graph

import (
	"fmt"
	"strings"

	"github.com/seiggy/apm/internal/config"
	"github.com/seiggy/apm/internal/refs"
)

// Node is one resolved package in the dependency tree. A node is created
// for the first declaration of a unique key; later declarations attach the
// same node as a child of their parent, so distinct branches share nodes.
type Node struct {
	Ref         *refs.DependencyReference
	Package     *config.Manifest // nil when the package has no manifest or could not be loaded
	InstallPath string           // empty when the package was not acquired
	Depth       int              // root dependencies are depth 1
	Parent      *Node            // first parent; reused nodes keep their original
	Children    []*Node
	LoadErr     error // set when acquisition failed or the manifest was malformed
}

// Key returns the node's unique dependency key.
func (n *Node) Key() string { return n.Ref.UniqueKey() }

// Tree is the depth-indexed resolution tree.
type Tree struct {
	Roots    []*Node
	MaxDepth int

	depths      map[int]map[string]*Node
	occurrences []occurrence
}

// occurrence records one declaration of a dependency key in traversal
// order, including declarations that reused an existing node.
type occurrence struct {
	ref   *refs.DependencyReference
	node  *Node
	depth int
}

// NewTree returns an empty resolution tree.
func NewTree() *Tree {
	return &Tree{depths: make(map[int]map[string]*Node)}
}

// Add registers a newly created node at its depth.
func (t *Tree) Add(n *Node) {
	level, ok := t.depths[n.Depth]
	if !ok {
		level = make(map[string]*Node)
		t.depths[n.Depth] = level
	}
	level[n.Key()] = n
	if n.Depth > t.MaxDepth {
		t.MaxDepth = n.Depth
	}
}

// Lookup returns the shallowest node for key at depth <= maxDepth, or nil.
func (t *Tree) Lookup(key string, maxDepth int) *Node {
	for d := 1; d <= maxDepth && d <= t.MaxDepth; d++ {
		if n, ok := t.depths[d][key]; ok {
			return n
		}
	}
	return nil
}

// Size returns the number of distinct nodes in the tree.
func (t *Tree) Size() int {
	total := 0
	for _, level := range t.depths {
		total += len(level)
	}
	return total
}

func (t *Tree) recordOccurrence(ref *refs.DependencyReference, node *Node, depth int) {
	t.occurrences = append(t.occurrences, occurrence{ref: ref, node: node, depth: depth})
}

// CircularRef is a detected dependency cycle. Path holds the unique keys
// from the first repeated package up to, but not including, its repeat;
// closing the loop means appending the first element again.
type CircularRef struct {
	Path  []string
	Depth int
}

// String renders the closed cycle, e.g. "a/b → b/c → a/b".
func (c CircularRef) String() string {
	if len(c.Path) == 0 {
		return ""
	}
	closed := append(append([]string(nil), c.Path...), c.Path[0])
	return strings.Join(closed, " → ")
}

// ConflictInfo collects the declarations of a dependency key that lost to
// the first one. Conflicts are informational and never fail a resolution.
type ConflictInfo struct {
	Key    string
	Winner *Node
	Losers []*refs.DependencyReference
	Reason string
}

// FlatMap is the deduplicated install order: the first declaration of each
// unique key, ordered by ascending depth and lexicographic key within a
// depth.
type FlatMap struct {
	Conflicts []ConflictInfo

	order   []string
	winners map[string]*Node
}

func newFlatMap() *FlatMap {
	return &FlatMap{winners: make(map[string]*Node)}
}

// Get returns the winning node for a dependency key.
func (m *FlatMap) Get(key string) (*Node, bool) {
	n, ok := m.winners[key]
	return n, ok
}

// Keys returns the winning keys in install order.
func (m *FlatMap) Keys() []string {
	return append([]string(nil), m.order...)
}

// Nodes returns the winning nodes in install order.
func (m *FlatMap) Nodes() []*Node {
	nodes := make([]*Node, 0, len(m.order))
	for _, key := range m.order {
		nodes = append(nodes, m.winners[key])
	}
	return nodes
}

// Len returns the number of distinct dependencies.
func (m *FlatMap) Len() int { return len(m.order) }

func (m *FlatMap) addWinner(node *Node) {
	key := node.Key()
	m.winners[key] = node
	m.order = append(m.order, key)
}

func (m *FlatMap) addLoser(winner *Node, ref *refs.DependencyReference) {
	key := winner.Key()
	for i := range m.Conflicts {
		if m.Conflicts[i].Key == key {
			m.Conflicts[i].Losers = append(m.Conflicts[i].Losers, ref)
			m.Conflicts[i].Reason = conflictReason(winner, m.Conflicts[i].Losers)
			return
		}
	}
	losers := []*refs.DependencyReference{ref}
	m.Conflicts = append(m.Conflicts, ConflictInfo{
		Key:    key,
		Winner: winner,
		Losers: losers,
		Reason: conflictReason(winner, losers),
	})
}

func conflictReason(winner *Node, losers []*refs.DependencyReference) string {
	differing := 0
	for _, l := range losers {
		if l.Ref != winner.Ref.Ref {
			differing++
		}
	}
	if differing == 0 {
		return fmt.Sprintf("'%s' is declared more than once with the same reference", winner.Key())
	}
	return fmt.Sprintf("'%s' uses ref '%s' from its first declaration; later refs are ignored", winner.Key(), winner.Ref.Ref)
}

// Result is a completed resolution.
type Result struct {
	Tree     *Tree
	Flat     *FlatMap
	Cycles   []CircularRef
	Warnings []string
}

// Valid reports whether the resolution is installable. Any detected cycle
// makes the whole resolution invalid.
func (r *Result) Valid() bool { return len(r.Cycles) == 0 }
