// Package phylo provides the mutable phylogenetic tree graph at the heart of
// PearTree.
//
// # Overview
//
// A parsed tree (a nested [tree.Node]) is converted once by [Build] into a
// Graph: an arena of nodes addressed by stable integer index, each recording
// its neighbours symmetrically. The graph is undirected but oriented - slot 0
// of every node's neighbour list is the direction toward the current root.
// That single orientation invariant is what makes in-place rerooting an
// O(depth) pointer flip instead of a rebuild.
//
// # Invariants
//
// Two invariants are maintained by every mutating operation:
//
//   - Slot 0 of every node's neighbour list points toward the current root.
//     The layout root itself is the one exception: when the root is a real
//     node its slot 0 holds an ordinary child, recorded as Root.SideB.
//   - The two root-adjacent nodes store the full, undivided length of the
//     edge the root sits on - not their half of it. Rerooting back onto that
//     edge recovers the original length without bookkeeping elsewhere.
//
// Use [Graph.Validate] to verify both after a sequence of mutations; a
// failure is a programming error, not a runtime condition.
//
// # Basic Usage
//
//	root, _ := newick.Parse(strings.NewReader("((A:1,B:1):1,(C:1,D:1):1);"))
//	g, _ := phylo.Build(root)
//	id, dist, _ := g.Midpoint()
//	g.Reroot(id, dist)
//	layout, _ := g.Layout(phylo.EntireTree)
//
// Mutating operations targeting an unknown identifier are silent no-ops:
// callers derive identifiers from the graph itself (a selection in the UI),
// so an unknown one indicates stale input, not a failure to surface.
//
// The graph is not safe for concurrent use; a multi-threaded host must
// serialize mutations externally.
package phylo

import (
	"errors"
	"fmt"
	"slices"

	"github.com/artic-network/peartree/pkg/tree"
)

var (
	// ErrEmptyTree is returned by [Build] when the input tree is nil.
	ErrEmptyTree = errors.New("tree has no nodes")

	// ErrUnknownNode is returned by query operations (Layout, Subtree) when
	// the requested identifier is not in the graph. Mutating operations do
	// not return it - they treat unknown identifiers as silent no-ops.
	ErrUnknownNode = errors.New("unknown node")
)

// RootKind distinguishes the two ways a graph can be rooted.
type RootKind int

const (
	// RootVirtual places the root on an edge between two nodes. This is the
	// common case for bifurcating trees: the parsed root had exactly two
	// children and no annotations, so it was dropped and its children linked
	// directly. Rerooting always produces a virtual root.
	RootVirtual RootKind = iota

	// RootReal keeps a biological node as the layout root: the parsed root
	// was trifurcating, or carried annotations worth preserving (e.g. from
	// Bayesian inference).
	RootReal
)

// Root describes the conceptual rooting point of a graph.
//
// For a virtual root, SideA and SideB are the two nodes whose shared edge
// the root sits on, and LenA+LenB is that edge's full length. For a real
// root, SideA is the root node itself (LenA is 0), and SideB is the child
// occupying its neighbour slot 0.
type Root struct {
	Kind        RootKind
	SideA       int
	SideB       int
	LenA        float64
	LenB        float64
	Annotations tree.Annotations
}

// Node is one vertex of the graph arena.
//
// Neighbours and EdgeLengths are parallel: EdgeLengths[i] is the length of
// the edge to Neighbours[i]. Every edge is recorded on both endpoints, so
// flipping parent direction never has to move a length. Slot 0 is the
// parent direction (see package doc for the root exception); the remaining
// order is significant for rendering but not for topology.
type Node struct {
	Index       int // position in Graph.Nodes, never reused
	OriginalID  int // parser-assigned identity, stable across reroots
	Name        string
	Label       string
	Annotations tree.Annotations
	Neighbours  []int
	EdgeLengths []float64
}

// Degree returns the number of neighbours.
func (n *Node) Degree() int { return len(n.Neighbours) }

// neighbourSlot returns the position of idx in the neighbour list, or -1.
func (n *Node) neighbourSlot(idx int) int {
	return slices.Index(n.Neighbours, idx)
}

// Graph is the arena-based phylogenetic tree.
//
// Nodes are appended during construction and never removed or reordered;
// "removing" a node means adding its identifier to the hidden set, which
// excludes it (and everything beneath it) from layouts and tip counts while
// leaving the topology intact.
type Graph struct {
	Nodes  []*Node
	Root   Root
	Rooted bool // true iff the parsed root carried annotations
	Schema Schema

	byID   map[int]int      // originalID -> arena index
	hidden map[int]struct{} // originalIDs collapsed out of the rendered tree
}

// Build converts a parsed nested tree into its graph form. The input is not
// mutated.
//
// If the parsed root has exactly two children and carries no annotations it
// is treated as virtual: dropped from the arena, its children cross-linked
// directly, and its annotations (if the map exists but is empty) stashed on
// the root descriptor. A root with annotations or three or more children is
// kept as a real node.
//
// Branch lengths pass through unvalidated; negative lengths are the
// caller's concern to surface as a warning.
func Build(root *tree.Node) (*Graph, error) {
	if root == nil {
		return nil, ErrEmptyTree
	}

	g := &Graph{
		byID:   make(map[int]int),
		hidden: make(map[int]struct{}),
	}

	virtual := len(root.Children) == 2 && len(root.Annotations) == 0
	if virtual {
		a, b := root.Children[0], root.Children[1]
		ia := g.addSubtree(a, -1)
		ib := g.addSubtree(b, -1)

		// Cross-link the two dropped-root children. Each stores the summed
		// length so rerooting onto this edge recovers the undivided span.
		total := a.Length + b.Length
		g.Nodes[ia].Neighbours = slices.Insert(g.Nodes[ia].Neighbours, 0, ib)
		g.Nodes[ia].EdgeLengths = slices.Insert(g.Nodes[ia].EdgeLengths, 0, total)
		g.Nodes[ib].Neighbours = slices.Insert(g.Nodes[ib].Neighbours, 0, ia)
		g.Nodes[ib].EdgeLengths = slices.Insert(g.Nodes[ib].EdgeLengths, 0, total)

		g.Root = Root{
			Kind:        RootVirtual,
			SideA:       ia,
			SideB:       ib,
			LenA:        a.Length,
			LenB:        b.Length,
			Annotations: root.Annotations.Clone(),
		}
	} else {
		ir := g.addSubtree(root, -1)
		r := g.Nodes[ir]

		g.Root = Root{Kind: RootReal, SideA: ir, SideB: ir}
		if r.Degree() > 0 {
			g.Root.SideB = r.Neighbours[0]
			g.Root.LenB = r.EdgeLengths[0]
		}
		g.Root.Annotations = r.Annotations.Clone()
	}

	g.Rooted = len(root.Annotations) > 0
	g.Schema = InferSchema(g.Nodes)
	return g, nil
}

// addSubtree allocates arena nodes for the subtree rooted at t, linking
// each child to its parent on both endpoints. parentIdx is -1 for the top
// of the subtree, whose parent slot is wired up by the caller.
// Returns the arena index of t.
func (g *Graph) addSubtree(t *tree.Node, parentIdx int) int {
	n := &Node{
		Index:       len(g.Nodes),
		OriginalID:  t.ID,
		Name:        t.Name,
		Label:       t.Label,
		Annotations: t.Annotations.Clone(),
	}
	g.Nodes = append(g.Nodes, n)
	g.byID[t.ID] = n.Index

	// Parent goes in first so slot 0 is the parent direction by construction.
	if parentIdx >= 0 {
		n.Neighbours = append(n.Neighbours, parentIdx)
		n.EdgeLengths = append(n.EdgeLengths, t.Length)
	}

	for _, c := range t.Children {
		ci := g.addSubtree(c, n.Index)
		n.Neighbours = append(n.Neighbours, ci)
		n.EdgeLengths = append(n.EdgeLengths, c.Length)
	}
	return n.Index
}

// NodeByID returns the node with the given original identifier.
func (g *Graph) NodeByID(originalID int) (*Node, bool) {
	idx, ok := g.byID[originalID]
	if !ok {
		return nil, false
	}
	return g.Nodes[idx], true
}

// NodeCount returns the number of nodes in the arena.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// TipCount returns the number of tips (degree <= 1 nodes), ignoring hiding.
func (g *Graph) TipCount() int {
	count := 0
	for _, n := range g.Nodes {
		if n.Degree() <= 1 {
			count++
		}
	}
	return count
}

// TotalLength returns the sum of all branch lengths in the tree.
// The edge the root sits on is counted once, at its full span.
func (g *Graph) TotalLength() float64 {
	total := g.Root.LenA + g.Root.LenB
	for _, n := range g.Nodes {
		if n.Index == g.Root.SideA || n.Index == g.Root.SideB {
			continue
		}
		if n.Degree() > 0 {
			total += n.EdgeLengths[0]
		}
	}
	return total
}

// isRootAdjacent reports whether idx is one of the two root-side nodes.
func (g *Graph) isRootAdjacent(idx int) bool {
	return idx == g.Root.SideA || idx == g.Root.SideB
}

// parentOf returns the parent index of idx, or -1 when idx has none in the
// current orientation (a real root, or an isolated single node).
func (g *Graph) parentOf(idx int) int {
	n := g.Nodes[idx]
	if n.Degree() == 0 {
		return -1
	}
	if g.Root.Kind == RootReal && idx == g.Root.SideA {
		return -1
	}
	return n.Neighbours[0]
}

// Validate checks the two structural invariants plus index bookkeeping.
// It returns nil for a healthy graph. A non-nil result indicates a bug in a
// mutating operation, not bad user input.
func (g *Graph) Validate() error {
	for _, n := range g.Nodes {
		if len(n.Neighbours) != len(n.EdgeLengths) {
			return fmt.Errorf("node %d: %d neighbours but %d edge lengths", n.Index, len(n.Neighbours), len(n.EdgeLengths))
		}
		if got, ok := g.byID[n.OriginalID]; !ok || got != n.Index {
			return fmt.Errorf("node %d: id index out of sync for original id %d", n.Index, n.OriginalID)
		}
		for _, m := range n.Neighbours {
			if m < 0 || m >= len(g.Nodes) {
				return fmt.Errorf("node %d: neighbour %d out of range", n.Index, m)
			}
			if g.Nodes[m].neighbourSlot(n.Index) < 0 {
				return fmt.Errorf("edge %d-%d recorded on one endpoint only", n.Index, m)
			}
		}
	}

	// Every slot-0 chain must reach a root-adjacent node without revisiting.
	for _, n := range g.Nodes {
		seen := make(map[int]struct{})
		cur := n.Index
		for !g.isRootAdjacent(cur) {
			if _, dup := seen[cur]; dup {
				return fmt.Errorf("node %d: parent chain cycles at %d", n.Index, cur)
			}
			seen[cur] = struct{}{}
			if g.Nodes[cur].Degree() == 0 {
				return fmt.Errorf("node %d: parent chain dead-ends at %d", n.Index, cur)
			}
			cur = g.Nodes[cur].Neighbours[0]
		}
	}

	if g.Root.Kind == RootVirtual {
		a, b := g.Nodes[g.Root.SideA], g.Nodes[g.Root.SideB]
		if a.Degree() == 0 || b.Degree() == 0 || a.Neighbours[0] != b.Index || b.Neighbours[0] != a.Index {
			return fmt.Errorf("virtual root sides %d/%d do not point at each other", a.Index, b.Index)
		}
	}
	return nil
}
