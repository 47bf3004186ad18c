// Package tree defines the nested node structure produced by the Newick and
// NEXUS parsers and consumed by the phylo graph builder.
//
// A [Node] is a plain rooted tree: identity, display strings, branch length
// to its parent, an annotation map, and ordered children. It carries no
// adjacency bookkeeping - that is the job of [pkg/phylo], which converts a
// Node into its arena-based graph form. Writers walk a Node back out to
// Newick or NEXUS text.
package tree

import "slices"

// Annotations stores per-node key-value pairs parsed from [&key=value,...]
// comments. Values are scalars (float64, string, bool) or homogeneous
// []any lists of scalars. Nil maps are valid and mean "no annotations".
type Annotations map[string]any

// Clone returns a shallow copy of the annotation map.
// List values are copied one level deep so the copy can be sorted or
// appended to without mutating the original.
func (a Annotations) Clone() Annotations {
	if a == nil {
		return nil
	}
	out := make(Annotations, len(a))
	for k, v := range a {
		if list, ok := v.([]any); ok {
			out[k] = slices.Clone(list)
			continue
		}
		out[k] = v
	}
	return out
}

// Node is one vertex of a parsed, rooted phylogenetic tree.
//
// ID is assigned by the parser and is unique within one parse; it is the
// identity that survives rerooting once the tree has been converted to a
// graph. Length is the branch length to the parent; NoLength distinguishes
// "absent" from an explicit zero.
type Node struct {
	ID          int
	Name        string // taxon name for tips, optional for internal nodes
	Label       string // internal node label (e.g. bootstrap support)
	Length      float64
	NoLength    bool // true when the source text carried no branch length
	Annotations Annotations
	Children    []*Node
}

// IsTip reports whether the node has no children.
func (n *Node) IsTip() bool { return len(n.Children) == 0 }

// Count returns the number of nodes in the subtree rooted at n, including n.
func (n *Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// TipCount returns the number of tips in the subtree rooted at n.
func (n *Node) TipCount() int {
	if n.IsTip() {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += c.TipCount()
	}
	return total
}

// Walk calls fn for every node in the subtree in pre-order.
// Traversal stops early if fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Tips returns the tips of the subtree in traversal order.
func (n *Node) Tips() []*Node {
	var tips []*Node
	n.Walk(func(m *Node) bool {
		if m.IsTip() {
			tips = append(tips, m)
		}
		return true
	})
	return tips
}
