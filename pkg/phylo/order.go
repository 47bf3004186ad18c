package phylo

import "sort"

// Reorder sorts every internal node's children by the visible tip count of
// their subtrees. ascending puts smaller clades first ("ladder up"), false
// puts them last. Ties keep their relative order, so reordering is stable
// and idempotent. Hidden subtrees count zero tips but are still sorted and
// still traversed - hiding never changes topology.
//
// The root gets special treatment. A real root's slot 0 is not a true
// parent, so all of its neighbours are sorted together and the root
// descriptor re-synced to whatever lands in slot 0. For a virtual root each
// side sorts independently, then the sides themselves are compared and
// swapped if their combined ordering contradicts the requested direction,
// keeping the rendering traversal consistent.
func (g *Graph) Reorder(ascending bool) {
	counts := g.newTipCounter()

	for _, n := range g.Nodes {
		if g.Root.Kind == RootReal && n.Index == g.Root.SideA {
			g.sortNeighbours(n, 0, ascending, counts)
			g.Root.SideB = n.Neighbours[0]
			g.Root.LenB = n.EdgeLengths[0]
			continue
		}
		g.sortNeighbours(n, 1, ascending, counts)
	}

	if g.Root.Kind == RootVirtual {
		// Each side sorts small-first (or large-first) internally, but the
		// sides themselves render top-down: laddering up reads bigger side
		// first so clade sizes ascend toward the later tips.
		a := counts.count(g.Root.SideA, g.Root.SideB)
		b := counts.count(g.Root.SideB, g.Root.SideA)
		if (ascending && a < b) || (!ascending && a > b) {
			g.Root.SideA, g.Root.SideB = g.Root.SideB, g.Root.SideA
			g.Root.LenA, g.Root.LenB = g.Root.LenB, g.Root.LenA
		}
	}
}

// sortNeighbours stably sorts n.Neighbours[from:] (and the parallel edge
// lengths) by visible tip count.
func (g *Graph) sortNeighbours(n *Node, from int, ascending bool, counts *tipCounter) {
	if len(n.Neighbours)-from < 2 {
		return
	}

	type entry struct {
		nbr  int
		len  float64
		tips int
	}
	entries := make([]entry, 0, len(n.Neighbours)-from)
	for i := from; i < len(n.Neighbours); i++ {
		entries = append(entries, entry{
			nbr:  n.Neighbours[i],
			len:  n.EdgeLengths[i],
			tips: counts.count(n.Neighbours[i], n.Index),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if ascending {
			return entries[i].tips < entries[j].tips
		}
		return entries[i].tips > entries[j].tips
	})

	for i, e := range entries {
		n.Neighbours[from+i] = e.nbr
		n.EdgeLengths[from+i] = e.len
	}
}

// Rotate reverses the order of the node's children; a no-op for nodes with
// one or no children, and for unknown identifiers. With recursive set the
// reversal is applied to every internal descendant, descending through
// non-parent neighbours only so the doubly-linked structure is never
// re-entered from below.
//
// A real root rotates all of its neighbours, mirroring Reorder's treatment
// of its unprotected slot 0, and the root descriptor is re-synced.
func (g *Graph) Rotate(originalID int, recursive bool) {
	idx, ok := g.byID[originalID]
	if !ok {
		return
	}
	g.rotateAt(idx, recursive)
}

func (g *Graph) rotateAt(idx int, recursive bool) {
	n := g.Nodes[idx]
	from := 1
	if g.Root.Kind == RootReal && idx == g.Root.SideA {
		from = 0
	}

	for i, j := from, len(n.Neighbours)-1; i < j; i, j = i+1, j-1 {
		n.Neighbours[i], n.Neighbours[j] = n.Neighbours[j], n.Neighbours[i]
		n.EdgeLengths[i], n.EdgeLengths[j] = n.EdgeLengths[j], n.EdgeLengths[i]
	}
	if from == 0 && n.Degree() > 0 {
		g.Root.SideB = n.Neighbours[0]
		g.Root.LenB = n.EdgeLengths[0]
	}

	if recursive {
		for i := from; i < len(n.Neighbours); i++ {
			g.rotateAt(n.Neighbours[i], true)
		}
	}
}

// tipCounter memoizes visible tip counts per directed edge, so a full
// reorder computes each subtree count exactly once.
type tipCounter struct {
	g    *Graph
	memo map[[2]int]int
}

func (g *Graph) newTipCounter() *tipCounter {
	return &tipCounter{g: g, memo: make(map[[2]int]int)}
}

// count returns the number of visible tips in the subtree rooted at idx as
// entered from cameFrom. A hidden node hides its whole subtree. A visible
// node whose descendants are all hidden still renders as a leaf, so it
// counts as one tip; this keeps reorder's counts aligned with what the
// layout actually emits.
func (c *tipCounter) count(idx, cameFrom int) int {
	key := [2]int{idx, cameFrom}
	if v, ok := c.memo[key]; ok {
		return v
	}

	n := c.g.Nodes[idx]
	total := 0
	if _, hidden := c.g.hidden[n.OriginalID]; !hidden {
		for _, m := range n.Neighbours {
			if m == cameFrom {
				continue
			}
			total += c.count(m, idx)
		}
		if total == 0 {
			total = 1 // a tip, or an internal node with every child hidden
		}
	}

	c.memo[key] = total
	return total
}
