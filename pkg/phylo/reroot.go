package phylo

// Reroot moves the rooting point onto the edge whose child-side endpoint has
// the given identifier, at distFromParent from that edge's parent-side
// endpoint. The graph is mutated in place in O(depth) with no allocation of
// nodes; only parent orientations along the path to the old root change.
//
// distFromParent is clamped to [0, edge length]; the complementary length is
// derived from the edge, so the two halves always sum to the original span
// regardless of caller input. Unknown identifiers are a silent no-op, as is
// a target with no parent edge (an isolated single node).
//
// A rerooted tree always ends up with a fresh virtual root carrying no
// annotations, and Rooted becomes false: whatever explicit rooting the file
// declared no longer applies.
func (g *Graph) Reroot(originalID int, distFromParent float64) {
	newB, ok := g.byID[originalID]
	if !ok || g.Nodes[newB].Degree() == 0 {
		return
	}

	newA := g.Nodes[newB].Neighbours[0]
	total := g.Nodes[newB].EdgeLengths[0]

	lenA := distFromParent
	if lenA < 0 {
		lenA = 0
	}
	if lenA > total {
		lenA = total
	}
	lenB := total - lenA

	// Walk the parent chain from newA until the first node that is already
	// root-adjacent; everything on this path needs its orientation flipped.
	path := []int{newA}
	for cur := newA; !g.isRootAdjacent(cur); {
		cur = g.Nodes[cur].Neighbours[0]
		path = append(path, cur)
	}

	// Flip from the old-root end back down: promote the downward neighbour
	// into slot 0. Lengths travel with their entries - both endpoints
	// already store the edge symmetrically, so nothing is recomputed.
	for i := len(path) - 1; i >= 1; i-- {
		g.promoteParent(path[i], path[i-1])
	}
	g.promoteParent(newA, newB)

	g.Root = Root{
		Kind:  RootVirtual,
		SideA: newA,
		SideB: newB,
		LenA:  lenA,
		LenB:  lenB,
	}
	g.Rooted = false
}

// promoteParent makes towards the slot-0 entry of idx by swapping it with
// whatever currently occupies slot 0. The displaced entry keeps the
// promoted entry's old position, preserving the order of the remaining
// children.
func (g *Graph) promoteParent(idx, towards int) {
	n := g.Nodes[idx]
	slot := n.neighbourSlot(towards)
	if slot <= 0 {
		return // already the parent, or not a neighbour
	}
	n.Neighbours[0], n.Neighbours[slot] = n.Neighbours[slot], n.Neighbours[0]
	n.EdgeLengths[0], n.EdgeLengths[slot] = n.EdgeLengths[slot], n.EdgeLengths[0]
}
