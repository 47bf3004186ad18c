package phylo

import "github.com/artic-network/peartree/pkg/tree"

// Tree reconstructs the nested rooted tree for the whole graph, suitable
// for the Newick and NEXUS writers. For a virtual root a synthetic top node
// is created on the root edge, carrying the root descriptor's annotations
// and splitting the edge into the root's two stored lengths; for a real
// root the root node itself is the top. Hidden nodes are included - export
// always writes the full topology.
//
// The synthetic top node reuses no biological identifier; its ID is one
// past the largest identifier in the graph.
func (g *Graph) Tree() *tree.Node {
	if len(g.Nodes) == 0 {
		return nil
	}

	if g.Root.Kind == RootReal {
		root := g.nested(g.Root.SideA, -1)
		root.Length = 0
		root.NoLength = true
		return root
	}

	a := g.nested(g.Root.SideA, g.Root.SideB)
	a.Length = g.Root.LenA
	b := g.nested(g.Root.SideB, g.Root.SideA)
	b.Length = g.Root.LenB

	return &tree.Node{
		ID:          g.maxOriginalID() + 1,
		NoLength:    true,
		Annotations: g.Root.Annotations.Clone(),
		Children:    []*tree.Node{a, b},
	}
}

// Subtree reconstructs the nested tree hanging below the node with the
// given identifier, away from its current parent direction. The top node's
// branch length is zeroed: a drilled-in subtree is its own root.
func (g *Graph) Subtree(originalID int) (*tree.Node, error) {
	idx, ok := g.byID[originalID]
	if !ok {
		return nil, ErrUnknownNode
	}
	top := g.nested(idx, g.parentOf(idx))
	top.Length = 0
	top.NoLength = true
	return top, nil
}

// nested converts the subtree at idx, entered from cameFrom, back into a
// nested node. The node's Length is the stored length toward cameFrom; for
// a root-adjacent pair that is the full edge span, which callers rewriting
// the root edge (Tree) overwrite with the split halves.
func (g *Graph) nested(idx, cameFrom int) *tree.Node {
	n := g.Nodes[idx]
	t := &tree.Node{
		ID:          n.OriginalID,
		Name:        n.Name,
		Label:       n.Label,
		Annotations: n.Annotations.Clone(),
	}

	if slot := n.neighbourSlot(cameFrom); slot >= 0 {
		t.Length = n.EdgeLengths[slot]
	} else {
		t.NoLength = true
	}

	for i, m := range n.Neighbours {
		if m == cameFrom {
			continue
		}
		c := g.nested(m, idx)
		c.Length = n.EdgeLengths[i]
		t.Children = append(t.Children, c)
	}
	return t
}

func (g *Graph) maxOriginalID() int {
	max := 0
	for id := range g.byID {
		if id > max {
			max = id
		}
	}
	return max
}
