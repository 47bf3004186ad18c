package phylo

import "github.com/artic-network/peartree/pkg/tree"

// EntireTree selects the whole tree as the layout view.
const EntireTree = -1

// LayoutNode is one render-ready node: x is cumulative divergence from the
// layout root, y is the tip rank for tips and the mean of the visible
// children's y for internal nodes.
type LayoutNode struct {
	OriginalID  int              `json:"id"`
	Name        string           `json:"name,omitempty"`
	Label       string           `json:"label,omitempty"`
	Annotations tree.Annotations `json:"annotations,omitempty"`
	ParentID    int              `json:"parent_id"` // -1 at the layout root
	Length      float64          `json:"length"`    // branch length to parent in this view
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Tip         bool             `json:"tip"`
}

// Layout is the flat projection of the graph consumed by renderers.
// MaxY equals the number of visible tips; hidden subtrees are absent
// entirely.
type Layout struct {
	Nodes []*LayoutNode       `json:"nodes"`
	ByID  map[int]*LayoutNode `json:"-"`
	MaxX  float64             `json:"max_x"`
	MaxY  float64             `json:"max_y"`
}

// Layout projects the graph into a flat node list. With viewSubtreeID set
// to [EntireTree] the traversal starts at the graph root (x = 0 whether the
// root is virtual or real); with a node identifier it starts at that node
// as if its branch length were zero, which is how drill-in navigation works
// without a destructive reroot. The graph is not mutated.
//
// Unknown view identifiers return [ErrUnknownNode].
func (g *Graph) Layout(viewSubtreeID int) (*Layout, error) {
	l := &Layout{ByID: make(map[int]*LayoutNode)}
	p := &projector{g: g, l: l}

	if viewSubtreeID != EntireTree {
		idx, ok := g.byID[viewSubtreeID]
		if !ok {
			return nil, ErrUnknownNode
		}
		p.project(idx, g.parentOf(idx), -1, 0, 0)
	} else if g.Root.Kind == RootReal {
		p.project(g.Root.SideA, -1, -1, 0, 0)
	} else {
		// The virtual root is not a biological node and is not emitted;
		// both sides hang off x = 0 with the root's split lengths.
		p.project(g.Root.SideA, g.Root.SideB, -1, g.Root.LenA, g.Root.LenA)
		p.project(g.Root.SideB, g.Root.SideA, -1, g.Root.LenB, g.Root.LenB)
	}

	l.MaxY = float64(p.tipRank)
	return l, nil
}

type projector struct {
	g       *Graph
	l       *Layout
	tipRank int
}

// project emits the subtree rooted at idx (entered from cameFrom, which is
// excluded from traversal) at cumulative divergence x. It returns the y
// assigned to idx, or false if idx is hidden and nothing was emitted.
func (p *projector) project(idx, cameFrom, parentID int, length, x float64) (float64, bool) {
	n := p.g.Nodes[idx]
	if _, hidden := p.g.hidden[n.OriginalID]; hidden {
		return 0, false
	}

	ln := &LayoutNode{
		OriginalID:  n.OriginalID,
		Name:        n.Name,
		Label:       n.Label,
		Annotations: n.Annotations,
		ParentID:    parentID,
		Length:      length,
		X:           x,
	}
	p.l.Nodes = append(p.l.Nodes, ln)
	p.l.ByID[ln.OriginalID] = ln
	if x > p.l.MaxX {
		p.l.MaxX = x
	}

	ySum, visible := 0.0, 0
	for i, m := range n.Neighbours {
		if m == cameFrom {
			continue
		}
		childLen := n.EdgeLengths[i]
		if y, ok := p.project(m, idx, n.OriginalID, childLen, x+childLen); ok {
			ySum += y
			visible++
		}
	}

	if visible == 0 {
		// A tip, or an internal node whose children are all hidden; either
		// way it renders as a leaf and takes the next tip rank.
		p.tipRank++
		ln.Y = float64(p.tipRank)
		ln.Tip = true
	} else {
		ln.Y = ySum / float64(visible)
	}
	return ln.Y, true
}
