package phylo

import "slices"

// Hidden nodes are a rendering and accounting filter, not a structural
// change: a hidden node stays in the arena, keeps its edges, and is still
// traversed by reroot, reorder and rotate. It is only excluded - together
// with everything beneath it - from tip counts and from layout output.

// Hide collapses the node with the given identifier out of the rendered
// tree. Unknown identifiers are a silent no-op. Callers wanting to keep
// the view non-empty should check [Graph.CanHide] first; Hide itself never
// refuses.
func (g *Graph) Hide(originalID int) {
	if _, ok := g.byID[originalID]; !ok {
		return
	}
	g.hidden[originalID] = struct{}{}
}

// Show makes a hidden node visible again. Unknown identifiers and nodes
// that were not hidden are a silent no-op.
func (g *Graph) Show(originalID int) {
	delete(g.hidden, originalID)
}

// ShowAll clears the hidden set.
func (g *Graph) ShowAll() {
	clear(g.hidden)
}

// IsHidden reports whether the node itself is in the hidden set. It does
// not consider hidden ancestors; use the layout for effective visibility.
func (g *Graph) IsHidden(originalID int) bool {
	_, ok := g.hidden[originalID]
	return ok
}

// HiddenIDs returns the hidden identifiers in ascending order.
func (g *Graph) HiddenIDs() []int {
	ids := make([]int, 0, len(g.hidden))
	for id := range g.hidden {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SetHidden replaces the hidden set, ignoring unknown identifiers. Used
// when restoring a saved session.
func (g *Graph) SetHidden(ids []int) {
	clear(g.hidden)
	for _, id := range ids {
		if _, ok := g.byID[id]; ok {
			g.hidden[id] = struct{}{}
		}
	}
}

// CanHide reports whether hiding the node would still leave at least one
// visible tip on each side of the current root. This is the caller-side
// precondition for hide commands; it is not enforced by Hide because the
// graph itself stays structurally valid either way.
func (g *Graph) CanHide(originalID int) bool {
	if _, ok := g.byID[originalID]; !ok {
		return false
	}
	if g.IsHidden(originalID) {
		return true // already hidden; hiding again changes nothing
	}
	g.hidden[originalID] = struct{}{}
	defer delete(g.hidden, originalID)

	counts := g.newTipCounter()
	if g.Root.Kind == RootReal {
		root := g.Nodes[g.Root.SideA]
		if g.IsHidden(root.OriginalID) {
			return false
		}
		visible := 0
		for _, m := range root.Neighbours {
			visible += counts.count(m, root.Index)
		}
		return visible > 0
	}

	a := counts.count(g.Root.SideA, g.Root.SideB)
	b := counts.count(g.Root.SideB, g.Root.SideA)
	return a > 0 && b > 0
}
