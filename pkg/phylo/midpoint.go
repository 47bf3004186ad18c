package phylo

// Midpoint locates the point halfway along the tree's diameter (the longest
// tip-to-tip path, by summed branch length) and returns it as the argument
// pair for [Graph.Reroot]: the child-side endpoint of the straddling edge
// and the distance from that edge's parent-side endpoint. The graph is not
// mutated.
//
// The search runs two breadth-first passes over the undirected adjacency -
// direction is ignored, every neighbour counts - so it is O(n) regardless
// of where the current root sits. A star tree degenerates gracefully: the
// diameter is simply the two longest pendant edges through the hub.
func (g *Graph) Midpoint() (originalID int, distFromParent float64, err error) {
	if len(g.Nodes) == 0 {
		return 0, 0, ErrEmptyTree
	}
	if len(g.Nodes) == 1 {
		return g.Nodes[0].OriginalID, 0, nil
	}

	// A single-tip tree (one pendant edge off a chain) has no two-tip path;
	// the midpoint is halfway down the tip's own pendant edge.
	var tips []int
	for _, n := range g.Nodes {
		if n.Degree() == 1 {
			tips = append(tips, n.Index)
		}
	}
	if len(tips) == 1 {
		t := g.Nodes[tips[0]]
		return t.OriginalID, t.EdgeLengths[0] / 2, nil
	}

	// Pass 1: the farthest tip from an arbitrary tip is one diameter end.
	dist, _ := g.bfs(tips[0])
	tipA := farthestTip(g, tips, dist)

	// Pass 2: distances and predecessors from tipA give the other end and
	// the path between them.
	dist, pred := g.bfs(tipA)
	tipB := farthestTip(g, tips, dist)
	diameter := dist[tipB]

	var path []int
	for cur := tipB; cur != -1; cur = pred[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	// Walk from tipA until the running total crosses half the diameter; the
	// edge straddling that point carries the new root.
	half := diameter / 2
	cum := 0.0
	for i := 0; i+1 < len(path); i++ {
		u, v := path[i], path[i+1]
		length := g.edgeLength(u, v)
		if cum+length >= half || i+2 == len(path) {
			along := half - cum
			if along < 0 {
				along = 0
			}
			if along > length {
				along = length
			}
			// Report the pair in reroot's orientation: the endpoint whose
			// slot 0 points at the other is the child side.
			if g.Nodes[v].Degree() > 0 && g.Nodes[v].Neighbours[0] == u {
				return g.Nodes[v].OriginalID, along, nil
			}
			return g.Nodes[u].OriginalID, length - along, nil
		}
		cum += length
	}

	// Unreachable for a connected tree with two or more tips.
	t := g.Nodes[tips[0]]
	return t.OriginalID, t.EdgeLengths[0] / 2, nil
}

// bfs computes cumulative branch-length distance from start to every node
// over the undirected adjacency, along with predecessor pointers. Both
// slices are indexed by arena index; pred[start] is -1.
func (g *Graph) bfs(start int) (dist []float64, pred []int) {
	dist = make([]float64, len(g.Nodes))
	pred = make([]int, len(g.Nodes))
	visited := make([]bool, len(g.Nodes))
	for i := range pred {
		pred[i] = -1
	}

	queue := []int{start}
	visited[start] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := g.Nodes[cur]
		for i, m := range n.Neighbours {
			if visited[m] {
				continue
			}
			visited[m] = true
			dist[m] = dist[cur] + n.EdgeLengths[i]
			pred[m] = cur
			queue = append(queue, m)
		}
	}
	return dist, pred
}

// farthestTip returns the tip with the greatest distance value.
func farthestTip(g *Graph, tips []int, dist []float64) int {
	best := tips[0]
	for _, t := range tips[1:] {
		if dist[t] > dist[best] {
			best = t
		}
	}
	return best
}

// edgeLength returns the stored length of the edge between u and v.
// For the root-straddled edge this is the full span on both endpoints.
func (g *Graph) edgeLength(u, v int) float64 {
	n := g.Nodes[u]
	slot := n.neighbourSlot(v)
	if slot < 0 {
		return 0
	}
	return n.EdgeLengths[slot]
}
