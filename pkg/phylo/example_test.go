package phylo

import (
	"fmt"

	"github.com/artic-network/peartree/pkg/newick"
)

func ExampleGraph_Midpoint() {
	root, _ := newick.ParseString("((A:1,B:4):1,(C:1,D:1):1);")
	g, _ := Build(root)

	id, dist, _ := g.Midpoint()
	fmt.Printf("reroot below node %d at %.1f\n", id, dist)

	g.Reroot(id, dist)
	fmt.Printf("root split %.1f/%.1f\n", g.Root.LenA, g.Root.LenB)
	// Output:
	// reroot below node 3 at 0.5
	// root split 0.5/3.5
}

func ExampleGraph_Layout() {
	root, _ := newick.ParseString("((A:1,B:2):2,C:3);")
	g, _ := Build(root)

	l, _ := g.Layout(EntireTree)
	for _, n := range l.Nodes {
		if n.Tip {
			fmt.Printf("%s x=%g y=%g\n", n.Name, n.X, n.Y)
		}
	}
	// Output:
	// A x=3 y=1
	// B x=4 y=2
	// C x=3 y=3
}
