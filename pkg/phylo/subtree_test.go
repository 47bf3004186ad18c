package phylo

import (
	"testing"

	"github.com/artic-network/peartree/pkg/newick"
)

func TestTreeRoundTrip(t *testing.T) {
	const src = "((A:1,B:1):1,(C:1,D:1):1);\n"
	g := mustGraph(t, src)

	if got := newick.String(g.Tree(), newick.WriteOptions{}); got != src {
		t.Errorf("round trip = %q, want %q", got, src)
	}
}

func TestTreeAfterReroot(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")
	g.Reroot(2, 0.4)

	want := "(((C:1,D:1):2,B:1):0.4,A:0.6);\n"
	if got := newick.String(g.Tree(), newick.WriteOptions{}); got != want {
		t.Errorf("rerooted tree = %q, want %q", got, want)
	}
}

func TestTreeSyntheticTopNode(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")

	top := g.Tree()
	// One past the largest parsed identifier, so it collides with nothing.
	if top.ID != 7 {
		t.Errorf("synthetic top id = %d, want 7", top.ID)
	}
	if !top.NoLength {
		t.Error("synthetic top carries a branch length")
	}
}

func TestTreeRealRootKeepsAnnotations(t *testing.T) {
	const src = "(A:1,B:2)[&posterior=0.97];\n"
	g := mustGraph(t, src)

	if got := newick.String(g.Tree(), newick.WriteOptions{Annotations: true}); got != src {
		t.Errorf("round trip = %q, want %q", got, src)
	}
}

// Export always writes the full topology, hidden or not.
func TestTreeIncludesHidden(t *testing.T) {
	const src = "((A:1,B:1):1,(C:1,D:1):1);\n"
	g := mustGraph(t, src)
	g.Hide(6)

	if got := newick.String(g.Tree(), newick.WriteOptions{}); got != src {
		t.Errorf("round trip with hidden node = %q, want %q", got, src)
	}
}

func TestSubtree(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")

	sub, err := g.Subtree(4)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := newick.String(sub, newick.WriteOptions{}), "(C:1,D:1);\n"; got != want {
		t.Errorf("subtree = %q, want %q", got, want)
	}

	if _, err := g.Subtree(99); err != ErrUnknownNode {
		t.Errorf("err = %v, want ErrUnknownNode", err)
	}
}

func TestTreeEmpty(t *testing.T) {
	g := &Graph{}
	if g.Tree() != nil {
		t.Error("empty graph produced a tree")
	}
}
