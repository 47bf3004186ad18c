package phylo

import (
	"reflect"
	"testing"
)

func TestReroot(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")

	g.Reroot(2, 0.4) // onto A's pendant edge, 0.4 below its parent
	mustValidate(t, g)

	if g.Root.Kind != RootVirtual {
		t.Fatalf("root kind = %v, want virtual", g.Root.Kind)
	}
	if !approx(g.Root.LenA, 0.4) || !approx(g.Root.LenB, 0.6) {
		t.Errorf("split = %g/%g, want 0.4/0.6", g.Root.LenA, g.Root.LenB)
	}
	if got := g.Nodes[g.Root.SideB].OriginalID; got != 2 {
		t.Errorf("child side = %d, want 2", got)
	}
	if !approx(g.TotalLength(), 6) {
		t.Errorf("total length = %g, want 6 (rerooting moves no length)", g.TotalLength())
	}
	if g.Rooted {
		t.Error("explicit rooting must not survive a reroot")
	}
}

func TestRerootRoundTrip(t *testing.T) {
	g := mustGraph(t, "(((A:1,B:2):3,C:4):5,D:6);")
	if !approx(g.TotalLength(), 21) {
		t.Fatalf("total length = %g, want 21", g.TotalLength())
	}
	before := tipNames(t, g)

	// Deep reroot: the path to the old root crosses two internal nodes.
	g.Reroot(3, 0.25)
	mustValidate(t, g)
	if !approx(g.TotalLength(), 21) {
		t.Fatalf("total length after reroot = %g, want 21", g.TotalLength())
	}

	// Reroot back onto the original root edge at the original split.
	g.Reroot(6, 5)
	mustValidate(t, g)

	if got := g.Nodes[g.Root.SideA].OriginalID; got != 1 {
		t.Errorf("restored parent side = %d, want 1", got)
	}
	if got := g.Nodes[g.Root.SideB].OriginalID; got != 6 {
		t.Errorf("restored child side = %d, want 6", got)
	}
	if !approx(g.Root.LenA, 5) || !approx(g.Root.LenB, 6) {
		t.Errorf("restored split = %g/%g, want 5/6", g.Root.LenA, g.Root.LenB)
	}
	if after := tipNames(t, g); !reflect.DeepEqual(after, before) {
		t.Errorf("tip order = %v, want %v", after, before)
	}
}

func TestRerootOntoCurrentRootEdge(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")

	// Moving the root along the edge it already sits on just re-splits it.
	g.Reroot(4, 0.5)
	mustValidate(t, g)

	if !approx(g.Root.LenA, 0.5) || !approx(g.Root.LenB, 1.5) {
		t.Errorf("split = %g/%g, want 0.5/1.5", g.Root.LenA, g.Root.LenB)
	}
	if !approx(g.TotalLength(), 6) {
		t.Errorf("total length = %g, want 6", g.TotalLength())
	}
}

func TestRerootClamps(t *testing.T) {
	tests := []struct {
		name       string
		dist       float64
		lenA, lenB float64
	}{
		{"BeyondEdge", 5, 1, 0},
		{"Negative", -3, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")
			g.Reroot(2, tt.dist)
			mustValidate(t, g)
			if !approx(g.Root.LenA, tt.lenA) || !approx(g.Root.LenB, tt.lenB) {
				t.Errorf("split = %g/%g, want %g/%g", g.Root.LenA, g.Root.LenB, tt.lenA, tt.lenB)
			}
			if !approx(g.TotalLength(), 6) {
				t.Errorf("total length = %g, want 6", g.TotalLength())
			}
		})
	}
}

func TestRerootDissolvesRealRoot(t *testing.T) {
	g := mustGraph(t, "(A:1,B:2)[&posterior=0.97];")
	if !g.Rooted {
		t.Fatal("annotated root should mark the tree as rooted")
	}

	g.Reroot(1, 0.5)
	mustValidate(t, g)

	if g.Root.Kind != RootVirtual {
		t.Fatalf("root kind = %v, want virtual", g.Root.Kind)
	}
	if g.Rooted {
		t.Error("rooted flag survived reroot")
	}
	// The old root is now an ordinary degree-2 node.
	old, _ := g.NodeByID(0)
	if old.Degree() != 2 {
		t.Errorf("old root degree = %d, want 2", old.Degree())
	}
	if !approx(g.TotalLength(), 3) {
		t.Errorf("total length = %g, want 3", g.TotalLength())
	}
}

func TestRerootNoOps(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")
	before := tipNames(t, g)
	root := g.Root

	g.Reroot(99, 1) // unknown identifier

	if !reflect.DeepEqual(g.Root, root) {
		t.Errorf("root changed: %+v, want %+v", g.Root, root)
	}
	if after := tipNames(t, g); !reflect.DeepEqual(after, before) {
		t.Errorf("tip order = %v, want %v", after, before)
	}
	mustValidate(t, g)
}
