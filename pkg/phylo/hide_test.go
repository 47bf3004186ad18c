package phylo

import (
	"reflect"
	"testing"
)

func TestHideShow(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")

	g.Hide(4) // the C,D clade
	if !g.IsHidden(4) {
		t.Fatal("node 4 not hidden")
	}
	if got, want := tipNames(t, g), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("tips = %v, want %v", got, want)
	}

	// Hiding is a filter, not surgery: the node is still in the arena and
	// the topology is untouched.
	if _, ok := g.NodeByID(4); !ok {
		t.Fatal("hidden node left the arena")
	}
	mustValidate(t, g)

	g.Show(4)
	if got, want := tipNames(t, g), []string{"A", "B", "C", "D"}; !reflect.DeepEqual(got, want) {
		t.Errorf("tips after show = %v, want %v", got, want)
	}
}

func TestHideUnknownNoOp(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,C:1);")
	g.Hide(99)
	if len(g.HiddenIDs()) != 0 {
		t.Errorf("hidden = %v, want none", g.HiddenIDs())
	}
}

func TestHiddenIDsSorted(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")
	g.Hide(6)
	g.Hide(2)
	g.Hide(4)
	if got, want := g.HiddenIDs(), []int{2, 4, 6}; !reflect.DeepEqual(got, want) {
		t.Errorf("hidden = %v, want %v", got, want)
	}
}

func TestSetHidden(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")
	g.Hide(2)

	g.SetHidden([]int{5, 6, 99}) // replaces, unknown ids dropped

	if got, want := g.HiddenIDs(), []int{5, 6}; !reflect.DeepEqual(got, want) {
		t.Errorf("hidden = %v, want %v", got, want)
	}

	g.ShowAll()
	if len(g.HiddenIDs()) != 0 {
		t.Errorf("hidden after ShowAll = %v, want none", g.HiddenIDs())
	}
}

// An internal node whose children are all hidden collapses into a leaf
// rather than disappearing.
func TestHideAllChildrenLeavesParentAsLeaf(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")

	g.Hide(5)
	g.Hide(6)

	l, err := g.Layout(EntireTree)
	if err != nil {
		t.Fatal(err)
	}
	y, ok := l.ByID[4]
	if !ok {
		t.Fatal("collapsed parent missing from layout")
	}
	if !y.Tip {
		t.Error("collapsed parent not rendered as a leaf")
	}
	if l.MaxY != 3 {
		t.Errorf("MaxY = %g, want 3", l.MaxY)
	}
}

func TestCanHide(t *testing.T) {
	tests := []struct {
		name string
		nwk  string
		prep func(*Graph)
		id   int
		want bool
	}{
		{
			name: "Tip",
			nwk:  "((A:1,B:1):1,(C:1,D:1):1);",
			id:   6,
			want: true,
		},
		{
			name: "WholeRootSide",
			nwk:  "((A:1,B:1):1,(C:1,D:1):1);",
			id:   1, // everything on side A
			want: false,
		},
		{
			name: "Unknown",
			nwk:  "((A:1,B:1):1,(C:1,D:1):1);",
			id:   99,
			want: false,
		},
		{
			name: "LastVisibleChildOfRealRoot",
			nwk:  "(A:1,B:2,C:3);",
			prep: func(g *Graph) { g.Hide(1); g.Hide(2) },
			id:   3,
			want: false,
		},
		{
			name: "OneOfThreeUnderRealRoot",
			nwk:  "(A:1,B:2,C:3);",
			id:   2,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGraph(t, tt.nwk)
			if tt.prep != nil {
				tt.prep(g)
			}
			if got := g.CanHide(tt.id); got != tt.want {
				t.Errorf("CanHide(%d) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

// Probing an already-hidden node must not flip it back to visible.
func TestCanHideAlreadyHidden(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,(C:1,D:1):1);")
	g.Hide(6)

	if !g.CanHide(6) {
		t.Error("CanHide on a hidden node = false, want true")
	}
	if !g.IsHidden(6) {
		t.Error("CanHide un-hid the node")
	}
}
