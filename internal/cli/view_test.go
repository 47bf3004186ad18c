package cli

import (
	"strings"
	"testing"

	"github.com/artic-network/peartree/pkg/newick"
	"github.com/artic-network/peartree/pkg/phylo"
)

func buildTestGraph(t *testing.T, src string) *phylo.Graph {
	t.Helper()
	root, err := newick.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	g, err := phylo.Build(root)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestTreeModelRows(t *testing.T) {
	g := buildTestGraph(t, "((A:1,B:1):1,C:2);")
	m := newTreeModel(g, "test.nwk")

	if len(m.rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(m.rows))
	}

	// The internal node spans two tips; every tip reports one.
	var internal, tips int
	for _, row := range m.rows {
		if row.tip {
			tips++
		} else {
			internal++
			if row.tips != 2 {
				t.Errorf("internal node tips = %d, want 2", row.tips)
			}
		}
	}
	if internal != 1 || tips != 3 {
		t.Errorf("internal/tips = %d/%d, want 1/3", internal, tips)
	}
}

func TestTreeModelCollapse(t *testing.T) {
	g := buildTestGraph(t, "((A:1,B:1):1,C:2);")
	m := newTreeModel(g, "test.nwk")

	// Move the cursor to the internal node and collapse it.
	for i, row := range m.rows {
		if !row.tip {
			m.cursor = i
			break
		}
	}
	m.toggleHidden()

	if len(m.rows) != 2 {
		t.Fatalf("rows after collapse = %d, want 2", len(m.rows))
	}
	if !m.rows[0].collapsed {
		t.Error("collapsed node not marked")
	}

	m.cursor = 0
	m.toggleHidden()
	if len(m.rows) != 4 {
		t.Errorf("rows after expand = %d, want 4", len(m.rows))
	}
}

func TestTreeModelCollapseRefused(t *testing.T) {
	g := buildTestGraph(t, "((A:1,B:1):1,C:2);")
	m := newTreeModel(g, "test.nwk")

	// C is the only tip on its side of the root; hiding it would empty
	// that side.
	for i, row := range m.rows {
		if row.name == "C" {
			m.cursor = i
			break
		}
	}
	m.toggleHidden()

	if len(m.rows) != 4 {
		t.Errorf("rows = %d, want 4 (collapse should be refused)", len(m.rows))
	}
	if !strings.Contains(m.status, "cannot collapse") {
		t.Errorf("status = %q, want a refusal message", m.status)
	}
}

func TestTreeModelRotate(t *testing.T) {
	g := buildTestGraph(t, "((A:1,B:1):1,C:2);")
	m := newTreeModel(g, "test.nwk")

	var names []string
	for _, row := range m.rows {
		if row.tip {
			names = append(names, row.name)
		}
	}
	if names[0] != "A" || names[1] != "B" {
		t.Fatalf("initial tip order = %v", names)
	}

	for i, row := range m.rows {
		if !row.tip {
			m.cursor = i
			break
		}
	}
	m.rotate(false)

	names = names[:0]
	for _, row := range m.rows {
		if row.tip {
			names = append(names, row.name)
		}
	}
	if names[0] != "B" || names[1] != "A" {
		t.Errorf("tip order after rotate = %v, want [B A C]", names)
	}
}

func TestTreeModelDrillIn(t *testing.T) {
	g := buildTestGraph(t, "((A:1,B:1):1,C:2);")
	m := newTreeModel(g, "test.nwk")

	var internalID int
	for _, row := range m.rows {
		if !row.tip {
			internalID = row.id
			break
		}
	}

	m.viewRoot = internalID
	m.rebuild()
	if len(m.rows) != 3 {
		t.Errorf("drill-in rows = %d, want 3", len(m.rows))
	}

	m.viewRoot = phylo.EntireTree
	m.rebuild()
	if len(m.rows) != 4 {
		t.Errorf("rows after back = %d, want 4", len(m.rows))
	}
}
