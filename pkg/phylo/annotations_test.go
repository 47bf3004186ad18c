package phylo

import (
	"reflect"
	"testing"

	"github.com/artic-network/peartree/pkg/tree"
)

func TestInferSchema(t *testing.T) {
	g := mustGraph(t, "((A[&region=Asia,height=0.3]:1,B[&region=Europe,height=2.5]:1):1,C[&height=1.0,count=3]:1);")

	region, ok := g.Schema["region"]
	if !ok {
		t.Fatal("no definition for region")
	}
	if region.Type != TypeCategorical {
		t.Errorf("region type = %s, want categorical", region.Type)
	}
	if want := []string{"Asia", "Europe"}; !reflect.DeepEqual(region.Values, want) {
		t.Errorf("region values = %v, want %v", region.Values, want)
	}

	height, ok := g.Schema["height"]
	if !ok {
		t.Fatal("no definition for height")
	}
	if height.Type != TypeReal {
		t.Errorf("height type = %s, want real", height.Type)
	}
	if *height.Min != 0.3 || *height.Max != 2.5 {
		t.Errorf("height range = [%g, %g], want [0.3, 2.5]", *height.Min, *height.Max)
	}

	count, ok := g.Schema["count"]
	if !ok {
		t.Fatal("no definition for count")
	}
	if count.Type != TypeInteger {
		t.Errorf("count type = %s, want integer", count.Type)
	}
	if *count.Min != 3 || *count.Max != 3 {
		t.Errorf("count range = [%g, %g], want [3, 3]", *count.Min, *count.Max)
	}
}

func TestInferSchemaList(t *testing.T) {
	g := mustGraph(t, "((A[&loc={1,2}]:1,B[&loc=3]:1):1,C:1);")

	loc, ok := g.Schema["loc"]
	if !ok {
		t.Fatal("no definition for loc")
	}
	if loc.Type != TypeList {
		t.Fatalf("loc type = %s, want list", loc.Type)
	}
	// Element type is inferred over the flattened union of list elements
	// and the scalar from B.
	et := loc.ElementType
	if et == nil || et.Type != TypeInteger {
		t.Fatalf("loc element type = %v, want integer", et)
	}
	if *et.Min != 1 || *et.Max != 3 {
		t.Errorf("loc element range = [%g, %g], want [1, 3]", *et.Min, *et.Max)
	}
}

func TestInferSchemaMixedNumericAndText(t *testing.T) {
	g := mustGraph(t, "((A[&host=1]:1,B[&host=human]:1):1,C:1);")

	host := g.Schema["host"]
	if host.Type != TypeCategorical {
		t.Fatalf("host type = %s, want categorical", host.Type)
	}
	if want := []string{"1", "human"}; !reflect.DeepEqual(host.Values, want) {
		t.Errorf("host values = %v, want %v", host.Values, want)
	}
}

func TestPaintForcesCategorical(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,C:1);")

	// Numeric-looking colour values must not collapse into a numeric range.
	g.Paint(2, "1")
	g.Paint(3, "2")

	def, ok := g.Schema[ColourKey]
	if !ok {
		t.Fatal("no colour definition after painting")
	}
	if def.Type != TypeCategorical {
		t.Errorf("colour type = %s, want categorical", def.Type)
	}
	if want := []string{"1", "2"}; !reflect.DeepEqual(def.Values, want) {
		t.Errorf("colour values = %v, want %v", def.Values, want)
	}
}

func TestClearColours(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,C:1);")
	g.Paint(2, "#ff0000")
	g.Paint(4, "#00ff00")

	g.ClearColours()

	if _, ok := g.Schema[ColourKey]; ok {
		t.Error("colour definition survived ClearColours")
	}
	for _, n := range g.Nodes {
		if _, ok := n.Annotations[ColourKey]; ok {
			t.Errorf("node %d still painted", n.OriginalID)
		}
	}
}

func TestSetAnnotation(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,C:1);")

	g.SetAnnotation(2, "host", "bat")
	n, _ := g.NodeByID(2)
	if n.Annotations["host"] != "bat" {
		t.Fatalf("host = %v, want bat", n.Annotations["host"])
	}
	if _, ok := g.Schema["host"]; !ok {
		t.Error("schema not re-inferred after set")
	}

	// Nil value removes the key and the schema entry with it.
	g.SetAnnotation(2, "host", nil)
	if _, ok := n.Annotations["host"]; ok {
		t.Error("host key survived nil set")
	}
	if _, ok := g.Schema["host"]; ok {
		t.Error("schema entry survived removal of only value")
	}

	// Unknown identifier is a no-op.
	g.SetAnnotation(99, "host", "bat")
	if _, ok := g.Schema["host"]; ok {
		t.Error("unknown id grew the schema")
	}
}

func TestApplyAnnotations(t *testing.T) {
	g := mustGraph(t, "((A:1,B:1):1,C:1);")

	matched := g.ApplyAnnotations(map[string]tree.Annotations{
		"A": {"region": "Asia"},
		"C": {"region": "Europe", "height": 1.5},
		"Z": {"region": "nowhere"}, // no such tip
	})
	if matched != 2 {
		t.Fatalf("matched = %d, want 2", matched)
	}

	a, _ := g.NodeByID(2)
	if a.Annotations["region"] != "Asia" {
		t.Errorf("A region = %v, want Asia", a.Annotations["region"])
	}
	if region := g.Schema["region"]; region == nil || region.Type != TypeCategorical {
		t.Error("schema not re-inferred after import")
	}
}
