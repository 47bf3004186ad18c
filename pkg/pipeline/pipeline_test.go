package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/artic-network/peartree/pkg/cache"
)

const beastSource = `#NEXUS
begin trees;
	tree STATE_0 = [&R] ((A:1,B:1):1,C:2);
end;
`

func TestSniffFormat(t *testing.T) {
	if got := SniffFormat("((A,B),C);"); got != SourceNewick {
		t.Errorf("SniffFormat newick = %q", got)
	}
	if got := SniffFormat("\n#NEXUS\nbegin trees;"); got != SourceNexus {
		t.Errorf("SniffFormat nexus = %q", got)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Source: "((A,B),C);"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.View != -1 {
		t.Errorf("View = %d, want -1", opts.View)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}

	for _, bad := range []Options{
		{},
		{Source: "x", Format: "phylip"},
		{Source: "x", Order: "sideways"},
		{Source: "x", Formats: []string{"gif"}},
	} {
		if err := bad.ValidateAndSetDefaults(); err == nil {
			t.Errorf("options %+v should not validate", bad)
		}
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	result, err := r.Execute(context.Background(), Options{
		Source:  "((A:1,B:1):1,C:2);",
		Formats: []string{FormatDOT, FormatJSON, FormatNewick},
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Stats.NodeCount != 4 || result.Stats.TipCount != 3 {
		t.Errorf("stats = %d nodes / %d tips, want 4/3", result.Stats.NodeCount, result.Stats.TipCount)
	}
	if result.TreeHash == "" {
		t.Error("missing tree hash")
	}
	if result.Layout == nil || len(result.Layout.Nodes) != 4 {
		t.Fatalf("layout = %+v, want 4 nodes", result.Layout)
	}

	if got := string(result.Artifacts[FormatNewick]); got != "((A:1,B:1):1,C:2);\n" {
		t.Errorf("newick artifact = %q", got)
	}
	if dot := string(result.Artifacts[FormatDOT]); !strings.Contains(dot, "digraph tree {") {
		t.Errorf("dot artifact = %q", dot)
	}
	if js := string(result.Artifacts[FormatJSON]); !strings.Contains(js, `"nodes"`) {
		t.Errorf("json artifact = %q", js)
	}

	ci := result.CacheInfo
	if ci.LoadHit || ci.LayoutHit || ci.RenderHit {
		t.Errorf("NullCache run reported hits: %+v", ci)
	}
}

func TestExecuteCaching(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	defer r.Close()

	opts := Options{
		Source:  "((A:1,B:1):1,C:2);",
		Formats: []string{FormatDOT, FormatNewick},
	}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.LoadHit || first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run reported hits: %+v", first.CacheInfo)
	}

	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	ci := second.CacheInfo
	if !ci.LoadHit || !ci.LayoutHit || !ci.RenderHit {
		t.Errorf("second run missed the cache: %+v", ci)
	}
	if string(second.Artifacts[FormatNewick]) != string(first.Artifacts[FormatNewick]) {
		t.Error("cached artifact differs from computed artifact")
	}

	// Refresh bypasses the load cache.
	opts.Refresh = true
	third, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.LoadHit {
		t.Error("refresh run hit the load cache")
	}
}

func TestExecuteMidpoint(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	result, err := r.Execute(context.Background(), Options{
		Source:   "(A:1,B:3);",
		Midpoint: true,
		Formats:  []string{FormatJSON},
	})
	if err != nil {
		t.Fatal(err)
	}

	root := result.Graph.Root
	if root.LenA != 2 || root.LenB != 2 {
		t.Errorf("root split = %v/%v, want 2/2", root.LenA, root.LenB)
	}
	if result.Layout.MaxX != 2 {
		t.Errorf("MaxX = %v, want 2", result.Layout.MaxX)
	}
}

func TestExecuteOrderAndHidden(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	result, err := r.Execute(context.Background(), Options{
		Source:  "(((A:1,B:1):1,C:1):1,D:1);",
		Order:   OrderDescending,
		Hidden:  []int{6}, // D
		Formats: []string{FormatDOT},
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := result.Layout.MaxY; got != 3 {
		t.Errorf("visible tips = %v, want 3", got)
	}
	if _, ok := result.Layout.ByID[6]; ok {
		t.Error("hidden node appeared in layout")
	}
}

func TestExecuteNexusSource(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	result, err := r.Execute(context.Background(), Options{
		Source:  beastSource,
		Formats: []string{FormatNewick, FormatNexus},
	})
	if err != nil {
		t.Fatal(err)
	}

	if !result.Graph.Rooted {
		t.Error("[&R] tree should load as rooted")
	}
	if got := string(result.Artifacts[FormatNewick]); got != "((A:1,B:1):1,C:2);\n" {
		t.Errorf("newick artifact = %q", got)
	}
	if nx := string(result.Artifacts[FormatNexus]); !strings.Contains(nx, "#NEXUS") || !strings.Contains(nx, "begin trees;") {
		t.Errorf("nexus artifact = %q", nx)
	}
}

func TestExecuteNexusTreeIndex(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	src := "#NEXUS\nbegin trees;\n\ttree one = (A:1,B:2);\n\ttree two = (C:3,D:4);\nend;\n"
	result, err := r.Execute(context.Background(), Options{
		Source:    src,
		TreeIndex: 1,
		Formats:   []string{FormatNewick},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(result.Artifacts[FormatNewick]); got != "(C:3,D:4);\n" {
		t.Errorf("newick artifact = %q", got)
	}

	if _, err := r.Execute(context.Background(), Options{Source: src, TreeIndex: 5}); err == nil {
		t.Error("out of range tree index should fail")
	}
}

func TestLoadCachePreservesRooted(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	defer r.Close()

	opts := Options{Source: beastSource, Formats: []string{FormatDOT}}
	if _, err := r.Execute(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	g, hit, err := r.LoadWithCacheInfo(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("second load missed the cache")
	}
	if !g.Rooted {
		t.Error("rooted flag lost through the cache")
	}
}

func TestExecuteBadSource(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	if _, err := r.Execute(context.Background(), Options{Source: "((A,B;"}); err == nil {
		t.Error("malformed newick should fail")
	}
	if _, err := r.Execute(context.Background(), Options{Source: "#NEXUS\nno trees here"}); err == nil {
		t.Error("nexus without a trees block should fail")
	}
}
