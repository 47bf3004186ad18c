package pipeline

import (
	"fmt"
	"strings"

	"github.com/artic-network/peartree/pkg/newick"
	"github.com/artic-network/peartree/pkg/nexus"
	"github.com/artic-network/peartree/pkg/phylo"
	"github.com/artic-network/peartree/pkg/tree"
)

// SniffFormat guesses the source format from its content: a leading #NEXUS
// header means NEXUS, anything else is treated as Newick.
func SniffFormat(source string) string {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(source)), "#NEXUS") {
		return SourceNexus
	}
	return SourceNewick
}

// Load parses the source text into its graph form. For NEXUS input the tree
// at opts.TreeIndex is selected; Newick input always holds one tree.
//
// The returned graph carries Rooted=true when the source declared explicit
// rooting, either via root annotations or a NEXUS [&R] hint.
func Load(opts Options) (*phylo.Graph, error) {
	format := opts.Format
	if format == "" {
		format = SniffFormat(opts.Source)
	}

	var (
		root   *tree.Node
		rooted bool
	)
	switch format {
	case SourceNewick:
		parsed, err := newick.ParseString(opts.Source)
		if err != nil {
			return nil, err
		}
		root = parsed

	case SourceNexus:
		trees, err := nexus.Read(strings.NewReader(opts.Source))
		if err != nil {
			return nil, err
		}
		if opts.TreeIndex < 0 || opts.TreeIndex >= len(trees) {
			return nil, fmt.Errorf("tree index %d out of range (file has %d)", opts.TreeIndex, len(trees))
		}
		root = trees[opts.TreeIndex].Root
		rooted = trees[opts.TreeIndex].Rooted

	default:
		return nil, fmt.Errorf("invalid source format: %q", format)
	}

	g, err := phylo.Build(root)
	if err != nil {
		return nil, err
	}
	if rooted {
		g.Rooted = true
	}
	return g, nil
}

// Mutate applies the run's edits in a fixed order: midpoint or explicit
// reroot first, then ordering, then visibility. Later stages key their
// caches off the mutated tree, so the order must be deterministic.
func Mutate(g *phylo.Graph, opts Options) error {
	if opts.Midpoint {
		id, dist, err := g.Midpoint()
		if err != nil {
			return fmt.Errorf("midpoint: %w", err)
		}
		g.Reroot(id, dist)
	} else if opts.Reroot {
		g.Reroot(opts.RerootID, opts.RerootDist)
	}

	if opts.Order != "" {
		g.Reorder(opts.Order == OrderAscending)
	}

	if len(opts.Hidden) > 0 {
		g.SetHidden(opts.Hidden)
	}
	return nil
}

// Canonical serializes the graph to annotated Newick text. The output is
// deterministic for a given graph state, which makes it both the cached
// representation of a loaded tree and the content hashed for layout keys.
func Canonical(g *phylo.Graph) string {
	return newick.String(g.Tree(), newick.WriteOptions{Annotations: true})
}
