package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artic-network/peartree/pkg/newick"
	"github.com/artic-network/peartree/pkg/nexus"
	"github.com/artic-network/peartree/pkg/phylo"
	"github.com/artic-network/peartree/pkg/pipeline"
)

// editOpts holds the flags shared by the tree editing commands. Each command
// loads a tree, applies its edit and writes the result as Newick or NEXUS.
type editOpts struct {
	output      string // output path, "-" for stdout
	format      string // newick (default) or nexus
	treeIndex   int    // tree index within a multi-tree NEXUS file
	annotations bool   // keep annotations in the output
}

func (o *editOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "-", "output file, or - for stdout")
	cmd.Flags().StringVarP(&o.format, "format", "f", pipeline.FormatNewick, "output format: newick or nexus")
	cmd.Flags().IntVar(&o.treeIndex, "tree", 0, "tree index within a multi-tree NEXUS file")
	cmd.Flags().BoolVar(&o.annotations, "annotations", true, "keep annotations in the output")
}

// loadGraph reads and parses the input tree for an editing command.
func loadGraph(ctx context.Context, input string, treeIndex int) (*phylo.Graph, error) {
	source, err := readSource(ctx, input)
	if err != nil {
		return nil, err
	}
	return pipeline.Load(pipeline.Options{Source: source, TreeIndex: treeIndex})
}

// writeTree serializes the edited tree in the requested format.
func writeTree(g *phylo.Graph, opts *editOpts) error {
	var data []byte
	switch opts.format {
	case pipeline.FormatNewick:
		data = []byte(newick.String(g.Tree(), newick.WriteOptions{Annotations: opts.annotations}))
	case pipeline.FormatNexus:
		var buf bytes.Buffer
		t := nexus.Tree{Name: "tree1", Root: g.Tree(), Rooted: g.Rooted}
		if err := nexus.Write(&buf, []nexus.Tree{t}); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("invalid output format: %q (must be newick or nexus)", opts.format)
	}

	if err := writeOutput(opts.output, data); err != nil {
		return err
	}
	if opts.output != "-" {
		printFile(opts.output)
	}
	return nil
}

// midpointCommand creates the midpoint command, which reroots the tree at
// the point halfway along the longest tip-to-tip path.
func (c *CLI) midpointCommand() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "midpoint [file|url]",
		Short: "Reroot a tree at its midpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			g, err := loadGraph(ctx, args[0], opts.treeIndex)
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			id, dist, err := g.Midpoint()
			if err != nil {
				return err
			}
			g.Reroot(id, dist)
			prog.done(fmt.Sprintf("Rerooted below node %d at %.4g", id, dist))

			return writeTree(g, &opts)
		},
	}

	opts.register(cmd)
	return cmd
}

// rerootCommand creates the reroot command, which places a new root at a
// chosen point on the branch above a node.
func (c *CLI) rerootCommand() *cobra.Command {
	var (
		opts editOpts
		node int
		dist float64
	)

	cmd := &cobra.Command{
		Use:   "reroot [file|url]",
		Short: "Reroot a tree on the branch above a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			g, err := loadGraph(ctx, args[0], opts.treeIndex)
			if err != nil {
				return err
			}
			if _, ok := g.NodeByID(node); !ok {
				return fmt.Errorf("unknown node: %d", node)
			}

			g.Reroot(node, dist)
			printSuccess("Rerooted below node %d", node)

			return writeTree(g, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().IntVarP(&node, "node", "n", 0, "node below the new root")
	cmd.Flags().Float64VarP(&dist, "dist", "d", 0, "distance above the node (clamped to the branch)")
	cmd.MarkFlagRequired("node")
	return cmd
}

// orderCommand creates the order command, which sorts children by clade
// size at every node.
func (c *CLI) orderCommand() *cobra.Command {
	var (
		opts       editOpts
		descending bool
	)

	cmd := &cobra.Command{
		Use:   "order [file|url]",
		Short: "Sort children by clade size at every node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			g, err := loadGraph(ctx, args[0], opts.treeIndex)
			if err != nil {
				return err
			}

			g.Reorder(!descending)
			direction := "increasing"
			if descending {
				direction = "decreasing"
			}
			printSuccess("Ordered clades by %s size", direction)

			return writeTree(g, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&descending, "descending", false, "largest clades first")
	return cmd
}

// rotateCommand creates the rotate command, which reverses the child order
// at one node (optionally through its whole subtree).
func (c *CLI) rotateCommand() *cobra.Command {
	var (
		opts      editOpts
		node      int
		recursive bool
	)

	cmd := &cobra.Command{
		Use:   "rotate [file|url]",
		Short: "Reverse the child order at a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			g, err := loadGraph(ctx, args[0], opts.treeIndex)
			if err != nil {
				return err
			}
			if _, ok := g.NodeByID(node); !ok {
				return fmt.Errorf("unknown node: %d", node)
			}

			g.Rotate(node, recursive)
			printSuccess("Rotated node %d", node)

			return writeTree(g, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().IntVarP(&node, "node", "n", 0, "node to rotate")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "rotate the entire subtree")
	cmd.MarkFlagRequired("node")
	return cmd
}

// convertCommand creates the convert command, which reads one format and
// writes another without editing the tree.
func (c *CLI) convertCommand() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "convert [file|url]",
		Short: "Convert a tree between Newick and NEXUS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(cmd.Context(), args[0], opts.treeIndex)
			if err != nil {
				return err
			}
			return writeTree(g, &opts)
		},
	}

	opts.register(cmd)
	return cmd
}
