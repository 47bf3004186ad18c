package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artic-network/peartree/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output        string   // output file path (or base path for multiple formats)
	formats       []string // output formats: svg, png, dot, json, newick, nexus
	treeIndex     int      // tree index within a multi-tree NEXUS file
	midpoint      bool     // midpoint reroot before laying out
	rerootNode    int      // reroot below this node
	rerootDist    float64  // distance above the reroot node
	order         string   // ascending, descending, or empty
	hidden        []int    // node identifiers to hide
	view          int      // drill-in subtree, 0 for the entire tree
	colourBy      string   // annotation key used for tip fill colours
	labels        bool     // include internal node labels
	branchLengths bool     // write branch lengths as edge labels
	noCache       bool     // disable the result cache
	refresh       bool     // bypass cached trees
}

// newRenderOptions translates CLI flags to pipeline options.
func (o *renderOpts) pipelineOptions(cmd *cobra.Command, source string) pipeline.Options {
	opts := pipeline.Options{
		Source:        source,
		TreeIndex:     o.treeIndex,
		Refresh:       o.refresh,
		Midpoint:      o.midpoint,
		Order:         o.order,
		Hidden:        o.hidden,
		View:          o.view,
		Formats:       o.formats,
		ColourBy:      o.colourBy,
		Labels:        o.labels,
		BranchLengths: o.branchLengths,
	}
	if cmd.Flags().Changed("reroot") {
		opts.Reroot = true
		opts.RerootID = o.rerootNode
		opts.RerootDist = o.rerootDist
	}
	return opts
}

// renderCommand creates the render command, which runs the full pipeline
// and writes one file per requested format.
//
// Default settings:
//   - format: svg
//   - view: entire tree
//   - caching: on (XDG cache dir), --no-cache to disable
func (c *CLI) renderCommand() *cobra.Command {
	var (
		opts       renderOpts
		formatsStr string
	)

	cmd := &cobra.Command{
		Use:   "render [file|url]",
		Short: "Render a tree to SVG, PNG, DOT or data formats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, dot, json, newick, nexus (comma-separated)")
	cmd.Flags().IntVar(&opts.treeIndex, "tree", 0, "tree index within a multi-tree NEXUS file")
	cmd.Flags().BoolVar(&opts.midpoint, "midpoint", false, "midpoint reroot before rendering")
	cmd.Flags().IntVar(&opts.rerootNode, "reroot", 0, "reroot below this node before rendering")
	cmd.Flags().Float64Var(&opts.rerootDist, "reroot-dist", 0, "distance above the reroot node")
	cmd.Flags().StringVar(&opts.order, "order", "", "sort clades: ascending or descending")
	cmd.Flags().IntSliceVar(&opts.hidden, "hide", nil, "node identifiers to hide (comma-separated)")
	cmd.Flags().IntVar(&opts.view, "view", 0, "drill into this subtree instead of the entire tree")
	cmd.Flags().StringVar(&opts.colourBy, "colour-by", "", "annotation key used for tip colours")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "include internal node labels")
	cmd.Flags().BoolVar(&opts.branchLengths, "branch-lengths", false, "write branch lengths as edge labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached trees")

	return cmd
}

// runRender executes the pipeline and writes the resulting artifacts.
func (c *CLI) runRender(cmd *cobra.Command, input string, opts *renderOpts) error {
	ctx := cmd.Context()

	source, err := readSource(ctx, input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering tree")
	spinner.Start()
	result, err := runner.Execute(ctx, opts.pipelineOptions(cmd, source))
	spinner.Stop()
	if err != nil {
		if spinner.Cancelled() {
			return ctx.Err()
		}
		return err
	}

	printSuccess("Rendered %s", input)
	printStats(result.Stats.NodeCount, result.Stats.TipCount, result.CacheInfo.RenderHit)

	if len(opts.formats) == 1 {
		path := opts.output
		if path == "" {
			path = basePath("", input) + "." + opts.formats[0]
		}
		if err := writeOutput(path, result.Artifacts[opts.formats[0]]); err != nil {
			return err
		}
		if path != "-" {
			printFile(path)
		}
		return nil
	}

	base := basePath(opts.output, input)
	for _, format := range opts.formats {
		path := fmt.Sprintf("%s.%s", base, format)
		if err := writeOutput(path, result.Artifacts[format]); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}
