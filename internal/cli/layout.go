package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artic-network/peartree/pkg/phylo"
)

// layoutCommand creates the layout command, which prints the render-ready
// projection as JSON without producing a figure.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output    string
		treeIndex int
		view      int
	)

	cmd := &cobra.Command{
		Use:   "layout [file|url]",
		Short: "Print the layout projection as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(cmd.Context(), args[0], treeIndex)
			if err != nil {
				return err
			}

			if view != phylo.EntireTree {
				if _, ok := g.NodeByID(view); !ok {
					return fmt.Errorf("unknown node: %d", view)
				}
			}

			layout, err := g.Layout(view)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(layout, "", "  ")
			if err != nil {
				return err
			}
			if err := writeOutput(output, append(data, '\n')); err != nil {
				return err
			}
			if output != "-" {
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, or - for stdout")
	cmd.Flags().IntVar(&treeIndex, "tree", 0, "tree index within a multi-tree NEXUS file")
	cmd.Flags().IntVar(&view, "view", phylo.EntireTree, "drill into this subtree instead of the entire tree")
	return cmd
}
