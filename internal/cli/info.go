package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artic-network/peartree/pkg/phylo"
	"github.com/artic-network/peartree/pkg/pipeline"
)

// infoCommand creates the info command, which prints tree statistics and the
// inferred annotation schema without producing any artifact.
func (c *CLI) infoCommand() *cobra.Command {
	var treeIndex int

	cmd := &cobra.Command{
		Use:   "info [file|url]",
		Short: "Show statistics and annotations for a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source, err := readSource(ctx, args[0])
			if err != nil {
				return err
			}

			g, err := pipeline.Load(pipeline.Options{Source: source, TreeIndex: treeIndex})
			if err != nil {
				return err
			}

			rooting := "unrooted"
			if g.Rooted {
				rooting = "rooted"
			}

			printKeyValue("Source", args[0])
			printKeyValue("Nodes", strconv.Itoa(g.NodeCount()))
			printKeyValue("Tips", strconv.Itoa(g.TipCount()))
			printKeyValue("Length", strconv.FormatFloat(g.TotalLength(), 'g', 6, 64))
			printKeyValue("Rooting", rooting)

			schema := phylo.InferSchema(g.Nodes)
			if len(schema) == 0 {
				printDetail("no annotations")
				return nil
			}

			printNewline()
			printInfo("Annotations")
			for _, name := range sortedSchemaKeys(schema) {
				printDetail("%-20s %s", name, describeDef(schema[name]))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&treeIndex, "tree", 0, "tree index within a multi-tree NEXUS file")
	return cmd
}

func sortedSchemaKeys(s phylo.Schema) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// describeDef renders one schema entry for terminal output, e.g.
// "real [0.13, 4.2]" or "categorical {Asia, Europe}".
func describeDef(def *phylo.AnnotationDef) string {
	switch def.Type {
	case phylo.TypeReal, phylo.TypeInteger:
		if def.Min != nil && def.Max != nil {
			return fmt.Sprintf("%s [%g, %g]", def.Type, *def.Min, *def.Max)
		}
		return string(def.Type)
	case phylo.TypeCategorical:
		values := def.Values
		if len(values) > 6 {
			values = append(append([]string{}, values[:6]...), "...")
		}
		return fmt.Sprintf("%s {%s}", def.Type, strings.Join(values, ", "))
	case phylo.TypeList:
		if def.ElementType != nil {
			return fmt.Sprintf("list of %s", describeDef(def.ElementType))
		}
		return string(def.Type)
	default:
		return string(def.Type)
	}
}
