package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apperrors "github.com/artic-network/peartree/pkg/errors"
	"github.com/artic-network/peartree/pkg/tree"
)

// annotateCommand creates the annotate command, which merges annotations
// from a YAML or TSV file into tips matched by taxon name, paints tips and
// clears painted colours.
func (c *CLI) annotateCommand() *cobra.Command {
	var (
		opts         editOpts
		dataFile     string
		paints       []string
		clearColours bool
	)

	cmd := &cobra.Command{
		Use:   "annotate [file|url]",
		Short: "Import annotations or paint tips by colour",
		Long: `Import annotations or paint tips by colour.

Annotation files are matched to tips by taxon name. Two formats are
supported, chosen by file extension:

  .yaml/.yml  a mapping of taxon name to a key/value mapping
  .tsv/.txt   a header row naming the keys, first column is the taxon name

Paints are written under the ` + "`!colour`" + ` annotation key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			g, err := loadGraph(ctx, args[0], opts.treeIndex)
			if err != nil {
				return err
			}

			if clearColours {
				g.ClearColours()
				printSuccess("Cleared painted colours")
			}

			if dataFile != "" {
				byName, err := readAnnotationFile(dataFile)
				if err != nil {
					return err
				}
				matched := g.ApplyAnnotations(byName)
				printSuccess("Annotated %d of %d named nodes", matched, len(byName))
				if matched < len(byName) {
					printWarning("%d entries matched no taxon", len(byName)-matched)
				}
			}

			for _, p := range paints {
				id, colour, err := parsePaint(p)
				if err != nil {
					return err
				}
				if _, ok := g.NodeByID(id); !ok {
					return fmt.Errorf("unknown node: %d", id)
				}
				g.Paint(id, colour)
			}
			if len(paints) > 0 {
				printSuccess("Painted %d node(s)", len(paints))
			}

			return writeTree(g, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&dataFile, "data", "", "YAML or TSV file of annotations keyed by taxon name")
	cmd.Flags().StringArrayVar(&paints, "paint", nil, "paint a node, as id=colour (repeatable)")
	cmd.Flags().BoolVar(&clearColours, "clear-colours", false, "remove all painted colours first")
	return cmd
}

// parsePaint splits an id=colour flag value and validates the colour.
func parsePaint(s string) (int, string, error) {
	idStr, colour, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", fmt.Errorf("invalid paint %q (expected id=colour)", s)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, "", fmt.Errorf("invalid paint %q: node id must be an integer", s)
	}
	if err := apperrors.ValidateColour(colour); err != nil {
		return 0, "", err
	}
	return id, colour, nil
}

// readAnnotationFile parses a YAML or TSV annotation file into per-taxon
// annotation maps, validating every key.
func readAnnotationFile(path string) (map[string]tree.Annotations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "read annotation file")
	}

	var byName map[string]tree.Annotations
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		byName, err = parseYAMLAnnotations(data)
	case ".tsv", ".txt":
		byName, err = parseTSVAnnotations(string(data))
	default:
		return nil, fmt.Errorf("unsupported annotation file type: %s (use .yaml, .yml, .tsv or .txt)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	for name, ann := range byName {
		if err := apperrors.ValidateTaxonName(name); err != nil {
			return nil, err
		}
		for k := range ann {
			if err := apperrors.ValidateAnnotationKey(k); err != nil {
				return nil, err
			}
		}
	}
	return byName, nil
}

func parseYAMLAnnotations(data []byte) (map[string]tree.Annotations, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidAnnotation, err, "parse YAML annotations")
	}
	byName := make(map[string]tree.Annotations, len(raw))
	for name, ann := range raw {
		byName[name] = tree.Annotations(ann)
	}
	return byName, nil
}

// parseTSVAnnotations parses a tab-separated table. The first column holds
// taxon names and the header row names the annotation keys. Numeric cells
// are stored as numbers so type inference sees them as such; empty cells
// are skipped.
func parseTSVAnnotations(text string) (map[string]tree.Annotations, error) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) < 2 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidAnnotation, "TSV needs a header row and at least one data row")
	}

	header := strings.Split(strings.TrimRight(lines[0], "\r"), "\t")
	if len(header) < 2 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidAnnotation, "TSV needs a taxon column and at least one annotation column")
	}

	byName := make(map[string]tree.Annotations, len(lines)-1)
	for i, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(header) {
			return nil, apperrors.New(apperrors.ErrCodeInvalidAnnotation,
				"TSV row %d has %d columns, header has %d", i+2, len(fields), len(header))
		}

		ann := tree.Annotations{}
		for j, cell := range fields[1:] {
			if cell == "" {
				continue
			}
			ann[header[j+1]] = parseCell(cell)
		}
		if len(ann) > 0 {
			byName[fields[0]] = ann
		}
	}
	return byName, nil
}

// parseCell converts a TSV cell to a number when it parses as one and to a
// list when it contains commas.
func parseCell(cell string) any {
	if strings.Contains(cell, ",") {
		parts := strings.Split(cell, ",")
		list := make([]any, len(parts))
		for i, p := range parts {
			list[i] = parseCell(strings.TrimSpace(p))
		}
		return list
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
