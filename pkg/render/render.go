// Package render turns a computed tree layout into viewable artifacts.
//
// The layout is first converted to Graphviz DOT ([ToDOT]) and then rendered
// with the embedded Graphviz engine ([RenderSVG], [RenderPNG]). Positions
// are laid out left to right, tips boxed, internal nodes as points, with
// branch lengths as edge labels. Painted nodes (the "!colour" annotation)
// carry their colour through as fill.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/artic-network/peartree/pkg/phylo"
)

// Options configures DOT generation.
type Options struct {
	// Labels includes internal node labels (e.g. support values).
	Labels bool

	// ColourBy fills tip nodes from the given categorical annotation
	// instead of the painted colours.
	ColourBy string

	// BranchLengths writes each branch length as an edge label.
	BranchLengths bool
}

// ToDOT converts a layout to Graphviz DOT. The resulting string can be
// rendered with [RenderSVG] or [RenderPNG].
func ToDOT(l *phylo.Layout, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph tree {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("  edge [arrowhead=none];\n")
	buf.WriteString("\n")

	for _, n := range l.Nodes {
		fmt.Fprintf(&buf, "  n%d [%s];\n", n.OriginalID, strings.Join(nodeAttrs(n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, n := range l.Nodes {
		if n.ParentID < 0 {
			continue
		}
		if opts.BranchLengths {
			fmt.Fprintf(&buf, "  n%d -> n%d [label=%q, fontsize=10];\n",
				n.ParentID, n.OriginalID, strconv.FormatFloat(n.Length, 'g', 6, 64))
			continue
		}
		fmt.Fprintf(&buf, "  n%d -> n%d;\n", n.ParentID, n.OriginalID)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *phylo.LayoutNode, opts Options) []string {
	label := n.Name
	if label == "" && opts.Labels {
		label = n.Label
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	if !n.Tip {
		if label == "" {
			attrs = []string{`label=""`, "shape=point", "width=0.08"}
		} else {
			attrs = append(attrs, "shape=plaintext", "style=\"\"")
		}
	}

	if c := nodeColour(n, opts); c != "" {
		if n.Tip {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c))
		} else {
			attrs = append(attrs, fmt.Sprintf("color=%q", c))
		}
	}
	return attrs
}

// nodeColour picks the fill for a node: an explicit annotation named by
// ColourBy wins, otherwise the painted colour if any.
func nodeColour(n *phylo.LayoutNode, opts Options) string {
	if opts.ColourBy != "" {
		if v, ok := n.Annotations[opts.ColourBy]; ok {
			return fmt.Sprint(v)
		}
		return ""
	}
	if v, ok := n.Annotations[phylo.ColourKey]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

// RenderSVG renders a DOT graph to SVG using the embedded Graphviz engine.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// RenderPNG renders a DOT graph to PNG using the embedded Graphviz engine.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the Graphviz SVG header to a zero-origin viewBox
// with explicit pixel dimensions, which embeds cleanly in web views.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
