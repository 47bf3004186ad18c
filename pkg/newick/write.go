package newick

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/artic-network/peartree/pkg/tree"
)

// WriteOptions controls Newick output.
type WriteOptions struct {
	// Annotations includes [&key=value,...] comments. FigTree and BEAST
	// read these; strict Newick consumers may not.
	Annotations bool
}

// Write serializes the tree to w as a single Newick statement terminated
// by a semicolon and newline.
func Write(w io.Writer, root *tree.Node, opts WriteOptions) error {
	if root == nil {
		return ErrNoTree
	}
	var b strings.Builder
	writeNode(&b, root, opts, true)
	b.WriteString(";\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// String serializes the tree to a Newick string.
func String(root *tree.Node, opts WriteOptions) string {
	var b strings.Builder
	if root != nil {
		writeNode(&b, root, opts, true)
		b.WriteString(";\n")
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *tree.Node, opts WriteOptions, isRoot bool) {
	if len(n.Children) > 0 {
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			writeNode(b, c, opts, false)
		}
		b.WriteByte(')')
		if n.Label != "" {
			b.WriteString(quoteIfNeeded(n.Label))
		}
	} else {
		b.WriteString(quoteIfNeeded(n.Name))
	}

	if opts.Annotations && len(n.Annotations) > 0 {
		writeAnnotations(b, n.Annotations)
	}

	if !n.NoLength && !isRoot {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(n.Length, 'g', -1, 64))
	}
}

func writeAnnotations(b *strings.Builder, ann tree.Annotations) {
	b.WriteString("[&")
	for i, k := range slices.Sorted(maps.Keys(ann)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		if v, ok := ann[k].(bool); ok && v {
			continue // bare flag
		}
		b.WriteByte('=')
		writeValue(b, ann[k])
	}
	b.WriteByte(']')
}

func writeValue(b *strings.Builder, v any) {
	switch x := v.(type) {
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case int:
		b.WriteString(strconv.Itoa(x))
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case []any:
		b.WriteByte('{')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, e)
		}
		b.WriteByte('}')
	case string:
		if needsQuoting(x) || strings.ContainsAny(x, "{}=") {
			fmt.Fprintf(b, "%q", x)
		} else {
			b.WriteString(x)
		}
	default:
		fmt.Fprintf(b, "%v", x)
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || !needsQuoting(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func needsQuoting(s string) bool {
	return strings.ContainsAny(s, "():,;[] \t'\"")
}
