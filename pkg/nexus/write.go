package nexus

import (
	"fmt"
	"io"
	"strings"

	"github.com/artic-network/peartree/pkg/newick"
)

// Write serializes trees as a NEXUS document with a TAXA block (taken from
// the first tree's tips) and a TREES block. Tip names are written inline
// rather than through a Translate table; annotations are preserved as
// [&...] comments.
func Write(w io.Writer, trees []Tree) error {
	if len(trees) == 0 {
		return ErrNoTrees
	}

	var b strings.Builder
	b.WriteString("#NEXUS\n\n")

	tips := trees[0].Root.Tips()
	b.WriteString("begin taxa;\n")
	fmt.Fprintf(&b, "\tdimensions ntax=%d;\n", len(tips))
	b.WriteString("\ttaxlabels\n")
	for _, t := range tips {
		fmt.Fprintf(&b, "\t%s\n", quoteIfNeeded(t.Name))
	}
	b.WriteString("\t;\nend;\n\n")

	b.WriteString("begin trees;\n")
	for i, t := range trees {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("TREE%d", i+1)
		}
		flag := "[&U]"
		if t.Rooted {
			flag = "[&R]"
		}
		nwk := strings.TrimSuffix(newick.String(t.Root, newick.WriteOptions{Annotations: true}), "\n")
		fmt.Fprintf(&b, "\ttree %s = %s %s\n", quoteIfNeeded(name), flag, nwk)
	}
	b.WriteString("end;\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func quoteIfNeeded(s string) string {
	if s == "" || !strings.ContainsAny(s, "():,;[] \t'\"=") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
