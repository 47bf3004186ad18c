// Package newick parses and writes Newick tree text.
//
// The reader accepts the common dialect family: branch lengths, quoted
// labels, internal node labels, and BEAST-style [&key=value,...] annotation
// comments on nodes and branches. Non-annotation comments ([...] without a
// leading &) are skipped. The writer produces text the reader round-trips.
//
// Parsing stops at the terminating semicolon; trailing content is left in
// the reader, which is how the NEXUS layer reads multiple trees from one
// stream.
package newick

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/artic-network/peartree/pkg/tree"
)

var (
	// ErrNoTree is returned when the input contains no tree before EOF.
	ErrNoTree = errors.New("no tree found")
)

// SyntaxError describes a parse failure with its byte offset.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("newick: offset %d: %s", e.Offset, e.Msg)
}

// Parse reads one tree from r. Node identifiers are assigned sequentially
// in the order nodes are opened, so the root is always ID 0.
//
// When r is already a *bufio.Reader it is used directly, so the caller can
// keep reading the stream after the terminating semicolon.
func Parse(r io.Reader) (*tree.Node, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	p := &parser{r: br}
	return p.parse()
}

// ParseString reads one tree from s.
func ParseString(s string) (*tree.Node, error) {
	return Parse(strings.NewReader(s))
}

type parser struct {
	r      *bufio.Reader
	offset int
	nextID int
}

func (p *parser) parse() (*tree.Node, error) {
	if err := p.skipSpace(); err != nil {
		if err == io.EOF {
			return nil, ErrNoTree
		}
		return nil, err
	}

	root, err := p.subtree()
	if err != nil {
		return nil, err
	}

	if err := p.skipSpace(); err != nil && err != io.EOF {
		return nil, err
	}
	c, err := p.read()
	if err == io.EOF {
		return nil, p.errf("missing terminating semicolon")
	}
	if err != nil {
		return nil, err
	}
	if c != ';' {
		return nil, p.errf("expected ';', found %q", c)
	}
	return root, nil
}

// subtree parses one node: either an internal node "(...)label:len" or a
// leaf "label:len", with optional [&...] annotations in either position.
func (p *parser) subtree() (*tree.Node, error) {
	n := &tree.Node{ID: p.nextID, NoLength: true}
	p.nextID++

	if err := p.skipSpace(); err != nil {
		return nil, p.errf("unexpected end of input")
	}
	c, err := p.peek()
	if err != nil {
		return nil, p.errf("unexpected end of input")
	}

	if c == '(' {
		p.read()
		for {
			child, err := p.subtree()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)

			if err := p.skipSpace(); err != nil {
				return nil, p.errf("unclosed '('")
			}
			c, err := p.read()
			if err != nil {
				return nil, p.errf("unclosed '('")
			}
			if c == ',' {
				continue
			}
			if c == ')' {
				break
			}
			return nil, p.errf("expected ',' or ')', found %q", c)
		}
		// Internal node label, if any.
		label, ann, err := p.label()
		if err != nil {
			return nil, err
		}
		n.Label = label
		n.Annotations = ann
	} else {
		name, ann, err := p.label()
		if err != nil {
			return nil, err
		}
		if name == "" && ann == nil {
			return nil, p.errf("expected node, found %q", c)
		}
		n.Name = name
		n.Annotations = ann
	}

	// Branch length, with optional annotations on either side of it.
	if err := p.skipSpace(); err == nil {
		if c, err := p.peek(); err == nil && c == ':' {
			p.read()
			if ann, err := p.annotations(); err != nil {
				return nil, err
			} else if ann != nil {
				n.Annotations = merge(n.Annotations, ann)
			}
			length, err := p.number()
			if err != nil {
				return nil, err
			}
			n.Length = length
			n.NoLength = false
			if ann, err := p.annotations(); err != nil {
				return nil, err
			} else if ann != nil {
				n.Annotations = merge(n.Annotations, ann)
			}
		}
	}

	return n, nil
}

// label reads an optional node name plus any adjacent [&...] annotations.
func (p *parser) label() (string, tree.Annotations, error) {
	ann, err := p.annotations()
	if err != nil {
		return "", nil, err
	}

	c, err := p.peek()
	if err != nil {
		return "", ann, nil
	}

	var name string
	if c == '\'' || c == '"' {
		name, err = p.quoted(c)
		if err != nil {
			return "", nil, err
		}
	} else {
		name = p.bareword()
	}

	more, err := p.annotations()
	if err != nil {
		return "", nil, err
	}
	return name, merge(ann, more), nil
}

// bareword reads an unquoted label: everything up to a structural character.
func (p *parser) bareword() string {
	var b strings.Builder
	for {
		c, err := p.peek()
		if err != nil || strings.ContainsRune("():,;[' \t\r\n\"", rune(c)) {
			break
		}
		p.read()
		b.WriteByte(c)
	}
	return b.String()
}

// quoted reads a label delimited by quote, with doubled quotes as escapes.
func (p *parser) quoted(quote byte) (string, error) {
	p.read() // opening quote
	var b strings.Builder
	for {
		c, err := p.read()
		if err != nil {
			return "", p.errf("unterminated quoted label")
		}
		if c == quote {
			if next, err := p.peek(); err == nil && next == quote {
				p.read()
				b.WriteByte(quote)
				continue
			}
			return b.String(), nil
		}
		b.WriteByte(c)
	}
}

// number reads a (possibly signed, possibly exponent-form) branch length.
func (p *parser) number() (float64, error) {
	var b strings.Builder
	for {
		c, err := p.peek()
		if err != nil {
			break
		}
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.read()
			b.WriteByte(c)
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, p.errf("invalid branch length %q", b.String())
	}
	return f, nil
}

// annotations reads zero or more bracket comments. [&...] comments are
// parsed into key-value pairs; anything else is discarded.
func (p *parser) annotations() (tree.Annotations, error) {
	var ann tree.Annotations
	for {
		c, err := p.peek()
		if err != nil || c != '[' {
			return ann, nil
		}
		p.read()

		body, err := p.commentBody()
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(body, "&") {
			continue // plain comment
		}
		parsed, err := parseAnnotationBody(body[1:])
		if err != nil {
			return nil, p.errf("bad annotation %q: %v", body, err)
		}
		ann = merge(ann, parsed)
	}
}

// commentBody consumes up to the matching ']', honouring nesting.
func (p *parser) commentBody() (string, error) {
	var b strings.Builder
	depth := 1
	for {
		c, err := p.read()
		if err != nil {
			return "", p.errf("unterminated comment")
		}
		switch c {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return b.String(), nil
			}
		}
		b.WriteByte(c)
	}
}

func (p *parser) peek() (byte, error) {
	buf, err := p.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (p *parser) read() (byte, error) {
	c, err := p.r.ReadByte()
	if err == nil {
		p.offset++
	}
	return c, err
}

func (p *parser) skipSpace() error {
	for {
		c, err := p.peek()
		if err != nil {
			return err
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return nil
		}
		p.read()
	}
}

func (p *parser) errf(format string, args ...any) error {
	return &SyntaxError{Offset: p.offset, Msg: fmt.Sprintf(format, args...)}
}

func merge(dst, src tree.Annotations) tree.Annotations {
	if src == nil {
		return dst
	}
	if dst == nil {
		return src
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
