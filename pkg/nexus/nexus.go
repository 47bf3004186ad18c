// Package nexus reads and writes the subset of the NEXUS format that tree
// viewers care about: the TREES block, its optional Translate table, and
// the [&R]/[&U] rooted flag on each tree statement. Tree strings themselves
// are delegated to [pkg/newick].
//
// Everything else (TAXA, CHARACTERS, assumptions) is skipped without
// complaint, which matches how BEAST and FigTree output is consumed in
// practice.
package nexus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/artic-network/peartree/pkg/newick"
	"github.com/artic-network/peartree/pkg/tree"
)

var (
	// ErrNotNexus is returned when the input does not start with #NEXUS.
	ErrNotNexus = errors.New("not a NEXUS file")

	// ErrNoTrees is returned when no TREES block (or no tree statement) is
	// present.
	ErrNoTrees = errors.New("no trees block")
)

// Tree is one named tree from a TREES block.
type Tree struct {
	Name   string
	Root   *tree.Node
	Rooted bool // from the [&R] hint
}

// Read parses every tree in the stream's TREES block, applying the
// Translate table to tip names when present.
func Read(r io.Reader) ([]Tree, error) {
	br := bufio.NewReader(r)

	header, err := readToken(br)
	if err != nil || !strings.EqualFold(header, "#NEXUS") {
		return nil, ErrNotNexus
	}

	var trees []Tree
	translate := map[string]string{}

	for {
		tok, err := readToken(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(tok, "begin") {
			continue
		}
		name, err := readToken(br)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(strings.TrimSuffix(name, ";"), "trees") {
			if err := skipBlock(br); err != nil {
				return nil, err
			}
			continue
		}

		ts, err := readTreesBlock(br, translate)
		if err != nil {
			return nil, err
		}
		trees = append(trees, ts...)
	}

	if len(trees) == 0 {
		return nil, ErrNoTrees
	}
	return trees, nil
}

// readTreesBlock consumes statements until "end;".
func readTreesBlock(br *bufio.Reader, translate map[string]string) ([]Tree, error) {
	var trees []Tree
	for {
		tok, err := readToken(br)
		if err != nil {
			return nil, fmt.Errorf("nexus: unterminated trees block: %w", err)
		}
		switch {
		case strings.EqualFold(tok, "end;") || strings.EqualFold(tok, "end"):
			if tok == "end" {
				readToken(br) // trailing ';'
			}
			return trees, nil

		case strings.EqualFold(tok, "translate"):
			if err := readTranslate(br, translate); err != nil {
				return nil, err
			}

		case strings.EqualFold(tok, "tree"):
			t, err := readTreeStatement(br, translate)
			if err != nil {
				return nil, err
			}
			trees = append(trees, t)

		default:
			// Unknown statement (e.g. "link"); skip to its semicolon.
			if !strings.HasSuffix(tok, ";") {
				if err := skipStatement(br); err != nil {
					return nil, err
				}
			}
		}
	}
}

// readTranslate parses "token name, token name, ... ;".
func readTranslate(br *bufio.Reader, out map[string]string) error {
	for {
		key, err := readToken(br)
		if err != nil {
			return fmt.Errorf("nexus: unterminated translate table: %w", err)
		}
		if key == ";" {
			return nil
		}
		val, err := readToken(br)
		if err != nil {
			return fmt.Errorf("nexus: unterminated translate table: %w", err)
		}
		done := strings.HasSuffix(val, ";")
		val = strings.TrimSuffix(strings.TrimSuffix(val, ";"), ",")
		out[strings.TrimSuffix(key, ",")] = strings.Trim(val, "'")
		if done {
			return nil
		}
	}
}

// readTreeStatement parses `name = [&R] (...);`.
func readTreeStatement(br *bufio.Reader, translate map[string]string) (Tree, error) {
	var t Tree

	name, err := readToken(br)
	if err != nil {
		return t, err
	}
	t.Name = strings.Trim(name, "'")

	// Consume up to '=' (possibly attached to the name token).
	if !strings.Contains(name, "=") {
		if err := skipPast(br, '='); err != nil {
			return t, err
		}
	}

	// Peek for the rooted hint before handing off to the newick reader.
	if err := skipSpaces(br); err != nil {
		return t, err
	}
	if buf, err := br.Peek(4); err == nil && buf[0] == '[' {
		hint := strings.ToUpper(string(buf))
		if strings.HasPrefix(hint, "[&R]") {
			t.Rooted = true
			br.Discard(4)
		} else if strings.HasPrefix(hint, "[&U]") {
			br.Discard(4)
		}
	}

	root, err := newick.Parse(br)
	if err != nil {
		return t, fmt.Errorf("nexus: tree %s: %w", t.Name, err)
	}
	applyTranslate(root, translate)
	t.Root = root
	return t, nil
}

func applyTranslate(n *tree.Node, translate map[string]string) {
	if len(translate) == 0 {
		return
	}
	n.Walk(func(m *tree.Node) bool {
		if m.IsTip() {
			if full, ok := translate[m.Name]; ok {
				m.Name = full
			}
		}
		return true
	})
}

// readToken returns the next whitespace-delimited token.
func readToken(br *bufio.Reader) (string, error) {
	if err := skipSpaces(br); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		c, err := br.ReadByte()
		if err != nil {
			if b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			return b.String(), nil
		}
		b.WriteByte(c)
	}
}

func skipSpaces(br *bufio.Reader) error {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return br.UnreadByte()
		}
	}
}

// skipBlock consumes tokens until "end;".
func skipBlock(br *bufio.Reader) error {
	for {
		tok, err := readToken(br)
		if err != nil {
			return fmt.Errorf("nexus: unterminated block: %w", err)
		}
		if strings.EqualFold(tok, "end;") {
			return nil
		}
		if strings.EqualFold(tok, "end") {
			_, err := readToken(br)
			return err
		}
	}
}

// skipStatement consumes bytes through the next ';'.
func skipStatement(br *bufio.Reader) error { return skipPast(br, ';') }

func skipPast(br *bufio.Reader, delim byte) error {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		if c == delim {
			return nil
		}
	}
}
