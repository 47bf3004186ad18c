package newick

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/artic-network/peartree/pkg/tree"
)

// parseAnnotationBody parses the interior of a [&...] comment (the leading
// ampersand already stripped) into an annotation map.
//
// The accepted forms are the BEAST/FigTree conventions:
//
//	key=3.14            number
//	key="north america" quoted string
//	key=Asia            bare string
//	key={1,2,3}         list of scalars
//	key                 bare flag, stored as true
func parseAnnotationBody(body string) (tree.Annotations, error) {
	ann := tree.Annotations{}
	s := scanner{src: body}

	for {
		s.skipSpace()
		if s.done() {
			return ann, nil
		}

		key := s.until("=,")
		if key == "" {
			return nil, fmt.Errorf("empty key at %d", s.pos)
		}

		s.skipSpace()
		if s.done() || s.peek() == ',' {
			s.accept(',')
			ann[key] = true
			continue
		}
		s.accept('=')

		value, err := s.value()
		if err != nil {
			return nil, err
		}
		ann[key] = value

		s.skipSpace()
		if !s.done() && !s.accept(',') {
			return nil, fmt.Errorf("expected ',' at %d", s.pos)
		}
	}
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }
func (s *scanner) peek() byte { return s.src[s.pos] }

func (s *scanner) skipSpace() {
	for !s.done() && (s.peek() == ' ' || s.peek() == '\t') {
		s.pos++
	}
}

func (s *scanner) accept(c byte) bool {
	if !s.done() && s.peek() == c {
		s.pos++
		return true
	}
	return false
}

// until returns the run of characters before any of stop (trimmed).
func (s *scanner) until(stop string) string {
	start := s.pos
	for !s.done() && !strings.ContainsRune(stop, rune(s.peek())) {
		s.pos++
	}
	return strings.TrimSpace(s.src[start:s.pos])
}

func (s *scanner) value() (any, error) {
	s.skipSpace()
	if s.done() {
		return nil, fmt.Errorf("missing value at %d", s.pos)
	}

	switch c := s.peek(); {
	case c == '{':
		s.pos++
		var list []any
		for {
			s.skipSpace()
			if s.accept('}') {
				return list, nil
			}
			v, err := s.value()
			if err != nil {
				return nil, err
			}
			list = append(list, v)
			s.skipSpace()
			if s.accept(',') {
				continue
			}
			if s.accept('}') {
				return list, nil
			}
			return nil, fmt.Errorf("unterminated list at %d", s.pos)
		}
	case c == '"' || c == '\'':
		s.pos++
		start := s.pos
		for !s.done() && s.peek() != c {
			s.pos++
		}
		if s.done() {
			return nil, fmt.Errorf("unterminated string at %d", start)
		}
		v := s.src[start:s.pos]
		s.pos++
		return v, nil
	default:
		raw := s.until(",}")
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
		if raw == "true" || raw == "false" {
			return raw == "true", nil
		}
		return raw, nil
	}
}
