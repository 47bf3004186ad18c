package phylo

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/artic-network/peartree/pkg/tree"
)

// ColourKey is the annotation key for user-assigned per-tip colours.
// Its values are treated as a plain categorical scale where each distinct
// value denotes itself, even when they would parse as numbers.
const ColourKey = "!colour"

// DataType classifies the values observed under one annotation key.
type DataType string

const (
	TypeReal        DataType = "real"
	TypeInteger     DataType = "integer"
	TypeOrdinal     DataType = "ordinal" // never auto-inferred; reserved for caller upgrade
	TypeCategorical DataType = "categorical"
	TypeList        DataType = "list"
)

// AnnotationDef describes one annotation key as inferred over every node.
type AnnotationDef struct {
	Name string   `json:"name"`
	Type DataType `json:"data_type"`

	// Numeric types only.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Categorical only: sorted, deduplicated string representations.
	Values []string `json:"values,omitempty"`

	// List only: the type inferred over all flattened elements.
	ElementType *AnnotationDef `json:"element_type,omitempty"`
}

// Schema maps annotation names to their inferred definitions.
type Schema map[string]*AnnotationDef

// InferSchema scans every node's annotation map and produces one definition
// per key observed anywhere, ignoring nil values. It runs in O(n*k) and is
// re-invoked after every edit that adds or removes annotations (import,
// paint, clear), so it allocates nothing beyond its result.
//
// Inference order per key: any list value makes the key a list (element
// type inferred over the flattened union of list elements and scalars);
// otherwise all-numeric values make it integer or real with observed
// min/max; anything else is categorical with the sorted distinct values.
func InferSchema(nodes []*Node) Schema {
	observed := make(map[string][]any)
	for _, n := range nodes {
		for k, v := range n.Annotations {
			if v == nil {
				continue
			}
			observed[k] = append(observed[k], v)
		}
	}

	schema := make(Schema, len(observed))
	for name, values := range observed {
		schema[name] = inferDef(name, values)
	}
	return schema
}

func inferDef(name string, values []any) *AnnotationDef {
	hasList := false
	for _, v := range values {
		if _, ok := v.([]any); ok {
			hasList = true
			break
		}
	}
	if hasList {
		var flat []any
		for _, v := range values {
			if list, ok := v.([]any); ok {
				flat = append(flat, list...)
			} else {
				flat = append(flat, v)
			}
		}
		return &AnnotationDef{
			Name:        name,
			Type:        TypeList,
			ElementType: inferDef(name, flat),
		}
	}

	if name != ColourKey {
		if def, ok := inferNumeric(name, values); ok {
			return def
		}
	}

	seen := make(map[string]struct{})
	var distinct []string
	for _, v := range values {
		s := fmt.Sprint(v)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		distinct = append(distinct, s)
	}
	slices.Sort(distinct)

	return &AnnotationDef{Name: name, Type: TypeCategorical, Values: distinct}
}

// inferNumeric reports whether every value parses as a number, and if so
// returns an integer or real definition with the observed range.
func inferNumeric(name string, values []any) (*AnnotationDef, bool) {
	min, max := math.Inf(1), math.Inf(-1)
	wholeOnly := true

	for _, v := range values {
		f, ok := asNumber(v)
		if !ok {
			return nil, false
		}
		if f != math.Trunc(f) {
			wholeOnly = false
		}
		min = math.Min(min, f)
		max = math.Max(max, f)
	}

	t := TypeReal
	if wholeOnly {
		t = TypeInteger
	}
	return &AnnotationDef{Name: name, Type: t, Min: &min, Max: &max}, true
}

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// SetAnnotation sets key to value on the node with the given identifier and
// re-infers the schema. Unknown identifiers are a silent no-op. A nil value
// removes the key.
func (g *Graph) SetAnnotation(originalID int, key string, value any) {
	idx, ok := g.byID[originalID]
	if !ok {
		return
	}
	n := g.Nodes[idx]
	if value == nil {
		delete(n.Annotations, key)
	} else {
		if n.Annotations == nil {
			n.Annotations = tree.Annotations{}
		}
		n.Annotations[key] = value
	}
	g.Schema = InferSchema(g.Nodes)
}

// Paint assigns a colour to the node with the given identifier.
// Unknown identifiers are a silent no-op.
func (g *Graph) Paint(originalID int, colour string) {
	g.SetAnnotation(originalID, ColourKey, colour)
}

// ClearColours removes every painted colour and re-infers the schema.
func (g *Graph) ClearColours() {
	for _, n := range g.Nodes {
		delete(n.Annotations, ColourKey)
	}
	g.Schema = InferSchema(g.Nodes)
}

// ApplyAnnotations merges imported annotations into nodes matched by name.
// It returns the number of nodes that received values. The schema is
// re-inferred once at the end.
func (g *Graph) ApplyAnnotations(byName map[string]tree.Annotations) int {
	matched := 0
	for _, n := range g.Nodes {
		ann, ok := byName[n.Name]
		if !ok || n.Name == "" {
			continue
		}
		if n.Annotations == nil {
			n.Annotations = tree.Annotations{}
		}
		for k, v := range ann {
			n.Annotations[k] = v
		}
		matched++
	}
	g.Schema = InferSchema(g.Nodes)
	return matched
}
