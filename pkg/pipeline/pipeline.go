// Package pipeline provides the load → mutate → layout → render pipeline
// shared by the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: parse Newick or NEXUS text into the graph form
//  2. Mutate: apply rooting, ordering and visibility edits
//  3. Layout: project the graph into render-ready coordinates
//  4. Render: produce artifacts (SVG, PNG, DOT, JSON, Newick, NEXUS)
//
// Each stage can be run independently or as part of a complete run, and the
// load, layout and render stages are cached by content hash: the same source
// text with the same edits never recomputes downstream work.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Source:   treeText,
//	    Midpoint: true,
//	    Formats:  []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/artic-network/peartree/pkg/cache"
	"github.com/artic-network/peartree/pkg/phylo"
)

// Format constants for output formats.
const (
	FormatSVG    = "svg"
	FormatPNG    = "png"
	FormatDOT    = "dot"
	FormatJSON   = "json"
	FormatNewick = "newick"
	FormatNexus  = "nexus"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:    true,
	FormatPNG:    true,
	FormatDOT:    true,
	FormatJSON:   true,
	FormatNewick: true,
	FormatNexus:  true,
}

// Source format constants; empty means sniff from content.
const (
	SourceNewick = "newick"
	SourceNexus  = "nexus"
)

// Ordering directions for the Order option.
const (
	OrderAscending  = "ascending"
	OrderDescending = "descending"
)

// Options contains all configuration for one pipeline run.
// The struct serializes to JSON for API requests; runtime-only fields are
// excluded.
type Options struct {
	// Load options.
	Source    string `json:"source"`
	Format    string `json:"format,omitempty"`     // newick, nexus, or empty to sniff
	TreeIndex int    `json:"tree_index,omitempty"` // which tree of a multi-tree NEXUS
	Refresh   bool   `json:"refresh,omitempty"`

	// Mutations, applied in this order.
	Midpoint   bool    `json:"midpoint,omitempty"`
	RerootID   int     `json:"reroot_id,omitempty"`
	RerootDist float64 `json:"reroot_dist,omitempty"`
	Reroot     bool    `json:"reroot,omitempty"` // distinguishes "reroot at 0" from "no reroot"
	Order      string  `json:"order,omitempty"`  // ascending, descending, or empty
	Hidden     []int   `json:"hidden,omitempty"`

	// Layout options.
	View int `json:"view,omitempty"` // drill-in subtree id, or EntireTree

	// Render options.
	Formats       []string `json:"formats,omitempty"`
	ColourBy      string   `json:"colour_by,omitempty"`
	Labels        bool     `json:"labels,omitempty"`
	BranchLengths bool     `json:"branch_lengths,omitempty"`

	// Runtime options (not serialized).
	Logger *log.Logger `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the loaded (and mutated) tree graph.
	Graph *phylo.Graph

	// TreeHash is the content hash of the mutated tree, used downstream as
	// the layout cache key component.
	TreeHash string

	// Layout is the computed projection.
	Layout *phylo.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	TipCount   int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LoadHit   bool
	LayoutHit bool
	RenderHit bool
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, png, dot, json, newick, nexus)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// The method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Source == "" {
		return fmt.Errorf("source is required")
	}
	if o.Format != "" && o.Format != SourceNewick && o.Format != SourceNexus {
		return fmt.Errorf("invalid source format: %q (must be newick or nexus)", o.Format)
	}
	if o.Order != "" && o.Order != OrderAscending && o.Order != OrderDescending {
		return fmt.Errorf("invalid order: %q (must be ascending or descending)", o.Order)
	}
	if o.View == 0 {
		o.View = phylo.EntireTree
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// LayoutKeyOpts returns cache key options for the layout stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		View:      o.View,
		HiddenIDs: o.Hidden,
		Ascending: o.Order == OrderAscending,
		Ordered:   o.Order != "",
	}
}

// ArtifactKeyOpts returns cache key options for one render format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     format,
		ColourBy:   o.ColourBy,
		ShowLabels: o.Labels,
	}
}
