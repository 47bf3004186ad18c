package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/artic-network/peartree/pkg/cache"
	"github.com/artic-network/peartree/pkg/newick"
	"github.com/artic-network/peartree/pkg/nexus"
	"github.com/artic-network/peartree/pkg/observability"
	"github.com/artic-network/peartree/pkg/phylo"
	"github.com/artic-network/peartree/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → mutate → layout → render pipeline with
// caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Load
	loadStart := time.Now()
	observability.Pipeline().OnLoadStart(ctx, opts.Format)
	g, loadHit, err := r.LoadWithCacheInfo(ctx, opts)
	observability.Pipeline().OnLoadComplete(ctx, opts.Format, nodeCountOrZero(g), time.Since(loadStart), err)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Graph = g
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.TipCount = g.TipCount()
	result.CacheInfo.LoadHit = loadHit

	r.Logger.Info("loaded tree",
		"nodes", g.NodeCount(),
		"tips", g.TipCount(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Mutate. Edits are cheap in-memory pointer surgery and are
	// never cached on their own; downstream keys hash the mutated tree.
	if err := Mutate(g, opts); err != nil {
		return nil, fmt.Errorf("mutate: %w", err)
	}
	result.TreeHash = cache.Hash([]byte(Canonical(g)))

	// Stage 3: Layout
	layoutStart := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, g.NodeCount())
	layout, layoutHit, err := r.LayoutWithCacheInfo(ctx, g, result.TreeHash, opts)
	observability.Pipeline().OnLayoutComplete(ctx, time.Since(layoutStart), err)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = layout
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"nodes", len(layout.Nodes),
		"duration", result.Stats.LayoutTime)

	// Stage 4: Render
	renderStart := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, layout, g, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(renderStart), err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// loadedTree is the cached form of a loaded tree: the canonical annotated
// Newick text plus the rooting flag, which annotated Newick alone cannot
// carry for trees rooted by a NEXUS [&R] hint.
type loadedTree struct {
	Rooted bool   `json:"rooted"`
	Newick string `json:"newick"`
}

// LoadWithCacheInfo parses the source with caching and returns cache hit info.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, opts Options) (*phylo.Graph, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// The tree index participates in the hash so each tree of a multi-tree
	// NEXUS file gets its own cache entry.
	sourceHash := cache.Hash([]byte(strconv.Itoa(opts.TreeIndex) + ":" + opts.Source))
	cacheKey := r.Keyer.TreeKey(sourceHash)

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var lt loadedTree
			if err := json.Unmarshal(data, &lt); err == nil {
				if g, err := rebuildGraph(lt); err == nil {
					observability.Cache().OnCacheHit(ctx, "tree")
					return g, true, nil // Cache hit
				}
			}
			// Corrupt entry; fall through to reparse.
		}
		observability.Cache().OnCacheMiss(ctx, "tree")
	}

	g, err := Load(opts)
	if err != nil {
		return nil, false, err
	}

	// Cache the canonical form, not the raw source: a NEXUS tree is stored
	// with its translate table applied.
	if !opts.Refresh {
		lt := loadedTree{Rooted: g.Rooted, Newick: Canonical(g)}
		if data, err := json.Marshal(lt); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLTree)
			observability.Cache().OnCacheSet(ctx, "tree", len(data))
		}
	}

	return g, false, nil // Cache miss
}

// Load is a convenience wrapper that calls LoadWithCacheInfo and discards the
// cache hit info.
func (r *Runner) Load(ctx context.Context, opts Options) (*phylo.Graph, error) {
	g, _, err := r.LoadWithCacheInfo(ctx, opts)
	return g, err
}

func rebuildGraph(lt loadedTree) (*phylo.Graph, error) {
	root, err := newick.ParseString(lt.Newick)
	if err != nil {
		return nil, err
	}
	g, err := phylo.Build(root)
	if err != nil {
		return nil, err
	}
	if lt.Rooted {
		g.Rooted = true
	}
	return g, nil
}

// LayoutWithCacheInfo projects the graph with caching and returns cache hit
// info. treeHash is the content hash of the mutated tree.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, g *phylo.Graph, treeHash string, opts Options) (*phylo.Layout, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	cacheKey := r.Keyer.LayoutKey(treeHash, opts.LayoutKeyOpts())

	// Try cache first
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		if cached, err := unmarshalLayout(data); err == nil {
			observability.Cache().OnCacheHit(ctx, "layout")
			return cached, true, nil // Cache hit
		}
		// If deserialization fails, fall through to recompute
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	layout, err := g.Layout(opts.View)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(layout); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout)
		observability.Cache().OnCacheSet(ctx, "layout", len(data))
	}

	return layout, false, nil // Cache miss
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Layout(ctx context.Context, g *phylo.Graph, treeHash string, opts Options) (*phylo.Layout, error) {
	layout, _, err := r.LayoutWithCacheInfo(ctx, g, treeHash, opts)
	return layout, err
}

// unmarshalLayout decodes a cached layout and rebuilds the id index, which
// is not serialized.
func unmarshalLayout(data []byte) (*phylo.Layout, error) {
	var l phylo.Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	l.ByID = make(map[int]*phylo.LayoutNode, len(l.Nodes))
	for _, n := range l.Nodes {
		l.ByID[n.OriginalID] = n
	}
	return &l, nil
}

// RenderWithCacheInfo produces artifacts with caching and returns cache hit
// info. The graph is needed alongside the layout because the tree text
// formats (newick, nexus) serialize the full tree, hidden subtrees included.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, layout *phylo.Layout, g *phylo.Graph, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	layoutData, err := json.Marshal(layout)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, true, nil // All artifacts from cache
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	rendered := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := r.renderFormat(ctx, layout, g, format, opts)
		if err != nil {
			return nil, false, fmt.Errorf("render %s: %w", format, err)
		}
		rendered[format] = data
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Render(ctx context.Context, layout *phylo.Layout, g *phylo.Graph, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, layout, g, opts)
	return artifacts, err
}

func (r *Runner) renderFormat(ctx context.Context, layout *phylo.Layout, g *phylo.Graph, format string, opts Options) ([]byte, error) {
	renderOpts := render.Options{
		Labels:        opts.Labels,
		ColourBy:      opts.ColourBy,
		BranchLengths: opts.BranchLengths,
	}

	switch format {
	case FormatSVG:
		return render.RenderSVG(ctx, render.ToDOT(layout, renderOpts))
	case FormatPNG:
		return render.RenderPNG(ctx, render.ToDOT(layout, renderOpts))
	case FormatDOT:
		return []byte(render.ToDOT(layout, renderOpts)), nil
	case FormatJSON:
		return json.MarshalIndent(layout, "", "  ")
	case FormatNewick:
		return []byte(Canonical(g)), nil
	case FormatNexus:
		var buf bytes.Buffer
		t := nexus.Tree{Name: "tree1", Root: g.Tree(), Rooted: g.Rooted}
		if err := nexus.Write(&buf, []nexus.Tree{t}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("invalid format: %q", format)
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func nodeCountOrZero(g *phylo.Graph) int {
	if g == nil {
		return 0
	}
	return g.NodeCount()
}
