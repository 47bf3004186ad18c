// Package pkg provides the core libraries for PearTree phylogenetic tree
// viewing and editing.
//
// # Overview
//
// PearTree loads phylogenetic trees from Newick or NEXUS text, applies
// edits (rerooting, ordering, hiding, painting) and projects the result
// into render-ready layouts. The pkg directory is organized into:
//
//  1. [tree], [newick], [nexus] - Parsing and serialization
//  2. [phylo] - The mutable tree graph and its operations
//  3. [pipeline], [render] - Orchestration (load, mutate, layout, render)
//  4. [cache], [session] - Infrastructure (result caching, view sessions)
//  5. [errors], [httputil], [observability] - Cross-cutting concerns
//
// # Architecture
//
// The typical data flow through PearTree:
//
//	Newick/NEXUS text
//	         ↓
//	    [newick] / [nexus] package (parse to nested tree.Node)
//	         ↓
//	    [phylo] package (arena graph, O(depth) rerooting, edits)
//	         ↓
//	    [phylo] layout projection (flat x/y coordinates)
//	         ↓
//	    [render] package (DOT → graphviz → SVG/PNG)
//
// # Quick Start
//
// Load a tree, reroot it at its midpoint and render an SVG:
//
//	import (
//	    "context"
//	    "github.com/artic-network/peartree/pkg/cache"
//	    "github.com/artic-network/peartree/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	result, _ := runner.Execute(context.Background(), pipeline.Options{
//	    Source:   "((A:1,B:1):1,C:2);",
//	    Midpoint: true,
//	    Formats:  []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
//
// Or work with the graph directly:
//
//	import (
//	    "strings"
//	    "github.com/artic-network/peartree/pkg/newick"
//	    "github.com/artic-network/peartree/pkg/phylo"
//	)
//
//	root, _ := newick.Parse(strings.NewReader("((A:1,B:1):1,(C:1,D:1):1);"))
//	g, _ := phylo.Build(root)
//	id, dist, _ := g.Midpoint()
//	g.Reroot(id, dist)
//	layout, _ := g.Layout(phylo.EntireTree)
//
// # Main Packages
//
// [phylo] holds the domain: the arena graph, rerooting, midpoint search,
// clade ordering, rotation, hiding, annotation schema inference and the
// layout projection.
//
// [pipeline] orchestrates load, mutate, layout and render with per-stage
// content-hash caching. [render] turns layouts into DOT and rasterized
// figures.
//
// [cache] provides file, Redis and null backends keyed by content hash.
// [session] stores per-user view state in memory, on disk or in MongoDB.
//
// The CLI (internal/cli) and the HTTP server (internal/server) are thin
// shells over these packages.
package pkg
