// Package cache provides content-addressed caching for parsed trees, layouts
// and rendered artifacts.
//
// Keys are derived from content hashes rather than file paths, so the same
// tree loaded from two locations shares one entry, and any edit to the source
// text invalidates everything downstream of it.
//
// Three backends are provided:
//   - FileCache: directory-based, for the CLI
//   - RedisCache: shared, for multi-instance server deployments
//   - NullCache: disabled caching, for tests and one-shot runs
package cache

import (
	"context"
	"time"
)

// Cache is the interface all cache backends implement.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs per entry kind. Parsed trees are pure functions of their
// source text so they could live forever; the TTLs bound disk growth.
const (
	TTLTree     = 30 * 24 * time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// LayoutKeyOpts are the view parameters that change a layout's content.
type LayoutKeyOpts struct {
	View      int   `json:"view"`      // drill-in subtree, or the whole tree
	HiddenIDs []int `json:"hidden"`    // sorted hidden identifiers
	Ascending bool  `json:"ascending"` // reorder direction, if ordered
	Ordered   bool  `json:"ordered"`
}

// ArtifactKeyOpts are the render parameters that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format     string `json:"format"`
	ColourBy   string `json:"colour_by,omitempty"`
	ShowLabels bool   `json:"show_labels"`
	Width      int    `json:"width,omitempty"`
}

// Keyer derives cache keys for each pipeline stage.
type Keyer interface {
	// TreeKey identifies a parsed tree by its source text hash.
	TreeKey(sourceHash string) string

	// LayoutKey identifies a computed layout by tree hash plus view options.
	LayoutKey(treeHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered artifact by layout hash plus render
	// options.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

func (k *DefaultKeyer) TreeKey(sourceHash string) string {
	return "tree:" + sourceHash
}

func (k *DefaultKeyer) LayoutKey(treeHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", treeHash, opts)
}

func (k *DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix, isolating one user's or one
// session's entries from another's when backends are shared.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) TreeKey(sourceHash string) string {
	return k.prefix + k.inner.TreeKey(sourceHash)
}

func (k *ScopedKeyer) LayoutKey(treeHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(treeHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
