// Package cache stores rendered artifacts so repeated builds skip the browser.
//
// A render is a pure function of its input document and options, so its
// output can be cached by a hash of both. Implementations:
//   - FileCache: JSON entries under a directory (CLI default)
//   - RedisCache: shared cache for build farms
//   - NullCache: caching disabled
//
// Keys are produced by a Keyer so callers never build key strings by hand:
//
//	key := keyer.RasterKey(cache.Hash(svg), cache.RasterKeyOpts{DPIX: 150, DPIY: 150})
//	if data, hit, err := c.Get(ctx, key); err == nil && hit {
//	    return data, nil
//	}
package cache

import (
	"context"
	"time"
)

// Default TTLs per artifact type.
const (
	TTLRaster  = 30 * 24 * time.Hour
	TTLDiagram = 30 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value and whether it was found. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// RasterKeyOpts are the options that change a PNG rendering of an SVG.
type RasterKeyOpts struct {
	DPIX       float64 `json:"dpi_x"`
	DPIY       float64 `json:"dpi_y"`
	Background string  `json:"background"`
}

// DiagramKeyOpts are the options that change an SVG rendering of diagram markup.
type DiagramKeyOpts struct {
	Kind       string `json:"kind"`
	Background string `json:"background"`
	Theme      string `json:"theme,omitempty"`
	Bundle     string `json:"bundle,omitempty"` // hash of the renderer bundle
}

// Keyer generates cache keys for each artifact type.
type Keyer interface {
	RasterKey(svgHash string, opts RasterKeyOpts) string
	DiagramKey(sourceHash string, opts DiagramKeyOpts) string
}

// DefaultKeyer produces "type:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RasterKey generates a key for a PNG rendering.
func (DefaultKeyer) RasterKey(svgHash string, opts RasterKeyOpts) string {
	return hashKey("raster", svgHash, opts)
}

// DiagramKey generates a key for a diagram rendering.
func (DefaultKeyer) DiagramKey(sourceHash string, opts DiagramKeyOpts) string {
	return hashKey("diagram", sourceHash, opts)
}
