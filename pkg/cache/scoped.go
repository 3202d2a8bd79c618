package cache

// ScopedKeyer wraps a Keyer with a prefix so unrelated builds sharing one
// Redis server keep separate namespaces.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "project:docs:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RasterKey generates a prefixed key for PNG renderings.
func (k *ScopedKeyer) RasterKey(svgHash string, opts RasterKeyOpts) string {
	return k.prefix + k.inner.RasterKey(svgHash, opts)
}

// DiagramKey generates a prefixed key for diagram renderings.
func (k *ScopedKeyer) DiagramKey(sourceHash string, opts DiagramKeyOpts) string {
	return k.prefix + k.inner.DiagramKey(sourceHash, opts)
}
