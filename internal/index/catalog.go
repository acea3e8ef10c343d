// Package index answers whether a modified path might affect a secondary
// index.
package index

import (
	"strings"
	"sync"

	"github.com/roach88/arraypull/internal/path"
)

// Catalog is the set of indexed paths of one namespace. It is safe for
// concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	paths    []path.FieldRef
	prefixes []path.FieldRef
}

// NewCatalog builds a catalog from indexed paths and wildcard prefixes.
func NewCatalog(paths, prefixes []string) *Catalog {
	c := &Catalog{}
	for _, p := range paths {
		c.AddPath(p)
	}
	for _, p := range prefixes {
		c.AddPrefix(p)
	}
	return c
}

// AddPath registers an indexed field path such as "tags.name".
func (c *Catalog) AddPath(dotted string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, canonical(dotted))
}

// AddPrefix registers a wildcard index covering every path under dotted.
func (c *Catalog) AddPrefix(dotted string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefixes = append(c.prefixes, canonical(dotted))
}

// MightBeIndexed reports whether a change at dotted could change the keys
// of any index. Numeric components are ignored, so "tags.3" is covered by
// an index on "tags".
func (c *Catalog) MightBeIndexed(dotted string) bool {
	if c == nil {
		return false
	}
	ref := canonical(dotted)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.paths {
		if p.IsPrefixOf(ref) || ref.IsPrefixOf(p) {
			return true
		}
	}
	for _, p := range c.prefixes {
		if p.IsPrefixOf(ref) || ref.IsPrefixOf(p) {
			return true
		}
	}
	return false
}

// Paths returns the registered index paths in dotted form.
func (c *Catalog) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.paths))
	for _, p := range c.paths {
		out = append(out, p.Dotted())
	}
	return out
}

func canonical(dotted string) path.FieldRef {
	var parts []string
	for _, part := range strings.Split(dotted, ".") {
		if part == "" || path.IsNumericStrict(part) {
			continue
		}
		parts = append(parts, part)
	}
	return path.FromParts(parts...)
}
