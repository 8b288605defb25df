// Package procattr caches host-supplied process identity (name, path)
// by PID so a later flow on the same PID that omits them can be
// backfilled. It is a best-effort, probabilistically-evicted cache.
// Unlike the DNS response cache, nothing here needs an exact capacity
// bound, so ristretto's async admission/eviction is a good fit (see
// DESIGN.md).
package procattr

import (
	"github.com/dgraph-io/ristretto"
)

// Attr is the informational process identity cached per PID.
type Attr struct {
	Name string
	Path string
}

// Cache wraps a ristretto.Cache keyed by PID.
type Cache struct {
	cache *ristretto.Cache
}

// New builds a Cache with the given maximum cost (roughly, maximum
// bytes of cached name+path strings).
func New(maxCost int64) (*Cache, error) {
	if maxCost <= 0 {
		maxCost = 1 << 20 // 1 MiB of process identity strings by default
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
		Cost: func(value interface{}) int64 {
			a, ok := value.(Attr)
			if !ok {
				return 1
			}
			return int64(len(a.Name) + len(a.Path))
		},
	})
	if err != nil {
		return nil, err
	}
	return &Cache{cache: cache}, nil
}

// Get returns the cached identity for pid, if any.
func (c *Cache) Get(pid uint32) (Attr, bool) {
	v, ok := c.cache.Get(pid)
	if !ok {
		return Attr{}, false
	}
	return v.(Attr), true
}

// Set records pid's identity, provided at least one of the fields is
// non-empty; a flow that omits both does not overwrite a
// previously-learned identity with blanks. The entry's cost is computed
// from the lengths of name and path.
func (c *Cache) Set(pid uint32, name, path string) {
	if name == "" && path == "" {
		return
	}
	c.cache.Set(pid, Attr{Name: name, Path: path}, 0)
}

// Clear removes every cached identity.
func (c *Cache) Clear() { c.cache.Clear() }

// Wait blocks until pending Set operations have been applied, useful
// in tests that Set then immediately Get.
func (c *Cache) Wait() { c.cache.Wait() }
