package compiler

import (
	"sync"

	"github.com/xkilldash9x/pagewright/pkg/descriptor"
)

// TypeCache memoizes resolved type identifiers per definition identity. It
// is injected into the Compiler rather than held as package state so that
// compilation stays testable and independent compilations can share or
// isolate their caches as they choose. Implementations must be safe for
// concurrent read and populate.
type TypeCache interface {
	Get(d *descriptor.Definition) (TypeIdentifier, bool)
	Put(d *descriptor.Definition, id TypeIdentifier)
}

// MemoryTypeCache is the standard mutex-guarded TypeCache.
type MemoryTypeCache struct {
	mu sync.RWMutex
	m  map[*descriptor.Definition]TypeIdentifier
}

// NewMemoryTypeCache creates an empty cache.
func NewMemoryTypeCache() *MemoryTypeCache {
	return &MemoryTypeCache{m: make(map[*descriptor.Definition]TypeIdentifier)}
}

// Get implements TypeCache.
func (c *MemoryTypeCache) Get(d *descriptor.Definition) (TypeIdentifier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.m[d]
	return id, ok
}

// Put implements TypeCache.
func (c *MemoryTypeCache) Put(d *descriptor.Definition, id TypeIdentifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[d] = id
}

// Len reports how many definitions have been resolved into the cache.
func (c *MemoryTypeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
