package data

import (
	"sync"

	"ghostbuild/internal/pipeline"
)

// QueryCache keeps loaded tables by run key. Keys are compared field by
// field, never through their joined file-name form.
type QueryCache struct {
	mu   sync.RWMutex
	data map[pipeline.Key]pipeline.Tables
}

// NewQueryCache creates an empty cache
func NewQueryCache() *QueryCache {
	return &QueryCache{data: make(map[pipeline.Key]pipeline.Tables)}
}

// Get retrieves a cached entry
func (c *QueryCache) Get(key pipeline.Key) (pipeline.Tables, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[key]
	return val, ok
}

// Set stores an entry
func (c *QueryCache) Set(key pipeline.Key, value pipeline.Tables) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Clear drops every entry
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[pipeline.Key]pipeline.Tables)
}

// Len returns the number of cached entries
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
