package dataset

import (
	"context"
	"sync"

	"github.com/lox/sunspots/internal/metrics"
)

// Cache memoizes loaded tables by source. Failed loads are not cached, and
// entries live until the process exits.
type Cache struct {
	mu     sync.Mutex
	tables map[string]*Table
	load   func(ctx context.Context, source string) (*Table, error)
}

// NewCache creates a read-through cache backed by Load.
func NewCache() *Cache {
	return &Cache{
		tables: make(map[string]*Table),
		load:   Load,
	}
}

// Get returns the cached table for source, loading it on first use.
func (c *Cache) Get(ctx context.Context, source string) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tables[source]; ok {
		metrics.DatasetCacheLookups.WithLabelValues("hit").Inc()
		return t, nil
	}
	metrics.DatasetCacheLookups.WithLabelValues("miss").Inc()

	t, err := c.load(ctx, source)
	if err != nil {
		return nil, err
	}
	c.tables[source] = t
	return t, nil
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables)
}
