package schedule

import (
	"sync"
	"time"

	"github.com/wrenhall/chorebank/internal/model"
)

// DefaultCacheTTL bounds how stale the resolver's view of definitions can
// get when nobody invalidates.
const DefaultCacheTTL = 2 * time.Minute

// definitionSource is what the cache reads through to. Satisfied by
// *store.ChoreStore.
type definitionSource interface {
	ListActive() ([]model.ChoreDefinition, error)
}

// DefinitionCache is a read-through cache over the active chore
// definitions. Every mutation path is contractually required to call
// Invalidate before reporting success, so staleness past an edit is
// bounded by the caller, not the TTL. The cache is an explicit dependency
// of the resolver — never a package global.
type DefinitionCache struct {
	source definitionSource
	ttl    time.Duration

	mu        sync.RWMutex
	cached    []model.ChoreDefinition
	lastFetch time.Time
	valid     bool
}

func NewDefinitionCache(source definitionSource, ttl time.Duration) *DefinitionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &DefinitionCache{source: source, ttl: ttl}
}

// GetActive returns the active definitions, refreshing from the source
// when the cache is invalid or past its TTL.
func (c *DefinitionCache) GetActive() ([]model.ChoreDefinition, error) {
	c.mu.RLock()
	if c.valid && time.Since(c.lastFetch) < c.ttl {
		defs := c.cached
		c.mu.RUnlock()
		return defs, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the write lock.
	if c.valid && time.Since(c.lastFetch) < c.ttl {
		return c.cached, nil
	}

	defs, err := c.source.ListActive()
	if err != nil {
		// Serve stale data over failing the read, if we have any.
		if c.valid {
			return c.cached, nil
		}
		return nil, err
	}

	c.cached = defs
	c.lastFetch = time.Now()
	c.valid = true
	return defs, nil
}

// Invalidate drops the cached list. The next read goes to the source.
func (c *DefinitionCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.cached = nil
	c.mu.Unlock()
}
