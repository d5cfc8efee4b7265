package selector

import (
	"log/slog"

	"github.com/vango-dev/vtree/internal/errors"
)

// Observer receives cache events, typically to feed metrics.
type Observer interface {
	CacheLookup(hit bool)
	CacheEviction()
}

// Stats is a snapshot of cache state.
type Stats struct {
	Size      int      `json:"size"`
	Capacity  int      `json:"capacity"`
	Keys      []string `json:"keys"`
	Hits      uint64   `json:"hits"`
	Misses    uint64   `json:"misses"`
	Evictions uint64   `json:"evictions"`
}

// Cache memoizes Parse by raw selector string.
//
// Eviction is FIFO: when full, the oldest inserted selector is dropped.
// Hits do not refresh an entry's position. Cached slices are shared; callers
// must not modify them.
//
// A Cache is not safe for concurrent use; it belongs to one runtime loop.
type Cache struct {
	capacity int
	entries  map[string][]Compound
	order    []string

	hits      uint64
	misses    uint64
	evictions uint64

	logger   *slog.Logger
	observer Observer
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger used to report malformed selectors.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// WithObserver sets a hook notified of lookups and evictions.
func WithObserver(o Observer) CacheOption {
	return func(c *Cache) { c.observer = o }
}

// NewCache returns a cache holding at most capacity selectors. A capacity
// of zero or less disables memoization.
func NewCache(capacity int, opts ...CacheOption) *Cache {
	c := &Cache{
		capacity: capacity,
		entries:  make(map[string][]Compound),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Parse returns the compounds for selector, parsing it on a miss.
func (c *Cache) Parse(selector string) []Compound {
	if compounds, ok := c.entries[selector]; ok {
		c.hits++
		c.notify(true)
		return compounds
	}
	c.misses++
	c.notify(false)

	compounds, problems := parse(selector)
	if len(problems) > 0 && c.logger != nil {
		err := errors.New("E001")
		c.logger.Debug(err.Message,
			"code", err.Code,
			"selector", selector,
			"problems", problems,
		)
	}

	if c.capacity <= 0 {
		return compounds
	}
	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.evictions++
		if c.observer != nil {
			c.observer.CacheEviction()
		}
	}
	c.entries[selector] = compounds
	c.order = append(c.order, selector)
	return compounds
}

func (c *Cache) notify(hit bool) {
	if c.observer != nil {
		c.observer.CacheLookup(hit)
	}
}

// Stats returns a snapshot. Keys are listed oldest first.
func (c *Cache) Stats() Stats {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return Stats{
		Size:      len(c.entries),
		Capacity:  c.capacity,
		Keys:      keys,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.entries = make(map[string][]Compound)
	c.order = nil
}
