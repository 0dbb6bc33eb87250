package echarts

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/goliatone/go-querydash/components/dashboard"
)

// RenderCache memoizes rendered chart HTML keyed by chart content.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

// Cache is an in-memory TTL cache for rendered charts. Filter changes
// produce new shaped data and therefore new keys, so stale entries simply
// age out.
type Cache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]cachedChart
}

type cachedChart struct {
	html    string
	expires time.Time
}

// NewCache builds a cache with the provided TTL. A non-positive TTL disables caching.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedChart),
	}
}

// GetOrRender returns a cached entry or renders and stores a new one.
// Render errors are never cached.
func (c *Cache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if html, ok := c.get(key); ok {
		return html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.set(key, html)
	return html, nil
}

// Purge drops expired entries.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) get(key string) (string, bool) {
	if c == nil || c.ttl <= 0 {
		return "", false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		if ok {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		return "", false
	}
	return entry.html, true
}

func (c *Cache) set(key, html string) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cachedChart{
		html:    html,
		expires: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// chartKey hashes the shaped chart together with the render theme.
func chartKey(chart dashboard.RenderableChart, theme string) string {
	b, err := json.Marshal(chart)
	if err != nil {
		return ""
	}
	sum := sha1.Sum(append(b, theme...))
	return chart.ID + ":" + string(chart.Type) + ":" + hex.EncodeToString(sum[:])
}
