package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/filmcard/models"
)

// entry holds scraped fields with their creation timestamp.
type entry struct {
	fields    models.Fields
	createdAt time.Time
}

// Cache is a simple in-memory cache of scraped title fields.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache holding at most maxEntries, each valid for ttl.
// A ttl <= 0 disables the cache: Get always misses and Set is a no-op.
// A background goroutine evicts expired entries until Stop is called.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop(cleanupInterval(ttl))
	}
	return c
}

// Key generates a cache key from a title page URL. Mirror hosts, query
// strings, fragments and trailing slashes do not change the key, so
// "https://m.imdb.com/title/tt0113277/?ref_=x" and
// "https://www.imdb.com/title/tt0113277" share an entry.
func Key(rawURL string) string {
	canonical := strings.ToLower(strings.TrimSpace(rawURL))
	if u, err := url.Parse(canonical); err == nil && u.Host != "" {
		host := strings.TrimPrefix(u.Hostname(), "www.")
		host = strings.TrimPrefix(host, "m.")
		canonical = host + strings.TrimRight(u.EscapedPath(), "/")
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached fields for key if present and not expired.
func (c *Cache) Get(key string) (models.Fields, bool) {
	if c.ttl <= 0 {
		return models.Fields{}, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > c.ttl {
		return models.Fields{}, false
	}

	f := e.fields
	f.Genres = slices.Clone(f.Genres)
	return f, true
}

// Set stores fields under key. If the cache is at capacity, a random entry
// is evicted to make room.
func (c *Cache) Set(key string, fields models.Fields) {
	if c.ttl <= 0 {
		return
	}
	fields.Genres = slices.Clone(fields.Genres)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Map iteration order is random.
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		fields:    fields,
		createdAt: c.now(),
	}
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) prune() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.prune()
		case <-c.stop:
			return
		}
	}
}

// cleanupInterval sweeps a few times per TTL, but never more often than
// once a minute.
func cleanupInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Minute)
}
