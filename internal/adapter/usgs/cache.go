package usgs

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/observability"
)

// Fetcher retrieves summary feeds and event details.
type Fetcher interface {
	FetchFeed(ctx context.Context, window domain.TimeWindow) (domain.Feed, error)
	FetchDetail(ctx context.Context, detailURL string) (domain.EventDetail, error)
}

// CacheOptions controls how long cached responses stay fresh.
type CacheOptions struct {
	FeedStaleAfter   time.Duration
	DetailStaleAfter time.Duration
	DetailCacheSize  int
	Clock            clockwork.Clock
}

// CachedClient wraps a Fetcher with a per-window feed cache and a detail LRU.
// A feed is refetched once it is older than FeedStaleAfter or after Invalidate.
type CachedClient struct {
	inner   Fetcher
	opts    CacheOptions
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu    sync.Mutex
	feeds map[domain.TimeWindow]domain.Feed

	details *lruCache[detailEntry]
}

type detailEntry struct {
	detail   domain.EventDetail
	storedAt time.Time
}

// NewCachedClient creates a cache decorator around a fetcher. Zero options
// use a 60s feed lifetime, a 5 minute detail lifetime and 500 detail entries.
func NewCachedClient(inner Fetcher, opts CacheOptions, metrics *observability.Metrics) *CachedClient {
	if opts.FeedStaleAfter <= 0 {
		opts.FeedStaleAfter = 60 * time.Second
	}
	if opts.DetailStaleAfter <= 0 {
		opts.DetailStaleAfter = 5 * time.Minute
	}
	if opts.DetailCacheSize <= 0 {
		opts.DetailCacheSize = 500
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedClient{
		inner:   inner,
		opts:    opts,
		clock:   clock,
		metrics: metrics,
		feeds:   make(map[domain.TimeWindow]domain.Feed),
		details: newLRUCache[detailEntry](opts.DetailCacheSize),
	}
}

// Fetch returns the cached feed for window while it is fresh and fetches it
// otherwise. Failed fetches leave the cache untouched.
func (c *CachedClient) Fetch(ctx context.Context, window domain.TimeWindow) (domain.Feed, error) {
	c.mu.Lock()
	feed, ok := c.feeds[window]
	c.mu.Unlock()
	if ok && c.clock.Since(feed.FetchedAt) < c.opts.FeedStaleAfter {
		c.metrics.FeedCache.WithLabelValues("hit").Inc()
		return feed, nil
	}
	c.metrics.FeedCache.WithLabelValues("miss").Inc()

	feed, err := c.inner.FetchFeed(ctx, window)
	if err != nil {
		return domain.Feed{}, err
	}
	feed.FetchedAt = c.clock.Now()

	c.mu.Lock()
	c.feeds[window] = feed
	c.mu.Unlock()
	return feed, nil
}

// Invalidate drops the cached feed for window so the next Fetch goes upstream.
func (c *CachedClient) Invalidate(window domain.TimeWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.feeds, window)
}

// FetchDetail returns a cached detail document while it is fresh.
func (c *CachedClient) FetchDetail(ctx context.Context, detailURL string) (domain.EventDetail, error) {
	if e, ok := c.details.get(detailURL); ok && c.clock.Since(e.storedAt) < c.opts.DetailStaleAfter {
		c.metrics.DetailCache.WithLabelValues("hit").Inc()
		return e.detail, nil
	}
	c.metrics.DetailCache.WithLabelValues("miss").Inc()

	detail, err := c.inner.FetchDetail(ctx, detailURL)
	if err != nil {
		return detail, err
	}
	c.details.put(detailURL, detailEntry{detail: detail, storedAt: c.clock.Now()})
	return detail, nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
