package model

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/observability"
)

// Cached wraps a Predictor with an in-memory LRU cache. A loaded model is
// deterministic, so identical feature vectors can share one inference.
type Cached struct {
	inner   domain.Predictor
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCached creates a cache decorator around a predictor.
func NewCached(inner domain.Predictor, maxEntries int, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *Cached) Predict(ctx context.Context, f domain.FeatureVector) (float64, error) {
	if v, ok := c.cache.get(f); ok {
		c.metrics.PredictionCache.WithLabelValues("hit").Inc()
		return v, nil
	}
	c.metrics.PredictionCache.WithLabelValues("miss").Inc()

	v, err := c.inner.Predict(ctx, f)
	if err != nil {
		return v, err
	}
	c.cache.put(f, v)
	return v, nil
}

// Len returns the number of cached predictions.
func (c *Cached) Len() int {
	return c.cache.size()
}

// lruCache is a thread-safe LRU of predictions keyed by feature vector.
// The list front is the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[domain.FeatureVector]*list.Element
}

type cached struct {
	key   domain.FeatureVector
	value float64
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[domain.FeatureVector]*list.Element),
	}
}

func (c *lruCache) get(key domain.FeatureVector) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cached).value, true
}

func (c *lruCache) put(key domain.FeatureVector, value float64) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cached).value = value
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cached{key: key, value: value})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cached).key)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
