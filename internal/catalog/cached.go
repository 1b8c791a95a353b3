package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"tourguide/internal/models"
)

const attractionsKey = "attractions"

// Cached keeps the result of an underlying catalog for ttl. Concurrent misses
// are collapsed into a single load. A ttl of zero or less disables caching.
type Cached struct {
	next  Catalog
	ttl   time.Duration
	store *cache.Cache
	mu    sync.Mutex
}

func NewCached(next Catalog, ttl time.Duration) *Cached {
	c := &Cached{next: next, ttl: ttl}
	if ttl > 0 {
		c.store = cache.New(ttl, 2*ttl)
	}
	return c
}

func (c *Cached) Attractions(ctx context.Context) ([]models.Attraction, error) {
	if c.store == nil {
		return c.next.Attractions(ctx)
	}
	if out, ok := c.get(); ok {
		return out, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if out, ok := c.get(); ok {
		return out, nil
	}

	attractions, err := c.next.Attractions(ctx)
	if err != nil {
		return nil, err
	}
	c.store.Set(attractionsKey, attractions, cache.DefaultExpiration)
	log.WithField("attractions", len(attractions)).Debug("Attraction catalog refreshed")
	return copyOf(attractions), nil
}

// Invalidate drops the cached catalog.
func (c *Cached) Invalidate() {
	if c.store == nil {
		return
	}
	c.store.Delete(attractionsKey)
}

func (c *Cached) get() ([]models.Attraction, bool) {
	v, ok := c.store.Get(attractionsKey)
	if !ok {
		return nil, false
	}
	return copyOf(v.([]models.Attraction)), true
}

func copyOf(in []models.Attraction) []models.Attraction {
	out := make([]models.Attraction, len(in))
	copy(out, in)
	return out
}
