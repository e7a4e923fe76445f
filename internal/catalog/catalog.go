// Package catalog provides the read-only reference data (events and age
// groups) that registration entries are validated against.
package catalog

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/config"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
)

// Catalog is the reference data capability.
type Catalog interface {
	Events(ctx context.Context) ([]model.Event, error)
	AgeGroups(ctx context.Context) ([]model.AgeGroup, error)
}

// Source is the storage the store-backed catalog reads through to.
type Source interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListAgeGroups(ctx context.Context) ([]model.AgeGroup, error)
}

// New selects the catalog implementation named by source.
func New(source string, store Source, ttl time.Duration) (Catalog, error) {
	switch source {
	case config.CatalogStatic:
		return Static{}, nil
	case config.CatalogStore:
		if store == nil {
			return nil, fmt.Errorf("catalog source %q needs a store", source)
		}
		return NewCached(store, ttl), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", source)
	}
}

// HasEvent reports whether id names a catalog event.
func HasEvent(ctx context.Context, c Catalog, id string) (bool, error) {
	events, err := c.Events(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range events {
		if e.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// HasAgeGroup reports whether id names a catalog age group.
func HasAgeGroup(ctx context.Context, c Catalog, id string) (bool, error) {
	groups, err := c.AgeGroups(ctx)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		if g.ID == id {
			return true, nil
		}
	}
	return false, nil
}

const (
	keyEvents    = "events"
	keyAgeGroups = "age_groups"
)

// Cached is a read-through cache over a Source. Entries expire after the
// configured TTL; load errors are returned, never cached.
type Cached struct {
	source Source
	cache  *gocache.Cache
}

// NewCached builds a Cached catalog. A non-positive ttl falls back to ten
// minutes.
func NewCached(source Source, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{
		source: source,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

// Events returns the active events.
func (c *Cached) Events(ctx context.Context) ([]model.Event, error) {
	return readThrough(c.cache, keyEvents, func() ([]model.Event, error) {
		return c.source.ListEvents(ctx)
	})
}

// AgeGroups returns the active age groups.
func (c *Cached) AgeGroups(ctx context.Context) ([]model.AgeGroup, error) {
	return readThrough(c.cache, keyAgeGroups, func() ([]model.AgeGroup, error) {
		return c.source.ListAgeGroups(ctx)
	})
}

// Invalidate drops cached entries so the next read hits the source.
func (c *Cached) Invalidate() {
	c.cache.Flush()
}

func readThrough[V any](cache *gocache.Cache, key string, load func() ([]V, error)) ([]V, error) {
	if v, found := cache.Get(key); found {
		if items, ok := v.([]V); ok {
			return items, nil
		}
	}
	items, err := load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	cache.SetDefault(key, items)
	return items, nil
}
