// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package roster caches the live "who is at which park" view.
package roster

import (
	"context"
	"sync"
	"time"

	"github.com/millwardesque/parkbench/internal/models"
)

// DefaultTTL is how long a roster snapshot stays fresh. The roster is a
// shared view, so a single slot covers all users.
const DefaultTTL = 5 * time.Second

// Loader recomputes the roster from storage.
type Loader func(ctx context.Context) ([]models.ParkWithVisitors, error)

// Cache is a single-slot read-through cache over the roster aggregate.
// Reads that observe a missing or expired snapshot always recompute before
// returning, and Invalidate just clears the slot, so the cache can never
// serve stale data forever.
type Cache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	snapshot  []models.ParkWithVisitors
	fetchedAt time.Time
	valid     bool
}

// New creates a cache over the given loader. A non-positive ttl falls back
// to DefaultTTL.
func New(loader Loader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the cached roster, recomputing it when the snapshot is absent
// or older than the TTL. A failed recompute leaves the slot empty so the
// next read retries.
func (c *Cache) Get(ctx context.Context) ([]models.ParkWithVisitors, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.snapshot, nil
	}

	fresh, err := c.loader(ctx)
	if err != nil {
		c.valid = false
		return nil, err
	}

	c.snapshot = fresh
	c.fetchedAt = c.now()
	c.valid = true
	return fresh, nil
}

// Invalidate clears the snapshot so the next Get recomputes. Mutations call
// this unconditionally; an extra recompute is always preferred over stale
// data.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
	c.valid = false
	c.fetchedAt = time.Time{}
}
