// Copyright 2025 The conduit authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package router provides the consumer side of the binding layer's cache-key
// contract: a service cache that shares services bound under reusable router
// keys and builds a fresh service per request for single-use keys.
package router

import (
	"context"
	"errors"
	"net/netip"
	"sync"

	"github.com/PaulMaddox/conduit"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

var errCacheClosed = errors.New("router cache is closed")

// Binder produces a service for a destination address. It is satisfied by
// [conduit.BindProtocol]; the discovery layer registers one Binder per
// protocol observed on the wire.
type Binder interface {
	Bind(addr netip.AddrPort) (conduit.Service, error)
}

// Cache caches bound services keyed by reusable [conduit.RouterKey] values.
// Single-use keys are never inserted into or retrieved from the cache; every
// request under such a key gets a freshly bound service. A service evicted
// for capacity has its idle connections closed in the background.
type Cache struct {
	binder Binder

	mu sync.Mutex
	// +checklocks:mu
	services *lru.Cache[conduit.RouterKey, conduit.Service]
	// +checklocks:mu
	closing bool
}

// NewCache creates a Cache over binder holding at most capacity reusable
// services.
func NewCache(binder Binder, capacity int) (*Cache, error) {
	cache := &Cache{binder: binder}
	services, err := lru.NewWithEvict(capacity, func(_ conduit.RouterKey, svc conduit.Service) {
		// Fires under mu, from Add in Route or from Purge in Close. Close
		// tears down the services it collected itself; capacity evictions
		// are torn down here, off the caller's path.
		if !cache.closing {
			go svc.CloseIdleConnections()
		}
	})
	if err != nil {
		return nil, err
	}
	cache.services = services
	return cache, nil
}

// Route returns the service for key. Reusable keys are served from the
// cache, binding and inserting on miss; single-use keys always bind a fresh
// service and bypass the cache entirely.
func (c *Cache) Route(key conduit.RouterKey) (conduit.Service, error) {
	if !key.Reusable() {
		return c.binder.Bind(key.Target.Addr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return nil, errCacheClosed
	}
	if svc, ok := c.services.Get(key); ok {
		return svc, nil
	}
	svc, err := c.binder.Bind(key.Target.Addr)
	if err != nil {
		return nil, err
	}
	c.services.Add(key, svc)
	return svc, nil
}

// Len returns the number of cached services.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.services.Len()
}

// Close tears down every cached service concurrently and marks the cache
// closed. Subsequent Route calls for reusable keys fail. Close is
// idempotent.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	keys := c.services.Keys()
	cached := make([]conduit.Service, 0, len(keys))
	for _, key := range keys {
		if svc, ok := c.services.Peek(key); ok {
			cached = append(cached, svc)
		}
	}
	c.services.Purge()
	c.mu.Unlock()

	grp, _ := errgroup.WithContext(context.Background())
	for _, svc := range cached {
		svc := svc
		grp.Go(func() error {
			svc.CloseIdleConnections()
			return nil
		})
	}
	return grp.Wait()
}
