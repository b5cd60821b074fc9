// Package cache is a keyed store for query results. Keys are semantic
// ("orders?status=PENDING&page=1"), values are whatever the query returned.
// Invalidation marks an entry stale but keeps the value, so views can show
// stale data while a refetch is pending or failing.
package cache

import (
	"context"
	"strings"
	"sync"
)

type entry struct {
	value any
	stale bool
}

type fetch struct {
	cancel context.CancelFunc
}

type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	inflight map[string]*fetch

	subMu   sync.Mutex
	subs    map[int]func(key string)
	nextSub int
}

func New() *Cache {
	return &Cache{
		entries:  make(map[string]*entry),
		inflight: make(map[string]*fetch),
		subs:     make(map[int]func(string)),
	}
}

// Get returns the cached value for key, stale or not.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Fresh reports whether key holds a value that does not need a refetch.
func (c *Cache) Fresh(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return ok && !e.stale
}

// Set stores a fresh value for key.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = &entry{value: value}
	c.mu.Unlock()
}

// Snapshot returns the current value for key so a mutation can restore it
// later. Callers treat cached values as immutable and patch copies, so the
// returned value is safe to hold across the mutation.
func (c *Cache) Snapshot(key string) (any, bool) {
	return c.Get(key)
}

// Invalidate marks key stale and tells subscribers a refetch is wanted.
// The value stays readable.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
	c.mu.Unlock()
	c.notify(key)
}

// InvalidatePrefix invalidates every entry whose key starts with prefix,
// then notifies subscribers once with the prefix itself. Used by the live
// feed, which only knows "some order changed".
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for k, e := range c.entries {
		if strings.HasPrefix(k, prefix) {
			e.stale = true
		}
	}
	c.mu.Unlock()
	c.notify(prefix)
}

// BeginFetch cancels any fetch already running for key and returns a context
// for the new one plus a release func. The previous fetch's context is
// cancelled so its late response cannot overwrite newer state. The release
// func only clears the slot if it still belongs to this fetch.
func (c *Cache) BeginFetch(parent context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	f := &fetch{cancel: cancel}
	c.mu.Lock()
	if prev, ok := c.inflight[key]; ok {
		prev.cancel()
	}
	c.inflight[key] = f
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		if c.inflight[key] == f {
			delete(c.inflight, key)
		}
		c.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// CancelInflight aborts a running fetch for key, if any.
func (c *Cache) CancelInflight(key string) {
	c.mu.Lock()
	f, ok := c.inflight[key]
	if ok {
		delete(c.inflight, key)
	}
	c.mu.Unlock()
	if ok {
		f.cancel()
	}
}

// Subscribe registers fn to run after every invalidation. The returned
// function removes the subscription.
func (c *Cache) Subscribe(fn func(key string)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Cache) notify(key string) {
	c.subMu.Lock()
	fns := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}
