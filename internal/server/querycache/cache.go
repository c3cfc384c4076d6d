// Package querycache implements the keyed list cache that serves every
// entity page. Reads never block: Get returns the last known entry and
// triggers a fetch in the background when none has ever run. Invalidate
// marks an entry stale and schedules exactly one background refetch;
// invalidations arriving while a refetch is pending attach to the pending
// fetch instead of issuing a duplicate request (single-flight).
//
// Completions are sequence-stamped per key. A fetch result whose stamp is
// not newer than the last applied one is discarded, so a slow early fetch
// can never overwrite a later one.
package querycache

import (
	"context"
	"sync"
)

// FetchFunc loads the authoritative value for a key from the remote store.
type FetchFunc[V any] func(ctx context.Context, key string) (V, error)

// Entry is a point-in-time snapshot of one cache key.
//
// Data is only meaningful when HasData is true. Err holds the last fetch
// failure; a transient failure preserves the previous good Data.
type Entry[V any] struct {
	Data    V
	HasData bool
	Loading bool
	Err     error
}

type state[V any] struct {
	data    V
	hasData bool
	err     error

	inFlight   bool
	nextSeq    uint64
	appliedSeq uint64
}

// Cache is a process-wide keyed list cache. Only the cache itself mutates
// an entry's data, error and loading fields; callers read snapshots and
// request invalidation.
type Cache[V any] struct {
	mu      sync.Mutex
	fetch   FetchFunc[V]
	entries map[string]*state[V]

	// fetchDone, when set, is signalled after each completed fetch. Tests
	// use it to wait for background refetches deterministically.
	fetchDone chan string
}

// New builds a cache around the given fetch function.
func New[V any](fetch FetchFunc[V]) *Cache[V] {
	return &Cache[V]{
		fetch:   fetch,
		entries: make(map[string]*state[V]),
	}
}

// Get returns the current entry for key. The first Get for a key triggers
// a background fetch and reports a loading entry immediately.
func (c *Cache[V]) Get(ctx context.Context, key string) Entry[V] {
	c.mu.Lock()
	st, ok := c.entries[key]
	if !ok {
		st = &state[V]{}
		c.entries[key] = st
		c.startFetchLocked(ctx, key, st)
	}
	snapshot := Entry[V]{
		Data:    st.data,
		HasData: st.hasData,
		Loading: st.inFlight,
		Err:     st.err,
	}
	c.mu.Unlock()
	return snapshot
}

// Invalidate marks key stale and schedules a background refetch. While a
// refetch is pending, further invalidations coalesce into it.
func (c *Cache[V]) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	st, ok := c.entries[key]
	if !ok {
		st = &state[V]{}
		c.entries[key] = st
	}
	if !st.inFlight {
		c.startFetchLocked(ctx, key, st)
	}
	c.mu.Unlock()
}

// startFetchLocked launches one background fetch for key. Callers must
// hold c.mu. The fetch outlives the triggering call: Get and Invalidate
// are typically invoked from request handlers whose context is canceled
// as soon as the response is written, and a refetch must still land.
func (c *Cache[V]) startFetchLocked(ctx context.Context, key string, st *state[V]) {
	st.inFlight = true
	st.nextSeq++
	seq := st.nextSeq

	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		v, err := c.fetch(fetchCtx, key)
		c.apply(key, seq, v, err)
		if c.fetchDone != nil {
			c.fetchDone <- key
		}
	}()
}

// apply installs a fetch result unless a newer one has already been
// applied for the key. On failure the previous good data is preserved.
func (c *Cache[V]) apply(key string, seq uint64, v V, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.entries[key]
	if !ok {
		return
	}
	if seq == st.nextSeq {
		st.inFlight = false
	}
	if seq <= st.appliedSeq {
		return
	}
	st.appliedSeq = seq

	if err != nil {
		st.err = err
		return
	}
	st.data = v
	st.hasData = true
	st.err = nil
}
