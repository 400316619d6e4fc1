package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"nostr-query/internal/cache"
	"nostr-query/internal/metrics"
	"nostr-query/internal/relay"
	"nostr-query/internal/types"
	"nostr-query/internal/util"
)

const profileBackendTTL = 15 * time.Minute

// ProfileCache resolves and memoizes per-author kind 0 metadata. It is
// owned by one page session, never module-global, so a view teardown
// discards it wholesale.
//
// Invariants: at most one outstanding fan-out per pubkey regardless of
// concurrent callers (singleflight); "no profile found" is cached as an
// explicit nil so absent profiles are not re-fetched; every population
// fires the registered observers — rendered views subscribe instead of
// polling.
type ProfileCache struct {
	engine  *Engine
	backend cache.Backend
	group   singleflight.Group

	mu        sync.RWMutex
	entries   map[string]*types.ProfileInfo // nil value = known absent
	observers []func(pubkey string, profile *types.ProfileInfo)
}

func newProfileCache(e *Engine, backend cache.Backend) *ProfileCache {
	return &ProfileCache{
		engine:  e,
		backend: backend,
		entries: make(map[string]*types.ProfileInfo),
	}
}

// OnResolve registers an observer notified on every cache population,
// including negative ones. Callbacks run on the resolving goroutine and
// must not block.
func (c *ProfileCache) OnResolve(fn func(pubkey string, profile *types.ProfileInfo)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Get returns the profile for pubkey: synchronously on a cache hit,
// otherwise via a shared single-flight fan-out. Returns nil both for "no
// profile exists" and for an empty relay list (no network attempted).
func (c *ProfileCache) Get(ctx context.Context, relays []string, pubkey string) *types.ProfileInfo {
	if pubkey == "" {
		return nil
	}

	c.mu.RLock()
	profile, ok := c.entries[pubkey]
	c.mu.RUnlock()
	if ok {
		metrics.CacheHits.Add(1)
		return profile
	}

	if c.backend != nil {
		if profile, found, err := c.backend.GetProfile(ctx, pubkey); err == nil && found {
			metrics.CacheHits.Add(1)
			c.populate(ctx, pubkey, profile, false)
			return profile
		}
	}

	metrics.CacheMisses.Add(1)
	if len(relays) == 0 {
		return nil
	}

	// Late callers for the same pubkey wait on the in-flight fetch and
	// share its result rather than issuing a duplicate query.
	v, _, _ := c.group.Do(pubkey, func() (interface{}, error) {
		profile := c.fetch(ctx, relays, pubkey)
		c.populate(ctx, pubkey, profile, true)
		return profile, nil
	})
	profile, _ = v.(*types.ProfileInfo)
	return profile
}

// Peek returns the cached entry without fetching. The second result
// reports whether the pubkey has been resolved at all.
func (c *ProfileCache) Peek(pubkey string) (*types.ProfileInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	profile, ok := c.entries[pubkey]
	return profile, ok
}

// fetch runs the wait-for-all fan-out and keeps the newest revision.
func (c *ProfileCache) fetch(ctx context.Context, relays []string, pubkey string) *types.ProfileInfo {
	filter := types.Filter{
		Authors: []string{pubkey},
		Kinds:   []int{types.KindProfile},
		Limit:   4,
	}

	var newest *types.Event
	_, err := c.engine.query(ctx, relays, filter, relay.WaitAll, func(evt types.Event) bool {
		if evt.PubKey != pubkey || evt.Kind != types.KindProfile {
			return false
		}
		if newest == nil || evt.CreatedAt >= newest.CreatedAt {
			e := evt
			newest = &e
		}
		return true
	})
	if err != nil {
		slog.Debug("profile fetch failed", "pubkey", util.ShortID(pubkey), "error", err)
		return nil
	}
	if newest == nil {
		return nil
	}
	return parseProfile(newest.Content)
}

func (c *ProfileCache) populate(ctx context.Context, pubkey string, profile *types.ProfileInfo, writeBackend bool) {
	c.mu.Lock()
	c.entries[pubkey] = profile
	observers := make([]func(string, *types.ProfileInfo), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	if writeBackend && c.backend != nil {
		c.backend.SetProfile(ctx, pubkey, profile, profileBackendTTL)
	}
	for _, fn := range observers {
		fn(pubkey, profile)
	}
}

// parseProfile decodes kind 0 content. Malformed payloads are "no
// profile", never an error.
func parseProfile(content string) *types.ProfileInfo {
	var profile types.ProfileInfo
	if err := json.Unmarshal([]byte(content), &profile); err != nil {
		return nil
	}
	return &profile
}

// GetMany resolves several pubkeys concurrently through the same cache,
// returning only the ones that resolved to a profile.
func (c *ProfileCache) GetMany(ctx context.Context, relays []string, pubkeys []string) map[string]*types.ProfileInfo {
	if len(pubkeys) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	out := make(map[string]*types.ProfileInfo)
	for _, pk := range util.SortedCopy(pubkeys) {
		wg.Add(1)
		go func(pubkey string) {
			defer wg.Done()
			if profile := c.Get(ctx, relays, pubkey); profile != nil {
				mu.Lock()
				out[pubkey] = profile
				mu.Unlock()
			}
		}(pk)
	}
	wg.Wait()
	return out
}
