package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nostr-query/internal/cache"
	"nostr-query/internal/health"
	"nostr-query/internal/metrics"
	"nostr-query/internal/relay"
	"nostr-query/internal/types"
)

// queryFunc is the fan-out primitive every higher-level operation is
// layered on. Tests substitute it to drive the engine without a network.
type queryFunc func(ctx context.Context, endpoints []string, filter types.Filter, policy relay.CompletionPolicy, accept func(types.Event) bool) (relay.Result, error)

// Engine is the multi-relay query and consistency engine. It owns no
// event storage: every operation is a fresh fan-out whose results live
// only as long as the caller keeps them.
type Engine struct {
	coordinator *relay.Coordinator
	query       queryFunc

	retryAttempts  int
	retryBackoff   time.Duration
	profileBackend cache.Backend
}

// Options configures an Engine. Zero values take the defaults noted.
type Options struct {
	SessionTimeout time.Duration // per-endpoint, default 4s
	OverallTimeout time.Duration // per-operation ceiling, default 8s
	RetryAttempts  int           // by-id lookups, default 3
	RetryBackoff   time.Duration // between retries, default 300ms
	Health         *health.Store
	ProfileBackend cache.Backend // optional shared profile store
}

// ErrMissingTarget is returned for caller misuse: operations that resolve
// a specific record were handed an empty identifier.
var ErrMissingTarget = errors.New("missing target identifier")

// New builds an engine.
func New(opts Options) *Engine {
	co := relay.NewCoordinator(opts.Health)
	if opts.SessionTimeout > 0 {
		co.SessionTimeout = opts.SessionTimeout
	}
	if opts.OverallTimeout > 0 {
		co.OverallTimeout = opts.OverallTimeout
	}

	e := &Engine{
		coordinator:    co,
		retryAttempts:  opts.RetryAttempts,
		retryBackoff:   opts.RetryBackoff,
		profileBackend: opts.ProfileBackend,
	}
	if e.retryAttempts <= 0 {
		e.retryAttempts = 3
	}
	if e.retryBackoff <= 0 {
		e.retryBackoff = 300 * time.Millisecond
	}
	e.query = co.Query
	return e
}

// FetchEventByID resolves one specific event by id. A single relay race
// can plausibly miss a record a repeat query finds, so this is retried a
// bounded number of times with a fixed backoff — unlike page fetches,
// where the next user-driven request is the retry.
func (e *Engine) FetchEventByID(ctx context.Context, relays []string, id string) (*types.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: event id", ErrMissingTarget)
	}
	if len(relays) == 0 {
		return nil, nil
	}

	filter := types.Filter{IDs: []string{id}, Limit: 1}

	for attempt := 0; attempt < e.retryAttempts; attempt++ {
		if attempt > 0 {
			metrics.RetriesTotal.Add(1)
			select {
			case <-time.After(e.retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var found *types.Event
		_, err := e.query(ctx, relays, filter, relay.FirstMatch, func(evt types.Event) bool {
			if evt.ID != id {
				return false
			}
			found = &evt
			return true
		})
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

// PageSession owns the per-view mutable state: the seen-set, the page
// cursor, and the enrichment caches. It is constructed at view entry and
// closed at view exit; Close cancels every fan-out still in flight so
// late results cannot leak into a superseded view.
type PageSession struct {
	engine *Engine
	ctx    context.Context
	cancel context.CancelFunc

	seen      *SeenSet
	cursor    *Cursor
	profiles  *ProfileCache
	reactions *ReactionCache
	pollers   *pollerRegistry
}

// NewPageSession creates the state for one logical view.
func (e *Engine) NewPageSession() *PageSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &PageSession{
		engine:    e,
		ctx:       ctx,
		cancel:    cancel,
		seen:      NewSeenSet(),
		cursor:    NewCursor(),
		profiles:  newProfileCache(e, e.profileBackend),
		reactions: newReactionCache(e),
		pollers:   newPollerRegistry(),
	}
}

// Close tears the view down: all pollers stop and every in-flight
// endpoint session belonging to this view is cancelled.
func (s *PageSession) Close() {
	s.pollers.stopAll()
	s.cancel()
}

// scope derives an operation context cancelled by either the caller or
// the session teardown.
func (s *PageSession) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	child, cancel := context.WithCancel(s.ctx)
	if ctx == nil {
		return child, cancel
	}
	stop := context.AfterFunc(ctx, cancel)
	return child, func() {
		stop()
		cancel()
	}
}

// FetchPage runs one page fetch: a wait-for-all fan-out bounded above by
// the session cursor, deduplicated against the session seen-set, sorted
// newest first. Returns the page and the new cursor boundary. Partial
// results from a degraded relay set are normal, not an error.
func (s *PageSession) FetchPage(ctx context.Context, relays []string, filter types.Filter) ([]types.Event, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, s.cursor.Value(), err
	}
	if len(relays) == 0 {
		return nil, s.cursor.Value(), nil
	}

	// The cursor supplies the upper bound unless the caller pinned one.
	if filter.Until == nil {
		filter.Until = s.cursor.Until()
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	agg := NewAggregator(s.seen, nil)
	_, err := s.engine.query(ctx, relays, filter, relay.WaitAll, func(evt types.Event) bool {
		if !filter.Matches(evt) {
			return false
		}
		return agg.Add(evt)
	})
	if err != nil {
		return nil, s.cursor.Value(), err
	}

	// The merged page may exceed filter.Limit when several relays each
	// honor the limit independently. Everything accepted is returned:
	// accepted events are already in the session seen-set and folded into
	// the cursor, so dropping any here would lose them for good.
	page := agg.Events()
	newCursor := s.cursor.Advance(page)
	SortByCreatedAtDesc(page)
	return page, newCursor, nil
}

// GetProfile resolves per-author metadata through the session cache.
func (s *PageSession) GetProfile(ctx context.Context, relays []string, pubkey string) *types.ProfileInfo {
	ctx, cancel := s.scope(ctx)
	defer cancel()
	return s.profiles.Get(ctx, relays, pubkey)
}

// Profiles exposes the cache for observer registration.
func (s *PageSession) Profiles() *ProfileCache { return s.profiles }

// ReactionCounts returns label -> count for reactions referencing parentID.
func (s *PageSession) ReactionCounts(ctx context.Context, relays []string, parentID string) (map[string]int, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()
	return s.reactions.CountsFor(ctx, relays, parentID)
}

// ReactionDetails returns the reactor identities behind one label.
func (s *PageSession) ReactionDetails(ctx context.Context, relays []string, parentID, label string) ([]string, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()
	return s.reactions.DetailsFor(ctx, relays, parentID, label)
}

// Seen exposes the session seen-set (the poller shares it).
func (s *PageSession) Seen() *SeenSet { return s.seen }

// Cursor exposes the session page cursor.
func (s *PageSession) Cursor() *Cursor { return s.cursor }
