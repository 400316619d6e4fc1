package engine

import (
	"sort"
	"sync"

	"nostr-query/internal/metrics"
	"nostr-query/internal/types"
)

// Aggregator merges events arriving from multiple sessions by identity,
// discarding repeats and preserving first-seen order. No chronological
// guarantee is imposed here: arrival order across relays is arbitrary.
type Aggregator struct {
	seen    *SeenSet
	forward func(types.Event)

	mu     sync.Mutex
	events []types.Event
}

// NewAggregator builds an aggregator over the given seen-set. forward, if
// non-nil, receives each accepted event exactly once (e.g. a renderer).
func NewAggregator(seen *SeenSet, forward func(types.Event)) *Aggregator {
	return &Aggregator{seen: seen, forward: forward}
}

// Add accepts the event iff its id has not been seen. SeenSet.Add is the
// atomic claim, so two endpoints delivering the same id concurrently
// forward it exactly once.
func (a *Aggregator) Add(evt types.Event) bool {
	if !a.seen.Add(evt.ID) {
		metrics.EventsDuplicate.Add(1)
		return false
	}
	metrics.EventsAccepted.Add(1)

	a.mu.Lock()
	a.events = append(a.events, evt)
	a.mu.Unlock()

	if a.forward != nil {
		a.forward(evt)
	}
	return true
}

// Events returns the accepted events in first-seen order.
func (a *Aggregator) Events() []types.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.Event, len(a.events))
	copy(out, a.events)
	return out
}

// SortByCreatedAtDesc orders events newest first, breaking created_at
// ties by ID descending so repeated sorts are stable across relays.
func SortByCreatedAtDesc(events []types.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt != events[j].CreatedAt {
			return events[i].CreatedAt > events[j].CreatedAt
		}
		return events[i].ID > events[j].ID
	})
}
