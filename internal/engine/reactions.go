package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"nostr-query/internal/metrics"
	"nostr-query/internal/relay"
	"nostr-query/internal/types"
)

// DefaultReactionLabel is what empty or bare "+" reaction content
// normalizes to.
const DefaultReactionLabel = "❤️"

// reactionEntry is the grouped view of all reactions referencing one
// parent event: counts per normalized label plus the reactor identities
// behind each label in first-seen order.
type reactionEntry struct {
	summary  types.ReactionsSummary
	reactors map[string][]string
}

// ReactionCache computes and memoizes reaction aggregates per parent
// event id, with the same single-flight guarantee as the profile cache.
// Owned by one page session.
type ReactionCache struct {
	engine *Engine
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[string]*reactionEntry
}

func newReactionCache(e *Engine) *ReactionCache {
	return &ReactionCache{
		engine:  e,
		entries: make(map[string]*reactionEntry),
	}
}

// CountsFor returns normalized label -> count for reactions referencing
// parentID. An unreachable relay set yields an empty map, not an error.
func (c *ReactionCache) CountsFor(ctx context.Context, relays []string, parentID string) (map[string]int, error) {
	entry, err := c.load(ctx, relays, parentID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(entry.summary.ByType))
	for label, n := range entry.summary.ByType {
		counts[label] = n
	}
	return counts, nil
}

// DetailsFor returns the reactor identities behind one normalized label,
// in first-seen order.
func (c *ReactionCache) DetailsFor(ctx context.Context, relays []string, parentID, label string) ([]string, error) {
	entry, err := c.load(ctx, relays, parentID)
	if err != nil {
		return nil, err
	}
	reactors := entry.reactors[NormalizeReactionLabel(label)]
	out := make([]string, len(reactors))
	copy(out, reactors)
	return out, nil
}

// Summary returns the cached total/by-type view, fetching if needed.
func (c *ReactionCache) Summary(ctx context.Context, relays []string, parentID string) (*types.ReactionsSummary, error) {
	entry, err := c.load(ctx, relays, parentID)
	if err != nil {
		return nil, err
	}
	s := entry.summary
	return &s, nil
}

func (c *ReactionCache) load(ctx context.Context, relays []string, parentID string) (*reactionEntry, error) {
	if parentID == "" {
		return nil, fmt.Errorf("%w: parent event id", ErrMissingTarget)
	}

	c.mu.RLock()
	entry, ok := c.entries[parentID]
	c.mu.RUnlock()
	if ok {
		metrics.CacheHits.Add(1)
		return entry, nil
	}
	metrics.CacheMisses.Add(1)

	if len(relays) == 0 {
		return &reactionEntry{
			summary:  types.ReactionsSummary{ByType: map[string]int{}},
			reactors: map[string][]string{},
		}, nil
	}

	v, err, _ := c.group.Do(parentID, func() (interface{}, error) {
		entry, err := c.fetch(ctx, relays, parentID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[parentID] = entry
		c.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*reactionEntry), nil
}

// fetch fans out for kind 7 events referencing parentID, deduplicates by
// the reaction event's own id (not by label), and groups by normalized
// label.
func (c *ReactionCache) fetch(ctx context.Context, relays []string, parentID string) (*reactionEntry, error) {
	filter := types.Filter{
		Kinds: []int{types.KindReaction},
		Tags:  map[string][]string{"e": {parentID}},
		Limit: 500,
	}

	entry := &reactionEntry{
		summary:  types.ReactionsSummary{ByType: map[string]int{}},
		reactors: map[string][]string{},
	}
	seen := NewSeenSet()

	_, err := c.engine.query(ctx, relays, filter, relay.WaitAll, func(evt types.Event) bool {
		if evt.Kind != types.KindReaction {
			return false
		}
		// The last "e" tag names the reacted-to event.
		if evt.LastTagValue("e") != parentID {
			return false
		}
		if !seen.Add(evt.ID) {
			return false
		}

		label := NormalizeReactionLabel(evt.Content)
		entry.summary.Total++
		entry.summary.ByType[label]++
		entry.reactors[label] = append(entry.reactors[label], evt.PubKey)
		return true
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// NormalizeReactionLabel maps empty and unparseable reaction content to
// the default like symbol; anything else passes through trimmed.
func NormalizeReactionLabel(content string) string {
	label := strings.TrimSpace(content)
	if label == "" || label == "+" {
		return DefaultReactionLabel
	}
	return label
}
