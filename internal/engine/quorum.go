package engine

import (
	"context"
	"fmt"

	"nostr-query/internal/relay"
	"nostr-query/internal/types"
)

// CheckExists answers an existence question with OR-semantics across
// relays: true the instant any endpoint yields a qualifying event, false
// once every endpoint completes, fails, or times out. The relay-side #e
// filter match is necessary but not sufficient — acceptance re-checks at
// the content level that the event actually references targetID.
func (e *Engine) CheckExists(ctx context.Context, relays []string, targetID, scopeAuthor string, kinds []int) (bool, error) {
	if targetID == "" {
		return false, fmt.Errorf("%w: target event id", ErrMissingTarget)
	}
	if len(relays) == 0 {
		return false, nil
	}

	filter := types.Filter{
		Kinds: kinds,
		Tags:  map[string][]string{"e": {targetID}},
		Limit: 1,
	}
	if scopeAuthor != "" {
		filter.Authors = []string{scopeAuthor}
	}

	res, err := e.query(ctx, relays, filter, relay.FirstMatch, func(evt types.Event) bool {
		if !evt.References(targetID) {
			return false
		}
		if scopeAuthor != "" && evt.PubKey != scopeAuthor {
			return false
		}
		return len(kinds) == 0 || containsKind(kinds, evt.Kind)
	})
	if err != nil {
		return false, err
	}
	return res.Matched, nil
}

// IsRetracted reports whether any relay has seen a tombstone (kind 5)
// from the record's author referencing it.
func (e *Engine) IsRetracted(ctx context.Context, relays []string, eventID, author string) (bool, error) {
	return e.CheckExists(ctx, relays, eventID, author, []int{types.KindDelete})
}

// HasReactionBy reports whether the given author already reacted to the
// parent event, used to de-duplicate reactions before publishing.
func (e *Engine) HasReactionBy(ctx context.Context, relays []string, parentID, author string) (bool, error) {
	return e.CheckExists(ctx, relays, parentID, author, []int{types.KindReaction})
}

func containsKind(kinds []int, kind int) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
