package engine

import (
	"sync"

	"nostr-query/internal/types"
)

// Cursor tracks the monotonic non-increasing time boundary used to
// request the next older page. A stale fetch with a larger until may still
// reach relays, but its results never move the cursor forward in time.
type Cursor struct {
	mu    sync.Mutex
	until int64
	set   bool
}

// NewCursor returns an unset cursor (first page: no until bound).
func NewCursor() *Cursor {
	return &Cursor{}
}

// Until returns the current boundary for the next page request, or nil
// when no page has been fetched yet.
func (c *Cursor) Until() *int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		return nil
	}
	v := c.until
	return &v
}

// Advance folds a page of newly accepted events into the cursor:
// min(created_at) over the page, floored against the previous value.
// Returns the resulting boundary; an empty page leaves it unchanged.
func (c *Cursor) Advance(events []types.Event) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, evt := range events {
		if !c.set || evt.CreatedAt < c.until {
			c.until = evt.CreatedAt
			c.set = true
		}
	}
	return c.until
}

// Value returns the raw boundary (0 when unset).
func (c *Cursor) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.until
}
