package relay

import (
	"context"
	"log/slog"
	"time"

	"nostr-query/internal/health"
	"nostr-query/internal/metrics"
	"nostr-query/internal/types"
)

// CompletionPolicy controls when a fan-out resolves.
type CompletionPolicy int

const (
	// WaitAll resolves only after every endpoint completes or the overall
	// timeout elapses.
	WaitAll CompletionPolicy = iota
	// FirstMatch resolves as soon as any endpoint yields an accepted
	// event, cancelling the remaining sessions.
	FirstMatch
)

const (
	DefaultSessionTimeout = 4 * time.Second
	DefaultOverallTimeout = 8 * time.Second
)

// EndpointStatus is the per-relay outcome of one fan-out, kept for
// diagnostics and health tracking. It never affects the merged result.
type EndpointStatus struct {
	URL     string
	Events  int
	EOSE    bool
	Err     error
	Elapsed time.Duration
}

// Result is the merged outcome of a fan-out. Partial results are the
// normal case: endpoints that failed or timed out simply contributed
// nothing.
type Result struct {
	Events   []types.Event
	Statuses []EndpointStatus
	Matched  bool // a FirstMatch query found an accepted event
}

// Coordinator issues the same logical filter to N endpoints concurrently
// and merges the independently-arriving results into one view. Accepted
// events are forwarded in arrival order; callers needing chronological
// order sort by created_at afterwards.
type Coordinator struct {
	SessionTimeout time.Duration
	OverallTimeout time.Duration
	Health         *health.Store
}

// NewCoordinator returns a coordinator with the default timeouts.
func NewCoordinator(store *health.Store) *Coordinator {
	return &Coordinator{
		SessionTimeout: DefaultSessionTimeout,
		OverallTimeout: DefaultOverallTimeout,
		Health:         store,
	}
}

// Query fans the filter out to every endpoint. accept decides whether an
// arriving event enters the result (deduplication, content-level
// verification); it runs on the collection goroutine, so it may touch
// caller state without further locking. A nil accept admits everything.
//
// Zero endpoints resolve immediately with an empty result and no network
// activity. An invalid filter fails fast before any dial.
func (c *Coordinator) Query(ctx context.Context, endpoints []string, filter types.Filter, policy CompletionPolicy, accept func(types.Event) bool) (Result, error) {
	if err := filter.Validate(); err != nil {
		return Result{}, err
	}
	if len(endpoints) == 0 {
		return Result{}, nil
	}

	metrics.FanoutsTotal.Add(1)

	overall := c.OverallTimeout
	if overall <= 0 {
		overall = DefaultOverallTimeout
	}
	perSession := c.SessionTimeout
	if perSession <= 0 {
		perSession = DefaultSessionTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	eventChan := make(chan types.Event, 256)
	// Buffered to len(endpoints) so sessions never block reporting their
	// outcome, even after the collector stops listening.
	outcomes := make(chan sessionOutcome, len(endpoints))

	for _, endpoint := range endpoints {
		go func(url string) {
			outcomes <- runSession(ctx, url, filter, perSession, func(evt types.Event) {
				select {
				case eventChan <- evt:
				case <-ctx.Done():
				}
			})
		}(endpoint)
	}

	// Explicit pending(n) accounting: each completion decrements, zero
	// resolves the query with whatever accumulated.
	var res Result
	pending := len(endpoints)

collect:
	for pending > 0 {
		select {
		case evt := <-eventChan:
			if accept == nil || accept(evt) {
				res.Events = append(res.Events, evt)
				if policy == FirstMatch {
					res.Matched = true
					cancel()
				}
			}

		case out := <-outcomes:
			pending--
			c.record(&res, out)

		case <-ctx.Done():
			// Overall ceiling: resolve with the partial view. Sessions
			// unwind on their own; the outcomes buffer absorbs them.
			slog.Debug("fanout ceiling reached", "pending", pending, "events", len(res.Events))
			break collect
		}
	}

	// Events that were buffered when the last completion arrived still
	// belong to this query.
drain:
	for {
		select {
		case evt := <-eventChan:
			if accept == nil || accept(evt) {
				res.Events = append(res.Events, evt)
				if policy == FirstMatch {
					res.Matched = true
				}
			}
		default:
			break drain
		}
	}

	slog.Debug("fanout complete",
		"endpoints", len(endpoints),
		"responded", len(res.Statuses),
		"events", len(res.Events),
		"matched", res.Matched)
	return res, nil
}

func (c *Coordinator) record(res *Result, out sessionOutcome) {
	res.Statuses = append(res.Statuses, EndpointStatus{
		URL:     out.endpoint,
		Events:  out.events,
		EOSE:    out.eose,
		Err:     out.err,
		Elapsed: out.elapsed,
	})
	if out.err != nil {
		metrics.SessionsFailed.Add(1)
		if c.Health != nil {
			c.Health.RecordFailure(out.endpoint)
		}
		slog.Debug("session completed with error", "relay", out.endpoint, "error", out.err)
		return
	}
	if c.Health != nil {
		c.Health.RecordSuccess(out.endpoint, out.elapsed)
	}
}
