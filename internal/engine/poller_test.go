package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nostr-query/internal/relay"
	"nostr-query/internal/types"
)

func TestPollerNotifiesOnFreshEvents(t *testing.T) {
	e := stubEngine(scriptedQuery(map[string][]types.Event{
		"A": {note("fresh", "alice", 1050)},
	}, nil))

	var gotCount int
	var gotWatermark int64
	p := newPoller(e, context.Background(), NewSeenSet(), PollerConfig{
		Relays:    []string{"A"},
		Authors:   []string{"alice"},
		Watermark: 1000,
		Notify: func(newCount int, watermark int64) {
			gotCount = newCount
			gotWatermark = watermark
		},
	})

	p.poll(context.Background())
	assert.Equal(t, 1, gotCount)
	assert.Equal(t, int64(1050), gotWatermark)
	assert.Equal(t, int64(1050), p.Watermark())
}

func TestPollerSkipsAlreadySeen(t *testing.T) {
	seen := NewSeenSet()
	seen.Add("old")
	e := stubEngine(scriptedQuery(map[string][]types.Event{
		"A": {note("old", "alice", 1050)},
	}, nil))

	notified := false
	p := newPoller(e, context.Background(), seen, PollerConfig{
		Relays:    []string{"A"},
		Authors:   []string{"alice"},
		Watermark: 1000,
		Notify:    func(int, int64) { notified = true },
	})

	p.poll(context.Background())
	assert.False(t, notified, "replayed events are not news")
	assert.Equal(t, int64(1050), p.Watermark(), "the boundary still narrows")
}

func TestPollerEmptyCycleKeepsWatermark(t *testing.T) {
	e := stubEngine(scriptedQuery(map[string][]types.Event{"A": nil}, nil))
	notified := false
	p := newPoller(e, context.Background(), NewSeenSet(), PollerConfig{
		Relays:    []string{"A"},
		Watermark: 1000,
		Notify:    func(int, int64) { notified = true },
	})

	p.poll(context.Background())
	assert.False(t, notified)
	assert.Equal(t, int64(1000), p.Watermark())
}

func TestPollerQueriesSinceWatermark(t *testing.T) {
	var gotSince *int64
	e := stubEngine(func(ctx context.Context, endpoints []string, filter types.Filter, policy relay.CompletionPolicy, accept func(types.Event) bool) (relay.Result, error) {
		gotSince = filter.Since
		return relay.Result{}, nil
	})
	p := newPoller(e, context.Background(), NewSeenSet(), PollerConfig{
		Relays:    []string{"A"},
		Watermark: 1234,
	})

	p.poll(context.Background())
	require.NotNil(t, gotSince)
	assert.Equal(t, int64(1234), *gotSince)
}

func TestPollerStartIdempotentAndStopHalts(t *testing.T) {
	var cycles atomic.Int64
	e := stubEngine(func(ctx context.Context, endpoints []string, filter types.Filter, policy relay.CompletionPolicy, accept func(types.Event) bool) (relay.Result, error) {
		cycles.Add(1)
		return relay.Result{}, nil
	})
	p := newPoller(e, context.Background(), NewSeenSet(), PollerConfig{
		Relays:   []string{"A"},
		Interval: 10 * time.Millisecond,
	})

	p.Start()
	p.Start() // second call must not double the interval
	assert.True(t, p.Running())

	require.Eventually(t, func() bool { return cycles.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())
	p.Stop() // idempotent too

	after := cycles.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, cycles.Load(), after+1, "at most one straggling cycle after stop")
}

func TestPageSessionPollerPerAuthorSet(t *testing.T) {
	e := stubEngine(scriptedQuery(nil, nil))
	session := e.NewPageSession()
	defer session.Close()

	p1 := session.NewPoller(PollerConfig{Authors: []string{"alice", "bob"}})
	p2 := session.NewPoller(PollerConfig{Authors: []string{"bob", "alice"}})
	p3 := session.NewPoller(PollerConfig{Authors: []string{"carol"}})

	assert.Same(t, p1, p2, "author order does not make a new poller")
	assert.NotSame(t, p1, p3)
}

func TestPageSessionCloseStopsPollers(t *testing.T) {
	e := stubEngine(scriptedQuery(nil, nil))
	session := e.NewPageSession()

	p := session.NewPoller(PollerConfig{Authors: []string{"alice"}, Interval: 10 * time.Millisecond})
	p.Start()
	require.True(t, p.Running())

	session.Close()
	assert.False(t, p.Running())
}
