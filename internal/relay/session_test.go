package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nostr-query/internal/types"
)

func TestSessionDeliversEventsAndCompletesOnEOSE(t *testing.T) {
	relay := newFakeRelay(t, []types.Event{testEvent("e1", 100), testEvent("e2", 90)}, true)

	var got []types.Event
	out := runSession(context.Background(), relay.URL(), types.Filter{Limit: 10}, 2*time.Second, func(evt types.Event) {
		got = append(got, evt)
	})

	require.NoError(t, out.err)
	assert.True(t, out.eose)
	assert.Equal(t, 2, out.events)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, []string{relay.URL()}, got[0].RelaysSeen)

	// The CLOSE is written right before the session returns; give the
	// server a moment to read it.
	require.Eventually(t, relay.gotClose, time.Second, 10*time.Millisecond)
}

func TestSessionSkipsMalformedFrames(t *testing.T) {
	relay := newFakeRelay(t, []types.Event{testEvent("good", 50)}, true)
	relay.rawFrames = []string{
		`not json at all`,
		`"just a string"`,
		`["EVENT"]`,
		`["EVENT", "sub", {"created_at": "not-a-number"}]`,
		`["WEIRD", "sub"]`,
	}

	var got []types.Event
	out := runSession(context.Background(), relay.URL(), types.Filter{}, 2*time.Second, func(evt types.Event) {
		got = append(got, evt)
	})

	require.NoError(t, out.err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].ID)
}

func TestSessionIgnoresForeignSubscriptionIDs(t *testing.T) {
	relay := newFakeRelay(t, []types.Event{testEvent("e1", 100)}, true)
	relay.foreign = true

	var got []types.Event
	out := runSession(context.Background(), relay.URL(), types.Filter{}, 500*time.Millisecond, func(evt types.Event) {
		got = append(got, evt)
	})

	// The foreign EOSE never completes the session either; it times out.
	assert.ErrorIs(t, out.err, errSessionTimeout)
	assert.Empty(t, got)
}

func TestSessionTimesOutWithoutEOSE(t *testing.T) {
	relay := newFakeRelay(t, []types.Event{testEvent("e1", 100)}, false)

	var got []types.Event
	start := time.Now()
	out := runSession(context.Background(), relay.URL(), types.Filter{}, 300*time.Millisecond, func(evt types.Event) {
		got = append(got, evt)
	})

	assert.ErrorIs(t, out.err, errSessionTimeout)
	assert.Len(t, got, 1, "events before the timeout still count")
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 2*time.Second)
	// The read deadline ends the session, not a premature connection
	// close: the full per-session budget must elapse after the REQ.
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
}

func TestSessionDialFailure(t *testing.T) {
	out := runSession(context.Background(), "ws://127.0.0.1:1", types.Filter{}, time.Second, func(types.Event) {
		t.Fatal("no events expected")
	})
	require.Error(t, out.err)
	assert.False(t, errors.Is(out.err, errSessionTimeout))
}

func TestSessionCancelledByCaller(t *testing.T) {
	relay := newFakeRelay(t, nil, false) // hangs after REQ, never answers

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out := runSession(ctx, relay.URL(), types.Filter{}, 10*time.Second, func(types.Event) {})

	require.NoError(t, out.err, "caller cancellation is a clean completion")
	assert.Less(t, time.Since(start), 2*time.Second)
}
