package relay

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"nostr-query/internal/types"
)

// errSessionTimeout marks a session that never saw EOSE before its
// deadline. It still counts as a completion for the fan-out.
var errSessionTimeout = errors.New("session timed out before EOSE")

// sessionOutcome is the terminal state of one endpoint session. Every
// session produces exactly one outcome, on every path.
type sessionOutcome struct {
	endpoint string
	events   int
	eose     bool
	err      error
	elapsed  time.Duration
}

// runSession opens one ephemeral subscription against one relay: dial,
// send ["REQ", subID, filter], deliver each decoded event, and return on
// EOSE, timeout, context cancellation, or transport failure. The
// connection is closed on all paths; a best-effort ["CLOSE", subID] is
// sent when the wire is still usable. A failed session never aborts the
// fan-out — it merely contributes zero events.
func runSession(ctx context.Context, endpoint string, filter types.Filter, timeout time.Duration, deliver func(types.Event)) sessionOutcome {
	start := time.Now()
	out := sessionOutcome{endpoint: endpoint}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		out.err = err
		out.elapsed = time.Since(start)
		slog.Debug("session dial failed", "relay", endpoint, "error", err)
		return out
	}
	defer conn.Close()

	// Unblock the read loop when the caller cancels (first-match hit or
	// view teardown). Closing the connection is the only way to interrupt
	// a blocked websocket read. The per-session timeout is enforced by the
	// read deadline below, not here: dialCtx's clock started before the
	// dial, so watching it would close the connection early and disguise
	// the timeout as a generic close error.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watcherDone:
		}
	}()

	subID := "sub-" + uuid.NewString()[:13]
	req := []interface{}{"REQ", subID, filter.ToRequest()}
	if err := conn.WriteJSON(req); err != nil {
		out.err = err
		out.elapsed = time.Since(start)
		slog.Debug("session REQ failed", "relay", endpoint, "error", err)
		return out
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			out.elapsed = time.Since(start)
			switch {
			case ctx.Err() != nil:
				// Caller cancelled; whatever arrived already counts.
			case isTimeoutErr(err):
				out.err = errSessionTimeout
			default:
				out.err = err
			}
			return out
		}

		env, err := decodeEnvelope(data)
		if err != nil {
			// Malformed frame: discard the message, keep the session.
			slog.Debug("session frame discarded", "relay", endpoint, "error", err)
			continue
		}

		switch msg := env.(type) {
		case EventMessage:
			if msg.SubscriptionID != subID {
				continue
			}
			evt := msg.Event
			evt.RelaysSeen = []string{endpoint}
			out.events++
			deliver(evt)

		case EOSEMessage:
			if msg.SubscriptionID != subID {
				continue
			}
			out.eose = true
			conn.WriteJSON([]interface{}{"CLOSE", subID})
			out.elapsed = time.Since(start)
			return out

		case ClosedMessage:
			if msg.SubscriptionID != subID {
				continue
			}
			out.elapsed = time.Since(start)
			slog.Debug("subscription closed by relay", "relay", endpoint, "reason", msg.Reason)
			return out

		case NoticeMessage:
			slog.Debug("relay notice", "relay", endpoint, "notice", msg.Message)

		case OKMessage:
			// Write acknowledgements are irrelevant to a read session.
		}
	}
}

func isTimeoutErr(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
