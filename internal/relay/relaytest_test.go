package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nostr-query/internal/types"
)

var testUpgrader = websocket.Upgrader{}

// fakeRelay is an in-process NIP-01 relay: on REQ it replays a scripted
// set of frames and optionally EOSE, then keeps reading so it can record
// the CLOSE the session is expected to send.
type fakeRelay struct {
	t *testing.T

	events    []types.Event
	rawFrames []string // sent verbatim before the events
	sendEOSE  bool
	delay     time.Duration // pause before answering a REQ
	foreign   bool          // answer with a wrong subscription id

	srv *httptest.Server

	mu            sync.Mutex
	reqCount      int
	closeReceived bool
}

func newFakeRelay(t *testing.T, events []types.Event, sendEOSE bool) *fakeRelay {
	f := &fakeRelay{t: t, events: events, sendEOSE: sendEOSE}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRelay) URL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeRelay) reqs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqCount
}

func (f *fakeRelay) gotClose() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeReceived
}

func (f *fakeRelay) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg []json.RawMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if len(msg) < 2 {
			continue
		}
		var label string
		json.Unmarshal(msg[0], &label)

		switch label {
		case "REQ":
			var subID string
			json.Unmarshal(msg[1], &subID)
			f.mu.Lock()
			f.reqCount++
			f.mu.Unlock()

			if f.delay > 0 {
				time.Sleep(f.delay)
			}
			answerID := subID
			if f.foreign {
				answerID = "someone-else"
			}
			for _, raw := range f.rawFrames {
				conn.WriteMessage(websocket.TextMessage, []byte(raw))
			}
			for _, evt := range f.events {
				conn.WriteJSON([]interface{}{"EVENT", answerID, evt})
			}
			if f.sendEOSE {
				conn.WriteJSON([]interface{}{"EOSE", answerID})
			}

		case "CLOSE":
			f.mu.Lock()
			f.closeReceived = true
			f.mu.Unlock()
		}
	}
}

func testEvent(id string, createdAt int64) types.Event {
	return types.Event{
		ID:        id,
		PubKey:    "pub-" + id,
		CreatedAt: createdAt,
		Kind:      types.KindNote,
		Tags:      [][]string{},
		Content:   "note " + id,
		Sig:       "sig-" + id,
	}
}
