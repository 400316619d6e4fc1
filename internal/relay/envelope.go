package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"nostr-query/internal/types"
)

// Envelope is a decoded NIP-01 wire message. Frames are decoded exactly
// once at the session boundary into one of the typed variants below and
// never passed onward as untyped arrays.
type Envelope interface {
	label() string
}

// EventMessage is ["EVENT", subID, event].
type EventMessage struct {
	SubscriptionID string
	Event          types.Event
}

// EOSEMessage is ["EOSE", subID], the end-of-stored-events marker.
type EOSEMessage struct {
	SubscriptionID string
}

// OKMessage is ["OK", eventID, accepted, message], the relay's answer to
// a write-style request.
type OKMessage struct {
	EventID  string
	Accepted bool
	Reason   string
}

// ClosedMessage is ["CLOSED", subID, reason]: the relay terminated the
// subscription on its side.
type ClosedMessage struct {
	SubscriptionID string
	Reason         string
}

// NoticeMessage is ["NOTICE", message], human-readable relay chatter.
type NoticeMessage struct {
	Message string
}

func (EventMessage) label() string  { return "EVENT" }
func (EOSEMessage) label() string   { return "EOSE" }
func (OKMessage) label() string     { return "OK" }
func (ClosedMessage) label() string { return "CLOSED" }
func (NoticeMessage) label() string { return "NOTICE" }

var errMalformedFrame = errors.New("malformed relay frame")

// decodeEnvelope parses one inbound websocket frame. Unknown labels and
// short arrays return an error; the session skips them and keeps reading.
func decodeEnvelope(data []byte) (Envelope, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}
	if len(arr) < 2 {
		return nil, fmt.Errorf("%w: %d elements", errMalformedFrame, len(arr))
	}

	var label string
	if err := json.Unmarshal(arr[0], &label); err != nil {
		return nil, fmt.Errorf("%w: non-string label", errMalformedFrame)
	}

	switch label {
	case "EVENT":
		if len(arr) < 3 {
			return nil, fmt.Errorf("%w: EVENT without payload", errMalformedFrame)
		}
		var msg EventMessage
		if err := json.Unmarshal(arr[1], &msg.SubscriptionID); err != nil {
			return nil, fmt.Errorf("%w: EVENT sub id: %v", errMalformedFrame, err)
		}
		if err := json.Unmarshal(arr[2], &msg.Event); err != nil {
			return nil, fmt.Errorf("%w: EVENT payload: %v", errMalformedFrame, err)
		}
		if msg.Event.ID == "" {
			return nil, fmt.Errorf("%w: EVENT missing id", errMalformedFrame)
		}
		return msg, nil

	case "EOSE":
		var msg EOSEMessage
		if err := json.Unmarshal(arr[1], &msg.SubscriptionID); err != nil {
			return nil, fmt.Errorf("%w: EOSE sub id: %v", errMalformedFrame, err)
		}
		return msg, nil

	case "OK":
		if len(arr) < 3 {
			return nil, fmt.Errorf("%w: OK too short", errMalformedFrame)
		}
		var msg OKMessage
		if err := json.Unmarshal(arr[1], &msg.EventID); err != nil {
			return nil, fmt.Errorf("%w: OK event id: %v", errMalformedFrame, err)
		}
		if err := json.Unmarshal(arr[2], &msg.Accepted); err != nil {
			return nil, fmt.Errorf("%w: OK accepted flag: %v", errMalformedFrame, err)
		}
		if len(arr) >= 4 {
			json.Unmarshal(arr[3], &msg.Reason)
		}
		return msg, nil

	case "CLOSED":
		var msg ClosedMessage
		if err := json.Unmarshal(arr[1], &msg.SubscriptionID); err != nil {
			return nil, fmt.Errorf("%w: CLOSED sub id: %v", errMalformedFrame, err)
		}
		if len(arr) >= 3 {
			json.Unmarshal(arr[2], &msg.Reason)
		}
		return msg, nil

	case "NOTICE":
		var msg NoticeMessage
		if err := json.Unmarshal(arr[1], &msg.Message); err != nil {
			return nil, fmt.Errorf("%w: NOTICE body: %v", errMalformedFrame, err)
		}
		return msg, nil
	}

	return nil, fmt.Errorf("%w: unknown label %q", errMalformedFrame, label)
}
