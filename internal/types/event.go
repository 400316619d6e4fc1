package types

// Event is a signed, content-addressed record as relayed over NIP-01.
// Events are immutable once observed; a newer event with the same semantic
// role supersedes an older one, nothing is mutated in place.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`

	// RelaysSeen records which relays delivered this event. Populated by
	// the session layer, never sent over the wire.
	RelaysSeen []string `json:"-"`
}

// Event kinds used by the engine.
const (
	KindProfile   = 0
	KindNote      = 1
	KindContacts  = 3
	KindDelete    = 5
	KindRepost    = 6
	KindReaction  = 7
	KindRelayList = 10002
)

// TagValues returns all values for the given tag name, in tag order.
func (e Event) TagValues(name string) []string {
	var values []string
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}

// LastTagValue returns the last value for the given tag name, or "" if
// absent. For "e" tags the last entry is conventionally the direct parent.
func (e Event) LastTagValue(name string) string {
	var value string
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			value = tag[1]
		}
	}
	return value
}

// References reports whether the event carries an "e" tag naming the given
// event ID. A relay-side #e filter match is necessary but not sufficient;
// callers re-check at the content level with this.
func (e Event) References(eventID string) bool {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == "e" && tag[1] == eventID {
			return true
		}
	}
	return false
}
