package types

// ResolvedDocument is the winner of a last-writer-wins resolution of a
// per-author replicated document (e.g. a kind 3 contact list) across
// relays. Tags are always those of the event with the maximum created_at
// seen before the fan-out completed.
type ResolvedDocument struct {
	Tags        [][]string
	CreatedAt   int64
	Diagnostics []RelayDiagnostic
}

// RelayDiagnostic records what one relay contributed to a document
// resolution. Retained for observability only; never affects the winner.
type RelayDiagnostic struct {
	Relay     string `json:"relay"`
	Responded bool   `json:"responded"`
	CreatedAt int64  `json:"created_at"`
	TagCount  int    `json:"tag_count"`
}
