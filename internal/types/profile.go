package types

// ProfileInfo contains user profile metadata (kind 0 content).
type ProfileInfo struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Nip05       string `json:"nip05,omitempty"`
	About       string `json:"about,omitempty"`
	Banner      string `json:"banner,omitempty"`
	Lud16       string `json:"lud16,omitempty"`
	Website     string `json:"website,omitempty"`
}

// ReactionsSummary contains aggregated reaction counts for one parent event.
type ReactionsSummary struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// RelayList is a user's kind 10002 relay list, split by read/write marker.
// Tags without a marker count as both.
type RelayList struct {
	Read  []string
	Write []string
}
