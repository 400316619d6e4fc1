package config

import (
	"encoding/json"
	"log/slog"
	"os"
)

// RelaysConfig holds the externally supplied relay lists. The engine does
// not own relay selection; this is the default wiring for the CLI.
type RelaysConfig struct {
	DefaultRelays []string `json:"defaultRelays"`
	ProfileRelays []string `json:"profileRelays"`
	IndexerRelays []string `json:"indexerRelays"`
}

// Load reads the relays configuration. Resolution order: explicit path,
// RELAYS_CONFIG env var, config/relays.json, embedded defaults. A missing
// or invalid file degrades to defaults with a log line, never an error.
func Load(path string) *RelaysConfig {
	if path == "" {
		path = os.Getenv("RELAYS_CONFIG")
	}
	if path == "" {
		path = "config/relays.json"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("relays config not found, using defaults", "path", path)
		} else {
			slog.Warn("could not read relays config, using defaults", "path", path, "error", err)
		}
		return Default()
	}

	var cfg RelaysConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Error("invalid JSON in relays config, using defaults", "path", path, "error", err)
		return Default()
	}
	if len(cfg.DefaultRelays) == 0 {
		cfg.DefaultRelays = Default().DefaultRelays
	}
	if len(cfg.ProfileRelays) == 0 {
		cfg.ProfileRelays = cfg.DefaultRelays
	}
	if len(cfg.IndexerRelays) == 0 {
		cfg.IndexerRelays = Default().IndexerRelays
	}

	slog.Info("loaded relays configuration",
		"path", path,
		"default", len(cfg.DefaultRelays),
		"profile", len(cfg.ProfileRelays),
		"indexer", len(cfg.IndexerRelays))
	return &cfg
}

// Default returns the embedded relay lists.
func Default() *RelaysConfig {
	return &RelaysConfig{
		DefaultRelays: []string{
			"wss://relay.damus.io",
			"wss://relay.nostr.band",
			"wss://relay.primal.net",
			"wss://nos.lol",
			"wss://nostr.mom",
		},
		ProfileRelays: []string{
			"wss://purplepag.es",
			"wss://relay.damus.io",
			"wss://relay.nostr.band",
		},
		IndexerRelays: []string{
			"wss://purplepag.es",
			"wss://relay.nostr.band",
			"wss://relay.damus.io",
		},
	}
}
