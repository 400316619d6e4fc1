package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nostr-query/internal/cache"
	"nostr-query/internal/config"
	"nostr-query/internal/engine"
	"nostr-query/internal/health"
	"nostr-query/internal/metrics"
)

var (
	flagRelays         []string
	flagConfig         string
	flagSessionTimeout time.Duration
	flagOverallTimeout time.Duration
	flagRedis          string
	flagShowStats      bool

	relaysCfg   *config.RelaysConfig
	healthStore *health.Store
	eng         *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "nostrq",
	Short: "Query and merge events across a set of Nostr relays",
	Long: `nostrq fans queries out to a list of relays, merges the
partially-overlapping results into one deduplicated view, and exposes
consistency primitives: latest-revision resolution, existence checks,
watermark polling, and reaction aggregation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		relaysCfg = config.Load(flagConfig)
		healthStore = health.NewStore()

		opts := engine.Options{
			SessionTimeout: flagSessionTimeout,
			OverallTimeout: flagOverallTimeout,
			Health:         healthStore,
		}
		if flagRedis != "" {
			backend, err := cache.NewRedis(flagRedis, os.Getenv("REDIS_PASSWORD"), 0)
			if err != nil {
				return fmt.Errorf("profile cache backend: %w", err)
			}
			opts.ProfileBackend = backend
		}
		eng = engine.New(opts)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if flagShowStats {
			metrics.WritePrometheus(os.Stderr)
			for _, h := range healthStore.Snapshot() {
				fmt.Fprintf(os.Stderr, "relay %s healthy=%v ok=%d fail=%d avg=%dms\n",
					h.URL, h.Healthy, h.Successes, h.Failures, h.AvgResponseMs)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&flagRelays, "relays", "r", nil,
		"relay URLs to query (default: relays config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"path to relays config JSON")
	rootCmd.PersistentFlags().DurationVar(&flagSessionTimeout, "session-timeout", 0,
		"per-relay session timeout (default 4s)")
	rootCmd.PersistentFlags().DurationVar(&flagOverallTimeout, "timeout", 0,
		"overall operation ceiling (default 8s)")
	rootCmd.PersistentFlags().StringVar(&flagRedis, "redis", "",
		"redis address for a shared profile cache (optional)")
	rootCmd.PersistentFlags().BoolVar(&flagShowStats, "stats", false,
		"print engine metrics and relay health to stderr on exit")
}

// relays returns the effective relay list for a command.
func relays() []string {
	if len(flagRelays) > 0 {
		return flagRelays
	}
	return relaysCfg.DefaultRelays
}

func profileRelays() []string {
	if len(flagRelays) > 0 {
		return flagRelays
	}
	return relaysCfg.ProfileRelays
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
