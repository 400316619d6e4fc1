package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nostr-query/internal/engine"
	"nostr-query/internal/types"
)

var (
	flagInterval  time.Duration
	flagDuration  time.Duration
	flagWatermark int64
)

var watchCmd = &cobra.Command{
	Use:   "watch [pubkey...]",
	Short: "Poll for new notes after an initial page load",
	Long: `Fetches an initial page, then polls with since=watermark on a
fixed interval, reporting the count of newly observed events. Runs until
--for elapses or the process is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session := eng.NewPageSession()
		defer session.Close()

		filter := types.Filter{
			Authors: args,
			Kinds:   []int{types.KindNote},
			Limit:   20,
		}
		events, _, err := session.FetchPage(cmd.Context(), relays(), filter)
		if err != nil {
			return err
		}

		watermark := flagWatermark
		for _, evt := range events {
			if evt.CreatedAt > watermark {
				watermark = evt.CreatedAt
			}
		}
		fmt.Fprintf(os.Stderr, "initial page: %d events, watermark %d\n", len(events), watermark)

		poller := session.NewPoller(engine.PollerConfig{
			Relays:    relays(),
			Authors:   args,
			Interval:  flagInterval,
			Watermark: watermark,
			Notify: func(count int, watermark int64) {
				fmt.Printf("%d new events (watermark %d)\n", count, watermark)
			},
		})
		poller.Start()
		defer poller.Stop()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		if flagDuration > 0 {
			select {
			case <-stop:
			case <-time.After(flagDuration):
			case <-cmd.Context().Done():
			}
			return nil
		}
		select {
		case <-stop:
		case <-cmd.Context().Done():
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagInterval, "interval", 30*time.Second, "poll interval")
	watchCmd.Flags().DurationVar(&flagDuration, "for", 0, "stop after this duration (default: until interrupted)")
	watchCmd.Flags().Int64Var(&flagWatermark, "watermark", 0, "starting watermark (default: max created_at of the initial page)")
	rootCmd.AddCommand(watchCmd)
}
