package main

import (
	"github.com/spf13/cobra"

	"nostr-query/internal/types"
)

var (
	flagLimit int
	flagPages int
)

var timelineCmd = &cobra.Command{
	Use:   "timeline [pubkey...]",
	Short: "Fetch a deduplicated, newest-first page of notes",
	Long: `Fetches kind 1 notes by the given authors (or the global
timeline when none are given), one page per --pages iteration. Successive
pages reuse the session cursor, so the boundary only ever moves backward
in time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session := eng.NewPageSession()
		defer session.Close()

		filter := types.Filter{
			Authors: args,
			Kinds:   []int{types.KindNote},
			Limit:   flagLimit,
		}

		for page := 0; page < flagPages; page++ {
			events, cursor, err := session.FetchPage(cmd.Context(), relays(), filter)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				break
			}
			if err := printJSON(map[string]interface{}{
				"page":   page + 1,
				"cursor": cursor,
				"events": events,
			}); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	timelineCmd.Flags().IntVar(&flagLimit, "limit", 20, "events per page")
	timelineCmd.Flags().IntVar(&flagPages, "pages", 1, "number of pages to fetch")
	rootCmd.AddCommand(timelineCmd)
}
