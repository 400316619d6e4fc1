package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagScopeAuthor string
	flagKinds       []int
)

var existsCmd = &cobra.Command{
	Use:   "exists <event-id>",
	Short: "Check whether any relay has seen an event referencing the id",
	Long: `Runs a first-match fan-out: true the instant any relay yields a
qualifying referencing event, false once all relays complete or time out.
Use --kinds 5 for tombstones, --kinds 7 for reactions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		found, err := eng.CheckExists(cmd.Context(), relays(), args[0], flagScopeAuthor, flagKinds)
		if err != nil {
			return err
		}
		fmt.Println(found)
		return nil
	},
}

var eventCmd = &cobra.Command{
	Use:   "event <event-id>",
	Short: "Fetch one specific event by id (with bounded retries)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		evt, err := eng.FetchEventByID(cmd.Context(), relays(), args[0])
		if err != nil {
			return err
		}
		if evt == nil {
			fmt.Println("null")
			return nil
		}
		return printJSON(evt)
	},
}

func init() {
	existsCmd.Flags().StringVar(&flagScopeAuthor, "author", "", "restrict the check to one author")
	existsCmd.Flags().IntSliceVar(&flagKinds, "kinds", nil, "event kinds to match (e.g. 5 for tombstones)")
	rootCmd.AddCommand(existsCmd, eventCmd)
}
