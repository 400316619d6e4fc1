package main

import (
	"github.com/spf13/cobra"
)

var flagLabel string

var reactionsCmd = &cobra.Command{
	Use:   "reactions <event-id>",
	Short: "Aggregate reaction counts (and optionally reactors) for an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := eng.NewPageSession()
		defer session.Close()

		if flagLabel != "" {
			reactors, err := session.ReactionDetails(cmd.Context(), relays(), args[0], flagLabel)
			if err != nil {
				return err
			}
			return printJSON(reactors)
		}

		counts, err := session.ReactionCounts(cmd.Context(), relays(), args[0])
		if err != nil {
			return err
		}
		return printJSON(counts)
	},
}

func init() {
	reactionsCmd.Flags().StringVar(&flagLabel, "label", "", "list reactor pubkeys for one label instead of counts")
	rootCmd.AddCommand(reactionsCmd)
}
