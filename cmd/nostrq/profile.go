package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile <pubkey>",
	Short: "Resolve a user's kind 0 profile metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := eng.NewPageSession()
		defer session.Close()

		profile := session.GetProfile(cmd.Context(), profileRelays(), args[0])
		if profile == nil {
			fmt.Println("null")
			return nil
		}
		return printJSON(profile)
	},
}

var contactsCmd = &cobra.Command{
	Use:   "contacts <pubkey>",
	Short: "Resolve the latest kind 3 contact list across relays",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contacts, err := eng.ResolveContacts(cmd.Context(), relays(), args[0])
		if err != nil {
			return err
		}
		return printJSON(contacts)
	},
}

var relayListCmd = &cobra.Command{
	Use:   "relaylist <pubkey>",
	Short: "Resolve the latest kind 10002 relay list across relays",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		indexers := relaysCfg.IndexerRelays
		if len(flagRelays) > 0 {
			indexers = flagRelays
		}
		list, err := eng.ResolveRelayList(cmd.Context(), indexers, args[0])
		if err != nil {
			return err
		}
		if list == nil {
			fmt.Println("null")
			return nil
		}
		return printJSON(list)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd, contactsCmd, relayListCmd)
}
