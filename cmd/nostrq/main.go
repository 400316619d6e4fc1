package main

import (
	"fmt"
	"os"

	"nostr-query/internal/logging"
)

func main() {
	logging.Init()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
