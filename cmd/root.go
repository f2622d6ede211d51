package cmd

import (
	"fmt"
	"log"
	"os"

	"cassette/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cassette",
	Short: "Cassette is a pay-per-play music coordinator.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting Cassette coordinator...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
