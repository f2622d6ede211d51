package cmd

import (
	"cassette/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Cassette coordinator server",
	Long:  `Start the HTTP server exposing the session/payment/state coordinator to the presentation layer.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
