package cmd

import (
	"context"
	"fmt"
	"log"

	"cassette/config"
	"cassette/store"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Check the configured persistent store",
	Long:  `Connect to the configured storage backend and run a set/get/remove round trip against a scratch key.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		log.Printf("Checking %s store...", cfg.StoreBackend)

		backend, err := store.Open(cfg)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer backend.Close()

		ctx := context.Background()
		const key = "cassette:selftest"
		if err := backend.Set(ctx, key, "ok"); err != nil {
			log.Fatalf("Set failed: %v", err)
		}
		val, found, err := backend.Get(ctx, key)
		if err != nil {
			log.Fatalf("Get failed: %v", err)
		}
		if !found || val != "ok" {
			log.Fatalf("Unexpected round-trip value: %q (found=%v)", val, found)
		}
		if err := backend.Remove(ctx, key); err != nil {
			log.Fatalf("Remove failed: %v", err)
		}
		fmt.Println("Store check passed.")
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
}
