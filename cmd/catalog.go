package cmd

import (
	"fmt"
	"log"

	"cassette/catalog"
	"cassette/config"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate the configured catalog file",
	Long:  `Load the catalog file (or the built-in demo catalog) and print the tracks it contains.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		idx, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Fatalf("Catalog invalid: %v", err)
		}

		fmt.Printf("Catalog OK: %d tracks\n", idx.Len())
		for _, t := range idx.All() {
			fmt.Printf("  %3d  %-28s %-20s %s → %s\n",
				t.ID, t.Title, t.Artist, t.PriceAmount, t.PayeeAddress)
		}
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
