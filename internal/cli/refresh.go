package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/miralcamp/camposync/internal/models"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh cached reference data",
	Long: `Download a fresh copy of every reference collection and replace the
local cache. The refresh is all-or-nothing: if any collection fails to
download, the existing cache is left untouched.`,
	Run: runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) {
	c := initServiceContext()
	defer c.Close()

	result, err := c.Service.CacheReferenceData(cmd.Context())
	if err != nil {
		exitError("refresh failed: %v", err)
	}
	if result.Skipped != "" {
		exitError("cannot refresh: %s", result.Skipped)
	}

	green := color.New(color.FgGreen)
	green.Println("Reference data refreshed")
	for _, collection := range models.ReferenceCollections {
		fmt.Printf("  %-12s %d record(s)\n", collection, result.Counts[collection])
	}
}
