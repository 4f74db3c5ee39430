package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/miralcamp/camposync/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	Long:  `Show connectivity, queued records, and the age of the cached reference data.`,
	Run:   runStatus,
}

var statusVerbose bool

func init() {
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "List every pending item")
}

func runStatus(cmd *cobra.Command, args []string) {
	c := initServiceContext()
	defer c.Close()

	snap, err := c.Service.Status()
	if err != nil {
		exitError("failed to read status: %v", err)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if snap.IsOnline {
		green.Println("Online")
	} else {
		red.Println("Offline")
	}

	if snap.LastCacheUpdate.IsZero() {
		yellow.Println("Reference data: never refreshed")
	} else {
		fmt.Printf("Reference data: refreshed %s\n", snap.LastCacheUpdate.Local().Format("2006-01-02 15:04:05"))
	}

	if snap.PendingCount == 0 && snap.FailedCount == 0 {
		fmt.Println("\nNothing queued, all records delivered")
		return
	}

	fmt.Println()
	if snap.PendingCount > 0 {
		yellow.Printf("%d record(s) pending sync\n", snap.PendingCount)
	}
	if snap.FailedCount > 0 {
		red.Printf("%d record(s) failed after repeated attempts\n", snap.FailedCount)
		fmt.Println("  (use \"camposync retry\" to retry, \"camposync clear-failed\" to discard)")
	}

	if statusVerbose && len(snap.PendingItems) > 0 {
		fmt.Println("\nPending items:")
		for _, item := range snap.PendingItems {
			printItem(item)
		}
	}
}

func printItem(item *models.OutboxItem) {
	line := fmt.Sprintf("  #%d  %-12s queued %s", item.ID, item.Type,
		item.CreatedAt.Local().Format("2006-01-02 15:04"))
	if item.Attempts > 0 {
		line = fmt.Sprintf("%s  (%d attempt(s), last error: %s)", line, item.Attempts, item.LastError)
	}
	fmt.Println(line)
}
