package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/miralcamp/camposync/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Deliver queued records now",
	Long: `Attempt delivery of every pending record in the order it was queued.
Records that keep failing are parked as failed after the retry budget is
spent; see 'camposync retry' and 'camposync clear-failed'.`,
	Run: runSync,
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry failed records",
	Long:  `Return every failed record to the queue with a fresh retry budget, then sync.`,
	Run:   runRetry,
}

func runSync(cmd *cobra.Command, args []string) {
	c := initServiceContext()
	defer c.Close()

	result, err := c.Service.SyncPendingItems(cmd.Context())
	if err != nil {
		exitError("sync failed: %v", err)
	}
	printDrain(result)
}

func runRetry(cmd *cobra.Command, args []string) {
	c := initServiceContext()
	defer c.Close()

	result, err := c.Service.RetryFailedItems(cmd.Context())
	if err != nil {
		exitError("retry failed: %v", err)
	}
	printDrain(result)
}

func printDrain(result *syncer.DrainResult) {
	if result.Skipped != "" {
		exitError("cannot sync: %s", result.Skipped)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if result.Synced == 0 && result.Failed == 0 {
		fmt.Println("Nothing to sync")
		return
	}

	if result.Synced > 0 {
		green.Printf("%d record(s) delivered\n", result.Synced)
	}
	if result.Failed > 0 {
		red.Printf("%d delivery attempt(s) failed\n", result.Failed)
	}
	if result.Remaining > 0 {
		fmt.Printf("%d record(s) still pending\n", result.Remaining)
	}
}
