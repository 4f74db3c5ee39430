package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearFailedCmd = &cobra.Command{
	Use:   "clear-failed",
	Short: "Discard failed records",
	Long: `Permanently delete every record that exhausted its retry budget. The
data is lost; use 'camposync retry' instead if delivery should be
attempted again.`,
	Run: runClearFailed,
}

var clearFailedYes bool

func init() {
	clearFailedCmd.Flags().BoolVarP(&clearFailedYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runClearFailed(cmd *cobra.Command, args []string) {
	c := initServiceContext()
	defer c.Close()

	snap, err := c.Service.Status()
	if err != nil {
		exitError("failed to read status: %v", err)
	}
	if snap.FailedCount == 0 {
		fmt.Println("No failed records")
		return
	}

	if !clearFailedYes {
		fmt.Printf("Discard %d failed record(s)? This cannot be undone. [y/N] ", snap.FailedCount)
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted")
			return
		}
	}

	deleted, err := c.Service.ClearFailedItems()
	if err != nil {
		exitError("clear failed records: %v", err)
	}
	fmt.Printf("Discarded %d failed record(s)\n", deleted)
}
