// Command camposync is the offline-first sync client for the
// farm-operations backend.
package main

import (
	"os"

	"github.com/miralcamp/camposync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
