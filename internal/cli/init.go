package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/miralcamp/camposync/internal/api"
	"github.com/miralcamp/camposync/internal/config"
	"github.com/miralcamp/camposync/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a CampoSync workspace",
	Long: `Initialize a CampoSync workspace in the current directory.
This creates a .camposync directory holding the configuration, the stored
credential, and the local database.`,
	Run: runInit,
}

var initURL string

func init() {
	initCmd.Flags().StringVar(&initURL, "url", "http://localhost:8780", "Backend API URL")
}

func runInit(cmd *cobra.Command, args []string) {
	if _, err := config.FindRoot(); err == nil {
		exitError("camposync workspace already exists")
	}

	fmt.Printf("Initializing CampoSync workspace...\n")
	fmt.Printf("Backend URL: %s\n", initURL)

	// Reachability is informative only: initializing offline is the whole
	// point of the tool.
	client := api.NewHTTPClient(initURL, noToken{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		fmt.Printf("Warning: backend not reachable (%v)\n", err)
		fmt.Printf("You can still work offline; records will queue locally.\n")
	} else {
		fmt.Printf("Backend reachable.\n")
	}

	cfg, err := config.Initialize(initURL)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	st := store.New(cfg.DatabasePath())
	if err := st.Open(); err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	fmt.Printf("\nInitialized empty CampoSync workspace in .camposync/\n")
	fmt.Printf("Run 'camposync login' to store your API token, then 'camposync refresh'.\n")
}

// noToken is a TokenSource for pre-login requests.
type noToken struct{}

func (noToken) Token() string { return "" }
