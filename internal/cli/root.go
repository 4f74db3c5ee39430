// Package cli implements the command-line interface for CampoSync.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/miralcamp/camposync/internal/api"
	"github.com/miralcamp/camposync/internal/config"
	"github.com/miralcamp/camposync/internal/connectivity"
	"github.com/miralcamp/camposync/internal/logging"
	"github.com/miralcamp/camposync/internal/store"
	"github.com/miralcamp/camposync/internal/syncer"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Creds   *config.Credentials
	Store   *store.Store
	Client  *api.HTTPClient
	Monitor *connectivity.Static
	Service *syncer.Service
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext initializes config, credentials, and the local store.
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st := store.New(cfg.DatabasePath())
	if err := st.Open(); err != nil {
		exitError("failed to open store: %v", err)
	}

	return &cmdContext{
		Config: cfg,
		Creds:  config.NewCredentials(cfg.Root()),
		Store:  st,
	}
}

// initServiceContext builds the full sync service for one-shot commands.
// Connectivity is settled with a single health probe rather than a watch
// loop; a command lives too briefly for transitions to matter.
func initServiceContext() *cmdContext {
	c := initContext()

	c.Client = api.NewHTTPClient(c.Config.APIURL, c.Creds)
	c.Monitor = connectivity.NewStatic(probeOnline(c.Client))
	c.Service = syncer.New(syncer.Options{
		Store:       c.Store,
		Client:      c.Client,
		Monitor:     c.Monitor,
		Tokens:      c.Creds,
		Logger:      logging.New(c.Config.Log),
		MaxAttempts: c.Config.Sync.MaxAttempts,
	})

	return c
}

// probeOnline runs one bounded health check.
func probeOnline(client *api.HTTPClient) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Health(ctx) == nil
}

var rootCmd = &cobra.Command{
	Use:   "camposync",
	Short: "Offline-first sync for farm operations",
	Long: `CampoSync keeps a local copy of the farm-operations reference data
(parcelas, cultivos, contratos, proveedores) and queues visit and
treatment records while offline, delivering them to the backend when
connectivity returns.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(clearFailedCmd)
	rootCmd.AddCommand(agentCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
