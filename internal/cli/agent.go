package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/miralcamp/camposync/internal/api"
	"github.com/miralcamp/camposync/internal/config"
	"github.com/miralcamp/camposync/internal/connectivity"
	"github.com/miralcamp/camposync/internal/events"
	"github.com/miralcamp/camposync/internal/logging"
	"github.com/miralcamp/camposync/internal/notify"
	"github.com/miralcamp/camposync/internal/store"
	"github.com/miralcamp/camposync/internal/syncer"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the background sync agent",
	Long: `Run CampoSync as a long-lived agent. The agent watches connectivity,
drains the queue when the backend becomes reachable, and periodically
re-attempts pending records. Stop it with Ctrl-C or SIGTERM.`,
	Run: runAgent,
}

var agentRefresh bool

func init() {
	agentCmd.Flags().BoolVar(&agentRefresh, "refresh", false, "Refresh reference data on startup and whenever connectivity returns")
}

func runAgent(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}
	logger := logging.New(cfg.Log)

	st := store.New(cfg.DatabasePath())
	if err := st.Open(); err != nil {
		exitError("failed to open store: %v", err)
	}
	defer st.Close()

	creds := config.NewCredentials(cfg.Root())
	client := api.NewHTTPClient(cfg.APIURL, creds)
	bus := events.NewBus(logger)

	watcher := connectivity.NewWatcher(client.Health, cfg.Sync.ProbeInterval, bus, logger)

	service := syncer.New(syncer.Options{
		Store:       st,
		Client:      client,
		Monitor:     watcher,
		Tokens:      creds,
		Bus:         bus,
		Notifier:    notify.NewDesktop(),
		Logger:      logger,
		MaxAttempts: cfg.Sync.MaxAttempts,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	unsubscribe := bus.Subscribe(func(e events.Event) {
		logEvent(logger, e)
	})
	defer unsubscribe()

	watcher.OnOnline(func() {
		if agentRefresh {
			if _, err := service.CacheReferenceData(ctx); err != nil {
				logger.Error("refresh on reconnect failed", "error", err)
			}
		}
		if _, err := service.SyncPendingItems(ctx); err != nil {
			logger.Error("drain on reconnect failed", "error", err)
		}
	})

	watcher.Start(ctx)
	defer watcher.Stop()

	logger.Info("agent started",
		"api_url", cfg.APIURL,
		"poll_interval", cfg.Sync.PollInterval,
		"probe_interval", cfg.Sync.ProbeInterval,
		"online", watcher.IsOnline())

	if agentRefresh && watcher.IsOnline() {
		if _, err := service.CacheReferenceData(ctx); err != nil {
			logger.Error("startup refresh failed", "error", err)
		}
	}
	// Pick up anything queued while the agent was down.
	if _, err := service.SyncPendingItems(ctx); err != nil {
		logger.Error("startup drain failed", "error", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// The poll ticker is a safety net behind the event-driven drain: items
	// whose delivery failed transiently get another pass without waiting for
	// a connectivity transition.
	ticker := time.NewTicker(cfg.Sync.PollInterval)
	defer ticker.Stop()

	fmt.Println("camposync agent running, Ctrl-C to stop")

	for {
		select {
		case <-done:
			logger.Info("agent stopping")
			cancel()
			return
		case <-ticker.C:
			result, err := service.SyncPendingItems(ctx)
			if err != nil {
				logger.Error("scheduled drain failed", "error", err)
				continue
			}
			if result.Skipped != "" {
				logger.Debug("scheduled drain skipped", "reason", result.Skipped)
			}
		}
	}
}

// logEvent records bus traffic so the agent's log doubles as a sync journal.
func logEvent(logger *slog.Logger, e events.Event) {
	switch ev := e.(type) {
	case events.Online:
		logger.Info("event: online")
	case events.Offline:
		logger.Info("event: offline")
	case events.SyncStarted:
		logger.Info("event: sync started", "pending", ev.Pending)
	case events.SyncCompleted:
		logger.Info("event: sync completed",
			"synced", ev.Synced, "failed", ev.Failed, "remaining", ev.Remaining)
	case events.ItemAdded:
		logger.Info("event: item queued", "type", ev.ItemType, "pending", ev.PendingCount)
	case events.CacheStarted:
		logger.Info("event: cache refresh started")
	case events.CacheCompleted:
		logger.Info("event: cache refresh completed", "counts", ev.Counts)
	case events.CacheFailed:
		logger.Warn("event: cache refresh failed", "message", ev.Message)
	case events.ItemsCleared:
		logger.Info("event: failed items cleared", "pending", ev.PendingCount)
	}
}
