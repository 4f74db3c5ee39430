// Command camposync-server runs a development stub of the farm-operations
// API for testing clients against a real HTTP surface.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/miralcamp/camposync/internal/server"
)

func main() {
	listen := flag.String("listen", envOrDefault("CAMPOSYNC_LISTEN", "127.0.0.1:8780"), "Listen address")
	dbPath := flag.String("db", envOrDefault("CAMPOSYNC_SERVER_DB", "camposync-server.db"), "SQLite database path")
	token := flag.String("token", os.Getenv("CAMPOSYNC_SERVER_TOKEN"), "Bearer token required on API calls (empty disables auth)")
	seed := flag.Bool("seed", false, "Seed sample reference data on startup")
	logLevel := flag.String("log-level", envOrDefault("CAMPOSYNC_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	st, err := server.OpenStore(*dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", *dbPath)
		os.Exit(1)
	}
	defer st.Close()

	if *seed {
		if err := server.SeedSampleData(st); err != nil {
			logger.Error("failed to seed sample data", "error", err)
			os.Exit(1)
		}
		logger.Info("seeded sample reference data")
	}

	cfg := server.DefaultConfig()
	cfg.Token = *token

	srv := &http.Server{
		Addr:         *listen,
		Handler:      server.Handler(st, cfg, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting camposync-server", "listen", *listen, "db", *dbPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
