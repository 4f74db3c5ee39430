package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/miralcamp/camposync/internal/models"
)

// Config holds configurable limits for the stub server.
type Config struct {
	MaxRequestBody int64  // bytes, for JSON endpoints
	Token          string // bearer token; empty disables auth
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRequestBody: 1 * 1024 * 1024, // 1MB
	}
}

// Handler creates the HTTP handler with all routes and middleware.
func Handler(st *Store, cfg *Config, logger *slog.Logger) http.Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	auth := authMiddleware(cfg.Token)
	withAuth := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	mux := http.NewServeMux()

	// Health endpoint (no auth): this is also the client's connectivity probe.
	mux.HandleFunc("GET /api/health", handleHealth)

	// Reference collections
	mux.Handle("GET /api/{collection}", withAuth(makeCollectionHandler(st)))

	// Record creates
	mux.Handle("POST /api/visitas", withAuth(makeCreateHandler(st, "visita", cfg, logger)))
	mux.Handle("POST /api/tratamientos", withAuth(makeCreateHandler(st, "tratamiento", cfg, logger)))

	// Apply global middleware
	return applyMiddleware(mux,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
	)
}

// applyMiddleware applies middleware in reverse order so the first in the list runs first.
func applyMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// makeCollectionHandler serves a whole reference collection wrapped in the
// {collection: [...]} envelope clients expect.
func makeCollectionHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := r.PathValue("collection")
		if !models.IsReferenceCollection(collection) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown collection '%s'", collection))
			return
		}

		docs, err := st.ListReference(collection)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string][]json.RawMessage{collection: docs})
	}
}

// makeCreateHandler accepts a record POST. Requests carrying an
// Idempotency-Key that was already accepted are acknowledged without a
// second insert.
func makeCreateHandler(st *Store, kind string, cfg *Config, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, cfg.MaxRequestBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable request body")
			return
		}
		if !json.Valid(payload) {
			writeError(w, http.StatusBadRequest, "request body is not valid JSON")
			return
		}

		clientRef := r.Header.Get("Idempotency-Key")
		inserted, err := st.InsertRecord(kind, clientRef, payload)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !inserted {
			logger.Info("duplicate record suppressed", "kind", kind, "client_ref", clientRef)
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError emits the {"detail": ...} error body clients decode.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
