// Package syncer implements the sync orchestrator: the single authority
// coordinating reference-data refresh and outbox drainage against the
// remote API. It is the only writer to the store's mutable collections; UI
// consumers submit intents through its public operations and observe
// progress on the event bus.
package syncer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/miralcamp/camposync/internal/api"
	"github.com/miralcamp/camposync/internal/connectivity"
	"github.com/miralcamp/camposync/internal/events"
	"github.com/miralcamp/camposync/internal/models"
	"github.com/miralcamp/camposync/internal/notify"
	"github.com/miralcamp/camposync/internal/store"
)

// Skip reasons reported when an operation's preconditions fail. These are
// zero-effect results, not errors: callers check the result content.
const (
	ReasonOffline      = "offline"
	ReasonNoCredential = "no credential"
	ReasonSyncBusy     = "sync already in progress"
)

// Options configures a Service. Store, Client, Monitor and Tokens are
// required; the rest have working defaults.
type Options struct {
	Store   *store.Store
	Client  api.Client
	Monitor connectivity.Monitor
	Tokens  api.TokenSource

	Bus      *events.Bus
	Notifier notify.Notifier
	Logger   *slog.Logger

	// MaxAttempts is the per-item delivery retry budget.
	MaxAttempts int
	// Clock overrides time.Now, letting tests pin timestamps.
	Clock func() time.Time
}

// Service is the sync orchestrator.
type Service struct {
	store    *store.Store
	client   api.Client
	monitor  connectivity.Monitor
	tokens   api.TokenSource
	bus      *events.Bus
	notifier notify.Notifier
	logger   *slog.Logger

	maxAttempts int
	clock       func() time.Time

	// syncing is the drain mutual-exclusion flag. It guards against
	// re-entrant drains within this process only; concurrent agent
	// instances rely on the per-item idempotency key instead.
	syncing atomic.Bool
}

// New constructs the orchestrator with its injected dependencies.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus(opts.Logger)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = models.DefaultMaxAttempts
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		store:       opts.Store,
		client:      opts.Client,
		monitor:     opts.Monitor,
		tokens:      opts.Tokens,
		bus:         opts.Bus,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		maxAttempts: opts.MaxAttempts,
		clock:       opts.Clock,
	}
}

// Bus returns the event bus consumers subscribe to.
func (s *Service) Bus() *events.Bus {
	return s.bus
}

// Enqueue appends one record to the outbox as a pending item. It has no
// network dependency and fails only if the local store does. The item gets
// a client-generated reference used as an idempotency key on delivery.
func (s *Service) Enqueue(rt models.RecordType, payload json.RawMessage) (*models.OutboxItem, error) {
	item := &models.OutboxItem{
		Type:      rt,
		Payload:   payload,
		ClientRef: uuid.NewString(),
		Status:    models.OutboxPending,
		CreatedAt: s.clock(),
	}

	if err := s.store.AppendOutbox(item); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", rt, err)
	}

	pending, _, err := s.store.OutboxCounts()
	if err != nil {
		return nil, err
	}

	s.logger.Info("queued record for sync", "type", rt, "id", item.ID, "pending", pending)
	s.bus.Publish(events.ItemAdded{ItemType: string(rt), PendingCount: pending})
	return item, nil
}

// ClearFailedItems deletes every terminal-failed item without a delivery
// attempt. Returns the number of items discarded.
func (s *Service) ClearFailedItems() (int, error) {
	deleted, err := s.store.DeleteFailedOutbox()
	if err != nil {
		return 0, err
	}

	pending, _, err := s.store.OutboxCounts()
	if err != nil {
		return deleted, err
	}

	s.logger.Info("cleared failed items", "count", deleted)
	s.bus.Publish(events.ItemsCleared{PendingCount: pending})
	return deleted, nil
}

// Status computes a fresh sync snapshot from the store. It is never cached.
func (s *Service) Status() (*models.SyncSnapshot, error) {
	pendingItems, err := s.store.OutboxByStatus(models.OutboxPending)
	if err != nil {
		return nil, err
	}
	_, failedCount, err := s.store.OutboxCounts()
	if err != nil {
		return nil, err
	}
	lastUpdate, err := s.store.LastCacheUpdate()
	if err != nil {
		return nil, err
	}

	return &models.SyncSnapshot{
		IsOnline:        s.monitor.IsOnline(),
		IsSyncing:       s.syncing.Load(),
		PendingCount:    len(pendingItems),
		FailedCount:     failedCount,
		PendingItems:    pendingItems,
		LastCacheUpdate: lastUpdate,
	}, nil
}

// ready checks the shared online+credential preconditions. The returned
// reason is empty when the service can reach the API.
func (s *Service) ready() string {
	if !s.monitor.IsOnline() {
		return ReasonOffline
	}
	if s.tokens.Token() == "" {
		return ReasonNoCredential
	}
	return ""
}
