package syncer

import (
	"context"
	"fmt"

	"github.com/miralcamp/camposync/internal/events"
	"github.com/miralcamp/camposync/internal/models"
	"github.com/miralcamp/camposync/internal/notify"
)

// DrainResult summarizes one drain pass. Failed counts failed delivery
// attempts during this pass — not terminal-failed items, which the snapshot
// reports separately as FailedCount. Remaining is the fresh pending count
// after the pass. Skipped carries the precondition reason when the pass did
// no work.
type DrainResult struct {
	Synced    int    `json:"synced"`
	Failed    int    `json:"failed"`
	Remaining int    `json:"remaining"`
	Skipped   string `json:"skipped,omitempty"`
}

// SyncPendingItems runs one drain pass: every pending outbox item is
// attempted sequentially in insertion order. Delivered items leave the
// outbox; failures are re-queued with an incremented attempt count until
// the retry budget flips them to terminal-failed. At most one drain runs at
// a time per process; re-entrant calls return a zero-work result.
func (s *Service) SyncPendingItems(ctx context.Context) (*DrainResult, error) {
	if reason := s.ready(); reason != "" {
		return &DrainResult{Skipped: reason}, nil
	}
	if !s.syncing.CompareAndSwap(false, true) {
		return &DrainResult{Skipped: ReasonSyncBusy}, nil
	}
	defer s.syncing.Store(false)

	items, err := s.store.OutboxByStatus(models.OutboxPending)
	if err != nil {
		return nil, fmt.Errorf("load pending items: %w", err)
	}

	s.bus.Publish(events.SyncStarted{Pending: len(items)})
	s.logger.Info("drain started", "pending", len(items))

	result := &DrainResult{}
	for _, item := range items {
		if _, ok := item.Type.Endpoint(); !ok {
			s.logger.Warn("skipping outbox item with unrecognized type",
				"id", item.ID, "type", item.Type)
			continue
		}

		if err := s.deliver(ctx, item, result); err != nil {
			// Storage failure: abort the pass, prior items keep the state
			// they already reached.
			return nil, err
		}
	}

	pending, _, err := s.store.OutboxCounts()
	if err != nil {
		return nil, err
	}
	result.Remaining = pending

	s.bus.Publish(events.SyncCompleted{
		Synced:    result.Synced,
		Failed:    result.Failed,
		Remaining: result.Remaining,
	})
	s.logger.Info("drain completed",
		"synced", result.Synced, "failed", result.Failed, "remaining", result.Remaining)

	if result.Synced > 0 || result.Failed > 0 {
		s.notifySummary(result)
	}

	return result, nil
}

// deliver attempts one item. Delivery errors resolve into item state; only
// store errors propagate.
func (s *Service) deliver(ctx context.Context, item *models.OutboxItem, result *DrainResult) error {
	err := s.client.CreateRecord(ctx, item.Type, item.Payload, item.ClientRef)
	if err == nil {
		if derr := s.store.DeleteOutboxItem(item.ID); derr != nil {
			return fmt.Errorf("remove delivered item %d: %w", item.ID, derr)
		}
		result.Synced++
		return nil
	}

	item.RecordFailure(s.clock(), err.Error(), s.maxAttempts)
	if uerr := s.store.UpdateOutboxItem(item); uerr != nil {
		return fmt.Errorf("record failed attempt for item %d: %w", item.ID, uerr)
	}
	result.Failed++

	s.logger.Warn("delivery failed",
		"id", item.ID, "type", item.Type,
		"attempts", item.Attempts, "status", item.Status, "error", err)
	return nil
}

// RetryFailedItems returns every terminal-failed item to the pending pool
// with a fresh attempt budget, then runs a normal drain pass.
func (s *Service) RetryFailedItems(ctx context.Context) (*DrainResult, error) {
	count, err := s.store.ResetFailedOutbox()
	if err != nil {
		return nil, fmt.Errorf("reset failed items: %w", err)
	}
	if count > 0 {
		s.logger.Info("reset failed items for retry", "count", count)
	}
	return s.SyncPendingItems(ctx)
}

// notifySummary raises a best-effort user notification about a drain pass.
// The outcome is logged and never affects the pass result.
func (s *Service) notifySummary(result *DrainResult) {
	body := fmt.Sprintf("%d record(s) synced", result.Synced)
	if result.Failed > 0 {
		body = fmt.Sprintf("%s, %d attempt(s) failed", body, result.Failed)
	}

	outcome := s.notifier.Notify(notify.Notification{
		Title: "CampoSync",
		Body:  body,
	})
	switch outcome.Result {
	case notify.Sent:
		s.logger.Debug("sync notification sent")
	case notify.Unsupported, notify.Denied:
		s.logger.Debug("sync notification skipped", "result", outcome.Result.String())
	default:
		s.logger.Debug("sync notification failed", "error", outcome.Err)
	}
}
