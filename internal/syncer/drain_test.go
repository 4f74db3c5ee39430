package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miralcamp/camposync/internal/events"
	"github.com/miralcamp/camposync/internal/models"
)

func TestDrain_SkippedWhenOffline(t *testing.T) {
	rig := newTestRig(t)
	rig.monitor.Set(false)
	enqueue(t, rig, models.RecordVisita)

	result, err := rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonOffline, result.Skipped)
	assert.Zero(t, result.Synced)

	// No network traffic and no sync events for a skipped pass.
	assert.Empty(t, rig.client.calls())
	assert.Equal(t, []events.Kind{events.KindItemAdded}, rig.kinds())
}

func TestDrain_SkippedWithoutCredential(t *testing.T) {
	rig := newTestRig(t)
	rig.service.tokens = staticToken("")

	result, err := rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonNoCredential, result.Skipped)
}

func TestDrain_SkippedWhileBusy(t *testing.T) {
	rig := newTestRig(t)
	rig.service.syncing.Store(true)

	result, err := rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonSyncBusy, result.Skipped)
}

func TestDrain_DeliversInInsertionOrder(t *testing.T) {
	rig := newTestRig(t)

	first := enqueue(t, rig, models.RecordVisita)
	second := enqueue(t, rig, models.RecordTratamiento)
	third := enqueue(t, rig, models.RecordVisita)

	result, err := rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Synced)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Remaining)
	assert.Empty(t, result.Skipped)

	calls := rig.client.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, first.ClientRef, calls[0].ClientRef)
	assert.Equal(t, second.ClientRef, calls[1].ClientRef)
	assert.Equal(t, third.ClientRef, calls[2].ClientRef)

	pending, failed, err := rig.store.OutboxCounts()
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, failed)
}

func TestDrain_FailureKeepsItemPendingUntilBudgetSpent(t *testing.T) {
	rig := newTestRig(t)
	rig.client.createErr[models.RecordVisita] = errors.New("HTTP 503")

	item := enqueue(t, rig, models.RecordVisita)

	// First two passes fail but the item stays pending.
	for pass := 1; pass <= 2; pass++ {
		result, err := rig.service.SyncPendingItems(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Remaining)

		got, err := rig.store.GetOutboxItem(item.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OutboxPending, got.Status)
		assert.Equal(t, pass, got.Attempts)
		assert.Equal(t, "HTTP 503", got.LastError)
	}

	// Third pass exhausts the budget.
	result, err := rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Remaining)

	got, err := rig.store.GetOutboxItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)

	// Terminal-failed items are out of the drain pool.
	result, err = rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Synced)
}

func TestDrain_MixedOutcomeCountsSeparately(t *testing.T) {
	rig := newTestRig(t)
	rig.client.createErr[models.RecordTratamiento] = errors.New("HTTP 500")

	enqueue(t, rig, models.RecordVisita)
	enqueue(t, rig, models.RecordTratamiento)

	result, err := rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Remaining)

	pending, failed, err := rig.store.OutboxCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, failed)
}

func TestDrain_UnknownTypeIsSkippedWithoutCounting(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.store.AppendOutbox(&models.OutboxItem{
		Type:    models.RecordType("cosecha"),
		Payload: json.RawMessage(`{}`),
		Status:  models.OutboxPending,
	}))
	enqueue(t, rig, models.RecordVisita)

	result, err := rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 0, result.Failed)
	// The unrecognized item is carried, not failed.
	assert.Equal(t, 1, result.Remaining)
}

func TestDrain_PublishesLifecycleEvents(t *testing.T) {
	rig := newTestRig(t)
	enqueue(t, rig, models.RecordVisita)

	_, err := rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []events.Kind{
		events.KindItemAdded,
		events.KindSyncStarted,
		events.KindSyncCompleted,
	}, rig.kinds())

	completed, ok := rig.events[len(rig.events)-1].(events.SyncCompleted)
	require.True(t, ok)
	assert.Equal(t, 1, completed.Synced)
	assert.Equal(t, 0, completed.Remaining)
}

func TestDrain_OfflineQueueDrainsWhenBackOnline(t *testing.T) {
	rig := newTestRig(t)

	// Queue while offline.
	rig.monitor.Set(false)
	enqueue(t, rig, models.RecordVisita)
	enqueue(t, rig, models.RecordTratamiento)

	result, err := rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonOffline, result.Skipped)

	// Connectivity returns.
	rig.monitor.Set(true)
	result, err = rig.service.SyncPendingItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)
	assert.Zero(t, result.Remaining)
}

func TestRetryFailedItems(t *testing.T) {
	rig := newTestRig(t)
	rig.client.createErr[models.RecordVisita] = errors.New("HTTP 500")

	item := enqueue(t, rig, models.RecordVisita)
	for i := 0; i < 3; i++ {
		_, err := rig.service.SyncPendingItems(context.Background())
		require.NoError(t, err)
	}

	got, err := rig.store.GetOutboxItem(item.ID)
	require.NoError(t, err)
	require.Equal(t, models.OutboxFailed, got.Status)

	// Backend recovers; retry resets the budget and delivers.
	delete(rig.client.createErr, models.RecordVisita)
	result, err := rig.service.RetryFailedItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	pending, failed, err := rig.store.OutboxCounts()
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, failed)
}

func TestClearFailedItems(t *testing.T) {
	rig := newTestRig(t)
	rig.client.createErr[models.RecordVisita] = errors.New("HTTP 500")

	enqueue(t, rig, models.RecordVisita)
	enqueue(t, rig, models.RecordTratamiento) // delivered fine
	for i := 0; i < 3; i++ {
		_, err := rig.service.SyncPendingItems(context.Background())
		require.NoError(t, err)
	}

	deleted, err := rig.service.ClearFailedItems()
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	pending, failed, err := rig.store.OutboxCounts()
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, failed)

	kinds := rig.kinds()
	assert.Equal(t, events.KindItemsCleared, kinds[len(kinds)-1])
}
