package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miralcamp/camposync/internal/events"
)

func TestStatic(t *testing.T) {
	m := NewStatic(false)
	assert.False(t, m.IsOnline())
	m.Set(true)
	assert.True(t, m.IsOnline())
}

func TestWatcher_StartSeedsInitialState(t *testing.T) {
	probe := func(ctx context.Context) error { return nil }
	bus := events.NewBus(nil)
	w := NewWatcher(probe, time.Hour, bus, nil)

	var transitions []events.Kind
	bus.Subscribe(func(e events.Event) { transitions = append(transitions, e.Kind()) })

	w.Start(context.Background())
	defer w.Stop()

	assert.True(t, w.IsOnline())
	// The first observation is a seed, not a transition.
	assert.Empty(t, transitions)
}

func TestWatcher_TransitionsPublishEvents(t *testing.T) {
	bus := events.NewBus(nil)
	w := NewWatcher(func(ctx context.Context) error { return errors.New("down") }, time.Hour, bus, nil)

	var kinds []events.Kind
	bus.Subscribe(func(e events.Event) { kinds = append(kinds, e.Kind()) })

	w.Start(context.Background())
	defer w.Stop()
	require.False(t, w.IsOnline())

	w.forceState(true)
	assert.True(t, w.IsOnline())

	w.forceState(false)
	assert.False(t, w.IsOnline())

	// A repeated state is not a transition.
	w.forceState(false)

	assert.Equal(t, []events.Kind{events.KindOnline, events.KindOffline}, kinds)
}

func TestWatcher_OnOnlineFiresOncePerTransition(t *testing.T) {
	w := NewWatcher(func(ctx context.Context) error { return errors.New("down") }, time.Hour, nil, nil)

	var fired atomic.Int32
	done := make(chan struct{}, 4)
	w.OnOnline(func() {
		fired.Add(1)
		done <- struct{}{}
	})

	w.Start(context.Background())
	defer w.Stop()

	w.forceState(true)
	<-done
	assert.Equal(t, int32(1), fired.Load())

	// Still online: no second trigger.
	w.forceState(true)

	w.forceState(false)
	w.forceState(true)
	<-done
	assert.Equal(t, int32(2), fired.Load())
}

func TestWatcher_NilProbeDegradesToManual(t *testing.T) {
	w := NewWatcher(nil, time.Hour, nil, nil)

	require.NotPanics(t, func() { w.Start(context.Background()) })
	defer w.Stop()

	assert.False(t, w.IsOnline())

	w.forceState(true)
	assert.True(t, w.IsOnline())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(func(ctx context.Context) error { return nil }, time.Hour, nil, nil)
	w.Start(context.Background())

	w.Stop()
	require.NotPanics(t, w.Stop)
}
