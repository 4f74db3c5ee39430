// Package connectivity tracks whether the remote backend is reachable and
// notifies subscribers about online/offline transitions.
//
// There is no ambient connectivity signal for a headless agent, so the
// watcher derives one from a periodic reachability probe against the API's
// health endpoint. Consumers that only need the current state depend on the
// Monitor interface and can inject a fixed fake in tests.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miralcamp/camposync/internal/events"
)

// Monitor exposes the current connectivity state.
type Monitor interface {
	IsOnline() bool
}

// ProbeFunc checks reachability; a nil error means online.
type ProbeFunc func(ctx context.Context) error

// Static is a fixed-state Monitor for composition roots that do not run a
// watcher, and for tests.
type Static struct {
	online atomic.Bool
}

// NewStatic creates a Static monitor with the given initial state.
func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

// IsOnline reports the configured state.
func (s *Static) IsOnline() bool { return s.online.Load() }

// Set changes the configured state.
func (s *Static) Set(online bool) { s.online.Store(online) }

// Watcher polls a reachability probe and publishes transition events. On an
// offline-to-online transition it additionally invokes the registered drain
// trigger exactly once, fire-and-forget.
type Watcher struct {
	probe    ProbeFunc
	interval time.Duration
	bus      *events.Bus
	logger   *slog.Logger

	onOnline func()

	online  atomic.Bool
	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a connectivity watcher. A nil probe leaves the watcher
// permanently degraded: Start logs the condition and the state stays
// offline until something calls forceState — refreshes and drains then only
// happen on explicit operator request.
func NewWatcher(probe ProbeFunc, interval time.Duration, bus *events.Bus, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		probe:    probe,
		interval: interval,
		bus:      bus,
		logger:   logger,
	}
}

// IsOnline reports the last observed connectivity state.
func (w *Watcher) IsOnline() bool {
	return w.online.Load()
}

// OnOnline registers the drain trigger invoked after each offline-to-online
// transition. Must be called before Start.
func (w *Watcher) OnOnline(fn func()) {
	w.onOnline = fn
}

// Start seeds the state with one synchronous probe and begins the watch
// loop. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	if w.probe == nil {
		w.logger.Warn("connectivity probe unavailable, watcher degraded to manual mode")
		return
	}

	// Initial state, observed synchronously so callers see a settled value
	// after Start returns. No transition events for the first observation.
	w.online.Store(w.probeOnce(ctx))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.observe(ctx)
			}
		}
	}()
}

// Stop terminates the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// observe runs one probe and applies any state transition.
func (w *Watcher) observe(ctx context.Context) {
	w.applyState(w.probeOnce(ctx))
}

// probeOnce runs the probe with a bounded timeout.
func (w *Watcher) probeOnce(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	return w.probe(probeCtx) == nil
}

// applyState flips the flag on a transition, publishes the matching event,
// and fires the drain trigger when connectivity returns.
func (w *Watcher) applyState(online bool) {
	previous := w.online.Swap(online)
	if previous == online {
		return
	}

	if online {
		w.logger.Info("connectivity restored")
		if w.bus != nil {
			w.bus.Publish(events.Online{})
		}
		w.triggerDrain()
	} else {
		w.logger.Info("connectivity lost")
		if w.bus != nil {
			w.bus.Publish(events.Offline{})
		}
	}
}

// triggerDrain invokes the registered drain trigger on its own goroutine.
// Drain failures must not crash the watcher, so panics are contained here.
func (w *Watcher) triggerDrain() {
	fn := w.onOnline
	if fn == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("automatic drain panicked", "panic", r)
			}
		}()
		fn()
	}()
}

// forceState overrides the observed state, applying transition side effects.
// Used by tests and by degraded-mode operation.
func (w *Watcher) forceState(online bool) {
	w.applyState(online)
}
