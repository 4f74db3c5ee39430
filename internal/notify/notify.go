// Package notify delivers best-effort user-facing notifications about sync
// outcomes. Delivery is an optional capability: every attempt resolves into
// an Outcome that callers log and move on from — a notification failure
// never affects the operation it annotates.
package notify

import (
	"fmt"
	"os/exec"
)

// Result classifies a notification attempt.
type Result int

const (
	// Sent means the notification was handed to the platform.
	Sent Result = iota
	// Unsupported means no notification mechanism exists on this host.
	Unsupported
	// Denied means the platform refused to show notifications.
	Denied
	// Failed means the mechanism exists but the attempt errored.
	Failed
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case Sent:
		return "sent"
	case Unsupported:
		return "unsupported"
	case Denied:
		return "denied"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Outcome is the resolved result of one notification attempt.
type Outcome struct {
	Result Result
	Err    error
}

// Notification is a short user-facing message.
type Notification struct {
	Title string
	Body  string
}

// Notifier delivers notifications. Implementations never panic and never
// return without an Outcome.
type Notifier interface {
	Notify(n Notification) Outcome
}

// Desktop shells out to notify-send, the common freedesktop notifier.
type Desktop struct {
	// binary overrides the notifier command; tests point it at a stub.
	binary string
}

// NewDesktop creates a desktop notifier.
func NewDesktop() *Desktop {
	return &Desktop{binary: "notify-send"}
}

// Notify attempts delivery. A missing binary resolves to Unsupported; an
// execution error resolves to Failed with the cause attached.
func (d *Desktop) Notify(n Notification) Outcome {
	path, err := exec.LookPath(d.binary)
	if err != nil {
		return Outcome{Result: Unsupported}
	}

	cmd := exec.Command(path, n.Title, n.Body)
	if err := cmd.Run(); err != nil {
		return Outcome{Result: Failed, Err: fmt.Errorf("run %s: %w", d.binary, err)}
	}
	return Outcome{Result: Sent}
}

// Noop discards every notification, reporting Unsupported. Used in tests
// and headless deployments.
type Noop struct{}

// Notify discards the notification.
func (Noop) Notify(Notification) Outcome {
	return Outcome{Result: Unsupported}
}
