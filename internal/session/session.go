// Package session owns the lifecycle of one remote CLI session to one device:
// open, authenticate, issue commands, close. A session is owned exclusively by
// the task auditing its device and is never shared across tasks.
package session

import (
	"context"

	"netaudit/internal/domain"
)

// State tracks the connection lifecycle. Failed is terminal and reachable from
// any non-terminal state.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateConnecting    State = "connecting"
	StateAuthenticated State = "authenticated"
	StateReady         State = "ready"
	StateClosed        State = "closed"
	StateFailed        State = "failed"
)

// Shell executes one CLI command on an open session. It is the only surface
// rules and discovery see.
type Shell interface {
	// Send runs a command and returns its output. It enforces the per-command
	// timeout and fails with *CommandError. A timed-out command does not
	// necessarily invalidate the session; the caller decides whether to retry
	// or abandon.
	Send(ctx context.Context, command string) (string, error)
}

// Session is a live remote session bound to exactly one device.
type Session interface {
	Shell

	// Close releases the session. Idempotent, safe on all exit paths, never
	// returns an error worth acting on.
	Close() error

	// State reports the current lifecycle state.
	State() State
}

// Dialer opens sessions. The scheduler depends on this interface so tests can
// substitute instrumented or failing implementations.
type Dialer interface {
	// Dial opens and authenticates a session within the connect timeout. On
	// failure it returns *ConnectError and holds no resources.
	Dial(ctx context.Context, device *domain.Device, creds domain.Credentials) (Session, error)
}
