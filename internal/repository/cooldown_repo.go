package repository

import (
	"context"
	"time"
)

// CooldownRepository defines the interface for the server-authoritative
// per-operator trigger cooldown.
type CooldownRepository interface {
	// Acquire attempts to start a new cooldown window for the operator. It
	// returns accepted=true when no window was active; otherwise it returns
	// the remaining time of the active window.
	Acquire(ctx context.Context, username string, window time.Duration) (accepted bool, remaining time.Duration, err error)
	// Remaining reports the time left on the active window, or zero when the
	// operator may trigger.
	Remaining(ctx context.Context, username string) (time.Duration, error)
}
