// Package lockout tracks failed login attempts per account identifier and
// decides when an identifier is temporarily locked.
//
// Failures are counted over a rolling window: once Policy.Threshold
// failures fall within the last Policy.Window the identifier is locked for
// Policy.Duration and the counter is frozen; further failures while locked
// are ignored. The entry disappears when the lock expires, when no failure
// is left inside the window, or on Clear.
package lockout

import (
	"context"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
)

// Store is the contract the login gate depends on
type Store interface {
	GetLockState(ctx context.Context, identifier string) (models.LockState, error)
	RecordFailure(ctx context.Context, identifier string) (models.LockState, error)
	Clear(ctx context.Context, identifier string) error
}

// Policy holds the lockout thresholds
type Policy struct {
	Threshold int
	Window    time.Duration
	Duration  time.Duration
}
