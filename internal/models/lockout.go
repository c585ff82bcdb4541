package models

import (
	"math"
	"time"
)

// LockState is the lockout view of a single identifier
type LockState struct {
	Locked    bool          `json:"locked"`
	Remaining time.Duration `json:"-"`
	Failures  int           `json:"failures"`
}

// RemainingSeconds returns the lock time left in whole seconds
func (s LockState) RemainingSeconds() int64 {
	if !s.Locked || s.Remaining <= 0 {
		return 0
	}
	return int64(math.Ceil(s.Remaining.Seconds()))
}

// RemainingMinutes rounds the lock time left to minutes, never below 1
// while the lock is active.
func (s LockState) RemainingMinutes() int {
	if !s.Locked || s.Remaining <= 0 {
		return 0
	}
	m := int(math.Round(s.Remaining.Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}
