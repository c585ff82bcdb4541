package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginError_MatchesSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      *LoginError
		sentinel error
		reason   LoginFailureReason
	}{
		{"invalid credentials", NewInvalidCredentialsError(), ErrInvalidCredentials, ReasonInvalidCredentials},
		{"disabled", NewAccountDisabledError(), ErrAccountDisabled, ReasonAccountDisabled},
		{"locked", NewAccountLockedError(30), ErrAccountLocked, ReasonAccountLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("login: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))

			le, ok := AsLoginError(wrapped)
			assert.True(t, ok)
			assert.Equal(t, tt.reason, le.Reason)
		})
	}
}

func TestLoginError_LockedMessage(t *testing.T) {
	err := NewAccountLockedError(30)

	assert.Equal(t, "account locked, 30 minutes remaining", err.Error())
	assert.Equal(t, 30, err.RemainingMinutes)
	assert.False(t, errors.Is(err, ErrAccountDisabled))
}

func TestLockState_RemainingMinutes(t *testing.T) {
	tests := []struct {
		name    string
		state   LockState
		minutes int
		seconds int64
	}{
		{"unlocked", LockState{}, 0, 0},
		{"full lock", LockState{Locked: true, Remaining: 30 * time.Minute}, 30, 1800},
		{"rounds half up", LockState{Locked: true, Remaining: 90 * time.Second}, 2, 90},
		{"never below one", LockState{Locked: true, Remaining: 10 * time.Second}, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.minutes, tt.state.RemainingMinutes())
			assert.Equal(t, tt.seconds, tt.state.RemainingSeconds())
		})
	}
}

func TestPageRequest_Normalize(t *testing.T) {
	p := PageRequest{PageNum: 0, PageSize: 500}.Normalize()
	assert.Equal(t, 1, p.PageNum)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = PageRequest{PageNum: 3, PageSize: 0}.Normalize()
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 20, p.Offset())
}
