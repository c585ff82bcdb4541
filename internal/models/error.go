package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login gate errors
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAccountLocked      = errors.New("account locked")
)

// LoginFailureReason is the machine-readable code of a rejected login
type LoginFailureReason string

const (
	ReasonInvalidCredentials LoginFailureReason = "invalid_credentials"
	ReasonAccountDisabled    LoginFailureReason = "account_disabled"
	ReasonAccountLocked      LoginFailureReason = "account_locked"
)

// Audit messages written for each gate outcome
const (
	MessageLoginSuccess       = "login successful"
	MessageInvalidCredentials = "invalid username or password"
	MessageAccountDisabled    = "account disabled"
)

// LoginError is the classified error returned by the login gate.
// errors.Is matches it against ErrInvalidCredentials, ErrAccountDisabled
// or ErrAccountLocked depending on Reason.
type LoginError struct {
	Reason           LoginFailureReason
	Message          string
	RemainingMinutes int
}

func (e *LoginError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel matching the reason
func (e *LoginError) Unwrap() error {
	switch e.Reason {
	case ReasonAccountLocked:
		return ErrAccountLocked
	case ReasonAccountDisabled:
		return ErrAccountDisabled
	default:
		return ErrInvalidCredentials
	}
}

// NewInvalidCredentialsError builds the error for unknown users and bad secrets
func NewInvalidCredentialsError() *LoginError {
	return &LoginError{Reason: ReasonInvalidCredentials, Message: MessageInvalidCredentials}
}

// NewAccountDisabledError builds the error for disabled principals
func NewAccountDisabledError() *LoginError {
	return &LoginError{Reason: ReasonAccountDisabled, Message: MessageAccountDisabled}
}

// NewAccountLockedError builds the lockout error carrying the remaining minutes
func NewAccountLockedError(remainingMinutes int) *LoginError {
	return &LoginError{
		Reason:           ReasonAccountLocked,
		Message:          fmt.Sprintf("account locked, %d minutes remaining", remainingMinutes),
		RemainingMinutes: remainingMinutes,
	}
}

// AsLoginError extracts a *LoginError from err
func AsLoginError(err error) (*LoginError, bool) {
	var le *LoginError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
