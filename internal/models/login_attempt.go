package models

import (
	"time"
	"unicode/utf8"
)

// Login attempt status codes as stored in login_logs.status
const (
	LoginStatusSuccess = "0"
	LoginStatusFailure = "1"
)

// LoginAttempt is one immutable entry of the login audit trail
type LoginAttempt struct {
	ID        int64     `db:"id" json:"id"`
	UserName  string    `db:"user_name" json:"username"`
	Status    string    `db:"status" json:"status"`
	Message   string    `db:"msg" json:"msg"`
	IPAddress string    `db:"ip_address" json:"ipaddr"`
	Location  string    `db:"login_location" json:"login_location,omitempty"`
	Browser   string    `db:"browser" json:"browser"`
	OS        string    `db:"os" json:"os"`
	LoginTime time.Time `db:"login_time" json:"login_time"`
}

// Column widths of login_logs, in characters
const (
	MaxLogUserNameLen = 64
	MaxLogMessageLen  = 255
	MaxLogIPLen       = 64
	MaxLogLocationLen = 255
	MaxLogBrowserLen  = 128
	MaxLogOSLen       = 128
)

// Clip shortens every free-text field to its column width so that client
// supplied values can never make the insert fail
func (a *LoginAttempt) Clip() {
	a.UserName = clipRunes(a.UserName, MaxLogUserNameLen)
	a.Message = clipRunes(a.Message, MaxLogMessageLen)
	a.IPAddress = clipRunes(a.IPAddress, MaxLogIPLen)
	a.Location = clipRunes(a.Location, MaxLogLocationLen)
	a.Browser = clipRunes(a.Browser, MaxLogBrowserLen)
	a.OS = clipRunes(a.OS, MaxLogOSLen)
}

func clipRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// IsSuccess reports whether the attempt was accepted
func (a *LoginAttempt) IsSuccess() bool {
	return a.Status == LoginStatusSuccess
}

// LoginLogFilter narrows a login log query. Zero values mean "no filter",
// except BeginTime: nil means "from the start of today".
type LoginLogFilter struct {
	UserName  string
	IPAddress string
	Status    string
	BeginTime *time.Time
	EndTime   *time.Time
}

// LoginRequest is the password login value object handed to the gate
type LoginRequest struct {
	UserName  string
	Password  string
	ClientIP  string
	UserAgent string
}

// PhoneLoginRequest is the phone + one-time code login value object
type PhoneLoginRequest struct {
	Phone     string
	Code      string
	ClientIP  string
	UserAgent string
}
