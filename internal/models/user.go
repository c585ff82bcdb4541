package models

import (
	"time"
)

// User account status flags
const (
	UserStatusEnabled  = 0
	UserStatusDisabled = 1
)

// User is the principal returned by a successful login. The gate only
// reads it and updates the last-login columns.
type User struct {
	ID           int64      `json:"user_id"`
	UserName     string     `json:"username"`
	NickName     string     `json:"nick_name"`
	Phone        string     `json:"phone,omitempty"`
	PasswordHash string     `json:"-"`
	OTPSecret    string     `json:"-"`
	Status       int        `json:"status"`
	LoginIP      string     `json:"login_ip,omitempty"`
	LoginDate    *time.Time `json:"login_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsDisabled reports whether the account may not log in
func (u *User) IsDisabled() bool {
	return u.Status == UserStatusDisabled
}
