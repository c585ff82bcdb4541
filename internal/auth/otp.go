package auth

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPVerifier validates six-digit time-based codes against a base32 secret
type TOTPVerifier struct {
	opts totp.ValidateOpts
	now  func() time.Time
}

// NewTOTPVerifier creates a verifier with a 30s period, accepting one
// step of clock skew either way
func NewTOTPVerifier() *TOTPVerifier {
	return &TOTPVerifier{
		opts: totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
		now: time.Now,
	}
}

// SetClock overrides the verification time
func (v *TOTPVerifier) SetClock(now func() time.Time) {
	v.now = now
}

// Verify reports whether code is valid for secret at the current time.
// Malformed secrets and codes are rejected, not reported.
func (v *TOTPVerifier) Verify(secret, code string) bool {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if secret == "" || len(code) != int(otp.DigitsSix) {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, v.now().UTC(), v.opts)
	return err == nil && ok
}
