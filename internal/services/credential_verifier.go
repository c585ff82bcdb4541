package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
)

// UserRepository defines the user directory operations the gate needs
type UserRepository interface {
	FindByUserName(ctx context.Context, userName string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, ip string, userID int64) error
}

// OTPVerifier checks a one-time code against a principal's shared secret
type OTPVerifier interface {
	Verify(secret, code string) bool
}

// dummySecretHash is compared against when the user does not exist so
// that unknown and known accounts cost the same
var dummySecretHash = sync.OnceValue(func() string {
	hash, err := pkgauth.HashSecret("gatehouse-unknown-account")
	if err != nil {
		return ""
	}
	return hash
})

// CredentialVerifier decides whether a presented secret matches a principal.
// It never mutates state.
type CredentialVerifier struct {
	users        UserRepository
	otp          OTPVerifier
	digestLength int
	logger       *slog.Logger
}

// NewCredentialVerifier creates a new CredentialVerifier
func NewCredentialVerifier(users UserRepository, otp OTPVerifier, digestLength int, logger *slog.Logger) *CredentialVerifier {
	if digestLength <= 0 {
		digestLength = pkgauth.DefaultDigestLength
	}
	return &CredentialVerifier{
		users:        users,
		otp:          otp,
		digestLength: digestLength,
		logger:       logger,
	}
}

// VerifyPassword returns the principal when secret matches. Unknown users
// and wrong secrets both yield models.ErrInvalidCredentials; a disabled
// account always yields models.ErrAccountDisabled, whatever the secret.
func (v *CredentialVerifier) VerifyPassword(ctx context.Context, userName, secret string) (*models.User, error) {
	digest := pkgauth.NormalizeSecret(secret, v.digestLength)

	user, err := v.users.FindByUserName(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkgauth.CompareSecret(dummySecretHash(), digest)
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	// compare before the status check so every found account costs one hash
	matched := pkgauth.CompareSecret(user.PasswordHash, digest)

	if user.IsDisabled() {
		return nil, models.ErrAccountDisabled
	}
	if !matched {
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}

// VerifyPhoneOTP resolves the principal by phone and checks the one-time
// code. It follows the same error contract as VerifyPassword.
func (v *CredentialVerifier) VerifyPhoneOTP(ctx context.Context, phone, code string) (*models.User, error) {
	user, err := v.LookupByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrInvalidCredentials
	}

	matched := user.OTPSecret != "" && v.otp != nil && v.otp.Verify(user.OTPSecret, strings.TrimSpace(code))

	if user.IsDisabled() {
		return nil, models.ErrAccountDisabled
	}
	if !matched {
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}

// LookupByPhone returns nil without error when no principal has the phone
func (v *CredentialVerifier) LookupByPhone(ctx context.Context, phone string) (*models.User, error) {
	user, err := v.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by phone: %w", err)
	}
	return user, nil
}
