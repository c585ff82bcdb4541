package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/lockout"
	"github.com/BradenHooton/gatehouse/internal/models"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
)

// LoginAuditor receives exactly one record per gate call
type LoginAuditor interface {
	Append(ctx context.Context, attempt *models.LoginAttempt)
}

const messageVerifyError = "login failed: internal error"

// LoginService is the login gate: lock check, credential verification,
// audit write and lockout bookkeeping, in that order.
type LoginService struct {
	store       lockout.Store
	verifier    *CredentialVerifier
	users       UserRepository
	audit       LoginAuditor
	clientInfo  ClientInfoParser
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewLoginService creates a new LoginService. timing may be nil.
func NewLoginService(
	store lockout.Store,
	verifier *CredentialVerifier,
	users UserRepository,
	audit LoginAuditor,
	clientInfo ClientInfoParser,
	timing *auth.TimingDelay,
	logger *slog.Logger,
) *LoginService {
	if clientInfo == nil {
		clientInfo = NewUserAgentParser()
	}
	return &LoginService{
		store:       store,
		verifier:    verifier,
		users:       users,
		audit:       audit,
		clientInfo:  clientInfo,
		timing:      timing,
		logger:      logger,
		auditLogger: pkglogger.NewAuditLogger(logger),
		now:         time.Now,
	}
}

// SetClock overrides the clock stamped on audit records
func (s *LoginService) SetClock(now func() time.Time) {
	s.now = now
}

// Login authenticates a user name and password. attempt is filled in and
// written to the audit log whatever the outcome.
func (s *LoginService) Login(ctx context.Context, req models.LoginRequest, attempt *models.LoginAttempt) (*models.User, error) {
	if attempt == nil {
		attempt = &models.LoginAttempt{}
	}
	identifier := strings.TrimSpace(req.UserName)
	s.fillAttempt(attempt, identifier, req.ClientIP, req.UserAgent)

	return s.authenticate(ctx, identifier, attempt, func(ctx context.Context) (*models.User, error) {
		return s.verifier.VerifyPassword(ctx, identifier, req.Password)
	})
}

// PhoneLogin authenticates a phone number and one-time code. Lockout and
// audit are keyed by the resolved user name, or by the phone number when
// no account has it.
func (s *LoginService) PhoneLogin(ctx context.Context, req models.PhoneLoginRequest, attempt *models.LoginAttempt) (*models.User, error) {
	if attempt == nil {
		attempt = &models.LoginAttempt{}
	}
	identifier := strings.TrimSpace(req.Phone)

	user, err := s.verifier.LookupByPhone(ctx, identifier)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve phone login", slog.Any("error", err))
	} else if user != nil {
		identifier = user.UserName
	}

	s.fillAttempt(attempt, identifier, req.ClientIP, req.UserAgent)

	return s.authenticate(ctx, identifier, attempt, func(ctx context.Context) (*models.User, error) {
		return s.verifier.VerifyPhoneOTP(ctx, req.Phone, req.Code)
	})
}

func (s *LoginService) authenticate(
	ctx context.Context,
	identifier string,
	attempt *models.LoginAttempt,
	verify func(ctx context.Context) (*models.User, error),
) (*models.User, error) {
	startedAt := time.Now()

	if state := s.lockState(ctx, identifier); state.Locked {
		lerr := models.NewAccountLockedError(state.RemainingMinutes())
		s.record(ctx, attempt, models.LoginStatusFailure, lerr.Message)
		return nil, lerr
	}

	user, err := verify(ctx)
	switch {
	case err == nil:
		s.record(ctx, attempt, models.LoginStatusSuccess, models.MessageLoginSuccess)
		s.onSuccess(ctx, identifier, attempt.IPAddress, user)
		return user, nil

	case errors.Is(err, models.ErrInvalidCredentials):
		lerr := models.NewInvalidCredentialsError()
		s.record(ctx, attempt, models.LoginStatusFailure, lerr.Message)
		s.recordFailure(ctx, identifier)
		s.pad(startedAt)
		return nil, lerr

	case errors.Is(err, models.ErrAccountDisabled):
		lerr := models.NewAccountDisabledError()
		s.record(ctx, attempt, models.LoginStatusFailure, lerr.Message)
		s.pad(startedAt)
		return nil, lerr

	default:
		s.logger.ErrorContext(ctx, "credential verification failed",
			slog.String("user", pkglogger.SanitizedUserName(identifier)),
			slog.Any("error", err))
		s.record(ctx, attempt, models.LoginStatusFailure, messageVerifyError)
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
}

// lockState fails open: a store fault must not lock everyone out
func (s *LoginService) lockState(ctx context.Context, identifier string) models.LockState {
	state, err := s.store.GetLockState(ctx, identifier)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read lock state",
			slog.String("user", pkglogger.SanitizedUserName(identifier)),
			slog.Any("error", err))
		return models.LockState{}
	}
	return state
}

func (s *LoginService) recordFailure(ctx context.Context, identifier string) {
	state, err := s.store.RecordFailure(ctx, identifier)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record login failure",
			slog.String("user", pkglogger.SanitizedUserName(identifier)),
			slog.Any("error", err))
		return
	}

	if state.Locked {
		s.logger.WarnContext(ctx, "account locked",
			slog.String("user", pkglogger.SanitizedUserName(identifier)),
			slog.Int("failures", state.Failures),
			slog.Duration("duration", state.Remaining))
	}
}

func (s *LoginService) onSuccess(ctx context.Context, identifier, ip string, user *models.User) {
	if err := s.store.Clear(ctx, identifier); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear lockout state",
			slog.String("user", pkglogger.SanitizedUserName(identifier)),
			slog.Any("error", err))
	}

	if err := s.users.UpdateLastLogin(ctx, ip, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to update last login",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err))
	}
}

func (s *LoginService) fillAttempt(attempt *models.LoginAttempt, identifier, ip, userAgent string) {
	info := s.clientInfo.Parse(userAgent)

	attempt.UserName = identifier
	attempt.IPAddress = ip
	attempt.Browser = info.Browser
	attempt.OS = info.OS
	attempt.LoginTime = s.now()
}

func (s *LoginService) record(ctx context.Context, attempt *models.LoginAttempt, status, message string) {
	attempt.Status = status
	attempt.Message = message
	s.audit.Append(ctx, attempt)
}

func (s *LoginService) pad(startedAt time.Time) {
	if s.timing != nil {
		s.timing.WaitFrom(startedAt, false)
	}
}

// LockState reports the current lockout state of a user name
func (s *LoginService) LockState(ctx context.Context, userName string) (models.LockState, error) {
	return s.store.GetLockState(ctx, strings.TrimSpace(userName))
}

// Unlock clears the failure counter and any active lock of a user name
func (s *LoginService) Unlock(ctx context.Context, userName, operatorIP string) error {
	userName = strings.TrimSpace(userName)
	if err := s.store.Clear(ctx, userName); err != nil {
		return fmt.Errorf("clear lockout state: %w", err)
	}

	s.auditLogger.LogAccountAction(ctx, "account_unlocked", userName, operatorIP, nil)
	return nil
}
