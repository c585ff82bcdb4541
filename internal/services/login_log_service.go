package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
	"github.com/cenkalti/backoff/v4"
)

// LoginLogRepository defines the persistence operations of the login audit trail
type LoginLogRepository interface {
	Insert(ctx context.Context, attempt *models.LoginAttempt) error
	Query(ctx context.Context, q repositories.LoginLogQuery) ([]models.LoginAttempt, error)
	Count(ctx context.Context, q repositories.LoginLogQuery) (int64, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	Truncate(ctx context.Context) error
}

// LoginLogConfig bounds the audit write path
type LoginLogConfig struct {
	WriteTimeout   time.Duration // per insert attempt
	RetryQueueSize int
	MaxRetryTime   time.Duration // total backoff budget per record
}

// LoginLogService appends and queries login attempts. Appends are
// dual-written: always to the slog audit stream, and to the database with
// an out-of-band retry when the first insert fails.
type LoginLogService struct {
	repo        LoginLogRepository
	cfg         LoginLogConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time

	mu      sync.RWMutex
	closed  bool
	retryCh chan models.LoginAttempt
	stop    context.CancelFunc
	stopCtx context.Context
	done    chan struct{}
}

// NewLoginLogService creates a LoginLogService and starts its retry worker.
// Call Close on shutdown.
func NewLoginLogService(repo LoginLogRepository, cfg LoginLogConfig, logger *slog.Logger) *LoginLogService {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.RetryQueueSize <= 0 {
		cfg.RetryQueueSize = 1024
	}
	if cfg.MaxRetryTime <= 0 {
		cfg.MaxRetryTime = 2 * time.Minute
	}

	stopCtx, stop := context.WithCancel(context.Background())
	s := &LoginLogService{
		repo:        repo,
		cfg:         cfg,
		logger:      logger,
		auditLogger: pkglogger.NewAuditLogger(logger),
		now:         time.Now,
		retryCh:     make(chan models.LoginAttempt, cfg.RetryQueueSize),
		stop:        stop,
		stopCtx:     stopCtx,
		done:        make(chan struct{}),
	}

	go s.retryWorker()

	return s
}

// SetClock overrides the clock used to resolve the default "today" window
func (s *LoginLogService) SetClock(now func() time.Time) {
	s.now = now
}

// Append records one attempt. It never fails the caller: a record that
// cannot be inserted is retried in the background, and if that is not
// possible it is written to the structured log in full.
func (s *LoginLogService) Append(ctx context.Context, attempt *models.LoginAttempt) {
	event := pkglogger.AuditEvent{
		EventType: "login",
		UserName:  attempt.UserName,
		IPAddress: attempt.IPAddress,
		Browser:   attempt.Browser,
		OS:        attempt.OS,
		Success:   attempt.IsSuccess(),
		Time:      attempt.LoginTime,
	}
	if !attempt.IsSuccess() {
		event.FailureReason = attempt.Message
	}
	s.auditLogger.LogAuthAttempt(ctx, event)

	attempt.Clip()

	// the caller's cancellation must not lose the record
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	if err := s.repo.Insert(writeCtx, attempt); err != nil {
		if isPermanentInsertError(err) {
			s.dump(*attempt, err.Error())
			return
		}
		s.logger.WarnContext(ctx, "failed to persist login log, scheduling retry", slog.Any("error", err))
		s.enqueue(*attempt)
	}
}

// isPermanentInsertError reports whether retrying the same row is pointless
func isPermanentInsertError(err error) bool {
	return errors.Is(err, models.ErrBadRequest) || errors.Is(err, models.ErrConflict)
}

func (s *LoginLogService) enqueue(attempt models.LoginAttempt) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dump(attempt, "audit log closed")
		return
	}

	select {
	case s.retryCh <- attempt:
	default:
		s.dump(attempt, "retry queue full")
	}
}

func (s *LoginLogService) retryWorker() {
	defer close(s.done)

	for attempt := range s.retryCh {
		s.retry(attempt)
	}
}

func (s *LoginLogService) retry(attempt models.LoginAttempt) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.cfg.MaxRetryTime

	op := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		defer cancel()
		if err := s.repo.Insert(ctx, &attempt); err != nil {
			if isPermanentInsertError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Debug("login log retry failed", slog.Any("error", err), slog.Duration("next_in", wait))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, s.stopCtx), notify); err != nil {
		s.dump(attempt, err.Error())
		return
	}

	s.logger.Info("login log persisted after retry", slog.Int64("id", attempt.ID))
}

// dump writes the complete record so it can be recovered from the log stream
func (s *LoginLogService) dump(attempt models.LoginAttempt, reason string) {
	s.logger.Error("login log dropped from database",
		slog.String("reason", reason),
		slog.String("user_name", attempt.UserName),
		slog.String("status", attempt.Status),
		slog.String("msg", attempt.Message),
		slog.String("ip_address", attempt.IPAddress),
		slog.String("browser", attempt.Browser),
		slog.String("os", attempt.OS),
		slog.Time("login_time", attempt.LoginTime),
	)
}

// Close stops accepting retries and waits for the queued ones. Records
// still queued get a single final attempt.
func (s *LoginLogService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.retryCh)
	s.mu.Unlock()

	s.stop()
	<-s.done
}

// Query returns one page of attempts matching filter, newest first.
// Without a BeginTime the window starts at midnight today.
func (s *LoginLogService) Query(ctx context.Context, filter models.LoginLogFilter, page models.PageRequest) (*models.PagedResult[models.LoginAttempt], error) {
	page = page.Normalize()

	q := repositories.LoginLogQuery{
		UserName:  filter.UserName,
		IPAddress: filter.IPAddress,
		Status:    filter.Status,
		Since:     startOfDay(s.now()),
		Until:     filter.EndTime,
		Limit:     page.PageSize,
		Offset:    page.Offset(),
	}
	if filter.BeginTime != nil {
		q.Since = *filter.BeginTime
	}

	total, err := s.repo.Count(ctx, q)
	if err != nil {
		s.logger.Error("failed to count login logs", slog.Any("error", err))
		return nil, fmt.Errorf("query login logs: %w", err)
	}

	items := []models.LoginAttempt{}
	if total > 0 {
		items, err = s.repo.Query(ctx, q)
		if err != nil {
			s.logger.Error("failed to query login logs", slog.Any("error", err))
			return nil, fmt.Errorf("query login logs: %w", err)
		}
	}

	return &models.PagedResult[models.LoginAttempt]{
		Items:    items,
		Total:    total,
		PageNum:  page.PageNum,
		PageSize: page.PageSize,
	}, nil
}

// DeleteByIDs removes the given attempts; unknown ids are ignored
func (s *LoginLogService) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.logger.Info("login logs deleted", slog.Int("requested", len(ids)), slog.Int64("deleted", n))
	return n, nil
}

// Truncate irreversibly clears the login log
func (s *LoginLogService) Truncate(ctx context.Context) error {
	if err := s.repo.Truncate(ctx); err != nil {
		return err
	}

	s.logger.Warn("login log truncated")
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
