package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	FindByUserNameFunc  func(ctx context.Context, userName string) (*models.User, error)
	FindByPhoneFunc     func(ctx context.Context, phone string) (*models.User, error)
	UpdateLastLoginFunc func(ctx context.Context, ip string, userID int64) error

	FindByUserNameCalls  atomic.Int64
	UpdateLastLoginCalls atomic.Int64
}

func (m *MockUserRepository) FindByUserName(ctx context.Context, userName string) (*models.User, error) {
	m.FindByUserNameCalls.Add(1)
	if m.FindByUserNameFunc != nil {
		return m.FindByUserNameFunc(ctx, userName)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	if m.FindByPhoneFunc != nil {
		return m.FindByPhoneFunc(ctx, phone)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, ip string, userID int64) error {
	m.UpdateLastLoginCalls.Add(1)
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, ip, userID)
	}
	return nil
}

// NewUserDirectory returns a MockUserRepository backed by the given users
func NewUserDirectory(users ...*models.User) *MockUserRepository {
	byName := make(map[string]*models.User, len(users))
	byPhone := make(map[string]*models.User, len(users))
	for _, u := range users {
		byName[u.UserName] = u
		if u.Phone != "" {
			byPhone[u.Phone] = u
		}
	}

	return &MockUserRepository{
		FindByUserNameFunc: func(ctx context.Context, userName string) (*models.User, error) {
			if u, ok := byName[userName]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
		FindByPhoneFunc: func(ctx context.Context, phone string) (*models.User, error) {
			if u, ok := byPhone[phone]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
	}
}

// NewTestUser creates an enabled user whose stored hash is the bare digest of secret
func NewTestUser(id int64, userName, secret string) *models.User {
	now := time.Now()
	return &models.User{
		ID:           id,
		UserName:     userName,
		NickName:     userName,
		PasswordHash: pkgauth.Digest(secret),
		Status:       models.UserStatusEnabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MockLoginLogRepository implements LoginLogRepository for testing
type MockLoginLogRepository struct {
	InsertFunc      func(ctx context.Context, attempt *models.LoginAttempt) error
	QueryFunc       func(ctx context.Context, q repositories.LoginLogQuery) ([]models.LoginAttempt, error)
	CountFunc       func(ctx context.Context, q repositories.LoginLogQuery) (int64, error)
	DeleteByIDsFunc func(ctx context.Context, ids []int64) (int64, error)
	TruncateFunc    func(ctx context.Context) error
}

func (m *MockLoginLogRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, attempt)
	}
	return nil
}

func (m *MockLoginLogRepository) Query(ctx context.Context, q repositories.LoginLogQuery) ([]models.LoginAttempt, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, q)
	}
	return []models.LoginAttempt{}, nil
}

func (m *MockLoginLogRepository) Count(ctx context.Context, q repositories.LoginLogQuery) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, q)
	}
	return 0, nil
}

func (m *MockLoginLogRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if m.DeleteByIDsFunc != nil {
		return m.DeleteByIDsFunc(ctx, ids)
	}
	return 0, nil
}

func (m *MockLoginLogRepository) Truncate(ctx context.Context) error {
	if m.TruncateFunc != nil {
		return m.TruncateFunc(ctx)
	}
	return nil
}

// RecordingAuditor implements LoginAuditor by keeping every record in memory
type RecordingAuditor struct {
	mu      sync.Mutex
	records []models.LoginAttempt
}

func (a *RecordingAuditor) Append(_ context.Context, attempt *models.LoginAttempt) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, *attempt)
}

// Records returns a copy of everything appended so far
func (a *RecordingAuditor) Records() []models.LoginAttempt {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.LoginAttempt(nil), a.records...)
}

// StaticClientInfo implements ClientInfoParser with a fixed answer
type StaticClientInfo struct {
	Info ClientInfo
}

func (p StaticClientInfo) Parse(string) ClientInfo {
	return p.Info
}

// StubOTPVerifier accepts exactly one code
type StubOTPVerifier struct {
	ValidCode string
}

func (v StubOTPVerifier) Verify(secret, code string) bool {
	return secret != "" && code == v.ValidCode
}

// FakeClock is a manually advanced clock safe for concurrent use
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
