package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockLoginGate implements LoginGate for testing
type MockLoginGate struct {
	LoginFunc      func(ctx context.Context, req models.LoginRequest, attempt *models.LoginAttempt) (*models.User, error)
	PhoneLoginFunc func(ctx context.Context, req models.PhoneLoginRequest, attempt *models.LoginAttempt) (*models.User, error)
}

func (m *MockLoginGate) Login(ctx context.Context, req models.LoginRequest, attempt *models.LoginAttempt) (*models.User, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req, attempt)
	}
	return nil, models.NewInvalidCredentialsError()
}

func (m *MockLoginGate) PhoneLogin(ctx context.Context, req models.PhoneLoginRequest, attempt *models.LoginAttempt) (*models.User, error) {
	if m.PhoneLoginFunc != nil {
		return m.PhoneLoginFunc(ctx, req, attempt)
	}
	return nil, models.NewInvalidCredentialsError()
}

// MockLoginLogService implements LoginLogService for testing
type MockLoginLogService struct {
	QueryFunc       func(ctx context.Context, filter models.LoginLogFilter, page models.PageRequest) (*models.PagedResult[models.LoginAttempt], error)
	DeleteByIDsFunc func(ctx context.Context, ids []int64) (int64, error)
	TruncateFunc    func(ctx context.Context) error
}

func (m *MockLoginLogService) Query(ctx context.Context, filter models.LoginLogFilter, page models.PageRequest) (*models.PagedResult[models.LoginAttempt], error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, filter, page)
	}
	return &models.PagedResult[models.LoginAttempt]{Items: []models.LoginAttempt{}}, nil
}

func (m *MockLoginLogService) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if m.DeleteByIDsFunc != nil {
		return m.DeleteByIDsFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *MockLoginLogService) Truncate(ctx context.Context) error {
	if m.TruncateFunc != nil {
		return m.TruncateFunc(ctx)
	}
	return nil
}

// MockLockoutAdmin implements LockoutAdmin for testing
type MockLockoutAdmin struct {
	LockStateFunc func(ctx context.Context, userName string) (models.LockState, error)
	UnlockFunc    func(ctx context.Context, userName, operatorIP string) error
}

func (m *MockLockoutAdmin) LockState(ctx context.Context, userName string) (models.LockState, error) {
	if m.LockStateFunc != nil {
		return m.LockStateFunc(ctx, userName)
	}
	return models.LockState{}, nil
}

func (m *MockLockoutAdmin) Unlock(ctx context.Context, userName, operatorIP string) error {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, userName, operatorIP)
	}
	return nil
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m MockHealthChecker) HealthCheck(context.Context) error {
	return m.Err
}
