package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/handlers"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monitorRouter(h *handlers.LoginLogHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/monitor/logininfor", func(r chi.Router) {
		r.Get("/", h.List)
		r.Delete("/clean", h.Clean)
		r.Delete("/{ids}", h.Delete)
		r.Put("/unlock/{username}", h.Unlock)
		r.Get("/lock/{username}", h.LockState)
	})
	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestLoginLogList_PassesFilter(t *testing.T) {
	var gotFilter models.LoginLogFilter
	var gotPage models.PageRequest
	logs := &handlers.MockLoginLogService{
		QueryFunc: func(ctx context.Context, filter models.LoginLogFilter, page models.PageRequest) (*models.PagedResult[models.LoginAttempt], error) {
			gotFilter, gotPage = filter, page
			return &models.PagedResult[models.LoginAttempt]{
				Items:    []models.LoginAttempt{{ID: 3, UserName: "alice"}},
				Total:    1,
				PageNum:  2,
				PageSize: 5,
			}, nil
		},
	}
	router := monitorRouter(handlers.NewLoginLogHandler(logs, &handlers.MockLockoutAdmin{}, nil, testLogger()))

	w := serve(router, "GET", "/monitor/logininfor/?username=ali&ipaddr=10.0.0.1&status=1&page=2&page_size=5&begin_time=2026-04-01&end_time=2026-04-02%2023:59:59")

	var resp models.PagedResult[models.LoginAttempt]
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(3), resp.Items[0].ID)

	assert.Equal(t, "ali", gotFilter.UserName)
	assert.Equal(t, "10.0.0.1", gotFilter.IPAddress)
	assert.Equal(t, "1", gotFilter.Status)
	require.NotNil(t, gotFilter.BeginTime)
	require.NotNil(t, gotFilter.EndTime)
	assert.True(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local).Equal(*gotFilter.BeginTime))
	assert.True(t, time.Date(2026, 4, 2, 23, 59, 59, 0, time.Local).Equal(*gotFilter.EndTime))
	assert.Equal(t, models.PageRequest{PageNum: 2, PageSize: 5}, gotPage)
}

func TestLoginLogList_DateOnlyEndCoversWholeDay(t *testing.T) {
	var gotFilter models.LoginLogFilter
	logs := &handlers.MockLoginLogService{
		QueryFunc: func(ctx context.Context, filter models.LoginLogFilter, page models.PageRequest) (*models.PagedResult[models.LoginAttempt], error) {
			gotFilter = filter
			return &models.PagedResult[models.LoginAttempt]{Items: []models.LoginAttempt{}}, nil
		},
	}
	router := monitorRouter(handlers.NewLoginLogHandler(logs, &handlers.MockLockoutAdmin{}, nil, testLogger()))

	w := serve(router, "GET", "/monitor/logininfor/?begin_time=2026-05-04&end_time=2026-05-04")

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotFilter.BeginTime)
	require.NotNil(t, gotFilter.EndTime)
	assert.True(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.Local).Equal(*gotFilter.BeginTime))

	lastOfDay := time.Date(2026, 5, 4, 23, 59, 59, 999999999, time.Local)
	assert.True(t, lastOfDay.Equal(*gotFilter.EndTime))
	assert.True(t, time.Date(2026, 5, 4, 18, 30, 0, 0, time.Local).Before(*gotFilter.EndTime))
}

func TestLoginLogList_NoTimesLeavesWindowToService(t *testing.T) {
	var gotFilter models.LoginLogFilter
	logs := &handlers.MockLoginLogService{
		QueryFunc: func(ctx context.Context, filter models.LoginLogFilter, page models.PageRequest) (*models.PagedResult[models.LoginAttempt], error) {
			gotFilter = filter
			return &models.PagedResult[models.LoginAttempt]{Items: []models.LoginAttempt{}}, nil
		},
	}
	router := monitorRouter(handlers.NewLoginLogHandler(logs, &handlers.MockLockoutAdmin{}, nil, testLogger()))

	w := serve(router, "GET", "/monitor/logininfor/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, gotFilter.BeginTime)
	assert.Nil(t, gotFilter.EndTime)
}

func TestLoginLogList_BadParams(t *testing.T) {
	router := monitorRouter(handlers.NewLoginLogHandler(&handlers.MockLoginLogService{}, &handlers.MockLockoutAdmin{}, nil, testLogger()))

	for _, q := range []string{
		"status=2",
		"page=abc",
		"page_size=500",
		"begin_time=yesterday",
		"begin_time=2026-04-02&end_time=2026-04-01",
	} {
		t.Run(q, func(t *testing.T) {
			w := serve(router, "GET", "/monitor/logininfor/?"+q)
			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}

func TestLoginLogList_ServiceError(t *testing.T) {
	logs := &handlers.MockLoginLogService{
		QueryFunc: func(ctx context.Context, filter models.LoginLogFilter, page models.PageRequest) (*models.PagedResult[models.LoginAttempt], error) {
			return nil, errors.New("boom")
		},
	}
	router := monitorRouter(handlers.NewLoginLogHandler(logs, &handlers.MockLockoutAdmin{}, nil, testLogger()))

	w := serve(router, "GET", "/monitor/logininfor/")

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
}

func TestLoginLogDelete(t *testing.T) {
	var got []int64
	logs := &handlers.MockLoginLogService{
		DeleteByIDsFunc: func(ctx context.Context, ids []int64) (int64, error) {
			got = ids
			return 2, nil
		},
	}
	router := monitorRouter(handlers.NewLoginLogHandler(logs, &handlers.MockLockoutAdmin{}, nil, testLogger()))

	w := serve(router, "DELETE", "/monitor/logininfor/4,5,99")

	var resp map[string]int64
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, int64(2), resp["deleted"])
	assert.Equal(t, []int64{4, 5, 99}, got)
}

func TestLoginLogDelete_InvalidIDs(t *testing.T) {
	router := monitorRouter(handlers.NewLoginLogHandler(&handlers.MockLoginLogService{}, &handlers.MockLockoutAdmin{}, nil, testLogger()))

	for _, ids := range []string{"abc", "1,x", "-3", ",,"} {
		w := serve(router, "DELETE", "/monitor/logininfor/"+ids)
		handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
	}
}

func TestLoginLogClean(t *testing.T) {
	truncated := false
	logs := &handlers.MockLoginLogService{
		TruncateFunc: func(ctx context.Context) error {
			truncated = true
			return nil
		},
	}
	router := monitorRouter(handlers.NewLoginLogHandler(logs, &handlers.MockLockoutAdmin{}, nil, testLogger()))

	w := serve(router, "DELETE", "/monitor/logininfor/clean")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, truncated)
}

func TestLoginLogUnlock(t *testing.T) {
	var gotUser, gotIP string
	admin := &handlers.MockLockoutAdmin{
		UnlockFunc: func(ctx context.Context, userName, operatorIP string) error {
			gotUser, gotIP = userName, operatorIP
			return nil
		},
	}
	router := monitorRouter(handlers.NewLoginLogHandler(&handlers.MockLoginLogService{}, admin, nil, testLogger()))

	w := serve(router, "PUT", "/monitor/logininfor/unlock/alice")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, "192.0.2.1", gotIP)
}

func TestLoginLogLockState(t *testing.T) {
	admin := &handlers.MockLockoutAdmin{
		LockStateFunc: func(ctx context.Context, userName string) (models.LockState, error) {
			return models.LockState{Locked: true, Remaining: 29*time.Minute + 40*time.Second, Failures: 5}, nil
		},
	}
	router := monitorRouter(handlers.NewLoginLogHandler(&handlers.MockLoginLogService{}, admin, nil, testLogger()))

	w := serve(router, "GET", "/monitor/logininfor/lock/alice")

	var resp handlers.LockStateResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "alice", resp.UserName)
	assert.True(t, resp.Locked)
	assert.Equal(t, 5, resp.Failures)
	assert.Equal(t, int64(1780), resp.RemainingSeconds)
	assert.Equal(t, 30, resp.RemainingMinutes)
}
