package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
)

// LoginLogService defines the audit trail operations exposed to operators
type LoginLogService interface {
	Query(ctx context.Context, filter models.LoginLogFilter, page models.PageRequest) (*models.PagedResult[models.LoginAttempt], error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	Truncate(ctx context.Context) error
}

// LockoutAdmin defines the operator view of lockout state
type LockoutAdmin interface {
	LockState(ctx context.Context, userName string) (models.LockState, error)
	Unlock(ctx context.Context, userName, operatorIP string) error
}

// LoginLogHandler serves the login monitor: audit trail listing and
// maintenance, plus manual unlock
type LoginLogHandler struct {
	logs     LoginLogService
	lockout  LockoutAdmin
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewLoginLogHandler creates a new LoginLogHandler
func NewLoginLogHandler(logs LoginLogService, lockout LockoutAdmin, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *LoginLogHandler {
	return &LoginLogHandler{
		logs:     logs,
		lockout:  lockout,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// ListLoginLogsQuery holds the validated list query parameters
type ListLoginLogsQuery struct {
	UserName  string `json:"username" validate:"max=64"`
	IPAddress string `json:"ipaddr" validate:"max=128"`
	Status    string `json:"status" validate:"omitempty,oneof=0 1"`
	Page      int    `json:"page" validate:"gte=0"`
	PageSize  int    `json:"page_size" validate:"gte=0,lte=100"`
}

// LockStateResponse is the operator view of one identifier's lockout state
type LockStateResponse struct {
	UserName         string `json:"username"`
	Locked           bool   `json:"locked"`
	Failures         int    `json:"failures"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	RemainingMinutes int    `json:"remaining_minutes"`
}

const dateLayout = "2006-01-02"

// accepted layouts for begin_time / end_time, tried in order
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	dateLayout,
}

// parseTimeParam parses a query time in local time. A bare date used as an
// end bound covers the whole day.
func parseTimeParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, raw, time.Local)
		if err != nil {
			continue
		}
		if layout == dateLayout && endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &t, nil
	}
	return nil, fmt.Errorf("unrecognised time %q", raw)
}

func parseIntParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// List returns one page of the login log
// @Summary List login log
// @Produce json
// @Param username query string false "User name substring"
// @Param ipaddr query string false "Exact client address"
// @Param status query string false "0 success, 1 failure"
// @Param begin_time query string false "Window start (inclusive)"
// @Param end_time query string false "Window end (inclusive)"
// @Success 200 {object} models.PagedResult[models.LoginAttempt]
// @Router /monitor/logininfor [get]
func (h *LoginLogHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	page, err := parseIntParam(params.Get("page"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "page must be an integer")
		return
	}
	pageSize, err := parseIntParam(params.Get("page_size"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "page_size must be an integer")
		return
	}

	q := ListLoginLogsQuery{
		UserName:  strings.TrimSpace(params.Get("username")),
		IPAddress: strings.TrimSpace(params.Get("ipaddr")),
		Status:    strings.TrimSpace(params.Get("status")),
		Page:      page,
		PageSize:  pageSize,
	}
	if err := ValidateRequest(q); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	begin, err := parseTimeParam(params.Get("begin_time"), false)
	if err != nil {
		pkghttp.WriteBadRequest(w, "begin_time: "+err.Error())
		return
	}
	end, err := parseTimeParam(params.Get("end_time"), true)
	if err != nil {
		pkghttp.WriteBadRequest(w, "end_time: "+err.Error())
		return
	}
	if begin != nil && end != nil && end.Before(*begin) {
		pkghttp.WriteBadRequest(w, "end_time must not be before begin_time")
		return
	}

	result, err := h.logs.Query(r.Context(), models.LoginLogFilter{
		UserName:  q.UserName,
		IPAddress: q.IPAddress,
		Status:    q.Status,
		BeginTime: begin,
		EndTime:   end,
	}, models.PageRequest{PageNum: q.Page, PageSize: q.PageSize})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list login logs", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Delete removes login log entries by comma-separated ids
// @Router /monitor/logininfor/{ids} [delete]
func (h *LoginLogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(chi.URLParam(r, "ids"))
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	deleted, err := h.logs.DeleteByIDs(r.Context(), ids)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to delete login logs", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// Clean empties the login log
// @Router /monitor/logininfor/clean [delete]
func (h *LoginLogHandler) Clean(w http.ResponseWriter, r *http.Request) {
	if err := h.logs.Truncate(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to truncate login logs", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "login log cleared"})
}

// Unlock clears the lockout state of a user name
// @Router /monitor/logininfor/unlock/{username} [put]
func (h *LoginLogHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	userName := strings.TrimSpace(chi.URLParam(r, "username"))
	if userName == "" {
		pkghttp.WriteBadRequest(w, "username is required")
		return
	}

	if err := h.lockout.Unlock(r.Context(), userName, pkghttp.ExtractClientIP(r, h.ipConfig)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to unlock account", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "account unlocked"})
}

// LockState reports the lockout state of a user name
// @Router /monitor/logininfor/lock/{username} [get]
func (h *LoginLogHandler) LockState(w http.ResponseWriter, r *http.Request) {
	userName := strings.TrimSpace(chi.URLParam(r, "username"))
	if userName == "" {
		pkghttp.WriteBadRequest(w, "username is required")
		return
	}

	state, err := h.lockout.LockState(r.Context(), userName)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read lock state", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LockStateResponse{
		UserName:         userName,
		Locked:           state.Locked,
		Failures:         state.Failures,
		RemainingSeconds: state.RemainingSeconds(),
		RemainingMinutes: state.RemainingMinutes(),
	})
}

func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one id is required")
	}
	return ids, nil
}
