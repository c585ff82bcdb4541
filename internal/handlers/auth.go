package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

const maxLoginBodyBytes = 1 << 16

// LoginGate defines the login operations the HTTP layer calls
type LoginGate interface {
	Login(ctx context.Context, req models.LoginRequest, attempt *models.LoginAttempt) (*models.User, error)
	PhoneLogin(ctx context.Context, req models.PhoneLoginRequest, attempt *models.LoginAttempt) (*models.User, error)
}

// AuthHandler handles login HTTP requests
type AuthHandler struct {
	gate     LoginGate
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(gate LoginGate, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		gate:     gate,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for password login
type LoginRequest struct {
	UserName string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// PhoneLoginRequest represents the request body for phone + one-time code login
type PhoneLoginRequest struct {
	Phone string `json:"phone" validate:"required,max=20"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

// LoginResponse is returned for an accepted login
type LoginResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// Login handles password login
// @Summary Password login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.gate.Login(r.Context(), models.LoginRequest{
		UserName:  strings.TrimSpace(req.UserName),
		Password:  req.Password,
		ClientIP:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.UserAgent(),
	}, &models.LoginAttempt{})
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{Message: models.MessageLoginSuccess, User: user})
}

// PhoneLogin handles phone number + one-time code login
// @Summary Phone login
// @Accept json
// @Param request body PhoneLoginRequest true "Phone login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Router /auth/login/phone [post]
func (h *AuthHandler) PhoneLogin(w http.ResponseWriter, r *http.Request) {
	var req PhoneLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.gate.PhoneLogin(r.Context(), models.PhoneLoginRequest{
		Phone:     strings.TrimSpace(req.Phone),
		Code:      req.Code,
		ClientIP:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.UserAgent(),
	}, &models.LoginAttempt{})
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{Message: models.MessageLoginSuccess, User: user})
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	le, ok := models.AsLoginError(err)
	if !ok {
		h.logger.ErrorContext(r.Context(), "login failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	switch {
	case errors.Is(le, models.ErrAccountLocked):
		pkghttp.WriteLocked(w, le.Message, le.RemainingMinutes)
	case errors.Is(le, models.ErrAccountDisabled):
		pkghttp.WriteError(w, http.StatusUnauthorized, string(models.ReasonAccountDisabled), le.Message)
	default:
		pkghttp.WriteError(w, http.StatusUnauthorized, string(models.ReasonInvalidCredentials), le.Message)
	}
}

// decodeAndValidate reads a JSON body into dst and validates it, writing
// a 400 response and returning false on failure
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}

	if err := ValidateRequest(dst); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}

	return true
}
