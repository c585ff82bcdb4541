package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/stretchr/testify/assert"
)

const testAdminToken = "s3cure-operator-token-value"

func adminHandler() http.Handler {
	return auth.RequireAdminToken(testAdminToken)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRequireAdminToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"header token", auth.AdminTokenHeader, testAdminToken, http.StatusNoContent},
		{"bearer token", "Authorization", "Bearer " + testAdminToken, http.StatusNoContent},
		{"lowercase bearer", "Authorization", "bearer " + testAdminToken, http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong token", auth.AdminTokenHeader, "wrong-token", http.StatusUnauthorized},
		{"prefix of token", auth.AdminTokenHeader, testAdminToken[:10], http.StatusUnauthorized},
		{"basic scheme", "Authorization", "Basic " + testAdminToken, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/monitor/logininfor", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()

			adminHandler().ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireAdminToken_EmptyConfiguredTokenRejectsAll(t *testing.T) {
	h := auth.RequireAdminToken("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/monitor/logininfor", nil)
	req.Header.Set(auth.AdminTokenHeader, "anything")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
