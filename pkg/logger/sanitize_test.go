package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedUserName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "[empty]"},
		{"a", "*"},
		{"alice", "a****"},
		{"alice@example.com", "a****@*******.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizedUserName(tt.in), tt.in)
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("username=bob&password=x"))
	assert.True(t, SanitizeQueryString("code=123456"))
	assert.False(t, SanitizeQueryString("page=1&page_size=10"))
}

func TestAuditLogger_LogAuthAttempt_MasksUser(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAuthAttempt(context.Background(), AuditEvent{
		EventType:     "login",
		UserName:      "alice",
		IPAddress:     "203.0.113.7",
		Success:       false,
		FailureReason: "invalid username or password",
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "a****", line["user"])
	assert.Equal(t, "203.0.113.7", line["ip_address"])
	assert.Equal(t, "invalid username or password", line["failure_reason"])
}
