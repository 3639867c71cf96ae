package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentWorker, Output: &buf})

	l.WithUser("alice").Info("evaluated", "unlocked", 2)
	out := buf.String()
	assert.Contains(t, out, "component=worker")
	assert.Contains(t, out, "user_id=alice")
	assert.Contains(t, out, "unlocked=2")

	buf.Reset()
	l.WithComponent(ComponentStorage).Debug("query")
	assert.Contains(t, buf.String(), "component=storage")
	assert.NotContains(t, buf.String(), "component=worker")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Component: ComponentApp, Output: &buf})
	l.Info("hidden")
	assert.Empty(t, buf.String())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContext(t *testing.T) {
	fallback := FromContext(context.Background())
	assert.Equal(t, ComponentApp, fallback.Component())

	l := New(Config{Component: ComponentHTTP, Output: &bytes.Buffer{}})
	assert.Same(t, l, FromContext(NewContext(context.Background(), l)))
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentApp, Output: &buf}))
	ctx := context.Background()

	sl.LogLedgerWrite(ctx, "bob", "expense", OpCreate, 7, 1250)
	assert.Contains(t, buf.String(), "entity=expense")
	assert.Contains(t, buf.String(), "amount_cents=1250")

	buf.Reset()
	sl.LogAchievementUnlocked(ctx, "bob", "first-expense-logged", "ev-1")
	assert.Contains(t, buf.String(), "achievement=first-expense-logged")

	buf.Reset()
	sl.LogError(ctx, "store failed", errors.New("disk full"), ComponentStorage, OpCreate, nil)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), `error="disk full"`)

	buf.Reset()
	req := httptest.NewRequest(http.MethodPost, "/expenses", nil)
	sl.LogHTTPEnd(ctx, req, http.StatusUnprocessableEntity, 3, "10.0.0.1")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status_code=422")
}
