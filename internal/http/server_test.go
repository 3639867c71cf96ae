package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coppia/internal/achievements"
	"coppia/internal/log"
	"coppia/internal/metrics"
	"coppia/internal/services"
	"coppia/internal/storage/memory"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv     *Server
	metrics *metrics.Metrics
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Component: log.ComponentHTTP, Output: io.Discard})
}

func newTestServer(t *testing.T, rateLimit int, wrap func(Service) Service) testEnv {
	t.Helper()
	engine, err := achievements.NewEngine(achievements.DefaultCatalog())
	require.NoError(t, err)
	m := metrics.New()
	svc := services.NewFinanceService(memory.New(), engine,
		services.WithClock(func() time.Time { return fixedNow }),
		services.WithLogger(quietLogger()),
		services.WithMetrics(m))

	var s Service = svc
	if wrap != nil {
		s = wrap(svc)
	}
	srv, err := NewServer(":0", s, Options{
		Logger:             quietLogger(),
		Metrics:            m,
		RateLimitPerMinute: rateLimit,
		Now:                func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return testEnv{srv: srv, metrics: m}
}

func (e testEnv) do(method, path, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (e testEnv) get(path, user string) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, path, user, nil, "")
}

func (e testEnv) postForm(path, user string, form url.Values) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, user, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestServer(t, 60, nil)

	rec := env.get("/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = env.get("/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type unreadyService struct{ Service }

func (unreadyService) Ping(context.Context) error { return errors.New("database is closed") }

func TestReadiness_StoreDown(t *testing.T) {
	env := newTestServer(t, 60, func(s Service) Service { return unreadyService{s} })
	assert.Equal(t, http.StatusServiceUnavailable, env.get("/readyz", "").Code)
}

func TestUserRequired(t *testing.T) {
	env := newTestServer(t, 60, nil)

	for _, path := range []string{"/", "/ui/budget-status", "/ui/achievements"} {
		assert.Equal(t, http.StatusUnauthorized, env.get(path, "").Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, env.get("/", "two words").Code)
	assert.Equal(t, http.StatusUnauthorized, env.postForm("/expenses", "", url.Values{}).Code)
}

func TestRouting(t *testing.T) {
	env := newTestServer(t, 60, nil)
	assert.Equal(t, http.StatusNotFound, env.get("/nope", "alice").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.get("/expenses", "alice").Code)

	rec := env.get("/static/app.css", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestCreateExpense_UnlocksFirstExpense(t *testing.T) {
	env := newTestServer(t, 60, nil)

	rec := env.postForm("/expenses", "alice", url.Values{
		"description": {"Coffee with Bob"},
		"amount":      {"2,50"},
		"category":    {"dining"},
		"shared":      {"on"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "€2,50")
	assert.Contains(t, rec.Header().Get("HX-Trigger"), `"ledger:changed"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.get("/", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Coffee with Bob")
	assert.Contains(t, body, "1 day streak")

	rec = env.get("/ui/achievements", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `achievement--earned" data-type="first-expense-logged"`)
	assert.Contains(t, rec.Body.String(), `achievement--locked" data-type="budget-keeper"`)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RequestCounter.WithLabelValues("POST", "POST /expenses", "200")))
}

func TestCreateExpense_JSONBody(t *testing.T) {
	env := newTestServer(t, 60, nil)
	rec := env.do(http.MethodPost, "/expenses", "alice",
		strings.NewReader(`{"description":"Rent","amount":"900","category":"housing","date":"2025-03-01","shared":true}`),
		"application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.get("/ui/budget-status?period=2025-03", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Outside any budget: €900,00")
}

func TestCreateExpense_Invalid(t *testing.T) {
	env := newTestServer(t, 60, nil)

	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"bad amount", url.Values{"description": {"x"}, "amount": {"abc"}, "category": {"dining"}}, http.StatusUnprocessableEntity},
		{"zero amount", url.Values{"description": {"x"}, "amount": {"0"}, "category": {"dining"}}, http.StatusUnprocessableEntity},
		{"amount beyond cents range", url.Values{"description": {"x"}, "amount": {"200000000000000000"}, "category": {"dining"}}, http.StatusUnprocessableEntity},
		{"unknown category", url.Values{"description": {"x"}, "amount": {"1"}, "category": {"yachts"}}, http.StatusUnprocessableEntity},
		{"missing description", url.Values{"description": {""}, "amount": {"1"}, "category": {"dining"}}, http.StatusUnprocessableEntity},
		{"bad date", url.Values{"description": {"x"}, "amount": {"1"}, "category": {"dining"}, "date": {"10/03/2025"}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postForm("/expenses", "alice", tt.form)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `class="error"`)
		})
	}

	rec := env.do(http.MethodPost, "/expenses", "alice", strings.NewReader(`{"amount":`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudgetFlow(t *testing.T) {
	env := newTestServer(t, 60, nil)

	rec := env.postForm("/budgets", "alice", url.Values{"category": {"dining"}, "period": {"2025-03"}, "limit": {"100"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.postForm("/budgets", "alice", url.Values{"category": {"travel"}, "limit": {"0"}})
	require.Equal(t, http.StatusOK, rec.Code, "a zero limit is allowed")

	rec = env.postForm("/expenses", "alice", url.Values{"description": {"Dinner"}, "amount": {"70"}, "category": {"dining"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.get("/ui/budget-status", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Budget 2025-03")
	assert.Contains(t, body, `<tr class="tier--yellow">`, "70% is yellow")
	assert.Contains(t, body, "70.0%")

	assert.Equal(t, http.StatusUnprocessableEntity, env.get("/ui/budget-status?period=March", "alice").Code)
	assert.Equal(t, http.StatusUnprocessableEntity,
		env.postForm("/budgets", "alice", url.Values{"category": {"dining"}, "limit": {"-5"}}).Code)
}

func TestDebtAndGoalFlow(t *testing.T) {
	env := newTestServer(t, 60, nil)

	rec := env.postForm("/debts", "alice", url.Values{
		"name": {"Car"}, "total_amount": {"1200"}, "monthly_payment": {"100"}, "due_day": {"15"}, "start_date": {"2025-01-15"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusUnprocessableEntity, env.postForm("/debts", "alice", url.Values{
		"name": {"Car"}, "total_amount": {"1200"}, "monthly_payment": {"100"}, "due_day": {"32"},
	}).Code)

	rec = env.postForm("/goals", "alice", url.Values{
		"name": {"Trip"}, "target_amount": {"1000"}, "current_amount": {"400"}, "deadline": {"2025-12-31"}, "primary": {"on"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusUnprocessableEntity, env.postForm("/goals", "alice", url.Values{
		"name": {"Past"}, "target_amount": {"10"}, "deadline": {"2025-03-10"},
	}).Code, "deadline must be after today")

	rec = env.get("/", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Car")
	assert.Contains(t, rec.Body.String(), "Trip")

	rec = env.postForm("/goals/contribute", "alice", url.Values{"goal_id": {"2"}, "amount": {"200"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("X-Goal-ID"))

	rec = env.get("/ui/achievements", "alice")
	assert.Contains(t, rec.Body.String(), `achievement--earned" data-type="goal-halfway"`)

	assert.Equal(t, http.StatusUnprocessableEntity,
		env.postForm("/goals/contribute", "alice", url.Values{"goal_id": {"2"}, "amount": {"400.01"}}).Code, "above target")
	assert.Equal(t, http.StatusNotFound,
		env.postForm("/goals/contribute", "bob", url.Values{"goal_id": {"2"}, "amount": {"1"}}).Code, "other users' goals")
	assert.Equal(t, http.StatusUnprocessableEntity,
		env.postForm("/goals/contribute", "alice", url.Values{"goal_id": {"x"}, "amount": {"1"}}).Code)
}

func TestRateLimitOnWrites(t *testing.T) {
	env := newTestServer(t, 1, nil)
	form := url.Values{"description": {"x"}, "amount": {"1"}, "category": {"other"}}

	assert.Equal(t, http.StatusOK, env.postForm("/expenses", "alice", form).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.postForm("/expenses", "alice", form).Code)
	assert.Equal(t, http.StatusOK, env.get("/", "alice").Code, "reads are not limited")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RateLimited))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t, 60, nil)
	env.get("/healthz", "")
	env.get("/.env", "")

	rec := env.get("/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `coppia_http_requests_total{method="GET",route="GET /healthz",status="200"} 1`)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SuspiciousRequests))
}
