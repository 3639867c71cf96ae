package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coppia/internal/core"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.Unlocked("first-expense-logged")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.AchievementsUnlocked.WithLabelValues("first-expense-logged")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AchievementsUnlocked.WithLabelValues("first-expense-logged")))
}

func TestRuleFault(t *testing.T) {
	m := New()
	observe := func(t core.AchievementType) { m.RuleFault(t) }
	observe("budget-keeper")
	observe("budget-keeper")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RuleFaults.WithLabelValues("budget-keeper")))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /goals/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := m.Middleware(mux)

	for _, path := range []string{"/goals/1", "/goals/2", "/nope"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "GET /goals/{id}", "202")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "unmatched", "404")))
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.Unlocked("ten-expenses-logged")
	m.Evaluations.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `coppia_achievements_unlocked_total{type="ten-expenses-logged"} 1`)
	assert.Contains(t, string(body), `coppia_evaluations_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
