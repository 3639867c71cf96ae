// Package http serves the server-rendered dashboard and the ledger forms.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
	"coppia/internal/finance"
	"coppia/internal/log"
	"coppia/internal/metrics"
	"coppia/internal/middleware/ratelimit"
	"coppia/internal/middleware/security"
	"coppia/internal/middleware/trace"
	"coppia/internal/services"
	appweb "coppia/web"
)

// HeaderUserID carries the user authenticated by the fronting proxy.
const HeaderUserID = "X-User-ID"

// Service is the part of services.FinanceService the handlers call.
type Service interface {
	RecordExpense(ctx context.Context, e core.Expense) (int64, error)
	SetBudget(ctx context.Context, b core.Budget) (int64, error)
	AddDebt(ctx context.Context, d core.Debt) (int64, error)
	AddGoal(ctx context.Context, g core.Goal) (int64, error)
	Contribute(ctx context.Context, userID string, goalID int64, amount decimal.Decimal) (core.Goal, error)
	Dashboard(ctx context.Context, userID string, now time.Time) (services.Dashboard, error)
	BudgetStatus(ctx context.Context, userID string, period core.Period) (finance.BudgetSummary, error)
	Achievements(ctx context.Context, userID string) ([]services.AchievementView, int, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Logger             *log.Logger
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
	TrustedProxies     []string
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	svc       Service
	templates *template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	metrics   *metrics.Metrics
	logger    *log.Logger
	now       func() time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(addr string, svc Service, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		svc:       svc,
		templates: t,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  detector,
		metrics:   opts.Metrics,
		logger:    opts.Logger.WithComponent(log.ComponentHTTP),
		now:       opts.Now,
	}
	if s.metrics != nil {
		detector.OnSuspicious(func(*http.Request, string) { s.metrics.SuspiciousRequests.Inc() })
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.withUser(s.handleIndex))
	mux.HandleFunc("POST /expenses", s.withUser(s.handleCreateExpense))
	mux.HandleFunc("POST /budgets", s.withUser(s.handleSetBudget))
	mux.HandleFunc("POST /debts", s.withUser(s.handleCreateDebt))
	mux.HandleFunc("POST /goals", s.withUser(s.handleCreateGoal))
	mux.HandleFunc("POST /goals/contribute", s.withUser(s.handleContribute))
	mux.HandleFunc("GET /ui/budget-status", s.withUser(s.handleBudgetStatus))
	mux.HandleFunc("GET /ui/achievements", s.withUser(s.handleAchievements))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Metrics sits next to the mux so r.Pattern is set when it reads it.
	var h http.Handler = mux
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.limitWrites(h)
	h = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware(h)
	return h
}

// limitWrites rate limits form submissions per client IP. Reads are not limited.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		if s.metrics != nil {
			s.metrics.RateLimited.Inc()
		}
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withUser rejects requests that reached us without an authenticated user.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := sanitizeInput(r.Header.Get(HeaderUserID))
		if userID == "" || len(userID) > maxUserIDLength || strings.ContainsAny(userID, " \t") {
			ErrorResponse(http.StatusUnauthorized, "Missing or invalid user").Write(w)
			return
		}
		ctx := log.NewContext(r.Context(), log.FromContext(r.Context()).WithUser(userID))
		next(w, r.WithContext(ctx), userID)
	}
}

const maxUserIDLength = 128

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
