package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"coppia/internal/achievements"
	"coppia/internal/cache"
	"coppia/internal/core"
	"coppia/internal/finance"
	"coppia/internal/ledger"
	"coppia/internal/log"
	"coppia/internal/metrics"
	"coppia/internal/sheets"
)

// ErrExportDisabled is returned by export operations when no sheet is configured.
var ErrExportDisabled = errors.New("sheets export not configured")

// Publisher hands evaluation requests and unlock notifications to the broker.
type Publisher interface {
	PublishEvaluate(ctx context.Context, userID, reason string) error
	PublishUnlocked(ctx context.Context, events []achievements.UnlockEvent) error
}

// FinanceService orchestrates ledger writes, derived views and achievement
// evaluation across storage, AMQP and the optional Sheets export.
type FinanceService struct {
	store     ledger.Store
	engine    *achievements.Engine
	publisher Publisher
	exporter  sheets.UnlockAppender
	reports   sheets.ReportWriter
	metrics   *metrics.Metrics
	dashboard *cache.LRUCache[Dashboard]
	logs      *log.StructuredLogger
	now       func() time.Time
}

type Option func(*FinanceService)

// WithPublisher routes evaluation through the broker. Without one, achievements
// are evaluated inline after every write.
func WithPublisher(p Publisher) Option {
	return func(s *FinanceService) { s.publisher = p }
}

func WithUnlockExporter(e sheets.UnlockAppender) Option {
	return func(s *FinanceService) { s.exporter = e }
}

func WithReportWriter(w sheets.ReportWriter) Option {
	return func(s *FinanceService) { s.reports = w }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FinanceService) { s.metrics = m }
}

func WithDashboardCache(c *cache.LRUCache[Dashboard]) Option {
	return func(s *FinanceService) { s.dashboard = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *FinanceService) { s.logs = log.NewStructuredLogger(l) }
}

// WithClock overrides the source of "now" for writes and views.
func WithClock(now func() time.Time) Option {
	return func(s *FinanceService) { s.now = now }
}

func NewFinanceService(store ledger.Store, engine *achievements.Engine, opts ...Option) *FinanceService {
	s := &FinanceService{
		store:  store,
		engine: engine,
		logs:   log.NewStructuredLogger(log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine exposes the rule engine, e.g. to list the catalog.
func (s *FinanceService) Engine() *achievements.Engine {
	return s.engine
}

// invalid marks err as bad caller input while keeping the original cause.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", finance.ErrInvalidInput, err)
}

// RecordExpense validates and stores an expense.
func (s *FinanceService) RecordExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, invalid(err)
	}
	id, err := s.store.AddExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}
	s.logs.LogLedgerWrite(ctx, e.UserID, "expense", log.OpCreate, id, core.ToCents(e.Amount))
	s.afterWrite(ctx, e.UserID, "expense", e.Shared)
	return id, nil
}

// SetBudget creates or replaces the limit for a category and month.
func (s *FinanceService) SetBudget(ctx context.Context, b core.Budget) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, invalid(err)
	}
	id, err := s.store.SetBudget(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("save budget: %w", err)
	}
	s.logs.LogLedgerWrite(ctx, b.UserID, "budget", log.OpUpdate, id, core.ToCents(b.Limit))
	s.afterWrite(ctx, b.UserID, "budget", false)
	return id, nil
}

func (s *FinanceService) AddDebt(ctx context.Context, d core.Debt) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, invalid(err)
	}
	id, err := s.store.AddDebt(ctx, d)
	if err != nil {
		return 0, fmt.Errorf("save debt: %w", err)
	}
	s.logs.LogLedgerWrite(ctx, d.UserID, "debt", log.OpCreate, id, core.ToCents(d.TotalAmount))
	s.afterWrite(ctx, d.UserID, "debt", false)
	return id, nil
}

// AddGoal stores a goal whose deadline lies after today.
func (s *FinanceService) AddGoal(ctx context.Context, g core.Goal) (int64, error) {
	if err := g.ValidateNew(core.DateOf(s.now())); err != nil {
		return 0, invalid(err)
	}
	id, err := s.store.AddGoal(ctx, g)
	if err != nil {
		return 0, fmt.Errorf("save goal: %w", err)
	}
	s.logs.LogLedgerWrite(ctx, g.UserID, "goal", log.OpCreate, id, core.ToCents(g.TargetAmount))
	s.afterWrite(ctx, g.UserID, "goal", false)
	return id, nil
}

// Contribute adds amount to a goal. Contributions past the target are rejected.
func (s *FinanceService) Contribute(ctx context.Context, userID string, goalID int64, amount decimal.Decimal) (core.Goal, error) {
	if !core.InRange(amount) {
		return core.Goal{}, invalid(core.ErrInvalidAmount)
	}
	g, err := s.store.Contribute(ctx, userID, goalID, amount)
	switch {
	case errors.Is(err, core.ErrGoalAboveTarget):
		return core.Goal{}, invalid(err)
	case err != nil:
		return core.Goal{}, fmt.Errorf("contribute to goal: %w", err)
	}
	s.logs.LogLedgerWrite(ctx, userID, "goal", log.OpContribute, goalID, core.ToCents(amount))
	s.afterWrite(ctx, userID, "contribution", false)
	return g, nil
}

// LinkPartners pairs two users so each sees the other's shared expenses.
func (s *FinanceService) LinkPartners(ctx context.Context, userID, partnerID string) error {
	if userID == "" || partnerID == "" {
		return invalid(core.ErrMissingUser)
	}
	if err := s.store.LinkPartners(ctx, userID, partnerID); err != nil {
		return fmt.Errorf("link partners: %w", err)
	}
	s.invalidate(userID)
	s.invalidate(partnerID)
	slog.InfoContext(ctx, "Partners linked", "user_id", userID, "partner_id", partnerID)
	return nil
}

// afterWrite records the day's activity, drops cached views and schedules an
// evaluation. Failures here never undo the stored write.
func (s *FinanceService) afterWrite(ctx context.Context, userID, reason string, shared bool) {
	if err := s.store.RecordActivity(ctx, userID, core.DateOf(s.now())); err != nil {
		slog.ErrorContext(ctx, "Failed to record activity", "user_id", userID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.LedgerWrites.WithLabelValues(reason).Inc()
	}
	s.invalidate(userID)
	if shared {
		if partner, err := s.store.Partner(ctx, userID); err == nil && partner != "" {
			s.invalidate(partner)
		}
	}

	if s.publisher != nil {
		err := s.publisher.PublishEvaluate(ctx, userID, reason)
		if err == nil {
			return
		}
		slog.ErrorContext(ctx, "Failed to publish evaluate message, evaluating inline",
			"user_id", userID, "reason", reason, "error", err)
	}
	if _, err := s.EvaluateAchievements(ctx, userID, s.now()); err != nil {
		slog.ErrorContext(ctx, "Inline achievement evaluation failed", "user_id", userID, "error", err)
	}
}

func (s *FinanceService) invalidate(userID string) {
	if s.dashboard != nil {
		s.dashboard.DeletePrefix(dashboardKeyPrefix(userID))
	}
}

// Ping reports whether the store is reachable.
func (s *FinanceService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
