package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"coppia/internal/achievements"
	"coppia/internal/core"
	"coppia/internal/finance"
)

// AchievementView is one catalog entry with the user's progress on it.
type AchievementView struct {
	Type        core.AchievementType
	Title       string
	Description string
	Earned      bool
	EarnedAt    time.Time
}

// Dashboard is everything the home page shows for one user on one day.
type Dashboard struct {
	UserID    string
	PartnerID string
	Today     core.Date
	Period    core.Period

	Budget          finance.BudgetSummary
	Debts           finance.DebtSummary
	Goals           []finance.GoalProjection
	PrimaryGoal     *finance.GoalProjection
	TotalSaved      decimal.Decimal
	ConsecutiveDays int

	// Expenses of the user in Period, oldest first.
	Expenses []core.Expense
	// PartnerShared holds the partner's shared expenses in Period.
	PartnerShared []core.Expense

	Achievements []AchievementView
	EarnedCount  int
}

func dashboardKeyPrefix(userID string) string {
	return "dashboard:" + userID + ":"
}

// Dashboard assembles the derived state of userID as of now, served from the
// cache when a fresh copy exists.
func (s *FinanceService) Dashboard(ctx context.Context, userID string, now time.Time) (Dashboard, error) {
	if s.dashboard == nil {
		return s.buildDashboard(ctx, userID, now)
	}
	key := dashboardKeyPrefix(userID) + core.DateOf(now).String()
	if d, ok := s.dashboard.Get(key); ok {
		s.countCache("hit")
		return d, nil
	}
	s.countCache("miss")
	return s.dashboard.GetOrLoad(ctx, key, func(ctx context.Context) (Dashboard, error) {
		return s.buildDashboard(ctx, userID, now)
	})
}

func (s *FinanceService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.DashboardCache.WithLabelValues(result).Inc()
	}
}

func (s *FinanceService) buildDashboard(ctx context.Context, userID string, now time.Time) (Dashboard, error) {
	snap, err := s.LoadSnapshot(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	facts, err := achievements.BuildFacts(snap, now)
	if err != nil {
		return Dashboard{}, fmt.Errorf("build dashboard for %s: %w", userID, err)
	}
	views, earned, err := s.Achievements(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	period := core.PeriodOf(now)
	d := Dashboard{
		UserID:          userID,
		Today:           core.DateOf(now),
		Period:          period,
		Budget:          facts.Budget,
		Debts:           facts.Debts,
		Goals:           facts.Goals,
		TotalSaved:      facts.TotalSaved,
		ConsecutiveDays: facts.ConsecutiveDays,
		Achievements:    views,
		EarnedCount:     earned,
	}
	if p, ok := finance.PrimaryGoal(facts.Goals); ok {
		d.PrimaryGoal = &p
	}
	for _, e := range snap.Expenses {
		if period.Contains(e.Date) {
			d.Expenses = append(d.Expenses, e)
		}
	}

	partner, err := s.store.Partner(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load partner: %w", err)
	}
	if partner != "" {
		d.PartnerID = partner
		d.PartnerShared, err = s.store.ListSharedExpenses(ctx, partner, period)
		if err != nil {
			return Dashboard{}, fmt.Errorf("list partner expenses: %w", err)
		}
	}
	return d, nil
}

// Achievements lists the whole catalog in order, marking what userID holds.
func (s *FinanceService) Achievements(ctx context.Context, userID string) ([]AchievementView, int, error) {
	held, err := s.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list achievements: %w", err)
	}
	earnedAt := make(map[core.AchievementType]time.Time, len(held))
	for _, a := range held {
		earnedAt[a.Type] = a.EarnedAt
	}

	rules := s.engine.Rules()
	views := make([]AchievementView, 0, len(rules))
	earned := 0
	for _, r := range rules {
		at, ok := earnedAt[r.Type]
		if ok {
			earned++
		}
		views = append(views, AchievementView{
			Type:        r.Type,
			Title:       r.Title,
			Description: r.Description,
			Earned:      ok,
			EarnedAt:    at,
		})
	}
	return views, earned, nil
}

// BudgetStatus summarizes userID's budgets for period.
func (s *FinanceService) BudgetStatus(ctx context.Context, userID string, period core.Period) (finance.BudgetSummary, error) {
	var (
		budgets  []core.Budget
		expenses []core.Expense
		err      error
	)
	if budgets, err = s.store.ListBudgets(ctx, userID); err != nil {
		return finance.BudgetSummary{}, fmt.Errorf("list budgets: %w", err)
	}
	if expenses, err = s.store.ListExpenses(ctx, userID); err != nil {
		return finance.BudgetSummary{}, fmt.Errorf("list expenses: %w", err)
	}
	summary, err := finance.SummarizeBudgets(period, budgets, expenses)
	if err != nil {
		return finance.BudgetSummary{}, fmt.Errorf("summarize budgets for %s: %w", userID, err)
	}
	return summary, nil
}

// ExportBudgetReport writes the budget summary of period to the report sheet.
func (s *FinanceService) ExportBudgetReport(ctx context.Context, userID string, period core.Period) (finance.BudgetSummary, error) {
	if s.reports == nil {
		return finance.BudgetSummary{}, ErrExportDisabled
	}
	summary, err := s.BudgetStatus(ctx, userID, period)
	if err != nil {
		return finance.BudgetSummary{}, err
	}
	if err := s.reports.WriteBudgetReport(ctx, userID, summary); err != nil {
		return finance.BudgetSummary{}, fmt.Errorf("export budget report: %w", err)
	}
	return summary, nil
}
