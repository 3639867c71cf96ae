package achievements

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
	"coppia/internal/finance"
)

// Snapshot is a consistent read of one user's ledger at evaluation time.
type Snapshot struct {
	UserID       string
	Expenses     []core.Expense
	Budgets      []core.Budget
	Debts        []core.Debt
	Goals        []core.Goal
	ActivityDays []core.Date
}

// Facts is the read-only view predicates are evaluated against.
type Facts struct {
	UserID string
	Now    time.Time

	ExpenseCount       int
	SharedExpenseCount int
	BudgetCount        int
	GoalCount          int
	DebtCount          int
	ConsecutiveDays    int

	// Budget covers the month containing Now.
	Budget     finance.BudgetSummary
	Debts      finance.DebtSummary
	Goals      []finance.GoalProjection
	TotalSaved decimal.Decimal
}

// BuildFacts runs the aggregators over snap as of now.
// Invalid ledger data is returned as an error wrapping finance.ErrInvalidInput.
func BuildFacts(snap Snapshot, now time.Time) (Facts, error) {
	today := core.DateOf(now)

	budget, err := finance.SummarizeBudgets(core.PeriodOf(now), snap.Budgets, snap.Expenses)
	if err != nil {
		return Facts{}, fmt.Errorf("summarize budgets: %w", err)
	}
	debts, err := finance.SummarizeDebts(snap.Debts, today)
	if err != nil {
		return Facts{}, fmt.Errorf("summarize debts: %w", err)
	}
	goals, err := finance.ProjectGoals(snap.Goals, today)
	if err != nil {
		return Facts{}, fmt.Errorf("project goals: %w", err)
	}

	f := Facts{
		UserID:          snap.UserID,
		Now:             now,
		ExpenseCount:    len(snap.Expenses),
		BudgetCount:     len(snap.Budgets),
		GoalCount:       len(snap.Goals),
		DebtCount:       len(snap.Debts),
		ConsecutiveDays: finance.ConsecutiveDays(snap.ActivityDays, today),
		Budget:          budget,
		Debts:           debts,
		Goals:           goals,
		TotalSaved:      decimal.Zero,
	}
	for _, e := range snap.Expenses {
		if e.Shared {
			f.SharedExpenseCount++
		}
	}
	for _, g := range snap.Goals {
		f.TotalSaved = f.TotalSaved.Add(g.CurrentAmount)
	}
	return f, nil
}

// AnyGoal reports whether at least one goal projection satisfies fn.
func (f Facts) AnyGoal(fn func(finance.GoalProjection) bool) bool {
	for _, g := range f.Goals {
		if fn(g) {
			return true
		}
	}
	return false
}

// AnyDebt reports whether at least one debt satisfies fn.
func (f Facts) AnyDebt(fn func(finance.DebtProgress) bool) bool {
	for _, d := range f.Debts.Debts {
		if fn(d) {
			return true
		}
	}
	return false
}
