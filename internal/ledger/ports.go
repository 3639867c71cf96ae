// Package ledger declares the persistence ports shared by every storage backend.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyLinked = errors.New("user already linked to a partner")
	ErrSelfLink      = errors.New("cannot link a user to themselves")
)

// Ports for storage adapters.
type (
	ExpenseStore interface {
		AddExpense(ctx context.Context, e core.Expense) (int64, error)
		// ListExpenses returns every expense owned by userID, oldest first.
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
		// ListSharedExpenses returns the shared expenses userID logged in period.
		ListSharedExpenses(ctx context.Context, userID string, period core.Period) ([]core.Expense, error)
	}

	BudgetStore interface {
		// SetBudget creates the budget or replaces the limit of the existing
		// one for the same user, category and period.
		SetBudget(ctx context.Context, b core.Budget) (int64, error)
		ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	}

	DebtStore interface {
		AddDebt(ctx context.Context, d core.Debt) (int64, error)
		ListDebts(ctx context.Context, userID string) ([]core.Debt, error)
	}

	GoalStore interface {
		// AddGoal stores g. A primary goal clears the flag on the user's other goals.
		AddGoal(ctx context.Context, g core.Goal) (int64, error)
		ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
		// Contribute adds amount to a goal, failing with core.ErrGoalAboveTarget
		// when the result would exceed the target.
		Contribute(ctx context.Context, userID string, goalID int64, amount decimal.Decimal) (core.Goal, error)
	}

	AchievementStore interface {
		ListAchievements(ctx context.Context, userID string) ([]core.Achievement, error)
		// InsertAchievement stores a unless the user already holds that type.
		// inserted is false when the row already existed.
		InsertAchievement(ctx context.Context, a core.Achievement) (inserted bool, err error)
	}

	ActivityStore interface {
		RecordActivity(ctx context.Context, userID string, day core.Date) error
		ListActivityDays(ctx context.Context, userID string) ([]core.Date, error)
	}

	PartnerStore interface {
		LinkPartners(ctx context.Context, userID, partnerID string) error
		// Partner returns the linked partner, or "" when there is none.
		Partner(ctx context.Context, userID string) (string, error)
	}

	// Store is implemented by every backend.
	Store interface {
		ExpenseStore
		BudgetStore
		DebtStore
		GoalStore
		AchievementStore
		ActivityStore
		PartnerStore
		Ping(ctx context.Context) error
		Close() error
	}
)
