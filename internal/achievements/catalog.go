package achievements

import (
	"github.com/shopspring/decimal"

	"coppia/internal/core"
	"coppia/internal/finance"
)

// Rule is one entry of the achievement catalog.
// Predicates must only read facts and must not depend on other rules.
type Rule struct {
	Type        core.AchievementType
	Title       string
	Description string
	Predicate   func(Facts) bool
}

const (
	FirstExpenseLogged    core.AchievementType = "first-expense-logged"
	TenExpensesLogged     core.AchievementType = "ten-expenses-logged"
	HundredExpensesLogged core.AchievementType = "hundred-expenses-logged"
	FirstSharedExpense    core.AchievementType = "first-shared-expense"
	FirstBudgetCreated    core.AchievementType = "first-budget-created"
	BudgetKeeper          core.AchievementType = "budget-keeper"
	FirstGoalCreated      core.AchievementType = "first-goal-created"
	GoalHalfway           core.AchievementType = "goal-halfway"
	GoalFullyFunded       core.AchievementType = "goal-fully-funded"
	FirstDebtTracked      core.AchievementType = "first-debt-tracked"
	DebtFullyRepaid       core.AchievementType = "debt-fully-repaid"
	ThousandSaved         core.AchievementType = "thousand-saved"
	SevenConsecutiveDays  core.AchievementType = "seven-consecutive-days"
	ThirtyConsecutiveDays core.AchievementType = "thirty-consecutive-days"
)

var (
	fifty    = decimal.NewFromInt(50)
	thousand = decimal.NewFromInt(1000)
)

// DefaultCatalog returns the built-in achievements in evaluation order.
// Each call returns a fresh slice.
func DefaultCatalog() []Rule {
	return []Rule{
		{
			Type:        FirstExpenseLogged,
			Title:       "First step",
			Description: "Log your first expense.",
			Predicate:   func(f Facts) bool { return f.ExpenseCount == 1 },
		},
		{
			Type:        TenExpensesLogged,
			Title:       "Getting the habit",
			Description: "Log ten expenses.",
			Predicate:   func(f Facts) bool { return f.ExpenseCount >= 10 },
		},
		{
			Type:        HundredExpensesLogged,
			Title:       "Bookkeeper",
			Description: "Log one hundred expenses.",
			Predicate:   func(f Facts) bool { return f.ExpenseCount >= 100 },
		},
		{
			Type:        FirstSharedExpense,
			Title:       "Better together",
			Description: "Share an expense with your partner.",
			Predicate:   func(f Facts) bool { return f.SharedExpenseCount >= 1 },
		},
		{
			Type:        FirstBudgetCreated,
			Title:       "Planner",
			Description: "Set your first monthly budget.",
			Predicate:   func(f Facts) bool { return f.BudgetCount >= 1 },
		},
		{
			Type:        BudgetKeeper,
			Title:       "Budget keeper",
			Description: "Spend this month while staying in the green across your budgets.",
			Predicate: func(f Facts) bool {
				return len(f.Budget.Categories) > 0 &&
					f.Budget.Total.Limit.IsPositive() &&
					f.Budget.Total.Spent.IsPositive() &&
					f.Budget.Total.Tier == finance.StatusGreen
			},
		},
		{
			Type:        FirstGoalCreated,
			Title:       "Dreamer",
			Description: "Create your first savings goal.",
			Predicate:   func(f Facts) bool { return f.GoalCount >= 1 },
		},
		{
			Type:        GoalHalfway,
			Title:       "Halfway there",
			Description: "Fund a savings goal to at least 50%.",
			Predicate: func(f Facts) bool {
				return f.AnyGoal(func(g finance.GoalProjection) bool { return g.Percentage.GreaterThanOrEqual(fifty) })
			},
		},
		{
			Type:        GoalFullyFunded,
			Title:       "Mission accomplished",
			Description: "Fully fund a savings goal.",
			Predicate: func(f Facts) bool {
				return f.AnyGoal(finance.GoalProjection.Complete)
			},
		},
		{
			Type:        FirstDebtTracked,
			Title:       "Facing it",
			Description: "Start tracking a debt.",
			Predicate:   func(f Facts) bool { return f.DebtCount >= 1 },
		},
		{
			Type:        DebtFullyRepaid,
			Title:       "Debt free",
			Description: "Pay off a debt completely.",
			Predicate: func(f Facts) bool {
				return f.AnyDebt(func(d finance.DebtProgress) bool { return d.Remaining.IsZero() })
			},
		},
		{
			Type:        ThousandSaved,
			Title:       "Four digits",
			Description: "Put aside 1000 across your savings goals.",
			Predicate:   func(f Facts) bool { return f.TotalSaved.GreaterThanOrEqual(thousand) },
		},
		{
			Type:        SevenConsecutiveDays,
			Title:       "On a roll",
			Description: "Use the app seven days in a row.",
			Predicate:   func(f Facts) bool { return f.ConsecutiveDays >= 7 },
		},
		{
			Type:        ThirtyConsecutiveDays,
			Title:       "Unstoppable",
			Description: "Use the app thirty days in a row.",
			Predicate:   func(f Facts) bool { return f.ConsecutiveDays >= 30 },
		},
	}
}
