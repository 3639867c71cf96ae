package achievements

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coppia/internal/core"
	"coppia/internal/finance"
)

func TestDefaultCatalog_Unique(t *testing.T) {
	seen := map[core.AchievementType]bool{}
	for _, r := range DefaultCatalog() {
		assert.False(t, seen[r.Type], "duplicate %s", r.Type)
		seen[r.Type] = true
		assert.NotEmpty(t, r.Title, r.Type)
		assert.NotEmpty(t, r.Description, r.Type)
		assert.NotNil(t, r.Predicate, r.Type)
	}
	assert.Len(t, seen, 14)
}

func TestDefaultCatalog_Predicates(t *testing.T) {
	d := decimal.RequireFromString
	greenBudget := finance.BudgetSummary{
		Categories: []finance.CategoryStatus{{Category: core.CategoryDining}},
		Total:      finance.BudgetStatus{Limit: d("500"), Spent: d("100"), Tier: finance.StatusGreen},
	}

	tests := []struct {
		rule  core.AchievementType
		facts Facts
		want  bool
	}{
		{FirstExpenseLogged, Facts{ExpenseCount: 1}, true},
		{FirstExpenseLogged, Facts{ExpenseCount: 2}, false},
		{TenExpensesLogged, Facts{ExpenseCount: 9}, false},
		{TenExpensesLogged, Facts{ExpenseCount: 10}, true},
		{HundredExpensesLogged, Facts{ExpenseCount: 100}, true},
		{FirstSharedExpense, Facts{SharedExpenseCount: 1}, true},
		{FirstSharedExpense, Facts{ExpenseCount: 5}, false},
		{FirstBudgetCreated, Facts{BudgetCount: 1}, true},
		{BudgetKeeper, Facts{Budget: greenBudget}, true},
		{BudgetKeeper, Facts{Budget: finance.BudgetSummary{Total: greenBudget.Total}}, false},
		{BudgetKeeper, Facts{Budget: finance.BudgetSummary{
			Categories: greenBudget.Categories,
			Total:      finance.BudgetStatus{Limit: d("500"), Spent: decimal.Zero, Tier: finance.StatusGreen},
		}}, false},
		{BudgetKeeper, Facts{Budget: finance.BudgetSummary{
			Categories: greenBudget.Categories,
			Total:      finance.BudgetStatus{Limit: d("500"), Spent: d("400"), Tier: finance.StatusYellow},
		}}, false},
		{FirstGoalCreated, Facts{GoalCount: 1}, true},
		{GoalHalfway, Facts{Goals: []finance.GoalProjection{{Percentage: d("49.99")}}}, false},
		{GoalHalfway, Facts{Goals: []finance.GoalProjection{{Percentage: d("10")}, {Percentage: d("50")}}}, true},
		{GoalFullyFunded, Facts{Goals: []finance.GoalProjection{{Ratio: d("0.99")}}}, false},
		{GoalFullyFunded, Facts{Goals: []finance.GoalProjection{{Ratio: d("1")}}}, true},
		{FirstDebtTracked, Facts{DebtCount: 1}, true},
		{DebtFullyRepaid, Facts{Debts: finance.DebtSummary{Debts: []finance.DebtProgress{{Remaining: d("10")}}}}, false},
		{DebtFullyRepaid, Facts{Debts: finance.DebtSummary{Debts: []finance.DebtProgress{{Remaining: decimal.Zero}}}}, true},
		{ThousandSaved, Facts{TotalSaved: d("999.99")}, false},
		{ThousandSaved, Facts{TotalSaved: d("1000")}, true},
		{SevenConsecutiveDays, Facts{ConsecutiveDays: 6}, false},
		{SevenConsecutiveDays, Facts{ConsecutiveDays: 7}, true},
		{ThirtyConsecutiveDays, Facts{ConsecutiveDays: 30}, true},
	}

	e, err := NewEngine(DefaultCatalog())
	require.NoError(t, err)
	for _, tt := range tests {
		r, ok := e.Rule(tt.rule)
		require.True(t, ok, tt.rule)
		assert.Equal(t, tt.want, r.Predicate(tt.facts), "%s with %+v", tt.rule, tt.facts)
	}
}
