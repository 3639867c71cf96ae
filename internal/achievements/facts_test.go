package achievements

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coppia/internal/core"
	"coppia/internal/finance"
)

func TestBuildFacts(t *testing.T) {
	d := decimal.RequireFromString
	now := time.Date(2025, 5, 20, 14, 0, 0, 0, time.UTC)
	may := core.Period{Year: 2025, Month: time.May}

	snap := Snapshot{
		UserID: "alice",
		Expenses: []core.Expense{
			{ID: 1, Date: core.NewDate(2025, 5, 2), Amount: d("40"), Category: core.CategoryDining, Shared: true},
			{ID: 2, Date: core.NewDate(2025, 5, 3), Amount: d("60"), Category: core.CategoryGroceries},
			{ID: 3, Date: core.NewDate(2025, 4, 3), Amount: d("500"), Category: core.CategoryGroceries, Shared: true},
		},
		Budgets: []core.Budget{
			{ID: 1, Category: core.CategoryDining, Period: may, Limit: d("200")},
			{ID: 2, Category: core.CategoryDining, Period: may.Previous(), Limit: d("200")},
		},
		Debts: []core.Debt{
			{Name: "car", TotalAmount: d("1200"), MonthlyPayment: d("100"), DueDay: 25, StartDate: core.NewDate(2025, 1, 20)},
		},
		Goals: []core.Goal{
			{Name: "trip", TargetAmount: d("2000"), CurrentAmount: d("700"), Deadline: core.NewDate(2025, 12, 1)},
			{Name: "bike", TargetAmount: d("500"), CurrentAmount: d("500"), Deadline: core.NewDate(2025, 8, 1)},
		},
		ActivityDays: []core.Date{core.NewDate(2025, 5, 18), core.NewDate(2025, 5, 19), core.NewDate(2025, 5, 20)},
	}

	f, err := BuildFacts(snap, now)
	require.NoError(t, err)

	assert.Equal(t, "alice", f.UserID)
	assert.Equal(t, now, f.Now)
	assert.Equal(t, 3, f.ExpenseCount)
	assert.Equal(t, 2, f.SharedExpenseCount)
	assert.Equal(t, 2, f.BudgetCount)
	assert.Equal(t, 1, f.DebtCount)
	assert.Equal(t, 2, f.GoalCount)
	assert.Equal(t, 3, f.ConsecutiveDays)
	assert.True(t, f.TotalSaved.Equal(d("1200")))

	assert.Equal(t, may, f.Budget.Period)
	require.Len(t, f.Budget.Categories, 1)
	assert.True(t, f.Budget.Total.Spent.Equal(d("100")))

	require.Len(t, f.Debts.Debts, 1)
	assert.True(t, f.Debts.Debts[0].Remaining.Equal(d("800")))

	require.Len(t, f.Goals, 2)
	assert.True(t, f.Goals[1].Complete())
}

func TestBuildFacts_PropagatesInvalidInput(t *testing.T) {
	d := decimal.RequireFromString
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		snap Snapshot
	}{
		{"goal above target", Snapshot{Goals: []core.Goal{
			{Name: "x", TargetAmount: d("100"), CurrentAmount: d("150"), Deadline: core.NewDate(2026, 1, 1)},
		}}},
		{"zero debt payment", Snapshot{Debts: []core.Debt{
			{Name: "x", TotalAmount: d("100"), MonthlyPayment: decimal.Zero, DueDay: 1, StartDate: core.NewDate(2025, 1, 1)},
		}}},
		{"negative expense", Snapshot{Expenses: []core.Expense{
			{Date: core.NewDate(2025, 5, 1), Amount: d("-1"), Category: core.CategoryOther},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFacts(tt.snap, now)
			assert.ErrorIs(t, err, finance.ErrInvalidInput)
		})
	}
}

func TestBuildFacts_Empty(t *testing.T) {
	f, err := BuildFacts(Snapshot{UserID: "new"}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, f.ExpenseCount)
	assert.Zero(t, f.ConsecutiveDays)
	assert.True(t, f.TotalSaved.IsZero())
	assert.Nil(t, f.Debts.NextDue)

	e, err := NewEngine(DefaultCatalog())
	require.NoError(t, err)
	assert.Empty(t, e.Evaluate(nil, f).Unlocked)
}
