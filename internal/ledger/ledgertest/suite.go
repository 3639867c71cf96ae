// Package ledgertest holds the behaviour every ledger.Store must share.
package ledgertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coppia/internal/core"
	"coppia/internal/ledger"
)

// Run exercises a fresh store returned by newStore in each subtest.
func Run(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	tests := []struct {
		name string
		fn   func(*testing.T, ledger.Store)
	}{
		{"Expenses", testExpenses},
		{"BudgetsUpsert", testBudgetsUpsert},
		{"Debts", testDebts},
		{"GoalsAndContributions", testGoals},
		{"AchievementsAtMostOnce", testAchievements},
		{"ConcurrentAchievementInsert", testConcurrentAchievementInsert},
		{"ActivityDays", testActivity},
		{"Partners", testPartners},
		{"MaxAmountRoundTrip", testMaxAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testExpenses(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	march := core.Period{Year: 2025, Month: time.March}

	for _, e := range []core.Expense{
		{UserID: "alice", Date: core.NewDate(2025, 3, 5), Description: "dinner", Amount: dec("42.50"), Category: core.CategoryDining, Shared: true},
		{UserID: "alice", Date: core.NewDate(2025, 3, 1), Description: "bus", Amount: dec("2"), Category: core.CategoryTransport},
		{UserID: "alice", Date: core.NewDate(2025, 4, 1), Description: "rent", Amount: dec("900"), Category: core.CategoryHousing, Shared: true},
		{UserID: "bob", Date: core.NewDate(2025, 3, 2), Description: "gift", Amount: dec("15.99"), Category: core.CategoryGifts, Shared: true},
	} {
		id, err := s.AddExpense(ctx, e)
		require.NoError(t, err)
		assert.NotZero(t, id)
	}

	all, err := s.ListExpenses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "bus", all[0].Description, "ordered by day")
	assert.True(t, all[1].Amount.Equal(dec("42.50")))
	assert.Equal(t, core.CategoryDining, all[1].Category)
	assert.True(t, all[1].Shared)
	assert.Equal(t, core.NewDate(2025, 3, 5), all[1].Date)

	shared, err := s.ListSharedExpenses(ctx, "alice", march)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "dinner", shared[0].Description)

	none, err := s.ListExpenses(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testBudgetsUpsert(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	march := core.Period{Year: 2025, Month: time.March}

	id1, err := s.SetBudget(ctx, core.Budget{UserID: "alice", Category: core.CategoryDining, Period: march, Limit: dec("200")})
	require.NoError(t, err)
	id2, err := s.SetBudget(ctx, core.Budget{UserID: "alice", Category: core.CategoryDining, Period: march, Limit: dec("250")})
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same user, category and period updates in place")

	_, err = s.SetBudget(ctx, core.Budget{UserID: "alice", Category: core.CategoryDining, Period: march.Previous(), Limit: dec("100")})
	require.NoError(t, err)
	_, err = s.SetBudget(ctx, core.Budget{UserID: "bob", Category: core.CategoryDining, Period: march, Limit: dec("10")})
	require.NoError(t, err)

	budgets, err := s.ListBudgets(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	var current core.Budget
	for _, b := range budgets {
		if b.Period == march {
			current = b
		}
	}
	assert.True(t, current.Limit.Equal(dec("250")))
}

func testDebts(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	d := core.Debt{UserID: "alice", Name: "car", TotalAmount: dec("1200"), MonthlyPayment: dec("100"), DueDay: 31, StartDate: core.NewDate(2025, 1, 31)}
	id, err := s.AddDebt(ctx, d)
	require.NoError(t, err)

	debts, err := s.ListDebts(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, debts, 1)
	d.ID = id
	assert.Equal(t, d.Name, debts[0].Name)
	assert.True(t, debts[0].TotalAmount.Equal(d.TotalAmount))
	assert.True(t, debts[0].MonthlyPayment.Equal(d.MonthlyPayment))
	assert.Equal(t, 31, debts[0].DueDay)
	assert.Equal(t, d.StartDate, debts[0].StartDate)
}

func testGoals(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	deadline := core.NewDate(2026, 6, 1)

	first, err := s.AddGoal(ctx, core.Goal{UserID: "alice", Name: "trip", TargetAmount: dec("1000"), CurrentAmount: dec("100"), Deadline: deadline, Primary: true})
	require.NoError(t, err)
	_, err = s.AddGoal(ctx, core.Goal{UserID: "alice", Name: "bike", TargetAmount: dec("500"), CurrentAmount: decimal.Zero, Deadline: deadline, Primary: true})
	require.NoError(t, err)

	goals, err := s.ListGoals(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.False(t, goals[0].Primary, "a new primary goal clears the previous one")
	assert.True(t, goals[1].Primary)

	g, err := s.Contribute(ctx, "alice", first, dec("250.25"))
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.Equal(dec("350.25")))

	_, err = s.Contribute(ctx, "alice", first, dec("649.76"))
	assert.ErrorIs(t, err, core.ErrGoalAboveTarget)

	g, err = s.Contribute(ctx, "alice", first, dec("649.75"))
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.Equal(g.TargetAmount))

	_, err = s.Contribute(ctx, "bob", first, dec("1"))
	assert.ErrorIs(t, err, ledger.ErrNotFound, "goals of other users are invisible")
	_, err = s.Contribute(ctx, "alice", 99999, dec("1"))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func testAchievements(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	earned := time.Date(2025, 3, 10, 9, 30, 15, 0, time.UTC)
	a := core.Achievement{UserID: "alice", Type: "first-expense-logged", EarnedAt: earned}

	inserted, err := s.InsertAchievement(ctx, a)
	require.NoError(t, err)
	assert.True(t, inserted)

	a.EarnedAt = earned.Add(time.Hour)
	inserted, err = s.InsertAchievement(ctx, a)
	require.NoError(t, err)
	assert.False(t, inserted)

	inserted, err = s.InsertAchievement(ctx, core.Achievement{UserID: "bob", Type: "first-expense-logged", EarnedAt: earned})
	require.NoError(t, err)
	assert.True(t, inserted, "uniqueness is per user")

	held, err := s.ListAchievements(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.True(t, held[0].EarnedAt.Equal(earned), "first insert wins")
}

func testConcurrentAchievementInsert(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.InsertAchievement(ctx, core.Achievement{UserID: "carol", Type: "goal-halfway", EarnedAt: time.Now()})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)
}

func testActivity(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	for _, d := range []core.Date{core.NewDate(2025, 3, 2), core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 2)} {
		require.NoError(t, s.RecordActivity(ctx, "alice", d))
	}
	days, err := s.ListActivityDays(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []core.Date{core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 2)}, days)
}

func testPartners(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	p, err := s.Partner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, p)

	assert.ErrorIs(t, s.LinkPartners(ctx, "alice", "alice"), ledger.ErrSelfLink)
	require.NoError(t, s.LinkPartners(ctx, "alice", "bob"))
	require.NoError(t, s.LinkPartners(ctx, "bob", "alice"), "relinking the same pair is a no-op")

	p, err = s.Partner(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", p)

	assert.ErrorIs(t, s.LinkPartners(ctx, "alice", "carol"), ledger.ErrAlreadyLinked)
	assert.ErrorIs(t, s.LinkPartners(ctx, "carol", "bob"), ledger.ErrAlreadyLinked)
}

func testMaxAmount(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, err := s.AddExpense(ctx, core.Expense{UserID: "dora", Date: core.NewDate(2025, 3, 1), Description: "house", Amount: core.MaxAmount, Category: core.CategoryHousing})
	require.NoError(t, err)

	got, err := s.ListExpenses(ctx, "dora")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(core.MaxAmount), "stored %s", got[0].Amount)

	id, err := s.AddGoal(ctx, core.Goal{UserID: "dora", Name: "castle", TargetAmount: core.MaxAmount, CurrentAmount: decimal.Zero, Deadline: core.NewDate(2030, 1, 1)})
	require.NoError(t, err)
	g, err := s.Contribute(ctx, "dora", id, core.MaxAmount)
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.Equal(core.MaxAmount))
}
