package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coppia/internal/achievements"
	"coppia/internal/cache"
	"coppia/internal/core"
	"coppia/internal/finance"
	"coppia/internal/ledger"
	"coppia/internal/metrics"
	sheetsmem "coppia/internal/sheets/memory"
	"coppia/internal/storage/memory"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakePublisher records what the service hands to the broker.
type fakePublisher struct {
	mu          sync.Mutex
	evaluations []string
	unlocked    []achievements.UnlockEvent
	failEval    error
}

func (p *fakePublisher) PublishEvaluate(_ context.Context, userID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failEval != nil {
		return p.failEval
	}
	p.evaluations = append(p.evaluations, userID+":"+reason)
	return nil
}

func (p *fakePublisher) PublishUnlocked(_ context.Context, events []achievements.UnlockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlocked = append(p.unlocked, events...)
	return nil
}

func newTestService(t *testing.T, opts ...Option) (*FinanceService, *memory.Store) {
	t.Helper()
	engine, err := achievements.NewEngine(achievements.DefaultCatalog())
	require.NoError(t, err)
	store := memory.New()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewFinanceService(store, engine, opts...), store
}

func expense(userID, desc, amount string, shared bool) core.Expense {
	return core.Expense{
		UserID:      userID,
		Date:        core.DateOf(testNow),
		Description: desc,
		Amount:      dec(amount),
		Category:    core.CategoryGroceries,
		Shared:      shared,
	}
}

func heldTypes(t *testing.T, store ledger.Store, userID string) []core.AchievementType {
	t.Helper()
	held, err := store.ListAchievements(context.Background(), userID)
	require.NoError(t, err)
	out := make([]core.AchievementType, 0, len(held))
	for _, a := range held {
		out = append(out, a.Type)
	}
	return out
}

func TestRecordExpense_InlineEvaluation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	id, err := svc.RecordExpense(ctx, expense("alice", "groceries", "42.50", false))
	require.NoError(t, err)
	assert.NotZero(t, id)

	assert.Equal(t, []core.AchievementType{achievements.FirstExpenseLogged}, heldTypes(t, store, "alice"))

	days, err := store.ListActivityDays(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []core.Date{core.DateOf(testNow)}, days)
}

func TestRecordExpense_Invalid(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.RecordExpense(context.Background(), expense("alice", "groceries", "0", false))
	assert.ErrorIs(t, err, finance.ErrInvalidInput)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	all, err := store.ListExpenses(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestWrites_PublishEvaluate(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, store := newTestService(t, WithPublisher(pub))

	_, err := svc.RecordExpense(ctx, expense("alice", "groceries", "10", false))
	require.NoError(t, err)
	_, err = svc.SetBudget(ctx, core.Budget{UserID: "alice", Category: core.CategoryGroceries, Period: core.PeriodOf(testNow), Limit: dec("100")})
	require.NoError(t, err)
	_, err = svc.AddDebt(ctx, core.Debt{UserID: "alice", Name: "car", TotalAmount: dec("1200"), MonthlyPayment: dec("100"), DueDay: 15, StartDate: core.NewDate(2025, 1, 15)})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice:expense", "alice:budget", "alice:debt"}, pub.evaluations)
	assert.Empty(t, heldTypes(t, store, "alice"), "evaluation is left to the worker")
}

func TestWrites_PublishFailureFallsBackInline(t *testing.T) {
	pub := &fakePublisher{failEval: errors.New("broker down")}
	svc, store := newTestService(t, WithPublisher(pub))

	_, err := svc.RecordExpense(context.Background(), expense("alice", "groceries", "10", false))
	require.NoError(t, err)

	assert.Equal(t, []core.AchievementType{achievements.FirstExpenseLogged}, heldTypes(t, store, "alice"))
	assert.Len(t, pub.unlocked, 1)
}

func TestEvaluateAchievements_Idempotent(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	exporter := sheetsmem.New()
	m := metrics.New()
	svc, store := newTestService(t, WithPublisher(pub), WithUnlockExporter(exporter), WithMetrics(m))

	_, err := store.AddExpense(ctx, expense("alice", "groceries", "10", true))
	require.NoError(t, err)

	first, err := svc.EvaluateAchievements(ctx, "alice", testNow)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, achievements.FirstExpenseLogged, first[0].Type)
	assert.Equal(t, achievements.FirstSharedExpense, first[1].Type)
	assert.Equal(t, testNow, first[0].EarnedAt)

	second, err := svc.EvaluateAchievements(ctx, "alice", testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, second)

	assert.Len(t, pub.unlocked, 2)
	assert.Len(t, exporter.UnlockRows(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AchievementsUnlocked.WithLabelValues(string(achievements.FirstSharedExpense))))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("ok")))
}

func TestEvaluateAchievements_ConcurrentStoresOnce(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	_, err := store.AddExpense(ctx, expense("alice", "groceries", "10", false))
	require.NoError(t, err)

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, err := svc.EvaluateAchievements(ctx, "alice", testNow)
			assert.NoError(t, err)
			mu.Lock()
			total += len(stored)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total, "exactly one evaluation reports the unlock")
	assert.Len(t, heldTypes(t, store, "alice"), 1)
}

func TestEvaluateAchievements_RuleFaultIsolated(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	catalog := []achievements.Rule{
		{Type: "broken", Title: "Broken", Predicate: func(achievements.Facts) bool { panic("boom") }},
		{Type: "always", Title: "Always", Predicate: func(achievements.Facts) bool { return true }},
	}
	engine, err := achievements.NewEngine(catalog, achievements.WithFaultObserver(m.RuleFault))
	require.NoError(t, err)
	store := memory.New()
	svc := NewFinanceService(store, engine, WithMetrics(m))

	stored, err := svc.EvaluateAchievements(ctx, "alice", testNow)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, core.AchievementType("always"), stored[0].Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleFaults.WithLabelValues("broken")))

	_, err = svc.EvaluateAchievements(ctx, "alice", testNow)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RuleFaults.WithLabelValues("broken")), "faulted rules are retried")
}

func TestEvaluateAchievements_InvalidLedger(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	svc, store := newTestService(t, WithMetrics(m))
	_, err := store.AddGoal(ctx, core.Goal{UserID: "alice", Name: "bad", TargetAmount: dec("0"), CurrentAmount: dec("0"), Deadline: core.NewDate(2026, 1, 1)})
	require.NoError(t, err)

	_, err = svc.EvaluateAchievements(ctx, "alice", testNow)
	assert.ErrorIs(t, err, finance.ErrInvalidInput)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("invalid")))
}

func TestGoals(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.AddGoal(ctx, core.Goal{UserID: "alice", Name: "trip", TargetAmount: dec("1000"), CurrentAmount: dec("0"), Deadline: core.DateOf(testNow)})
	assert.ErrorIs(t, err, finance.ErrInvalidInput)
	assert.ErrorIs(t, err, core.ErrDeadlineNotFuture)

	id, err := svc.AddGoal(ctx, core.Goal{UserID: "alice", Name: "trip", TargetAmount: dec("1000"), CurrentAmount: dec("0"), Deadline: core.NewDate(2025, 12, 1)})
	require.NoError(t, err)

	g, err := svc.Contribute(ctx, "alice", id, dec("500"))
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.Equal(dec("500")))
	assert.Contains(t, heldTypes(t, store, "alice"), achievements.GoalHalfway)

	_, err = svc.Contribute(ctx, "alice", id, dec("500.01"))
	assert.ErrorIs(t, err, finance.ErrInvalidInput)
	assert.ErrorIs(t, err, core.ErrGoalAboveTarget)

	_, err = svc.Contribute(ctx, "alice", id, dec("-1"))
	assert.ErrorIs(t, err, finance.ErrInvalidInput)

	_, err = svc.Contribute(ctx, "alice", id, dec("200000000000000000"))
	assert.ErrorIs(t, err, finance.ErrInvalidInput)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.Contribute(ctx, "bob", id, dec("1"))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.NotErrorIs(t, err, finance.ErrInvalidInput)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	svc, _ := newTestService(t, WithMetrics(m), WithDashboardCache(cache.NewLRUCache[Dashboard](16, time.Minute)))

	require.NoError(t, svc.LinkPartners(ctx, "alice", "bob"))
	_, err := svc.SetBudget(ctx, core.Budget{UserID: "alice", Category: core.CategoryGroceries, Period: core.PeriodOf(testNow), Limit: dec("400")})
	require.NoError(t, err)
	_, err = svc.RecordExpense(ctx, expense("alice", "market", "120", false))
	require.NoError(t, err)
	_, err = svc.RecordExpense(ctx, expense("bob", "dinner", "60", true))
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, "alice", testNow)
	require.NoError(t, err)
	assert.Equal(t, "bob", d.PartnerID)
	require.Len(t, d.PartnerShared, 1)
	assert.Equal(t, "dinner", d.PartnerShared[0].Description)
	require.Len(t, d.Expenses, 1)
	require.Len(t, d.Budget.Categories, 1)
	assert.Equal(t, finance.StatusGreen, d.Budget.Total.Tier)
	assert.Equal(t, 1, d.ConsecutiveDays)
	assert.Len(t, d.Achievements, len(achievements.DefaultCatalog()))
	assert.Equal(t, 3, d.EarnedCount, "first expense, first budget, budget keeper")
	assert.Nil(t, d.PrimaryGoal)

	_, err = svc.Dashboard(ctx, "alice", testNow)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardCache.WithLabelValues("hit")))

	_, err = svc.RecordExpense(ctx, expense("bob", "cinema", "20", true))
	require.NoError(t, err)
	d, err = svc.Dashboard(ctx, "alice", testNow)
	require.NoError(t, err)
	assert.Len(t, d.PartnerShared, 2, "a partner's shared expense drops the cached dashboard")
}

// racingStore lands a write from another request while a dashboard is loading.
type racingStore struct {
	*memory.Store
	armed   atomic.Bool
	onFirst func()
}

func (s *racingStore) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	if s.armed.CompareAndSwap(true, false) {
		s.onFirst()
	}
	return s.Store.ListExpenses(ctx, userID)
}

func TestDashboard_WriteDuringLoadIsNotMasked(t *testing.T) {
	ctx := context.Background()
	engine, err := achievements.NewEngine(achievements.DefaultCatalog())
	require.NoError(t, err)
	store := &racingStore{Store: memory.New()}
	svc := NewFinanceService(store, engine,
		WithClock(func() time.Time { return testNow }),
		WithDashboardCache(cache.NewLRUCache[Dashboard](16, time.Minute)))

	_, err = svc.RecordExpense(ctx, expense("alice", "market", "120", false))
	require.NoError(t, err)
	store.onFirst = func() {
		_, err := svc.RecordExpense(ctx, expense("alice", "bakery", "4", false))
		assert.NoError(t, err)
	}
	store.armed.Store(true)

	_, err = svc.Dashboard(ctx, "alice", testNow)
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, "alice", testNow)
	require.NoError(t, err)
	assert.Len(t, d.Expenses, 2)
}

func TestLinkPartners_Invalid(t *testing.T) {
	svc, _ := newTestService(t)

	assert.ErrorIs(t, svc.LinkPartners(context.Background(), "", "bob"), finance.ErrInvalidInput)
	assert.ErrorIs(t, svc.LinkPartners(context.Background(), "alice", "alice"), ledger.ErrSelfLink)
}

func TestExportBudgetReport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.ExportBudgetReport(ctx, "alice", core.PeriodOf(testNow))
	assert.ErrorIs(t, err, ErrExportDisabled)

	exporter := sheetsmem.New()
	svc, _ = newTestService(t, WithReportWriter(exporter))
	_, err = svc.SetBudget(ctx, core.Budget{UserID: "alice", Category: core.CategoryDining, Period: core.PeriodOf(testNow), Limit: dec("100")})
	require.NoError(t, err)
	_, err = svc.RecordExpense(ctx, core.Expense{UserID: "alice", Date: core.DateOf(testNow), Description: "pizza", Amount: dec("100"), Category: core.CategoryDining})
	require.NoError(t, err)

	summary, err := svc.ExportBudgetReport(ctx, "alice", core.PeriodOf(testNow))
	require.NoError(t, err)
	assert.Equal(t, finance.StatusRed, summary.Total.Tier)
	rows := exporter.ReportRows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"alice", "2025-03", "dining", "100.00", "100.00", "100.0", "red"}, rows[0])
}
