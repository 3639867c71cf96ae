package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
	"coppia/internal/ledger"

	_ "modernc.org/sqlite"
)

const dayLayout = "2006-01-02"

var _ ledger.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// NewSQLiteRepository opens the database at dbPath and applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	id, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		UserID:      e.UserID,
		Day:         e.Date.Format(dayLayout),
		Description: e.Description,
		AmountCents: core.ToCents(e.Amount),
		Category:    string(e.Category),
		Shared:      e.Shared,
	})
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	slog.DebugContext(ctx, "Expense saved to SQLite", "id", id, "user_id", e.UserID)
	return id, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expensesFromRows(rows)
}

func (r *SQLiteRepository) ListSharedExpenses(ctx context.Context, userID string, period core.Period) ([]core.Expense, error) {
	rows, err := r.queries.ListSharedExpensesInRange(ctx, userID,
		period.Start().Format(dayLayout), period.End().Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("list shared expenses: %w", err)
	}
	return expensesFromRows(rows)
}

func expensesFromRows(rows []ExpenseRow) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		day, err := core.ParseDate(row.Day)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", row.ID, err)
		}
		out = append(out, core.Expense{
			ID:          row.ID,
			UserID:      row.UserID,
			Date:        day,
			Description: row.Description,
			Amount:      core.FromCents(row.AmountCents),
			Category:    core.Category(row.Category),
			Shared:      row.Shared,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) (int64, error) {
	id, err := r.queries.UpsertBudget(ctx, UpsertBudgetParams{
		UserID:     b.UserID,
		Category:   string(b.Category),
		Year:       int64(b.Period.Year),
		Month:      int64(b.Period.Month),
		LimitCents: core.ToCents(b.Limit),
	})
	if err != nil {
		return 0, fmt.Errorf("upsert budget: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgetsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Budget{
			ID:       row.ID,
			UserID:   row.UserID,
			Category: core.Category(row.Category),
			Period:   core.Period{Year: int(row.Year), Month: time.Month(row.Month)},
			Limit:    core.FromCents(row.LimitCents),
		})
	}
	return out, nil
}

func (r *SQLiteRepository) AddDebt(ctx context.Context, d core.Debt) (int64, error) {
	id, err := r.queries.CreateDebt(ctx, CreateDebtParams{
		UserID:              d.UserID,
		Name:                d.Name,
		TotalCents:          core.ToCents(d.TotalAmount),
		MonthlyPaymentCents: core.ToCents(d.MonthlyPayment),
		DueDay:              int64(d.DueDay),
		StartDate:           d.StartDate.Format(dayLayout),
	})
	if err != nil {
		return 0, fmt.Errorf("create debt: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListDebts(ctx context.Context, userID string) ([]core.Debt, error) {
	rows, err := r.queries.ListDebtsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	out := make([]core.Debt, 0, len(rows))
	for _, row := range rows {
		start, err := core.ParseDate(row.StartDate)
		if err != nil {
			return nil, fmt.Errorf("debt %d: %w", row.ID, err)
		}
		out = append(out, core.Debt{
			ID:             row.ID,
			UserID:         row.UserID,
			Name:           row.Name,
			TotalAmount:    core.FromCents(row.TotalCents),
			MonthlyPayment: core.FromCents(row.MonthlyPaymentCents),
			DueDay:         int(row.DueDay),
			StartDate:      start,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) AddGoal(ctx context.Context, g core.Goal) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(q *Queries) error {
		if g.Primary {
			if err := q.ClearPrimaryGoals(ctx, g.UserID); err != nil {
				return fmt.Errorf("clear primary goals: %w", err)
			}
		}
		var err error
		id, err = q.CreateGoal(ctx, CreateGoalParams{
			UserID:       g.UserID,
			Name:         g.Name,
			TargetCents:  core.ToCents(g.TargetAmount),
			CurrentCents: core.ToCents(g.CurrentAmount),
			Deadline:     g.Deadline.Format(dayLayout),
			IsPrimary:    g.Primary,
		})
		if err != nil {
			return fmt.Errorf("create goal: %w", err)
		}
		return nil
	})
	return id, err
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.queries.ListGoalsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, 0, len(rows))
	for _, row := range rows {
		g, err := goalFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *SQLiteRepository) Contribute(ctx context.Context, userID string, goalID int64, amount decimal.Decimal) (core.Goal, error) {
	var updated core.Goal
	err := r.withTx(ctx, func(q *Queries) error {
		row, err := q.GetGoal(ctx, goalID, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("goal %d: %w", goalID, ledger.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		if core.FromCents(row.CurrentCents).Add(amount).GreaterThan(core.FromCents(row.TargetCents)) {
			return fmt.Errorf("goal %d: %w", goalID, core.ErrGoalAboveTarget)
		}
		next := row.CurrentCents + core.ToCents(amount)
		if err := q.UpdateGoalCurrent(ctx, goalID, next); err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		row.CurrentCents = next
		updated, err = goalFromRow(row)
		return err
	})
	return updated, err
}

func goalFromRow(row GoalRow) (core.Goal, error) {
	deadline, err := core.ParseDate(row.Deadline)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %d: %w", row.ID, err)
	}
	return core.Goal{
		ID:            row.ID,
		UserID:        row.UserID,
		Name:          row.Name,
		TargetAmount:  core.FromCents(row.TargetCents),
		CurrentAmount: core.FromCents(row.CurrentCents),
		Deadline:      deadline,
		Primary:       row.IsPrimary,
	}, nil
}

func (r *SQLiteRepository) ListAchievements(ctx context.Context, userID string) ([]core.Achievement, error) {
	rows, err := r.queries.ListAchievementsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	out := make([]core.Achievement, 0, len(rows))
	for _, row := range rows {
		earned, err := time.Parse(time.RFC3339Nano, row.EarnedAt)
		if err != nil {
			return nil, fmt.Errorf("achievement %s: parse earned_at: %w", row.Type, err)
		}
		out = append(out, core.Achievement{
			UserID:   row.UserID,
			Type:     core.AchievementType(row.Type),
			EarnedAt: earned,
		})
	}
	return out, nil
}

// InsertAchievement relies on the (user_id, type) primary key: concurrent
// evaluators racing on the same unlock see exactly one insert succeed.
func (r *SQLiteRepository) InsertAchievement(ctx context.Context, a core.Achievement) (bool, error) {
	n, err := r.queries.InsertAchievement(ctx, AchievementRow{
		UserID:   a.UserID,
		Type:     string(a.Type),
		EarnedAt: a.EarnedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) RecordActivity(ctx context.Context, userID string, day core.Date) error {
	if err := r.queries.InsertActivityDay(ctx, userID, day.Format(dayLayout)); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListActivityDays(ctx context.Context, userID string) ([]core.Date, error) {
	days, err := r.queries.ListActivityDays(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list activity days: %w", err)
	}
	out := make([]core.Date, 0, len(days))
	for _, s := range days {
		d, err := core.ParseDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *SQLiteRepository) LinkPartners(ctx context.Context, userID, partnerID string) error {
	if userID == partnerID {
		return ledger.ErrSelfLink
	}
	return r.withTx(ctx, func(q *Queries) error {
		var missing [][2]string
		for _, pair := range [][2]string{{userID, partnerID}, {partnerID, userID}} {
			current, err := q.GetPartner(ctx, pair[0])
			switch {
			case errors.Is(err, sql.ErrNoRows):
				missing = append(missing, pair)
			case err != nil:
				return fmt.Errorf("get partner: %w", err)
			case current != pair[1]:
				return fmt.Errorf("%s: %w", pair[0], ledger.ErrAlreadyLinked)
			}
		}
		for _, pair := range missing {
			if err := q.InsertPartner(ctx, pair[0], pair[1]); err != nil {
				return fmt.Errorf("insert partner: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Partner(ctx context.Context, userID string) (string, error) {
	partnerID, err := r.queries.GetPartner(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get partner: %w", err)
	}
	return partnerID, nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
