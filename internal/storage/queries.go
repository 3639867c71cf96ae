package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ExpenseRow struct {
	ID          int64
	UserID      string
	Day         string
	Description string
	AmountCents int64
	Category    string
	Shared      bool
}

type BudgetRow struct {
	ID         int64
	UserID     string
	Category   string
	Year       int64
	Month      int64
	LimitCents int64
}

type DebtRow struct {
	ID                  int64
	UserID              string
	Name                string
	TotalCents          int64
	MonthlyPaymentCents int64
	DueDay              int64
	StartDate           string
}

type GoalRow struct {
	ID           int64
	UserID       string
	Name         string
	TargetCents  int64
	CurrentCents int64
	Deadline     string
	IsPrimary    bool
}

type AchievementRow struct {
	UserID   string
	Type     string
	EarnedAt string
}

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (user_id, day, description, amount_cents, category, shared)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateExpenseParams struct {
	UserID      string
	Day         string
	Description string
	AmountCents int64
	Category    string
	Shared      bool
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.UserID, arg.Day, arg.Description, arg.AmountCents, arg.Category, arg.Shared)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listExpensesByUser = `-- name: ListExpensesByUser :many
SELECT id, user_id, day, description, amount_cents, category, shared
FROM expenses
WHERE user_id = ?
ORDER BY day, id`

func (q *Queries) ListExpensesByUser(ctx context.Context, userID string) ([]ExpenseRow, error) {
	return q.queryExpenses(ctx, listExpensesByUser, userID)
}

const listSharedExpensesInRange = `-- name: ListSharedExpensesInRange :many
SELECT id, user_id, day, description, amount_cents, category, shared
FROM expenses
WHERE user_id = ? AND shared = 1 AND day >= ? AND day < ?
ORDER BY day, id`

// ListSharedExpensesInRange covers days in [from, to).
func (q *Queries) ListSharedExpensesInRange(ctx context.Context, userID, from, to string) ([]ExpenseRow, error) {
	return q.queryExpenses(ctx, listSharedExpensesInRange, userID, from, to)
}

func (q *Queries) queryExpenses(ctx context.Context, query string, args ...interface{}) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		var i ExpenseRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Day, &i.Description, &i.AmountCents, &i.Category, &i.Shared); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertBudget = `-- name: UpsertBudget :one
INSERT INTO budgets (user_id, category, year, month, limit_cents)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, category, year, month) DO UPDATE SET limit_cents = excluded.limit_cents
RETURNING id`

type UpsertBudgetParams struct {
	UserID     string
	Category   string
	Year       int64
	Month      int64
	LimitCents int64
}

func (q *Queries) UpsertBudget(ctx context.Context, arg UpsertBudgetParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertBudget, arg.UserID, arg.Category, arg.Year, arg.Month, arg.LimitCents)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listBudgetsByUser = `-- name: ListBudgetsByUser :many
SELECT id, user_id, category, year, month, limit_cents
FROM budgets
WHERE user_id = ?
ORDER BY year, month, id`

func (q *Queries) ListBudgetsByUser(ctx context.Context, userID string) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetRow
	for rows.Next() {
		var i BudgetRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Category, &i.Year, &i.Month, &i.LimitCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createDebt = `-- name: CreateDebt :one
INSERT INTO debts (user_id, name, total_cents, monthly_payment_cents, due_day, start_date)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateDebtParams struct {
	UserID              string
	Name                string
	TotalCents          int64
	MonthlyPaymentCents int64
	DueDay              int64
	StartDate           string
}

func (q *Queries) CreateDebt(ctx context.Context, arg CreateDebtParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createDebt,
		arg.UserID, arg.Name, arg.TotalCents, arg.MonthlyPaymentCents, arg.DueDay, arg.StartDate)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listDebtsByUser = `-- name: ListDebtsByUser :many
SELECT id, user_id, name, total_cents, monthly_payment_cents, due_day, start_date
FROM debts
WHERE user_id = ?
ORDER BY id`

func (q *Queries) ListDebtsByUser(ctx context.Context, userID string) ([]DebtRow, error) {
	rows, err := q.db.QueryContext(ctx, listDebtsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DebtRow
	for rows.Next() {
		var i DebtRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.TotalCents, &i.MonthlyPaymentCents, &i.DueDay, &i.StartDate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const clearPrimaryGoals = `-- name: ClearPrimaryGoals :exec
UPDATE goals SET is_primary = 0 WHERE user_id = ?`

func (q *Queries) ClearPrimaryGoals(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, clearPrimaryGoals, userID)
	return err
}

const createGoal = `-- name: CreateGoal :one
INSERT INTO goals (user_id, name, target_cents, current_cents, deadline, is_primary)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateGoalParams struct {
	UserID       string
	Name         string
	TargetCents  int64
	CurrentCents int64
	Deadline     string
	IsPrimary    bool
}

func (q *Queries) CreateGoal(ctx context.Context, arg CreateGoalParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createGoal,
		arg.UserID, arg.Name, arg.TargetCents, arg.CurrentCents, arg.Deadline, arg.IsPrimary)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const goalColumns = `id, user_id, name, target_cents, current_cents, deadline, is_primary`

const listGoalsByUser = `-- name: ListGoalsByUser :many
SELECT ` + goalColumns + `
FROM goals
WHERE user_id = ?
ORDER BY id`

func (q *Queries) ListGoalsByUser(ctx context.Context, userID string) ([]GoalRow, error) {
	rows, err := q.db.QueryContext(ctx, listGoalsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GoalRow
	for rows.Next() {
		var i GoalRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.TargetCents, &i.CurrentCents, &i.Deadline, &i.IsPrimary); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getGoal = `-- name: GetGoal :one
SELECT ` + goalColumns + `
FROM goals
WHERE id = ? AND user_id = ?`

func (q *Queries) GetGoal(ctx context.Context, id int64, userID string) (GoalRow, error) {
	row := q.db.QueryRowContext(ctx, getGoal, id, userID)
	var i GoalRow
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.TargetCents, &i.CurrentCents, &i.Deadline, &i.IsPrimary)
	return i, err
}

const updateGoalCurrent = `-- name: UpdateGoalCurrent :exec
UPDATE goals SET current_cents = ? WHERE id = ?`

func (q *Queries) UpdateGoalCurrent(ctx context.Context, id, currentCents int64) error {
	_, err := q.db.ExecContext(ctx, updateGoalCurrent, currentCents, id)
	return err
}

const listAchievementsByUser = `-- name: ListAchievementsByUser :many
SELECT user_id, type, earned_at
FROM achievements
WHERE user_id = ?
ORDER BY earned_at, type`

func (q *Queries) ListAchievementsByUser(ctx context.Context, userID string) ([]AchievementRow, error) {
	rows, err := q.db.QueryContext(ctx, listAchievementsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AchievementRow
	for rows.Next() {
		var i AchievementRow
		if err := rows.Scan(&i.UserID, &i.Type, &i.EarnedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertAchievement = `-- name: InsertAchievement :execrows
INSERT INTO achievements (user_id, type, earned_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id, type) DO NOTHING`

func (q *Queries) InsertAchievement(ctx context.Context, arg AchievementRow) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertAchievement, arg.UserID, arg.Type, arg.EarnedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertActivityDay = `-- name: InsertActivityDay :exec
INSERT INTO activity_days (user_id, day)
VALUES (?, ?)
ON CONFLICT (user_id, day) DO NOTHING`

func (q *Queries) InsertActivityDay(ctx context.Context, userID, day string) error {
	_, err := q.db.ExecContext(ctx, insertActivityDay, userID, day)
	return err
}

const listActivityDays = `-- name: ListActivityDays :many
SELECT day FROM activity_days WHERE user_id = ? ORDER BY day`

func (q *Queries) ListActivityDays(ctx context.Context, userID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listActivityDays, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		items = append(items, day)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPartner = `-- name: GetPartner :one
SELECT partner_id FROM partners WHERE user_id = ?`

func (q *Queries) GetPartner(ctx context.Context, userID string) (string, error) {
	row := q.db.QueryRowContext(ctx, getPartner, userID)
	var partnerID string
	err := row.Scan(&partnerID)
	return partnerID, err
}

const insertPartner = `-- name: InsertPartner :exec
INSERT INTO partners (user_id, partner_id) VALUES (?, ?)`

func (q *Queries) InsertPartner(ctx context.Context, userID, partnerID string) error {
	_, err := q.db.ExecContext(ctx, insertPartner, userID, partnerID)
	return err
}
