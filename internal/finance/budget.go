package finance

import (
	"github.com/shopspring/decimal"

	"coppia/internal/core"
)

// StatusTier describes how close spending is to a budget limit.
type StatusTier string

const (
	StatusGreen  StatusTier = "green"
	StatusYellow StatusTier = "yellow"
	StatusRed    StatusTier = "red"
)

var (
	hundred         = decimal.NewFromInt(100)
	yellowThreshold = decimal.NewFromInt(70)
)

// BudgetStatus is the derived usage of one limit.
type BudgetStatus struct {
	Limit      decimal.Decimal
	Spent      decimal.Decimal
	Remaining  decimal.Decimal // negative when over budget
	Percentage decimal.Decimal
	Tier       StatusTier
}

// CategoryStatus is a BudgetStatus scoped to one category.
type CategoryStatus struct {
	Category core.Category
	BudgetStatus
}

// BudgetSummary aggregates every budget of a period.
type BudgetSummary struct {
	Period     core.Period
	Categories []CategoryStatus
	Total      BudgetStatus
	// Unbudgeted holds spending in categories without a budget this period.
	Unbudgeted decimal.Decimal
}

// TierFor maps a percentage to its tier. Boundaries belong to the stricter tier.
func TierFor(percentage decimal.Decimal) StatusTier {
	switch {
	case percentage.LessThan(yellowThreshold):
		return StatusGreen
	case percentage.LessThan(hundred):
		return StatusYellow
	default:
		return StatusRed
	}
}

// ComputeBudgetStatus derives the usage of limit given what was spent against it.
// A zero limit yields 0% and the green tier.
func ComputeBudgetStatus(limit, spent decimal.Decimal) (BudgetStatus, error) {
	if limit.IsNegative() {
		return BudgetStatus{}, invalidf("negative budget limit %s", limit)
	}
	if spent.IsNegative() {
		return BudgetStatus{}, invalidf("negative spend %s", spent)
	}

	pct := decimal.Zero
	if limit.IsPositive() {
		pct = spent.Div(limit).Mul(hundred)
	}
	return BudgetStatus{
		Limit:      limit,
		Spent:      spent,
		Remaining:  limit.Sub(spent),
		Percentage: pct,
		Tier:       TierFor(pct),
	}, nil
}

// SummarizeBudgets computes per-category and total usage for one period.
//
// The total spend covers every expense of the period regardless of category,
// so spending in unbudgeted categories still counts against the total limit.
func SummarizeBudgets(period core.Period, budgets []core.Budget, expenses []core.Expense) (BudgetSummary, error) {
	spentBy := make(map[core.Category]decimal.Decimal)
	totalSpent := decimal.Zero
	for _, e := range expenses {
		if !e.Amount.IsPositive() {
			return BudgetSummary{}, invalidf("expense %d has non-positive amount %s", e.ID, e.Amount)
		}
		if !e.Category.IsValid() {
			return BudgetSummary{}, invalidf("expense %d has unknown category %q", e.ID, e.Category)
		}
		if !period.Contains(e.Date) {
			continue
		}
		spentBy[e.Category] = spentBy[e.Category].Add(e.Amount)
		totalSpent = totalSpent.Add(e.Amount)
	}

	limitBy := make(map[core.Category]decimal.Decimal)
	totalLimit := decimal.Zero
	for _, b := range budgets {
		if b.Period != period {
			continue
		}
		if _, dup := limitBy[b.Category]; dup {
			return BudgetSummary{}, invalidf("duplicate budget for %s in %s", b.Category, period)
		}
		if !b.Category.IsValid() {
			return BudgetSummary{}, invalidf("budget %d has unknown category %q", b.ID, b.Category)
		}
		if b.Limit.IsNegative() {
			return BudgetSummary{}, invalidf("budget %d has negative limit %s", b.ID, b.Limit)
		}
		limitBy[b.Category] = b.Limit
		totalLimit = totalLimit.Add(b.Limit)
	}

	summary := BudgetSummary{Period: period, Unbudgeted: decimal.Zero}
	for _, c := range core.Categories {
		limit, ok := limitBy[c]
		if !ok {
			summary.Unbudgeted = summary.Unbudgeted.Add(spentBy[c])
			continue
		}
		st, err := ComputeBudgetStatus(limit, spentBy[c])
		if err != nil {
			return BudgetSummary{}, err
		}
		summary.Categories = append(summary.Categories, CategoryStatus{Category: c, BudgetStatus: st})
	}

	total, err := ComputeBudgetStatus(totalLimit, totalSpent)
	if err != nil {
		return BudgetSummary{}, err
	}
	summary.Total = total
	return summary, nil
}
