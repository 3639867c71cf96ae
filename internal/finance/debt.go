package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
)

// DueUrgency classifies how soon the next installment is due.
type DueUrgency string

const (
	DueNormal  DueUrgency = "normal"
	DueWarning DueUrgency = "warning"
	DueUrgent  DueUrgency = "urgent"
	// DueSettled marks paid-off debts, which take no part in due-date urgency.
	DueSettled DueUrgency = "settled"
)

// DebtProgress is the derived payoff state of one debt on a given day.
type DebtProgress struct {
	Debt            core.Debt
	MonthsElapsed   int
	AmountPaid      decimal.Decimal
	Remaining       decimal.Decimal
	MonthsRemaining int
	PercentagePaid  decimal.Decimal
	Settled         bool

	// Zero for settled debts.
	NextDueDate  core.Date
	DaysUntilDue int
	Urgency      DueUrgency
}

// DebtSummary aggregates the progress of every debt of a user.
type DebtSummary struct {
	Debts           []DebtProgress
	TotalRemaining  decimal.Decimal
	EstimatedMonths int
	ActiveCount     int
	SettledCount    int
	// NextDue is nil when every debt is settled.
	NextDue       *DebtProgress
	NextDueAmount decimal.Decimal
}

// UrgencyFor maps the days left before an installment to its urgency.
func UrgencyFor(daysUntilDue int) DueUrgency {
	switch {
	case daysUntilDue <= 1:
		return DueUrgent
	case daysUntilDue <= 3:
		return DueWarning
	default:
		return DueNormal
	}
}

// ComputeDebtProgress derives payoff progress for debt as of today.
func ComputeDebtProgress(debt core.Debt, today core.Date) (DebtProgress, error) {
	if !debt.MonthlyPayment.IsPositive() {
		return DebtProgress{}, invalidDebtf("debt %q monthly payment %s must be positive", debt.Name, debt.MonthlyPayment)
	}
	if !debt.TotalAmount.IsPositive() {
		return DebtProgress{}, invalidDebtf("debt %q total %s must be positive", debt.Name, debt.TotalAmount)
	}
	if debt.DueDay < 1 || debt.DueDay > 31 {
		return DebtProgress{}, invalidDebtf("debt %q due day %d outside 1-31", debt.Name, debt.DueDay)
	}
	if debt.StartDate.IsZero() {
		return DebtProgress{}, invalidDebtf("debt %q has no start date", debt.Name)
	}

	elapsed := monthsBetween(debt.StartDate, today)
	paid := decimal.NewFromInt(int64(elapsed)).Mul(debt.MonthlyPayment)
	if paid.GreaterThan(debt.TotalAmount) {
		paid = debt.TotalAmount
	}
	remaining := debt.TotalAmount.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	p := DebtProgress{
		Debt:            debt,
		MonthsElapsed:   elapsed,
		AmountPaid:      paid,
		Remaining:       remaining,
		MonthsRemaining: int(remaining.Div(debt.MonthlyPayment).Ceil().IntPart()),
		PercentagePaid:  paid.Div(debt.TotalAmount).Mul(hundred),
		Settled:         remaining.IsZero(),
	}
	if p.Settled {
		p.Urgency = DueSettled
		return p, nil
	}

	p.NextDueDate = nextDueDate(debt.DueDay, today)
	p.DaysUntilDue = today.DaysUntil(p.NextDueDate)
	p.Urgency = UrgencyFor(p.DaysUntilDue)
	return p, nil
}

// SummarizeDebts computes progress for every debt and the cross-debt totals.
func SummarizeDebts(debts []core.Debt, today core.Date) (DebtSummary, error) {
	summary := DebtSummary{
		Debts:          make([]DebtProgress, 0, len(debts)),
		TotalRemaining: decimal.Zero,
		NextDueAmount:  decimal.Zero,
	}
	var active []int
	for _, d := range debts {
		p, err := ComputeDebtProgress(d, today)
		if err != nil {
			return DebtSummary{}, err
		}
		summary.TotalRemaining = summary.TotalRemaining.Add(p.Remaining)
		if p.Settled {
			summary.SettledCount++
		} else {
			summary.ActiveCount++
			active = append(active, len(summary.Debts))
			if p.MonthsRemaining > summary.EstimatedMonths {
				summary.EstimatedMonths = p.MonthsRemaining
			}
		}
		summary.Debts = append(summary.Debts, p)
	}
	if len(active) == 0 {
		return summary, nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		a, b := summary.Debts[active[i]], summary.Debts[active[j]]
		if a.DaysUntilDue != b.DaysUntilDue {
			return a.DaysUntilDue < b.DaysUntilDue
		}
		if c := a.Remaining.Cmp(b.Remaining); c != 0 {
			return c > 0
		}
		return a.Debt.Name < b.Debt.Name
	})
	next := summary.Debts[active[0]]
	summary.NextDue = &next
	summary.NextDueAmount = decimal.Min(next.Debt.MonthlyPayment, next.Remaining)
	return summary, nil
}

// monthsBetween counts whole calendar months from start to today, never negative.
// An anniversary past the end of a shorter month falls on its last day.
func monthsBetween(start, today core.Date) int {
	if !today.After(start.Time) {
		return 0
	}
	months := (today.Year()-start.Year())*12 + int(today.Month()-start.Month())
	anniversary := start.Day()
	if last := daysIn(today.Year(), today.Month()); anniversary > last {
		anniversary = last
	}
	if today.Day() < anniversary {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// nextDueDate returns the first due day on or after today.
func nextDueDate(dueDay int, today core.Date) core.Date {
	due := dueDateIn(today.Year(), today.Month(), dueDay)
	if !due.Before(today.Time) {
		return due
	}
	next := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return dueDateIn(next.Year(), next.Month(), dueDay)
}

func dueDateIn(year int, month time.Month, dueDay int) core.Date {
	if last := daysIn(year, month); dueDay > last {
		dueDay = last
	}
	return core.Date{Time: time.Date(year, month, dueDay, 0, 0, 0, 0, time.UTC)}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
