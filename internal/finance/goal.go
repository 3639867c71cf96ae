package finance

import (
	"github.com/shopspring/decimal"

	"coppia/internal/core"
)

// GoalTier is the motivational band of a goal, decided by completion alone.
type GoalTier string

const (
	GoalEarly     GoalTier = "early"
	GoalStarted   GoalTier = "started"
	GoalHalfway   GoalTier = "halfway"
	GoalNear      GoalTier = "near"
	GoalCompleted GoalTier = "completed"
)

// GoalUrgency is derived from the deadline alone. A goal can be early and overdue at once.
type GoalUrgency string

const (
	GoalOnTrack  GoalUrgency = "on_track"
	GoalClosing  GoalUrgency = "closing"
	GoalOverdue  GoalUrgency = "overdue"
	GoalAchieved GoalUrgency = "achieved"
)

// closingWindowDays is how close a deadline must be to count as closing.
const closingWindowDays = 14

var goalTiers = []struct {
	min  decimal.Decimal
	tier GoalTier
}{
	{decimal.NewFromInt(100), GoalCompleted},
	{decimal.NewFromInt(75), GoalNear},
	{decimal.NewFromInt(50), GoalHalfway},
	{decimal.NewFromInt(25), GoalStarted},
}

// GoalProjection is the derived state of one savings goal on a given day.
type GoalProjection struct {
	Goal core.Goal
	// Ratio is current/target, uncapped.
	Ratio decimal.Decimal
	// Percentage is Ratio*100 capped at 100 for display.
	Percentage         decimal.Decimal
	AmountRemaining    decimal.Decimal
	DaysRemaining      int
	DailySavingsNeeded decimal.Decimal
	Tier               GoalTier
	Urgency            GoalUrgency
}

// Complete reports whether the target has been reached.
func (p GoalProjection) Complete() bool {
	return p.Ratio.GreaterThanOrEqual(decimal.NewFromInt(1))
}

// GoalTierFor maps a completion percentage to its motivational tier.
func GoalTierFor(percentage decimal.Decimal) GoalTier {
	for _, t := range goalTiers {
		if percentage.GreaterThanOrEqual(t.min) {
			return t.tier
		}
	}
	return GoalEarly
}

// ProjectGoal derives completion and the savings pace needed to meet the deadline.
//
// A current amount above target is rejected rather than clamped: it means the
// stored row is inconsistent and the caller has to surface it.
func ProjectGoal(goal core.Goal, today core.Date) (GoalProjection, error) {
	if !goal.TargetAmount.IsPositive() {
		return GoalProjection{}, invalidf("goal %q target %s must be positive", goal.Name, goal.TargetAmount)
	}
	if goal.CurrentAmount.IsNegative() {
		return GoalProjection{}, invalidf("goal %q current amount %s is negative", goal.Name, goal.CurrentAmount)
	}
	if goal.CurrentAmount.GreaterThan(goal.TargetAmount) {
		return GoalProjection{}, invalidf("goal %q current amount %s exceeds target %s", goal.Name, goal.CurrentAmount, goal.TargetAmount)
	}

	ratio := goal.CurrentAmount.Div(goal.TargetAmount)
	pct := ratio.Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	remaining := goal.TargetAmount.Sub(goal.CurrentAmount)

	days := today.DaysUntil(goal.Deadline)
	if days < 0 {
		days = 0
	}

	daily := decimal.Zero
	switch {
	case !remaining.IsPositive():
	case days > 0:
		daily = remaining.Div(decimal.NewFromInt(int64(days)))
	default:
		daily = remaining
	}

	p := GoalProjection{
		Goal:               goal,
		Ratio:              ratio,
		Percentage:         pct,
		AmountRemaining:    remaining,
		DaysRemaining:      days,
		DailySavingsNeeded: daily,
		Tier:               GoalTierFor(pct),
	}
	switch {
	case p.Complete():
		p.Urgency = GoalAchieved
	case days == 0:
		p.Urgency = GoalOverdue
	case days <= closingWindowDays:
		p.Urgency = GoalClosing
	default:
		p.Urgency = GoalOnTrack
	}
	return p, nil
}

// ProjectGoals projects every goal, stopping at the first invalid one.
func ProjectGoals(goals []core.Goal, today core.Date) ([]GoalProjection, error) {
	out := make([]GoalProjection, 0, len(goals))
	for _, g := range goals {
		p, err := ProjectGoal(g, today)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// PrimaryGoal returns the projection flagged primary, or the first one.
func PrimaryGoal(projections []GoalProjection) (GoalProjection, bool) {
	for _, p := range projections {
		if p.Goal.Primary {
			return p, true
		}
	}
	if len(projections) > 0 {
		return projections[0], true
	}
	return GoalProjection{}, false
}
