// Package memory is an in-process ledger.Store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
	"coppia/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type budgetKey struct {
	userID   string
	category core.Category
	period   core.Period
}

type achievementKey struct {
	userID string
	typ    core.AchievementType
}

type Store struct {
	mu sync.Mutex

	nextID       int64
	expenses     []core.Expense
	budgets      map[budgetKey]core.Budget
	debts        []core.Debt
	goals        []core.Goal
	achievements map[achievementKey]core.Achievement
	activity     map[string]map[core.Date]struct{}
	partners     map[string]string
}

func New() *Store {
	return &Store{
		budgets:      make(map[budgetKey]core.Budget),
		achievements: make(map[achievementKey]core.Achievement),
		activity:     make(map[string]map[core.Date]struct{}),
		partners:     make(map[string]string),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) AddExpense(_ context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.expenses = append(s.expenses, e)
	return e.ID, nil
}

func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterExpenses(func(e core.Expense) bool { return e.UserID == userID }), nil
}

func (s *Store) ListSharedExpenses(_ context.Context, userID string, period core.Period) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterExpenses(func(e core.Expense) bool {
		return e.UserID == userID && e.Shared && period.Contains(e.Date)
	}), nil
}

func (s *Store) filterExpenses(keep func(core.Expense) bool) []core.Expense {
	var out []core.Expense
	for _, e := range s.expenses {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) SetBudget(_ context.Context, b core.Budget) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := budgetKey{userID: b.UserID, category: b.Category, period: b.Period}
	if existing, ok := s.budgets[key]; ok {
		b.ID = existing.ID
	} else {
		b.ID = s.id()
	}
	s.budgets[key] = b
	return b.ID, nil
}

func (s *Store) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for k, b := range s.budgets {
		if k.userID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AddDebt(_ context.Context, d core.Debt) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.id()
	s.debts = append(s.debts, d)
	return d.ID, nil
}

func (s *Store) ListDebts(_ context.Context, userID string) ([]core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Debt
	for _, d := range s.debts {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) AddGoal(_ context.Context, g core.Goal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.Primary {
		for i := range s.goals {
			if s.goals[i].UserID == g.UserID {
				s.goals[i].Primary = false
			}
		}
	}
	g.ID = s.id()
	s.goals = append(s.goals, g)
	return g.ID, nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) Contribute(_ context.Context, userID string, goalID int64, amount decimal.Decimal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.goals {
		if g.ID != goalID || g.UserID != userID {
			continue
		}
		next := g.CurrentAmount.Add(amount)
		if next.GreaterThan(g.TargetAmount) {
			return core.Goal{}, fmt.Errorf("goal %d: %w", goalID, core.ErrGoalAboveTarget)
		}
		s.goals[i].CurrentAmount = next
		return s.goals[i], nil
	}
	return core.Goal{}, fmt.Errorf("goal %d: %w", goalID, ledger.ErrNotFound)
}

func (s *Store) ListAchievements(_ context.Context, userID string) ([]core.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Achievement
	for k, a := range s.achievements {
		if k.userID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EarnedAt.Equal(out[j].EarnedAt) {
			return out[i].EarnedAt.Before(out[j].EarnedAt)
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

func (s *Store) InsertAchievement(_ context.Context, a core.Achievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := achievementKey{userID: a.UserID, typ: a.Type}
	if _, held := s.achievements[key]; held {
		return false, nil
	}
	s.achievements[key] = a
	return true, nil
}

func (s *Store) RecordActivity(_ context.Context, userID string, day core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, ok := s.activity[userID]
	if !ok {
		days = make(map[core.Date]struct{})
		s.activity[userID] = days
	}
	days[core.DateOf(day.Time)] = struct{}{}
	return nil
}

func (s *Store) ListActivityDays(_ context.Context, userID string) ([]core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Date, 0, len(s.activity[userID]))
	for d := range s.activity[userID] {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j].Time) })
	return out, nil
}

func (s *Store) LinkPartners(_ context.Context, userID, partnerID string) error {
	if userID == partnerID {
		return ledger.ErrSelfLink
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pair := range [][2]string{{userID, partnerID}, {partnerID, userID}} {
		if current, ok := s.partners[pair[0]]; ok && current != pair[1] {
			return fmt.Errorf("%s: %w", pair[0], ledger.ErrAlreadyLinked)
		}
	}
	s.partners[userID] = partnerID
	s.partners[partnerID] = userID
	return nil
}

func (s *Store) Partner(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partners[userID], nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
