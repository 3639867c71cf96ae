package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"coppia/internal/achievements"
	"coppia/internal/core"
	"coppia/internal/finance"
)

// LoadSnapshot reads every ledger table of userID concurrently.
func (s *FinanceService) LoadSnapshot(ctx context.Context, userID string) (achievements.Snapshot, error) {
	snap := achievements.Snapshot{UserID: userID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Expenses, err = s.store.ListExpenses(gctx, userID)
		return wrap("list expenses", err)
	})
	g.Go(func() (err error) {
		snap.Budgets, err = s.store.ListBudgets(gctx, userID)
		return wrap("list budgets", err)
	})
	g.Go(func() (err error) {
		snap.Debts, err = s.store.ListDebts(gctx, userID)
		return wrap("list debts", err)
	})
	g.Go(func() (err error) {
		snap.Goals, err = s.store.ListGoals(gctx, userID)
		return wrap("list goals", err)
	})
	g.Go(func() (err error) {
		snap.ActivityDays, err = s.store.ListActivityDays(gctx, userID)
		return wrap("list activity", err)
	})
	if err := g.Wait(); err != nil {
		return achievements.Snapshot{}, err
	}
	return snap, nil
}

func wrap(op string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EvaluateAchievements runs the catalog for userID as of now and stores every
// unlock not already held. It returns only the unlocks this call stored; a
// concurrent evaluation that stored the same type first wins.
func (s *FinanceService) EvaluateAchievements(ctx context.Context, userID string, now time.Time) ([]achievements.UnlockEvent, error) {
	var (
		snap achievements.Snapshot
		held []core.Achievement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap, err = s.LoadSnapshot(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		held, err = s.store.ListAchievements(gctx, userID)
		return wrap("list achievements", err)
	})
	if err := g.Wait(); err != nil {
		s.countEvaluation("error")
		return nil, err
	}

	facts, err := achievements.BuildFacts(snap, now)
	if err != nil {
		if errors.Is(err, finance.ErrInvalidInput) {
			s.countEvaluation("invalid")
		} else {
			s.countEvaluation("error")
		}
		return nil, fmt.Errorf("build facts for %s: %w", userID, err)
	}

	res := s.engine.Evaluate(achievements.SetOf(held), facts)

	var stored []achievements.UnlockEvent
	for _, ev := range res.Unlocked {
		inserted, err := s.store.InsertAchievement(ctx, ev.Achievement())
		if err != nil {
			s.countEvaluation("error")
			return stored, fmt.Errorf("store achievement %s: %w", ev.Type, err)
		}
		if !inserted {
			continue
		}
		stored = append(stored, ev)
		s.logs.LogAchievementUnlocked(ctx, ev.UserID, string(ev.Type), ev.ID.String())
		if s.metrics != nil {
			s.metrics.Unlocked(ev.Type)
		}
	}
	s.countEvaluation("ok")

	if len(stored) == 0 {
		return nil, nil
	}
	s.invalidate(userID)
	s.notify(ctx, stored)
	return stored, nil
}

// notify fans newly stored unlocks out to the broker and the export sheet.
// Both are best effort; the unlocks are already persisted.
func (s *FinanceService) notify(ctx context.Context, events []achievements.UnlockEvent) {
	if s.publisher != nil {
		if err := s.publisher.PublishUnlocked(ctx, events); err != nil {
			slog.ErrorContext(ctx, "Failed to publish unlock notifications", "count", len(events), "error", err)
		}
	}
	if s.exporter != nil {
		if err := s.exporter.AppendUnlocks(ctx, events); err != nil {
			slog.ErrorContext(ctx, "Failed to export unlocks", "count", len(events), "error", err)
		}
	}
}

func (s *FinanceService) countEvaluation(outcome string) {
	if s.metrics != nil {
		s.metrics.Evaluations.WithLabelValues(outcome).Inc()
	}
}
