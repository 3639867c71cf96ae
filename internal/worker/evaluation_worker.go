// Package worker consumes evaluation requests and runs the achievement engine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coppia/internal/achievements"
	"coppia/internal/amqp"
	"coppia/internal/finance"
)

// Evaluator runs the achievement catalog for one user.
type Evaluator interface {
	EvaluateAchievements(ctx context.Context, userID string, now time.Time) ([]achievements.UnlockEvent, error)
}

// Consumer delivers evaluate messages until ctx is done.
type Consumer interface {
	ConsumeEvaluate(ctx context.Context, prefetch int, handler func(context.Context, *amqp.EvaluateMessage) error) error
}

// EvaluationWorker handles evaluate messages published on every ledger write.
type EvaluationWorker struct {
	evaluator Evaluator
	prefetch  int
	timeout   time.Duration
	now       func() time.Time
}

func NewEvaluationWorker(evaluator Evaluator, prefetch int) *EvaluationWorker {
	return &EvaluationWorker{
		evaluator: evaluator,
		prefetch:  prefetch,
		timeout:   30 * time.Second,
		now:       time.Now,
	}
}

// HandleEvaluate evaluates the message's user as of the time of handling.
// Invalid ledger data is reported as unprocessable so the message is not requeued.
func (w *EvaluationWorker) HandleEvaluate(ctx context.Context, msg *amqp.EvaluateMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	slog.DebugContext(ctx, "Processing evaluate message",
		"user_id", msg.UserID,
		"reason", msg.Reason,
		"queued_for", time.Since(msg.Timestamp).String())

	stored, err := w.evaluator.EvaluateAchievements(ctx, msg.UserID, w.now())
	if err != nil {
		if errors.Is(err, finance.ErrInvalidInput) {
			return fmt.Errorf("evaluate %s: %w: %w", msg.UserID, amqp.ErrUnprocessable, err)
		}
		return fmt.Errorf("evaluate %s: %w", msg.UserID, err)
	}

	if len(stored) > 0 {
		slog.InfoContext(ctx, "Evaluation unlocked achievements",
			"user_id", msg.UserID,
			"count", len(stored))
	}
	return nil
}

// Run consumes until ctx is cancelled.
func (w *EvaluationWorker) Run(ctx context.Context, consumer Consumer) error {
	slog.InfoContext(ctx, "Evaluation worker started", "prefetch", w.prefetch)
	err := consumer.ConsumeEvaluate(ctx, w.prefetch, w.HandleEvaluate)
	if errors.Is(err, context.Canceled) {
		slog.InfoContext(ctx, "Evaluation worker stopped")
		return nil
	}
	return err
}
