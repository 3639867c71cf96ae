package sheets

import (
	"context"

	"coppia/internal/achievements"
	"coppia/internal/finance"
)

// Ports for outbound export adapters.
type (
	// UnlockAppender records newly unlocked achievements as log rows.
	UnlockAppender interface {
		AppendUnlocks(ctx context.Context, events []achievements.UnlockEvent) error
	}

	// ReportWriter records a monthly budget summary for one user.
	ReportWriter interface {
		WriteBudgetReport(ctx context.Context, userID string, summary finance.BudgetSummary) error
	}

	Exporter interface {
		UnlockAppender
		ReportWriter
	}
)
