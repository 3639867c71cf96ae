// Package memory keeps exported rows in process, for development and tests.
package memory

import (
	"context"
	"sync"

	"coppia/internal/achievements"
	"coppia/internal/finance"
	ports "coppia/internal/sheets"
)

var _ ports.Exporter = (*Exporter)(nil)

type Exporter struct {
	mu      sync.Mutex
	unlocks [][]string
	reports [][]string
}

func New() *Exporter {
	return &Exporter{}
}

// AppendUnlocks stores one row per event.
func (e *Exporter) AppendUnlocks(_ context.Context, events []achievements.UnlockEvent) error {
	if len(events) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unlocks = append(e.unlocks, ports.UnlockRows(events)...)
	return nil
}

// WriteBudgetReport stores the report rows of summary.
func (e *Exporter) WriteBudgetReport(_ context.Context, userID string, summary finance.BudgetSummary) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reports = append(e.reports, ports.ReportRows(userID, summary)...)
	return nil
}

// UnlockRows returns a copy of the stored unlock rows.
func (e *Exporter) UnlockRows() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.unlocks...)
}

// ReportRows returns a copy of the stored report rows.
func (e *Exporter) ReportRows() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.reports...)
}
