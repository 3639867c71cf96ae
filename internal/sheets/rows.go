package sheets

import (
	"time"

	"coppia/internal/achievements"
	"coppia/internal/finance"
)

// UnlockHeader is the header row of the achievements log.
var UnlockHeader = []string{"Event ID", "User", "Achievement", "Title", "Earned At"}

// ReportHeader is the header row of the budget report log.
var ReportHeader = []string{"User", "Period", "Category", "Limit", "Spent", "Percentage", "Tier"}

// UnlockRows renders one row per event in UnlockHeader order.
func UnlockRows(events []achievements.UnlockEvent) [][]string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.ID.String(),
			e.UserID,
			string(e.Type),
			e.Title,
			e.EarnedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// ReportRows renders one row per budgeted category followed by a total row.
func ReportRows(userID string, s finance.BudgetSummary) [][]string {
	period := s.Period.String()
	rows := make([][]string, 0, len(s.Categories)+1)
	for _, c := range s.Categories {
		rows = append(rows, reportRow(userID, period, string(c.Category), c.BudgetStatus))
	}
	return append(rows, reportRow(userID, period, "total", s.Total))
}

func reportRow(userID, period, label string, st finance.BudgetStatus) []string {
	return []string{
		userID,
		period,
		label,
		st.Limit.StringFixed(2),
		st.Spent.StringFixed(2),
		st.Percentage.StringFixed(1),
		string(st.Tier),
	}
}
