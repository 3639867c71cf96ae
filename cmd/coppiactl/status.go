package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"coppia/internal/cli"
	"coppia/internal/core"
	"coppia/internal/finance"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	tierStyles = map[finance.StatusTier]lipgloss.Style{
		finance.StatusGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")),
		finance.StatusYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D")),
		finance.StatusRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a user's budget status for a month",
		Long: `Print every budget of the month with spent, remaining and tier.

With --export the same summary is also written to the Google Sheets report tab.`,
		RunE: runStatus,
	}
	cmd.Flags().String("user", "", "user id")
	cmd.Flags().String("period", "", "month as YYYY-MM (default: current month)")
	cmd.Flags().Bool("export", false, "also write the report to Google Sheets")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	rawPeriod, _ := cmd.Flags().GetString("period")
	export, _ := cmd.Flags().GetBool("export")

	period, err := parsePeriod(rawPeriod, time.Now())
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *cli.App) error {
		var summary finance.BudgetSummary
		if export {
			summary, err = app.Service.ExportBudgetReport(ctx, userID, period)
		} else {
			summary, err = app.Service.BudgetStatus(ctx, userID, period)
		}
		if err != nil {
			return err
		}
		if err := printSummary(cmd.OutOrStdout(), userID, summary); err != nil {
			return err
		}
		if export {
			fmt.Fprintln(cmd.OutOrStdout(), "Exported to Google Sheets.")
		}
		return nil
	})
}

func parsePeriod(s string, now time.Time) (core.Period, error) {
	if s == "" {
		return core.PeriodOf(now), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return core.Period{}, fmt.Errorf("invalid --period %q: want YYYY-MM", s)
	}
	return core.PeriodOf(t), nil
}

func printSummary(out io.Writer, userID string, summary finance.BudgetSummary) error {
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Budgets of %s for %s", userID, summary.Period)))
	if len(summary.Categories) == 0 {
		fmt.Fprintln(out, "No budgets set for this month.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tLIMIT\tSPENT\tREMAINING\tUSED\tTIER")
	for _, c := range summary.Categories {
		writeStatusRow(w, string(c.Category), c.BudgetStatus)
	}
	writeStatusRow(w, "total", summary.Total)
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	if summary.Unbudgeted.IsPositive() {
		fmt.Fprintf(out, "Unbudgeted spending: %s\n", core.FormatEuros(summary.Unbudgeted))
	}
	return nil
}

func writeStatusRow(w io.Writer, label string, s finance.BudgetStatus) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%%\t%s\n",
		label,
		core.FormatEuros(s.Limit),
		core.FormatEuros(s.Spent),
		core.FormatEuros(s.Remaining),
		s.Percentage.StringFixed(1),
		tierStyles[s.Tier].Render(string(s.Tier)))
}
