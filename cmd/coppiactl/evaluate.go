package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"coppia/internal/cli"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the achievement catalog for a user now",
		Long: `Evaluate every achievement rule against the user's ledger and store the
ones newly earned. Running it twice is harmless: held achievements are never
awarded again.`,
		RunE: runEvaluate,
	}
	cmd.Flags().String("user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")

	return withApp(cmd, func(ctx context.Context, app *cli.App) error {
		unlocked, err := app.Service.EvaluateAchievements(ctx, userID, time.Now())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(unlocked) == 0 {
			fmt.Fprintln(out, "No new achievements.")
			return nil
		}
		for _, ev := range unlocked {
			fmt.Fprintf(out, "Unlocked %s (%s)\n", ev.Title, ev.Type)
		}
		return nil
	})
}
