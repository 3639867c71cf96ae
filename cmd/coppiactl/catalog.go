package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"coppia/internal/achievements"
)

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List every achievement that can be earned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := achievements.NewEngine(achievements.DefaultCatalog())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tTITLE\tDESCRIPTION")
			for _, r := range engine.Rules() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Type, r.Title, r.Description)
			}
			return w.Flush()
		},
	}
}
