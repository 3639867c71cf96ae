package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"coppia/internal/cli"
)

func linkPartnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link-partner",
		Short: "Pair two users so they share expenses",
		RunE:  runLinkPartner,
	}
	cmd.Flags().String("user", "", "user id")
	cmd.Flags().String("partner", "", "partner user id")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("partner")
	return cmd
}

func runLinkPartner(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	partnerID, _ := cmd.Flags().GetString("partner")

	return withApp(cmd, func(ctx context.Context, app *cli.App) error {
		if err := app.Service.LinkPartners(ctx, userID, partnerID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Linked %s and %s.\n", userID, partnerID)
		return nil
	})
}
