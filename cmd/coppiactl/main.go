// Command coppiactl inspects and maintains a coppia ledger from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"coppia/internal/cli"
	"coppia/internal/log"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coppiactl",
		Short:         "Inspect and maintain a coppia ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := cli.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			level, _ := cmd.Flags().GetString("log-level")
			cli.SetupLogger(level, log.ComponentCLI)
			return nil
		},
	}

	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(statusCmd())
	root.AddCommand(evaluateCmd())
	root.AddCommand(linkPartnerCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(catalogCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withApp builds the service graph from the environment, runs fn and releases it.
func withApp(cmd *cobra.Command, fn func(context.Context, *cli.App) error) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("log-level")
	logger := cli.SetupLogger(level, log.ComponentCLI)

	app, err := cli.NewApp(cmd.Context(), cfg, logger, cli.AppOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("Failed to close backend", "error", closeErr)
		}
	}()
	return fn(cmd.Context(), app)
}
