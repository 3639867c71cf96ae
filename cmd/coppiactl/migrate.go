package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coppia/internal/config"
	"coppia/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect SQLite schema migrations",
		Long: `Without flags, apply every pending migration to the SQLite database.

The database path comes from --db, falling back to SQLITE_DB_PATH.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}
	cmd.Flags().String("db", "", "SQLite database path (default: $SQLITE_DB_PATH)")
	cmd.Flags().Int("down", 0, "roll back this many migrations")
	cmd.Flags().Bool("version", false, "print the applied schema version and exit")
	cmd.MarkFlagsMutuallyExclusive("down", "version")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	down, _ := cmd.Flags().GetInt("down")
	showVersion, _ := cmd.Flags().GetBool("version")

	if dbPath == "" {
		dbPath = config.Load().SQLiteDBPath
	}
	out := cmd.OutOrStdout()

	switch {
	case showVersion:
		v, dirty, ok, err := storage.MigrationVersion(dbPath)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(out, "%s: no migrations applied\n", dbPath)
			return nil
		}
		fmt.Fprintf(out, "%s: version %d", dbPath, v)
		if dirty {
			fmt.Fprint(out, " (dirty)")
		}
		fmt.Fprintln(out)
		return nil
	case cmd.Flags().Changed("down"):
		if err := storage.RollbackMigrations(dbPath, down); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: rolled back %d migration(s)\n", dbPath, down)
		return nil
	default:
		if err := storage.RunMigrations(dbPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: migrations applied\n", dbPath)
		return nil
	}
}
