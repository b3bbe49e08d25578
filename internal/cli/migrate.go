package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mlab/internal/adapters/turso"
	"github.com/emiliopalmerini/mlab/internal/logging"
	"github.com/emiliopalmerini/mlab/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run state database migrations",
	Long: `Run state database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  mlab migrate           # Run all pending migrations
  mlab migrate 1         # Migrate to version 1
  mlab migrate 0         # Rollback all migrations
  mlab migrate --status  # Show current and pending versions`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

var migrateStatus bool

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status and exit")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	db, err := turso.NewDB(ctx, turso.Config{URL: cfg.Database.URL, AuthToken: cfg.Database.AuthToken})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	m := migrate.New(db, log)
	out := cmd.OutOrStdout()

	st, err := m.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d\n", st.Current)
	if migrateStatus {
		fmt.Fprintf(out, "Latest version:  %d\n", st.Latest)
		for _, p := range st.Pending {
			fmt.Fprintf(out, "Pending:         %03d_%s\n", p.Version, p.Name)
		}
		return nil
	}

	if len(args) == 0 {
		n, err := m.Up(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(out, "No pending migrations")
			return nil
		}
		fmt.Fprintf(out, "Applied %d migrations\n", n)
		return nil
	}

	target, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if _, err := m.MigrateTo(ctx, target); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated to version %d\n", target)
	return nil
}
