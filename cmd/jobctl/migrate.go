package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"orchestrator/internal/adapter/repo"
	"orchestrator/internal/infra"
	"orchestrator/internal/sqlinline"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the jobs table and indexes if they do not exist",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().Duration("timeout", 30*time.Second, "give up after this long")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	switch cfg.StoreDriver {
	case infra.StoreDriverPostgres:
		if err := migratePostgres(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
	case infra.StoreDriverSQLite:
		db, err := infra.OpenSQLite(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		// Opening the sqlite store applies its schema.
		if _, err := repo.NewSQLiteJobRepository(ctx, db, infra.NopLogger()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("store driver %q has no schema to migrate", cfg.StoreDriver)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.StoreDriver)
	return nil
}

func migratePostgres(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqlinline.QCreateJobsSchema); err != nil {
		return fmt.Errorf("apply jobs schema: %w", err)
	}
	return nil
}
