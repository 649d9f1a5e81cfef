// Command dentledger reconciles dental insurance claim feeds into the claim
// ledgers and snapshot history. The run command reads JSON feed files,
// executes a reconciliation run, writes the outputs as JSON and optionally
// persists them to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dentledger/dentledger/internal/config"
	"github.com/dentledger/dentledger/internal/domain/reconcile"
	"github.com/dentledger/dentledger/internal/platform/db"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dentledger",
		Short: "Dental claim reconciliation engine",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a reconciliation run over the feed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			persist, _ := cmd.Flags().GetBool("persist")
			return runReconciliation(persist)
		},
	}
	cmd.Flags().Bool("persist", false, "Write outputs to PostgreSQL as well as files")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./db/migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dentledger version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func runReconciliation(persist bool) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	inputs, err := loadInputs(cfg.FeedDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	runTS := time.Now().UTC()

	pipeline := reconcile.NewPipeline(logger, cfg.RunShards)
	outputs, err := pipeline.Run(ctx, *inputs, runTS)
	if err != nil {
		return fmt.Errorf("reconciliation run: %w", err)
	}

	if err := writeOutputs(cfg.OutputDir, outputs); err != nil {
		return err
	}
	logger.Info().Str("dir", cfg.OutputDir).Msg("outputs written")

	if !persist {
		return nil
	}

	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	store := reconcile.NewStore(pool, logger)
	if err := store.Persist(ctx, runTS, outputs); err != nil {
		return fmt.Errorf("persist run: %w", err)
	}
	return nil
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}
	return logger
}

// feed file names under FEED_DIR; a missing file is an empty feed.
var feedFiles = map[string]string{
	"claims":            "claims.json",
	"procedures":        "procedures.json",
	"payments":          "payments.json",
	"coverage":          "coverage.json",
	"tracking_entries":  "tracking_entries.json",
	"snapshots":         "snapshots.json",
	"eob_attachments":   "eob_attachments.json",
	"procedure_catalog": "procedure_catalog.json",
}

func loadInputs(dir string) (*reconcile.Inputs, error) {
	var in reconcile.Inputs
	targets := map[string]interface{}{
		"claims":            &in.Claims,
		"procedures":        &in.Procedures,
		"payments":          &in.Payments,
		"coverage":          &in.Coverage,
		"tracking_entries":  &in.TrackingEntries,
		"snapshots":         &in.Snapshots,
		"eob_attachments":   &in.EOBAttachments,
		"procedure_catalog": &in.Catalog,
	}
	for feed, target := range targets {
		path := filepath.Join(dir, feedFiles[feed])
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read feed %s: %w", feed, err)
		}
		if err := json.Unmarshal(data, target); err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", feed, err)
		}
	}
	return &in, nil
}

func writeOutputs(dir string, out *reconcile.Outputs) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	files := map[string]interface{}{
		"claim_details.json":   out.ClaimDetails,
		"payment_details.json": out.PaymentDetails,
		"snapshots.json":       out.Snapshots,
		"coverage.json":        out.Coverage,
		"violations.json":      out.Violations,
	}
	for name, v := range files {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
