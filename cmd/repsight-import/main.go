package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/repsight/internal/config"
	"github.com/meltforce/repsight/internal/importer"
	"github.com/meltforce/repsight/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("path", "", "path to export directory (required)")
	userLogin := flag.String("user", "local", "login of the user to import for")
	dryRun := flag.Bool("dry-run", false, "parse and report counts without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: repsight-import -config config.yaml -path /path/to/exports [-user login] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(*exportPath)
	if err != nil || !info.IsDir() {
		log.Error("export path does not exist or is not a directory", "path", *exportPath)
		os.Exit(1)
	}

	ctx := context.Background()

	// Dry runs only parse, so they need neither config nor database.
	if *dryRun {
		log.Info("DRY RUN mode — no data will be written to the database")
		imp := importer.New(nil, 0, true, log)
		stats, err := imp.Import(ctx, *exportPath)
		if err != nil {
			log.Error("import failed", "error", err)
			printStats(log, stats)
			os.Exit(1)
		}
		printStats(log, stats)
		log.Info("dry run complete")
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	userID, err := db.GetOrCreateUser(ctx, *userLogin, "")
	if err != nil {
		log.Error("failed to resolve user", "login", *userLogin, "error", err)
		os.Exit(1)
	}

	// Run import
	imp := importer.New(db, userID, false, log)
	log.Info("import starting", "run_id", imp.RunID(), "user", *userLogin)

	stats, err := imp.Import(ctx, *exportPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sets_parsed", stats.SetsParsed,
		"sets_inserted", stats.SetsInserted,
		"sets_skipped", stats.SetsSkipped,
		"sessions_inserted", stats.SessionsInserted,
		"rows_dropped", stats.RowsDropped,
		"aliases_applied", stats.AliasesApplied,
		"aliases_reapplied", stats.AliasesReapplied,
	)
}
