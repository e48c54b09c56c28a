package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/poll/internal/config"
	"github.com/vncsmyrnk/poll/internal/core/services"
)

// tallyaudit compares every option's cached vote counter with its vote rows
// and prints the mismatches as JSON. It exits with status 2 when any drift
// is found and never modifies data.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.DB.Host, "db-host", cfg.DB.Host, "Database host")
	flag.StringVar(&cfg.DB.Port, "db-port", cfg.DB.Port, "Database port")
	flag.StringVar(&cfg.DB.User, "db-user", cfg.DB.User, "Database user")
	flag.StringVar(&cfg.DB.Password, "db-pass", cfg.DB.Password, "Database password")
	flag.StringVar(&cfg.DB.Name, "db-name", cfg.DB.Name, "Database name")
	timeout := flag.Duration("timeout", 5*time.Minute, "Maximum duration of the audit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := sql.Open("postgres", cfg.DB.ConnString())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	pollRepo := postgres.NewPollRepository(db)
	resultRepo := postgres.NewPollResultRepository(db)
	auditSvc := services.NewTallyAuditService(pollRepo, resultRepo, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger.Info("starting tally audit")

	drifts, err := auditSvc.AuditAll(ctx)
	if err != nil {
		logger.Error("tally audit failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(drifts); err != nil {
		logger.Error("failed to write report", "error", err)
		os.Exit(1)
	}

	if len(drifts) > 0 {
		os.Exit(2)
	}
}
