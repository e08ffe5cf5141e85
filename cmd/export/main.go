package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/receiptshield/analyzer/internal/common"
	"github.com/receiptshield/analyzer/internal/export"
	"github.com/receiptshield/analyzer/internal/repository"
)

func main() {
	var (
		fromStr = flag.String("from", "", "start date (YYYY-MM-DD, inclusive)")
		toStr   = flag.String("to", "", "end date (YYYY-MM-DD, inclusive)")
		outPath = flag.String("out", "fraud-verdicts.xlsx", "output workbook path")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL env var is required")
		os.Exit(2)
	}

	from, err := parseDate(*fromStr)
	if err != nil {
		logger.Error("invalid -from date", "value", *fromStr, "error", err)
		os.Exit(2)
	}
	to, err := parseDate(*toStr)
	if err != nil {
		logger.Error("invalid -to date", "value", *toStr, "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	svc := export.NewService(repository.NewSubmissionRepository(pool, logger), logger)
	data, err := svc.ExportVerdictsXLSX(ctx, from, to)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		logger.Error("write workbook", "path", *outPath, "error", err)
		os.Exit(1)
	}
	logger.Info("workbook written", "path", *outPath, "bytes", len(data))
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
