package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/receiptshield/analyzer/internal/common"
	"github.com/receiptshield/analyzer/internal/extract"
	"github.com/receiptshield/analyzer/internal/ocr"
	"github.com/receiptshield/analyzer/internal/pipeline"
	"github.com/receiptshield/analyzer/internal/repository"
	"github.com/receiptshield/analyzer/internal/signal"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "analyze <receipt-image-path>")
		os.Exit(2)
	}
	imagePath := os.Args[1]

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
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

	store := repository.NewSubmissionRepository(pool, logger)

	var duplicates signal.DuplicateDetector
	if cfg.Duplicate.IndexPath != "" {
		index, err := signal.OpenDuplicateIndex(cfg.Duplicate.IndexPath, logger)
		if err != nil {
			logger.Error("open duplicate index", "error", err)
			os.Exit(1)
		}
		defer func() {
			if cerr := index.Close(); cerr != nil {
				logger.Error("close duplicate index", "error", cerr)
			}
		}()
		duplicates = index
	} else {
		duplicates = signal.NewDuplicateStub(logger)
	}

	recognizer := ocr.NewRecognizer(ocr.Config{
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.TesseractLang,
		TessdataDir:         cfg.OCR.TessdataDir,
		EnableTSVConfidence: cfg.OCR.EnableTSVConfidence,
	}, logger)

	analyzer := pipeline.NewAnalyzer(
		pipeline.Config{CollectTimeout: cfg.Pipeline.CollectTimeout},
		recognizer,
		extract.NewEngine(logger),
		signal.NewMLClient(signal.MLClientConfig{
			BaseURL: cfg.ML.BaseURL,
			Timeout: cfg.ML.Timeout,
		}, logger),
		signal.NewAIDetectorClient(signal.AIDetectorConfig{
			APIKey:    cfg.AI.APIKey,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
			Timeout:   cfg.AI.Timeout,
		}, logger),
		duplicates,
		store,
		logger,
	)

	submissionID := uuid.New().String()
	receiptID := uuid.New().String()

	start := time.Now()
	verdict := analyzer.AnalyzeImage(ctx, imagePath, submissionID, receiptID)

	logger.Info("analysis finished",
		"submission_id", submissionID,
		"is_fraudulent", verdict.IsFraudulent,
		"probability", verdict.FraudProbability,
		"overall_risk", verdict.OverallRisk,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(verdict); err != nil {
		logger.Error("encode verdict", "error", err)
		os.Exit(1)
	}
}
