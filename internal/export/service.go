package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/receiptshield/analyzer/internal/repository"
)

// VerdictLister is the slice of the repository the exporter reads.
type VerdictLister interface {
	ListVerdicts(ctx context.Context, from, to *time.Time) ([]repository.VerdictRow, error)
}

// Service produces XLSX bytes listing stored fraud verdicts for reviewer
// handoff.
type Service struct {
	repo   VerdictLister
	logger *slog.Logger
}

func NewService(repo VerdictLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportVerdictsXLSX returns an XLSX workbook for the given date window.
// If only from is provided -> from..today (inclusive).
// If neither is provided   -> all stored verdicts.
func (s *Service) ExportVerdictsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}

	verdicts, err := s.repo.ListVerdicts(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Fraud Verdicts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Produced At",
		"Submission ID",
		"Receipt ID",
		"Fraudulent",
		"Fraud Probability",
		"Overall Risk",
		"Explanation",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, v := range verdicts {
		write := func(col int, val any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, val)
		}
		write(1, v.ProducedAt.Format(time.RFC3339))
		write(2, v.SubmissionID)
		write(3, v.ReceiptID)
		write(4, v.IsFraudulent)
		write(5, v.FraudProbability)
		write(6, v.OverallRisk)
		write(7, v.Explanation)
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.verdicts.ok",
		"rows", len(verdicts),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
