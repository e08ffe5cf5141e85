package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/receiptshield/analyzer/internal/entity"
)

// TextRecognizer is the external OCR collaborator: image -> raw text plus a
// confidence score. Implementations live elsewhere (internal/ocr ships one).
type TextRecognizer interface {
	RecognizeText(ctx context.Context, imagePath string) (entity.RecognitionResult, error)
}

// Engine turns a raw recognition result into an ordered list of labeled
// data items by running the line classifier over every usable line.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Extract never fails: on empty or garbage recognition output it returns an
// empty item list plus a populated error log. Callers must treat an empty
// item list as "needs manual review", not as "no fraud".
func (e *Engine) Extract(rec entity.RecognitionResult) ([]entity.DataItem, []string) {
	var errorLog []string
	if strings.TrimSpace(rec.Text) == "" {
		errorLog = append(errorLog, "text extraction produced no usable text")
		errorLog = append(errorLog, rec.Warnings...)
		e.logger.Warn("extract.empty", "warnings", len(rec.Warnings))
		return nil, errorLog
	}

	lines := strings.Split(rec.Text, "\n")
	items := make([]entity.DataItem, 0, len(lines))
	counts := map[string]int{}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if len(line) < 3 {
			continue
		}
		label, value, ok := Classify(line)
		if !ok {
			continue
		}
		items = append(items, entity.DataItem{
			ID:    nextID(counts, label),
			Label: label,
			Value: value,
		})
	}

	e.logger.Info("extract.ok",
		"lines", len(lines),
		"items", len(items),
		"confidence", rec.Confidence,
	)
	return items, errorLog
}

// nextID produces a per-extraction synthetic identifier ("vendor-1",
// "item-3"). Uniqueness only matters within one extraction.
func nextID(counts map[string]int, label string) string {
	key := strings.ToLower(strings.Fields(label)[0])
	counts[key]++
	return fmt.Sprintf("%s-%d", key, counts[key])
}
