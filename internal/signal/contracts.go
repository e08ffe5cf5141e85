package signal

import (
	"context"

	"github.com/receiptshield/analyzer/internal/entity"
)

// MLPredictor is the external statistical fraud model.
type MLPredictor interface {
	Predict(ctx context.Context, items []entity.DataItem) (entity.MLPrediction, error)
}

// AIDetector is the external AI-based fraud detector. imageRef is an opaque
// reference (path, URL, or data URI) to the receipt image.
type AIDetector interface {
	Detect(ctx context.Context, items []entity.DataItem, imageRef string) (entity.AIDetection, error)
}

// DuplicateDetector finds prior submissions that look like this one.
type DuplicateDetector interface {
	FindSimilar(ctx context.Context, submissionID, imageHash string) (entity.DuplicateDetection, error)
}
