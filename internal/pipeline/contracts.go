package pipeline

import (
	"context"
	"time"

	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/entity"
)

// SubmissionStore is the external persistence boundary the orchestrator
// reports to. The pipeline owns no schema beyond these calls.
type SubmissionStore interface {
	// UpdateSubmissionStatus records a stage transition (or a failure
	// revert, with errorLog populated).
	UpdateSubmissionStatus(ctx context.Context, submissionID string, status constants.SubmissionStatus, at time.Time, errorLog []string) error

	// StoreFraudAnalysis persists a completed verdict. Called once per
	// successful fusion.
	StoreFraudAnalysis(ctx context.Context, verdict entity.FraudVerdict) error

	// StoreOCRMetadata records the per-image quality measurements taken
	// right after recognition; the signal collectors read them back.
	StoreOCRMetadata(ctx context.Context, submissionID string, meta entity.OCRMetadata) error

	// GetOCRMetadata returns the stored per-image quality measurements for
	// a submission, or nil when none were recorded.
	GetOCRMetadata(ctx context.Context, submissionID string) (*entity.OCRMetadata, error)
}
