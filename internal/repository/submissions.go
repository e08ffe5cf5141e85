package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/entity"
)

// SubmissionRepository persists submission status transitions, OCR
// metadata, and fraud analyses. Implements pipeline.SubmissionStore.
type SubmissionRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewSubmissionRepository(pool *pgxpool.Pool, logger *slog.Logger) *SubmissionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionRepository{pool: pool, logger: logger}
}

// UpdateSubmissionStatus records a stage transition. errorLog, when
// present, replaces the stored log for the submission.
func (r *SubmissionRepository) UpdateSubmissionStatus(ctx context.Context, submissionID string, status constants.SubmissionStatus, at time.Time, errorLog []string) error {
	var logJSON []byte
	if len(errorLog) > 0 {
		b, err := json.Marshal(errorLog)
		if err != nil {
			return fmt.Errorf("marshal error log: %w", err)
		}
		logJSON = b
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE submissions
		SET status = $2,
		    status_updated_at = $3,
		    error_log = COALESCE($4, error_log)
		WHERE id = $1`,
		submissionID, string(status), at, logJSON,
	)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("submission %s: not found", submissionID)
	}
	r.logger.Debug("submission.status.updated", "submission_id", submissionID, "status", status)
	return nil
}

// StoreFraudAnalysis persists one verdict. Each analysis attempt inserts a
// new row; re-analysis never mutates a prior verdict.
func (r *SubmissionRepository) StoreFraudAnalysis(ctx context.Context, verdict entity.FraudVerdict) error {
	detail, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO fraud_analyses
			(submission_id, receipt_id, is_fraudulent, fraud_probability,
			 overall_risk, explanation, detail, produced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		verdict.SubmissionID,
		verdict.ReceiptID,
		verdict.IsFraudulent,
		verdict.FraudProbability,
		string(verdict.OverallRisk),
		verdict.Explanation,
		detail,
		verdict.ProducedAt,
	)
	if err != nil {
		return fmt.Errorf("store fraud analysis: %w", err)
	}
	r.logger.Info("fraud_analysis.stored",
		"submission_id", verdict.SubmissionID,
		"is_fraudulent", verdict.IsFraudulent,
		"probability", verdict.FraudProbability,
	)
	return nil
}

// GetOCRMetadata returns the recorded image-quality measurements for a
// submission, or nil when OCR never ran for it.
func (r *SubmissionRepository) GetOCRMetadata(ctx context.Context, submissionID string) (*entity.OCRMetadata, error) {
	var meta entity.OCRMetadata
	err := r.pool.QueryRow(ctx, `
		SELECT blur_score, extraction_confidence, COALESCE(image_hash, '')
		FROM ocr_analyses
		WHERE submission_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		submissionID,
	).Scan(&meta.BlurScore, &meta.ExtractionConfidence, &meta.ImageHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ocr metadata: %w", err)
	}
	return &meta, nil
}

// StoreOCRMetadata records the measurements the risk-factor assessor reads
// back during analysis.
func (r *SubmissionRepository) StoreOCRMetadata(ctx context.Context, submissionID string, meta entity.OCRMetadata) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ocr_analyses (submission_id, blur_score, extraction_confidence, image_hash, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		submissionID, meta.BlurScore, meta.ExtractionConfidence, meta.ImageHash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store ocr metadata: %w", err)
	}
	return nil
}

// VerdictRow is the flattened shape the export service reads.
type VerdictRow struct {
	SubmissionID     string
	ReceiptID        string
	IsFraudulent     bool
	FraudProbability float64
	OverallRisk      string
	Explanation      string
	ProducedAt       time.Time
}

// ListVerdicts returns stored verdicts in the [from, to] window (either
// bound may be nil), newest first.
func (r *SubmissionRepository) ListVerdicts(ctx context.Context, from, to *time.Time) ([]VerdictRow, error) {
	query := `
		SELECT submission_id, receipt_id, is_fraudulent, fraud_probability,
		       overall_risk, explanation, produced_at
		FROM fraud_analyses`
	args := []any{}
	switch {
	case from != nil && to != nil:
		query += ` WHERE produced_at >= $1 AND produced_at <= $2`
		args = append(args, *from, *to)
	case from != nil:
		query += ` WHERE produced_at >= $1`
		args = append(args, *from)
	case to != nil:
		query += ` WHERE produced_at <= $1`
		args = append(args, *to)
	}
	query += ` ORDER BY produced_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	var out []VerdictRow
	for rows.Next() {
		var v VerdictRow
		if err := rows.Scan(&v.SubmissionID, &v.ReceiptID, &v.IsFraudulent,
			&v.FraudProbability, &v.OverallRisk, &v.Explanation, &v.ProducedAt); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return out, nil
}
