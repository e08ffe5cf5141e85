// Package pipeline sequences text extraction, parallel signal collection,
// and fusion into one analysis attempt per submission, isolating per-stage
// failures so the caller always gets a verdict.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/entity"
	"github.com/receiptshield/analyzer/internal/extract"
	"github.com/receiptshield/analyzer/internal/fusion"
	"github.com/receiptshield/analyzer/internal/signal"
)

// Config holds orchestration behavior flags.
type Config struct {
	// CollectTimeout caps the whole signal-collection phase. Zero means no
	// cross-cutting timeout; each collector still enforces its own.
	CollectTimeout time.Duration
}

// Analyzer runs the fraud analysis pipeline. All collaborator faults are
// converted to degraded signals; AnalyzeReceipt never returns an error.
type Analyzer struct {
	logger     *slog.Logger
	cfg        Config
	recognizer extract.TextRecognizer
	engine     *extract.Engine
	ml         signal.MLPredictor
	ai         signal.AIDetector
	duplicates signal.DuplicateDetector
	store      SubmissionStore

	flight singleflight.Group
}

func NewAnalyzer(
	cfg Config,
	recognizer extract.TextRecognizer,
	engine *extract.Engine,
	ml signal.MLPredictor,
	ai signal.AIDetector,
	duplicates signal.DuplicateDetector,
	store SubmissionStore,
	logger *slog.Logger,
) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = extract.NewEngine(logger)
	}
	return &Analyzer{
		logger:     logger,
		cfg:        cfg,
		recognizer: recognizer,
		engine:     engine,
		ml:         ml,
		ai:         ai,
		duplicates: duplicates,
		store:      store,
	}
}

// AnalyzeImage runs the full pipeline from a receipt image: recognition,
// extraction, then AnalyzeReceipt. Recognition faults degrade to an empty
// item list (manual review), they do not abort the analysis.
func (a *Analyzer) AnalyzeImage(ctx context.Context, imagePath, submissionID, receiptID string) entity.FraudVerdict {
	a.transition(ctx, submissionID, constants.StatusExtracting, nil)

	var items []entity.DataItem
	var errorLog []string
	rec, err := a.recognizeSafe(ctx, imagePath)
	if err != nil {
		errorLog = append(errorLog, fmt.Sprintf("text recognition failed: %v", err))
		a.logger.Warn("pipeline.recognize.failed", "submission_id", submissionID, "error", err)
	} else {
		a.recordOCRMetadata(ctx, submissionID, imagePath, rec)
		var extractLog []string
		items, extractLog = a.engine.Extract(rec)
		errorLog = append(errorLog, extractLog...)
	}
	if len(items) == 0 {
		// A failed extraction still has to flow through verification and
		// fusion as "needs manual review"; placeholder critical fields
		// carry the failure marker the missing-info checker looks for.
		items = placeholderItems()
	}
	a.transition(ctx, submissionID, constants.StatusExtracted, errorLog)

	return a.AnalyzeReceipt(ctx, items, imagePath, submissionID, receiptID)
}

// AnalyzeReceipt collects all signals for already-extracted items and fuses
// them into a verdict. It returns either the complete verdict or the
// fallback low-information verdict; it never raises an error to the caller.
// Concurrent calls for the same submission share one analysis run.
func (a *Analyzer) AnalyzeReceipt(ctx context.Context, items []entity.DataItem, imageSource, submissionID, receiptID string) entity.FraudVerdict {
	v, _, _ := a.flight.Do(submissionID, func() (any, error) {
		return a.analyze(ctx, items, imageSource, submissionID, receiptID), nil
	})
	return v.(entity.FraudVerdict)
}

func (a *Analyzer) analyze(ctx context.Context, items []entity.DataItem, imageSource, submissionID, receiptID string) (verdict entity.FraudVerdict) {
	start := time.Now()
	stage := constants.StatusCollectingSignals

	// Any defect past signal collection (an AggregationFailure) must still
	// yield the fallback verdict; it indicates a contract violation
	// upstream and is logged at error severity.
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("pipeline.aggregation_failure",
				"submission_id", submissionID, "panic", r)
			a.transition(ctx, submissionID, constants.StatusAnalysisFailed,
				[]string{fmt.Sprintf("fraud analysis failed: %v", r)})
			a.transition(ctx, submissionID, constants.StableBefore(stage), nil)
			verdict = a.fallbackVerdict(submissionID, receiptID)
		}
	}()

	a.transition(ctx, submissionID, constants.StatusCollectingSignals, nil)

	meta := a.loadMetadata(ctx, submissionID)
	imageHash := ""
	if meta != nil {
		imageHash = meta.ImageHash
	}

	collectCtx := ctx
	if a.cfg.CollectTimeout > 0 {
		var cancel context.CancelFunc
		collectCtx, cancel = context.WithTimeout(ctx, a.cfg.CollectTimeout)
		defer cancel()
	}

	// The four collectors are independent; run them concurrently and let
	// each failure degrade in isolation. None of them returns an error to
	// the group, so a slow or broken collector never cancels its siblings.
	var (
		mlOutcome  signal.Outcome[entity.MLPrediction]
		aiOutcome  signal.Outcome[entity.AIDetection]
		duplicate  entity.DuplicateDetection
		riskFactor entity.RiskFactors
	)
	var g errgroup.Group
	g.Go(func() error {
		mlOutcome = collect(collectCtx, a.logger, "ml", func(ctx context.Context) (entity.MLPrediction, error) {
			return a.ml.Predict(ctx, items)
		})
		return nil
	})
	g.Go(func() error {
		aiOutcome = collect(collectCtx, a.logger, "ai", func(ctx context.Context) (entity.AIDetection, error) {
			return a.ai.Detect(ctx, items, imageSource)
		})
		return nil
	})
	g.Go(func() error {
		out := collect(collectCtx, a.logger, "duplicate", func(ctx context.Context) (entity.DuplicateDetection, error) {
			return a.duplicates.FindSimilar(ctx, submissionID, imageHash)
		})
		// Degrade-to-safe: an unavailable duplicate check reports "no
		// duplicate found", never a block.
		duplicate, _ = out.Value()
		if duplicate.SimilarSubmissions == nil {
			duplicate.SimilarSubmissions = []string{}
		}
		return nil
	})
	g.Go(func() error {
		riskFactor = signal.AssessRiskFactors(items, meta)
		return nil
	})
	_ = g.Wait()

	missing := signal.HasMissingCriticalInfo(items)

	stage = constants.StatusFusing
	a.transition(ctx, submissionID, constants.StatusFusing, nil)

	verdict = fusion.Fuse(mlOutcome, aiOutcome, missing, duplicate, riskFactor)
	verdict.SubmissionID = submissionID
	verdict.ReceiptID = receiptID

	if err := a.store.StoreFraudAnalysis(ctx, verdict); err != nil {
		// Persistence trouble does not invalidate the computed verdict.
		a.logger.Error("pipeline.store_analysis.failed",
			"submission_id", submissionID, "error", err)
	}
	a.transition(ctx, submissionID, constants.StatusAnalysisCompleted, nil)

	a.logger.Info("pipeline.analysis.ok",
		"submission_id", submissionID,
		"receipt_id", receiptID,
		"is_fraudulent", verdict.IsFraudulent,
		"probability", verdict.FraudProbability,
		"ml_available", mlOutcome.Available(),
		"ai_available", aiOutcome.Available(),
		"duplicate", duplicate.IsDuplicate,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return verdict
}

// collect wraps one collector call so an error or panic inside it becomes
// an Unavailable outcome without touching the other collectors.
func collect[T any](ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) (T, error)) (out signal.Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline.collector.panic", "collector", name, "panic", r)
			out = signal.Unavailable[T](fmt.Sprintf("collector panic: %v", r))
		}
	}()
	v, err := fn(ctx)
	if err != nil {
		logger.Warn("pipeline.collector.unavailable", "collector", name, "error", err)
		return signal.Unavailable[T](err.Error())
	}
	return signal.Ok(v)
}

func (a *Analyzer) recognizeSafe(ctx context.Context, imagePath string) (rec entity.RecognitionResult, err error) {
	if a.recognizer == nil {
		return entity.RecognitionResult{}, fmt.Errorf("no text recognizer configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recognizer panic: %v", r)
		}
	}()
	return a.recognizer.RecognizeText(ctx, imagePath)
}

// recordOCRMetadata persists the quality measurements the risk-factor
// assessor and duplicate index read back during signal collection. There is
// no dedicated blur measure in this path; low recognition confidence is the
// closest available proxy. Best-effort: a store fault costs the downstream
// collectors their metadata, nothing more.
func (a *Analyzer) recordOCRMetadata(ctx context.Context, submissionID, imagePath string, rec entity.RecognitionResult) {
	meta := entity.OCRMetadata{
		BlurScore:            1 - rec.Confidence,
		ExtractionConfidence: rec.Confidence,
		ImageHash:            hashImage(imagePath),
	}
	if err := a.store.StoreOCRMetadata(ctx, submissionID, meta); err != nil {
		a.logger.Warn("pipeline.ocr_metadata.store_failed",
			"submission_id", submissionID, "error", err)
	}
}

// hashImage fingerprints the submitted image for the duplicate index. An
// unreadable file yields an empty hash, which the index never matches on.
func hashImage(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (a *Analyzer) loadMetadata(ctx context.Context, submissionID string) *entity.OCRMetadata {
	meta, err := a.store.GetOCRMetadata(ctx, submissionID)
	if err != nil {
		a.logger.Warn("pipeline.ocr_metadata.unavailable",
			"submission_id", submissionID, "error", err)
		return nil
	}
	return meta
}

func (a *Analyzer) transition(ctx context.Context, submissionID string, status constants.SubmissionStatus, errorLog []string) {
	if err := a.store.UpdateSubmissionStatus(ctx, submissionID, status, time.Now().UTC(), errorLog); err != nil {
		// Status reporting is best-effort; analysis carries on.
		a.logger.Warn("pipeline.status_update.failed",
			"submission_id", submissionID, "status", status, "error", err)
		return
	}
	a.logger.Debug("pipeline.status", "submission_id", submissionID, "status", status)
}

// placeholderItems stands in for a receipt whose text could not be
// extracted at all.
func placeholderItems() []entity.DataItem {
	const marker = "Extraction Failed - Edit me"
	return []entity.DataItem{
		{ID: "vendor", Label: constants.LabelVendor, Value: marker},
		{ID: "date", Label: constants.LabelDate, Value: marker},
		{ID: "total-amount", Label: constants.LabelTotalAmount, Value: marker},
	}
}

// fallbackVerdict is the low-information verdict emitted on an
// unrecoverable fault so downstream approval logic never blocks on a
// missing verdict.
func (a *Analyzer) fallbackVerdict(submissionID, receiptID string) entity.FraudVerdict {
	return entity.FraudVerdict{
		SubmissionID:     submissionID,
		ReceiptID:        receiptID,
		IsFraudulent:     false,
		FraudProbability: 0,
		Explanation:      "Fraud analysis failed - manual review required",
		RiskFactors: entity.RiskFactors{
			ImageQuality:         constants.ImagePoor,
			ExtractionConfidence: constants.ConfidenceLow,
			VendorVerification:   constants.VendorUnknown,
			AmountReasonableness: constants.AmountNormal,
		},
		DuplicateDetection: entity.DuplicateDetection{
			IsDuplicate:        false,
			SimilarSubmissions: []string{},
			SimilarityScore:    0,
		},
		OverallRisk: constants.RiskLow,
		ProducedAt:  time.Now().UTC(),
	}
}
