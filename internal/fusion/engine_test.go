package fusion

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/entity"
	"github.com/receiptshield/analyzer/internal/signal"
)

func noDuplicate() entity.DuplicateDetection {
	return entity.DuplicateDetection{SimilarSubmissions: []string{}}
}

func neutralFactors() entity.RiskFactors {
	return entity.RiskFactors{
		ImageQuality:         constants.ImageGood,
		ExtractionConfidence: constants.ConfidenceMedium,
		VendorVerification:   constants.VendorUnknown,
		AmountReasonableness: constants.AmountNormal,
	}
}

func TestFuseWeightedBlend(t *testing.T) {
	t.Parallel()

	ml := signal.Ok(entity.MLPrediction{IsFraudulent: true, FraudProbability: 0.9, RiskLevel: constants.RiskHigh})
	ai := signal.Ok(entity.AIDetection{Fraudulent: false, FraudProbability: 0.1, Explanation: "Nothing unusual."})

	v := Fuse(ml, ai, false, noDuplicate(), neutralFactors())

	assert.InDelta(t, 0.9*0.6+0.1*0.4, v.FraudProbability, 1e-9)
	assert.True(t, v.IsFraudulent, "ML flag alone must flip the verdict")
	assert.Contains(t, v.Explanation, "ML Model: HIGH risk (90.0% fraud probability).")
	assert.Contains(t, v.Explanation, "AI Analysis: Nothing unusual.")
	require.NotNil(t, v.MLPrediction)
	require.NotNil(t, v.AIDetection)
	assert.Equal(t, constants.RiskHigh, v.OverallRisk)
}

func TestFuseAIOnlyBaseline(t *testing.T) {
	t.Parallel()

	ai := signal.Ok(entity.AIDetection{Fraudulent: true, FraudProbability: 0.85, Explanation: "Total appears altered."})
	v := Fuse(signal.Unavailable[entity.MLPrediction]("down"), ai, false, noDuplicate(), neutralFactors())

	assert.InDelta(t, 0.85, v.FraudProbability, 1e-9)
	assert.True(t, v.IsFraudulent)
	assert.Nil(t, v.MLPrediction)
	assert.Equal(t, constants.RiskHigh, v.OverallRisk)
	assert.NotContains(t, v.Explanation, "ML Model")
}

func TestFuseMLOnlyUsesFallbackAIZero(t *testing.T) {
	t.Parallel()

	ml := signal.Ok(entity.MLPrediction{IsFraudulent: false, FraudProbability: 0.3, RiskLevel: constants.RiskLow})
	v := Fuse(ml, signal.Unavailable[entity.AIDetection]("timeout"), false, noDuplicate(), neutralFactors())

	assert.InDelta(t, 0.3*0.6, v.FraudProbability, 1e-9)
	assert.False(t, v.IsFraudulent)
	assert.Equal(t, constants.RiskLow, v.OverallRisk)
	require.NotNil(t, v.AIDetection)
	assert.Equal(t, "AI analysis failed - manual review required", v.AIDetection.Explanation)
	assert.Contains(t, v.Explanation, "AI Analysis: AI analysis failed - manual review required")
}

func TestFuseMissingInfoFloor(t *testing.T) {
	t.Parallel()

	v := Fuse(
		signal.Unavailable[entity.MLPrediction]("down"),
		signal.Unavailable[entity.AIDetection]("down"),
		true,
		noDuplicate(),
		neutralFactors(),
	)

	assert.InDelta(t, 0.75, v.FraudProbability, 1e-9)
	assert.True(t, v.IsFraudulent)
	assert.Contains(t, v.Explanation, "missing/problematic critical information")
}

func TestFuseMissingInfoDoesNotLowerHigherProbability(t *testing.T) {
	t.Parallel()

	ai := signal.Ok(entity.AIDetection{Fraudulent: true, FraudProbability: 0.95, Explanation: "Fabricated receipt."})
	v := Fuse(signal.Unavailable[entity.MLPrediction]("down"), ai, true, noDuplicate(), neutralFactors())

	assert.InDelta(t, 0.95, v.FraudProbability, 1e-9)
}

func TestFuseDuplicateFloor(t *testing.T) {
	t.Parallel()

	dup := entity.DuplicateDetection{
		IsDuplicate:        true,
		SimilarSubmissions: []string{"sub-9"},
		SimilarityScore:    1.0,
	}
	v := Fuse(
		signal.Unavailable[entity.MLPrediction]("down"),
		signal.Unavailable[entity.AIDetection]("down"),
		false,
		dup,
		neutralFactors(),
	)

	assert.GreaterOrEqual(t, v.FraudProbability, 0.80)
	assert.True(t, v.IsFraudulent)
	assert.Contains(t, v.Explanation, "duplicate receipt")
	assert.Equal(t, dup, v.DuplicateDetection)
}

func TestFuseAllSignalsAbsent(t *testing.T) {
	t.Parallel()

	v := Fuse(
		signal.Unavailable[entity.MLPrediction]("down"),
		signal.Unavailable[entity.AIDetection]("down"),
		false,
		noDuplicate(),
		neutralFactors(),
	)

	assert.Zero(t, v.FraudProbability)
	assert.False(t, v.IsFraudulent)
	assert.Equal(t, constants.RiskMedium, v.OverallRisk, "no usable signal means medium, never low")
	assert.Equal(t, "AI Analysis: AI analysis failed - manual review required", v.Explanation)
}

func TestFuseExplanationClauseOrder(t *testing.T) {
	t.Parallel()

	ml := signal.Ok(entity.MLPrediction{IsFraudulent: true, FraudProbability: 0.9, RiskLevel: constants.RiskHigh})
	ai := signal.Ok(entity.AIDetection{Fraudulent: true, FraudProbability: 0.7, Explanation: "Vendor mismatch."})
	dup := entity.DuplicateDetection{IsDuplicate: true, SimilarSubmissions: []string{"sub-2"}, SimilarityScore: 1.0}

	v := Fuse(ml, ai, true, dup, neutralFactors())

	missingIdx := strings.Index(v.Explanation, "missing/problematic")
	dupIdx := strings.Index(v.Explanation, "duplicate receipt")
	mlIdx := strings.Index(v.Explanation, "ML Model:")
	aiIdx := strings.Index(v.Explanation, "AI Analysis:")
	require.True(t, missingIdx >= 0 && dupIdx >= 0 && mlIdx >= 0 && aiIdx >= 0, "explanation: %q", v.Explanation)
	assert.Less(t, missingIdx, dupIdx)
	assert.Less(t, dupIdx, mlIdx)
	assert.Less(t, mlIdx, aiIdx)
}

func TestFuseZeroAIProbabilityCountsAsAbsentForOverallRisk(t *testing.T) {
	t.Parallel()

	ai := signal.Ok(entity.AIDetection{Fraudulent: false, FraudProbability: 0, Explanation: "Looks fine."})
	v := Fuse(signal.Unavailable[entity.MLPrediction]("down"), ai, false, noDuplicate(), neutralFactors())

	assert.Equal(t, constants.RiskMedium, v.OverallRisk)
}

func TestFuseOverallRiskTakesWorseBand(t *testing.T) {
	t.Parallel()

	ml := signal.Ok(entity.MLPrediction{IsFraudulent: false, FraudProbability: 0.2, RiskLevel: constants.RiskLow})
	ai := signal.Ok(entity.AIDetection{Fraudulent: false, FraudProbability: 0.6, Explanation: "Somewhat odd."})

	v := Fuse(ml, ai, false, noDuplicate(), neutralFactors())
	assert.Equal(t, constants.RiskMedium, v.OverallRisk)
}

func TestFuseDeterministic(t *testing.T) {
	t.Parallel()

	ml := signal.Ok(entity.MLPrediction{IsFraudulent: true, FraudProbability: 0.9, RiskLevel: constants.RiskHigh})
	ai := signal.Ok(entity.AIDetection{Fraudulent: false, FraudProbability: 0.1, Explanation: "Nothing unusual."})
	dup := entity.DuplicateDetection{IsDuplicate: true, SimilarSubmissions: []string{"sub-2"}, SimilarityScore: 1.0}

	a := Fuse(ml, ai, true, dup, neutralFactors())
	b := Fuse(ml, ai, true, dup, neutralFactors())
	a.ProducedAt = time.Time{}
	b.ProducedAt = time.Time{}
	assert.Equal(t, a, b)
}
