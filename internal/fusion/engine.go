// Package fusion combines the independent risk signals into one fraud
// verdict. The engine is a stateless pure function so policy can be unit
// tested without network mocks; all weighting and override constants live
// here and nowhere else.
package fusion

import (
	"fmt"
	"strings"
	"time"

	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/entity"
	"github.com/receiptshield/analyzer/internal/signal"
)

// Policy constants. The ML/AI split deliberately favors the statistical
// model over the AI explainer; the override floors make a missing critical
// field or a duplicate submission sufficient to flag on their own.
const (
	mlWeight              = 0.6
	aiWeight              = 0.4
	missingInfoFloor      = 0.75
	duplicateFloor        = 0.80
	aiFallbackExplanation = "AI analysis failed - manual review required"
)

// Fuse combines the collected signals into a verdict.
//
// The probability steps only ever raise the running value: AI baseline, then
// the ML/AI weighted blend, then the missing-info and duplicate floors. The
// fraud flag is the OR of the four independent flags and is computed
// separately from the probability; a zero probability with a true flag is a
// designed outcome of the override rules, not a contradiction.
func Fuse(
	ml signal.Outcome[entity.MLPrediction],
	ai signal.Outcome[entity.AIDetection],
	missingCriticalInfo bool,
	duplicate entity.DuplicateDetection,
	riskFactors entity.RiskFactors,
) entity.FraudVerdict {
	mlPred, mlPresent := ml.Value()

	// An unavailable AI signal degrades to the neutral fallback so the
	// reviewer always sees why the AI clause is missing substance.
	aiDet, aiPresent := ai.Value()
	if !aiPresent {
		aiDet = entity.AIDetection{
			Fraudulent:       false,
			FraudProbability: 0,
			Explanation:      aiFallbackExplanation,
		}
	}

	p := aiDet.FraudProbability
	if mlPresent {
		p = mlPred.FraudProbability*mlWeight + aiDet.FraudProbability*aiWeight
	}
	if missingCriticalInfo && p < missingInfoFloor {
		p = missingInfoFloor
	}
	if duplicate.IsDuplicate && p < duplicateFloor {
		p = duplicateFloor
	}
	p = clamp01(p)

	isFraudulent := (mlPresent && mlPred.IsFraudulent) ||
		aiDet.Fraudulent ||
		missingCriticalInfo ||
		duplicate.IsDuplicate

	verdict := entity.FraudVerdict{
		IsFraudulent:       isFraudulent,
		FraudProbability:   p,
		Explanation:        buildExplanation(mlPred, mlPresent, aiDet, missingCriticalInfo, duplicate),
		RiskFactors:        riskFactors,
		DuplicateDetection: duplicate,
		OverallRisk:        overallRisk(mlPred, mlPresent, aiDet, aiPresent),
		ProducedAt:         time.Now().UTC(),
	}
	if mlPresent {
		mlCopy := mlPred
		verdict.MLPrediction = &mlCopy
	}
	aiCopy := aiDet
	verdict.AIDetection = &aiCopy
	return verdict
}

// buildExplanation concatenates, in fixed order, only the clauses that
// apply: missing-info notice, duplicate notice, ML risk level with
// probability, AI explanation text.
func buildExplanation(
	ml entity.MLPrediction, mlPresent bool,
	ai entity.AIDetection,
	missingCriticalInfo bool,
	duplicate entity.DuplicateDetection,
) string {
	var b strings.Builder
	if missingCriticalInfo {
		b.WriteString("Flagged due to missing/problematic critical information. ")
	}
	if duplicate.IsDuplicate {
		b.WriteString("Potential duplicate receipt detected. ")
	}
	if mlPresent {
		fmt.Fprintf(&b, "ML Model: %s risk (%.1f%% fraud probability). ",
			ml.RiskLevel, ml.FraudProbability*100)
	}
	if ai.Explanation != "" {
		b.WriteString("AI Analysis: ")
		b.WriteString(ai.Explanation)
	}
	return strings.TrimSpace(b.String())
}

// overallRisk bands the combined assessment LOW/MEDIUM/HIGH. A zero AI
// probability carries no information (the neutral fallback reports zero),
// so it counts as absent here.
func overallRisk(
	ml entity.MLPrediction, mlPresent bool,
	ai entity.AIDetection, aiPresent bool,
) constants.RiskLevel {
	hasAI := aiPresent && ai.FraudProbability > 0
	hasML := mlPresent && ml.RiskLevel != ""

	switch {
	case !hasML && !hasAI:
		return constants.RiskMedium
	case !hasML:
		return bandProbability(ai.FraudProbability)
	case !hasAI:
		return ml.RiskLevel
	}

	score := riskScore(ml.RiskLevel)
	if s := riskScore(bandProbability(ai.FraudProbability)); s > score {
		score = s
	}
	switch {
	case score >= 3:
		return constants.RiskHigh
	case score >= 2:
		return constants.RiskMedium
	default:
		return constants.RiskLow
	}
}

func bandProbability(p float64) constants.RiskLevel {
	switch {
	case p >= 0.8:
		return constants.RiskHigh
	case p >= 0.5:
		return constants.RiskMedium
	default:
		return constants.RiskLow
	}
}

func riskScore(l constants.RiskLevel) int {
	switch l {
	case constants.RiskHigh:
		return 3
	case constants.RiskMedium:
		return 2
	default:
		return 1
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
