package entity

import (
	"time"

	"github.com/receiptshield/analyzer/constants"
)

// MLPrediction is the statistical model's output for one receipt.
type MLPrediction struct {
	IsFraudulent     bool                `json:"is_fraudulent"`
	FraudProbability float64             `json:"fraud_probability"` // 0..1
	RiskLevel        constants.RiskLevel `json:"risk_level"`
}

// AIDetection is the AI detector's output for one receipt.
type AIDetection struct {
	Fraudulent       bool    `json:"fraudulent"`
	FraudProbability float64 `json:"fraudProbability"` // 0..1
	Explanation      string  `json:"explanation"`
}

// DuplicateDetection is the similarity index's output.
type DuplicateDetection struct {
	IsDuplicate        bool     `json:"isDuplicate"`
	SimilarSubmissions []string `json:"similarSubmissions"`
	SimilarityScore    float64  `json:"similarityScore"` // 0..1
}

// RiskFactors are derived per analysis and never persisted independent of a
// verdict.
type RiskFactors struct {
	ImageQuality         constants.ImageQuality         `json:"imageQuality"`
	ExtractionConfidence constants.ExtractionConfidence `json:"extractionConfidence"`
	VendorVerification   constants.VendorVerification   `json:"vendorVerification"`
	AmountReasonableness constants.AmountReasonableness `json:"amountReasonableness"`
}

// FraudVerdict is the terminal output of one analysis attempt.
//
// IsFraudulent is the OR of four independent flags (ML, AI, missing critical
// info, duplicate); FraudProbability is computed separately by the weighting
// and override rules. A zero probability with IsFraudulent=true is valid.
type FraudVerdict struct {
	SubmissionID string `json:"submission_id"`
	ReceiptID    string `json:"receipt_id"`

	IsFraudulent     bool    `json:"isFraudulent"`
	FraudProbability float64 `json:"fraudProbability"` // always clamped to [0,1]
	Explanation      string  `json:"explanation"`

	RiskFactors        RiskFactors         `json:"riskFactors"`
	DuplicateDetection DuplicateDetection  `json:"duplicateDetection"`
	MLPrediction       *MLPrediction       `json:"ml_prediction,omitempty"`
	AIDetection        *AIDetection        `json:"ai_detection,omitempty"`
	OverallRisk        constants.RiskLevel `json:"overall_risk_assessment"`

	ProducedAt time.Time `json:"produced_at"`
}
