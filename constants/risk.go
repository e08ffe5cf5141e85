package constants

// RiskLevel is the coarse banding reported by the ML model and carried on
// the overall assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ImageQuality grades the receipt photo from the OCR blur score.
type ImageQuality string

const (
	ImageExcellent ImageQuality = "excellent"
	ImageGood      ImageQuality = "good"
	ImagePoor      ImageQuality = "poor"
)

// ExtractionConfidence grades how much to trust the extracted items.
type ExtractionConfidence string

const (
	ConfidenceHigh   ExtractionConfidence = "high"
	ConfidenceMedium ExtractionConfidence = "medium"
	ConfidenceLow    ExtractionConfidence = "low"
)

// VendorVerification is the vendor lookup outcome.
type VendorVerification string

const (
	VendorVerified   VendorVerification = "verified"
	VendorUnknown    VendorVerification = "unknown"
	VendorSuspicious VendorVerification = "suspicious"
)

// AmountReasonableness grades the claimed total.
type AmountReasonableness string

const (
	AmountNormal     AmountReasonableness = "normal"
	AmountHigh       AmountReasonableness = "high"
	AmountSuspicious AmountReasonableness = "suspicious"
)
