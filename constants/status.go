package constants

// SubmissionStatus is the canonical status for a receipt submission as the
// analysis pipeline advances it.
type SubmissionStatus string

// Stable values (store these exact strings in the submissions table).
const (
	StatusUploaded          SubmissionStatus = "UPLOADED"           // image stored, nothing run yet
	StatusExtracting        SubmissionStatus = "EXTRACTING"         // text extraction in progress
	StatusExtracted         SubmissionStatus = "EXTRACTED"          // structured items available
	StatusCollectingSignals SubmissionStatus = "COLLECTING_SIGNALS" // collectors running
	StatusFusing            SubmissionStatus = "FUSING"             // fusion in progress
	StatusAnalysisCompleted SubmissionStatus = "ANALYSIS_COMPLETED" // verdict stored
	StatusAnalysisFailed    SubmissionStatus = "ANALYSIS_FAILED"    // unrecoverable fault; fallback verdict emitted
)

// StableBefore maps an in-flight status to the last stable status a failed
// analysis should revert the submission to.
func StableBefore(s SubmissionStatus) SubmissionStatus {
	switch s {
	case StatusExtracting:
		return StatusUploaded
	case StatusCollectingSignals, StatusFusing:
		return StatusExtracted
	default:
		return s
	}
}
