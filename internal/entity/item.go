package entity

// RecognitionResult is the raw output of the external OCR engine for one
// receipt image. Immutable once produced.
type RecognitionResult struct {
	Text             string   `json:"text"`
	Confidence       float64  `json:"confidence"` // 0..1
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Warnings         []string `json:"warnings,omitempty"`
}

// DataItem is one labeled field extracted from the recognized text.
// Ordering is classification order; several items may share a label.
type DataItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// OCRMetadata carries the per-image quality measurements the risk-factor
// assessor consumes alongside the extracted items.
type OCRMetadata struct {
	BlurScore            float64 `json:"blur_score"`            // 0..1, higher is blurrier
	ExtractionConfidence float64 `json:"extraction_confidence"` // 0..1
	ImageHash            string  `json:"image_hash,omitempty"`
}
