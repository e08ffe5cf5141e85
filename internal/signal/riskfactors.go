package signal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/entity"
)

var reNonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// AssessRiskFactors grades image quality, extraction confidence, vendor
// verification and amount reasonableness from the extracted items and OCR
// metadata. Pure function; an unparsable total counts as 0 (normal), never
// as a failure.
func AssessRiskFactors(items []entity.DataItem, meta *entity.OCRMetadata) entity.RiskFactors {
	quality := constants.ImageGood
	confidence := constants.ConfidenceMedium
	if meta != nil {
		if meta.BlurScore < 0.3 {
			quality = constants.ImageExcellent
		} else if meta.BlurScore > 0.7 {
			quality = constants.ImagePoor
		}
		if meta.ExtractionConfidence > 0.8 {
			confidence = constants.ConfidenceHigh
		} else if meta.ExtractionConfidence < 0.5 {
			confidence = constants.ConfidenceLow
		}
	}

	vendor := constants.VendorUnknown
	if v, ok := findByLabel(items, "vendor"); ok {
		if strings.TrimSpace(v.Value) != "" && !strings.Contains(strings.ToLower(v.Value), "not found") {
			// A real system would check a vendor registry here; a present,
			// extractable name is the best signal we have.
			vendor = constants.VendorVerified
		}
	}

	amount := constants.AmountNormal
	if t, ok := findTotalItem(items); ok {
		parsed, err := strconv.ParseFloat(reNonNumeric.ReplaceAllString(t.Value, ""), 64)
		if err != nil {
			parsed = 0
		}
		switch {
		case parsed >= 5000:
			amount = constants.AmountSuspicious
		case parsed >= 1000:
			amount = constants.AmountHigh
		}
	}

	return entity.RiskFactors{
		ImageQuality:         quality,
		ExtractionConfidence: confidence,
		VendorVerification:   vendor,
		AmountReasonableness: amount,
	}
}

func findByLabel(items []entity.DataItem, fragment string) (entity.DataItem, bool) {
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Label), fragment) {
			return item, true
		}
	}
	return entity.DataItem{}, false
}

func findTotalItem(items []entity.DataItem) (entity.DataItem, bool) {
	for _, item := range items {
		l := strings.ToLower(item.Label)
		if strings.Contains(l, "total") && strings.Contains(l, "amount") {
			return item, true
		}
	}
	return entity.DataItem{}, false
}
