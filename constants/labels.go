package constants

import "strings"

// Labels assigned by the line classifier. Stored on DataItem rows verbatim.
const (
	LabelVendor        = "Vendor"
	LabelDate          = "Date"
	LabelTotalAmount   = "Total Amount"
	LabelTip           = "Tip"
	LabelPaymentMethod = "Payment Method"
	LabelItem          = "Item"
	LabelText          = "Text"
)

// Extraction-failure markers an item value may carry instead of real data.
// Matching is case-insensitive; see IsFailureValue.
var failureMarkers = []string{
	"extraction failed",
	"not found - edit me",
}

// IsCriticalLabel reports whether a label names a field whose absence alone
// is enough to raise suspicion (date, total, amount).
func IsCriticalLabel(label string) bool {
	l := strings.ToLower(label)
	return strings.Contains(l, "date") || strings.Contains(l, "total") || strings.Contains(l, "amount")
}

// IsFailureValue reports whether an extracted value is empty, is exactly
// "not found", or carries an extraction-failure marker.
func IsFailureValue(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || v == "not found" {
		return true
	}
	for _, m := range failureMarkers {
		if strings.Contains(v, m) {
			return true
		}
	}
	return false
}
