package signal

import (
	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/entity"
)

// HasMissingCriticalInfo reports whether any critical field (date, total,
// amount) is empty or carries an extraction-failure marker. Pure and
// synchronous; it cannot fail.
func HasMissingCriticalInfo(items []entity.DataItem) bool {
	for _, item := range items {
		if constants.IsCriticalLabel(item.Label) && constants.IsFailureValue(item.Value) {
			return true
		}
	}
	return false
}
