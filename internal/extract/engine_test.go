package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/entity"
)

func TestEngineExtract(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	rec := entity.RecognitionResult{
		Text: "Starbucks Coffee\n" +
			"12/25/2023\n" +
			"Latte $4.50\n" +
			"Muffin $3.25\n" +
			"Total: $7.75\n" +
			"Card ending 9876\n",
		Confidence: 0.9,
	}

	items, errorLog := e.Extract(rec)
	require.Empty(t, errorLog)
	require.Len(t, items, 6)

	assert.Equal(t, entity.DataItem{ID: "vendor-1", Label: constants.LabelVendor, Value: "Starbucks Coffee"}, items[0])
	assert.Equal(t, entity.DataItem{ID: "date-1", Label: constants.LabelDate, Value: "12/25/2023"}, items[1])
	assert.Equal(t, entity.DataItem{ID: "item-1", Label: constants.LabelItem, Value: "Latte - $4.50"}, items[2])
	assert.Equal(t, entity.DataItem{ID: "item-2", Label: constants.LabelItem, Value: "Muffin - $3.25"}, items[3])
	assert.Equal(t, entity.DataItem{ID: "total-1", Label: constants.LabelTotalAmount, Value: "7.75"}, items[4])
	assert.Equal(t, entity.DataItem{ID: "payment-1", Label: constants.LabelPaymentMethod, Value: "CARD"}, items[5])
}

func TestEngineExtractEmptyText(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	items, errorLog := e.Extract(entity.RecognitionResult{
		Text:     "   \n  ",
		Warnings: []string{"tesseract: low contrast"},
	})

	assert.Empty(t, items)
	require.Len(t, errorLog, 2)
	assert.Contains(t, errorLog[0], "no usable text")
	assert.Equal(t, "tesseract: low contrast", errorLog[1])
}

func TestEngineExtractDropsShortLines(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	items, errorLog := e.Extract(entity.RecognitionResult{
		Text: "ab\n 1 \nStarbucks Coffee\n",
	})

	assert.Empty(t, errorLog)
	require.Len(t, items, 1)
	assert.Equal(t, constants.LabelVendor, items[0].Label)
}

func TestEngineExtractIDsScopedPerCall(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	rec := entity.RecognitionResult{Text: "Starbucks Coffee\n"}

	first, _ := e.Extract(rec)
	second, _ := e.Extract(rec)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	// Counters restart for each extraction; uniqueness is per-call only.
	assert.Equal(t, first[0].ID, second[0].ID)
}
