package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/receiptshield/analyzer/internal/repository"
)

type fakeLister struct {
	rows    []repository.VerdictRow
	gotFrom *time.Time
	gotTo   *time.Time
}

func (f *fakeLister) ListVerdicts(_ context.Context, from, to *time.Time) ([]repository.VerdictRow, error) {
	f.gotFrom, f.gotTo = from, to
	return f.rows, nil
}

func TestExportVerdictsXLSX(t *testing.T) {
	t.Parallel()

	produced := time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC)
	lister := &fakeLister{rows: []repository.VerdictRow{
		{
			SubmissionID:     "sub-1",
			ReceiptID:        "rec-1",
			IsFraudulent:     true,
			FraudProbability: 0.58,
			OverallRisk:      "HIGH",
			Explanation:      "ML Model: HIGH risk (90.0% fraud probability).",
			ProducedAt:       produced,
		},
	}}

	svc := NewService(lister, nil)
	data, err := svc.ExportVerdictsXLSX(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, lister.gotFrom)
	assert.Nil(t, lister.gotTo)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	const sheet = "Fraud Verdicts"
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{
		"Produced At", "Submission ID", "Receipt ID",
		"Fraudulent", "Fraud Probability", "Overall Risk", "Explanation",
	}, rows[0])
	assert.Equal(t, produced.Format(time.RFC3339), rows[1][0])
	assert.Equal(t, "sub-1", rows[1][1])
	assert.Equal(t, "TRUE", rows[1][3])
	assert.Equal(t, "HIGH", rows[1][5])
}

func TestExportVerdictsXLSXDateWindow(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{}
	svc := NewService(lister, nil)

	from := time.Date(2026, 8, 1, 9, 15, 0, 0, time.UTC)
	_, err := svc.ExportVerdictsXLSX(context.Background(), &from, nil)
	require.NoError(t, err)

	require.NotNil(t, lister.gotFrom)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *lister.gotFrom)
	// An open upper bound defaults to the end of today.
	require.NotNil(t, lister.gotTo)
	assert.Equal(t, 23, lister.gotTo.Hour())
	assert.False(t, lister.gotTo.Before(*lister.gotFrom))
}
