package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStableBefore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   SubmissionStatus
		want SubmissionStatus
	}{
		{StatusExtracting, StatusUploaded},
		{StatusCollectingSignals, StatusExtracted},
		{StatusFusing, StatusExtracted},
		{StatusUploaded, StatusUploaded},
		{StatusExtracted, StatusExtracted},
		{StatusAnalysisCompleted, StatusAnalysisCompleted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StableBefore(tt.in), "from %s", tt.in)
	}
}
