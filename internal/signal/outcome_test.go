package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/receiptshield/analyzer/internal/entity"
)

func TestOutcome(t *testing.T) {
	t.Parallel()

	ok := Ok(entity.MLPrediction{FraudProbability: 0.4})
	assert.True(t, ok.Available())
	v, present := ok.Value()
	assert.True(t, present)
	assert.Equal(t, 0.4, v.FraudProbability)
	assert.Empty(t, ok.Reason())

	un := Unavailable[entity.MLPrediction]("model server down")
	assert.False(t, un.Available())
	zero, present := un.Value()
	assert.False(t, present)
	assert.Equal(t, entity.MLPrediction{}, zero)
	assert.Equal(t, "model server down", un.Reason())
}
