package signal

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/entity"
)

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json untouched", `{"fraudulent":false}`, `{"fraudulent":false}`},
		{"json fence", "```json\n{\"fraudulent\":false}\n```", `{"fraudulent":false}`},
		{"bare fence", "```\n{\"fraudulent\":true}\n```", `{"fraudulent":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}

func TestBuildDetectPrompt(t *testing.T) {
	t.Parallel()

	items := []entity.DataItem{
		{Label: constants.LabelVendor, Value: "Starbucks"},
		{Label: constants.LabelTotalAmount, Value: "45.99"},
	}
	prompt := buildDetectPrompt(items)
	assert.Contains(t, prompt, "- Vendor: Starbucks")
	assert.Contains(t, prompt, "- Total Amount: 45.99")
	assert.Contains(t, prompt, "ONLY JSON")
}

func TestDetectionSchemaValidation(t *testing.T) {
	t.Parallel()

	schema := buildDetectionJSONSchema()

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"fraudulent":true,"fraudProbability":0.8,"explanation":"altered total"}`,
		},
		{
			name:    "missing explanation",
			payload: `{"fraudulent":true,"fraudProbability":0.8}`,
			wantErr: true,
		},
		{
			name:    "empty explanation",
			payload: `{"fraudulent":false,"fraudProbability":0.1,"explanation":""}`,
			wantErr: true,
		},
		{
			name:    "probability out of range",
			payload: `{"fraudulent":false,"fraudProbability":1.5,"explanation":"x"}`,
			wantErr: true,
		},
		{
			name:    "unexpected extra field",
			payload: `{"fraudulent":false,"fraudProbability":0.1,"explanation":"x","score":2}`,
			wantErr: true,
		},
		{
			name:    "wrong type",
			payload: `{"fraudulent":"yes","fraudProbability":0.1,"explanation":"x"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateJSONAgainstSchema(schema, []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.png")
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	mediaType, encoded, ok := loadImage(path)
	require.True(t, ok)
	assert.Equal(t, "image/png", mediaType)
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	_, _, ok = loadImage(filepath.Join(dir, "missing.jpg"))
	assert.False(t, ok)

	pdf := filepath.Join(dir, "receipt.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o600))
	_, _, ok = loadImage(pdf)
	assert.False(t, ok)

	_, _, ok = loadImage("")
	assert.False(t, ok)
}

func TestNewAIDetectorClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewAIDetectorClient(AIDetectorConfig{APIKey: "key"}, nil)
	assert.Equal(t, "claude-sonnet-4-5-20250929", c.cfg.Model)
	assert.EqualValues(t, 1024, c.cfg.MaxTokens)
	assert.Positive(t, c.cfg.Timeout)
}
