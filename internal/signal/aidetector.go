package signal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/receiptshield/analyzer/internal/common"
	"github.com/receiptshield/analyzer/internal/entity"
)

// AIDetectorConfig configures the Claude-backed fraud detector.
type AIDetectorConfig struct {
	APIKey    string
	Model     string // default claude-sonnet-4-5-20250929
	MaxTokens int64  // default 1024
	Timeout   time.Duration
}

// AIDetectorClient asks an LLM for a structured fraud judgment on the
// extracted items plus the receipt image. Implements AIDetector.
type AIDetectorClient struct {
	cfg    AIDetectorConfig
	client anthropic.Client
	log    *slog.Logger
}

func NewAIDetectorClient(cfg AIDetectorConfig, logger *slog.Logger) *AIDetectorClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &AIDetectorClient{
		cfg:    cfg,
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		log:    logger,
	}
}

const aiSystemPrompt = `You are an expert in fraud detection for expense receipts.
First do a quick visual and data integrity check: does this look like a real
receipt, are there signs of manipulation, is critical information (vendor,
date, total) missing or nonsensical? Then do a deeper pass for common fraud
schemes: amounts unusually high for the items, possible duplicate
submission, personal expenses disguised as business ones, altered receipts.
Respond with ONLY a JSON object matching the provided schema: a "fraudulent"
boolean (true if either pass raises high suspicion), a "fraudProbability"
number from 0 to 1, and a short "explanation" string for the human reviewer.`

// Detect sends the items (and the image when imageRef is a readable file)
// to the model and returns its schema-validated judgment.
func (c *AIDetectorClient) Detect(ctx context.Context, items []entity.DataItem, imageRef string) (entity.AIDetection, error) {
	rid := uuid.New().String()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	c.log.Info("ai.detect.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"items", len(items),
		"has_image", imageRef != "",
	)

	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(buildDetectPrompt(items)),
	}
	if mediaType, data, ok := loadImage(imageRef); ok {
		blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, data))
	} else if imageRef != "" {
		c.log.Warn("ai.detect.image_unreadable", "req_id", rid, "image_ref", imageRef)
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: aiSystemPrompt + "\n\nJSON Schema:\n" + mustJSON(buildDetectionJSONSchema())},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		c.log.Error("ai.detect.api_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.AIDetection{}, common.UnavailableError(fmt.Sprintf("ai detector: %v", err))
	}

	var content string
	for _, block := range message.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}
	content = stripCodeFence(strings.TrimSpace(content))
	if content == "" {
		c.log.Error("ai.detect.no_content", "req_id", rid)
		return entity.AIDetection{}, common.InternalError("no text content in ai response")
	}

	if err := validateJSONAgainstSchema(buildDetectionJSONSchema(), []byte(content)); err != nil {
		c.log.Error("ai.detect.schema_validation_failed",
			"req_id", rid, "error", err, "content", content,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.AIDetection{}, common.InternalErrorf("schema validation failed: %v", err)
	}

	var out entity.AIDetection
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return entity.AIDetection{}, common.InternalErrorf("unmarshal detection: %v", err)
	}
	out.FraudProbability = clamp01(out.FraudProbability)

	c.log.Info("ai.detect.ok",
		"req_id", rid,
		"fraudulent", out.Fraudulent,
		"probability", out.FraudProbability,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func buildDetectPrompt(items []entity.DataItem) string {
	var b strings.Builder
	b.WriteString("Receipt items:\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item.Label)
		b.WriteString(": ")
		b.WriteString(item.Value)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}

// buildDetectionJSONSchema returns the JSON-Schema the model output must
// satisfy before we trust it.
func buildDetectionJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"fraudulent":       map[string]any{"type": "boolean"},
			"fraudProbability": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"explanation":      map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"fraudulent", "fraudProbability", "explanation"},
	}
}

func loadImage(ref string) (mediaType, encoded string, ok bool) {
	if ref == "" {
		return "", "", false
	}
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(ref), ".")) {
	case "jpg", "jpeg":
		mediaType = "image/jpeg"
	case "png":
		mediaType = "image/png"
	case "webp":
		mediaType = "image/webp"
	default:
		return "", "", false
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", "", false
	}
	return mediaType, base64.StdEncoding.EncodeToString(data), true
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
