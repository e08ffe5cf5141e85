package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/receiptshield/analyzer/constants"
	"github.com/receiptshield/analyzer/internal/common"
	"github.com/receiptshield/analyzer/internal/entity"
)

// MLClientConfig configures the statistical fraud model client.
type MLClientConfig struct {
	BaseURL string        // e.g. http://localhost:5000
	Timeout time.Duration // per-call; default 15s
}

// MLClient talks to the external fraud-probability model over HTTP JSON.
// Implements MLPredictor.
type MLClient struct {
	cfg        MLClientConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewMLClient(cfg MLClientConfig, logger *slog.Logger) *MLClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &MLClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

type mlServerResponse struct {
	Success    bool          `json:"success"`
	Prediction *mlPrediction `json:"prediction,omitempty"`
	Error      string        `json:"error,omitempty"`
	Message    string        `json:"message,omitempty"`
}

type mlPrediction struct {
	IsFraudulent     bool    `json:"is_fraudulent"`
	FraudProbability float64 `json:"fraud_probability"`
	RiskLevel        string  `json:"risk_level"`
}

// Predict posts the extracted items to the model's predict endpoint.
func (c *MLClient) Predict(ctx context.Context, items []entity.DataItem) (entity.MLPrediction, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("ml.predict.start", "req_id", rid, "items", len(items))

	raw, err := c.post(ctx, c.endpoint("/predict"), map[string]any{"items": items})
	if err != nil {
		c.log.Error("ml.predict.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.MLPrediction{}, err
	}

	var resp mlServerResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.log.Error("ml.predict.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		// A garbage body is a contract violation, not an outage.
		return entity.MLPrediction{}, common.InternalErrorf("decode ml response: %v", err)
	}
	if !resp.Success || resp.Prediction == nil {
		c.log.Error("ml.predict.rejected", "req_id", rid, "server_error", resp.Error, "message", resp.Message)
		return entity.MLPrediction{}, common.NewAppError("ML_PREDICT_REJECTED",
			firstNonEmpty(resp.Error, resp.Message, "no prediction returned"),
			common.ErrSignalUnavailable)
	}

	out := entity.MLPrediction{
		IsFraudulent:     resp.Prediction.IsFraudulent,
		FraudProbability: clamp01(resp.Prediction.FraudProbability),
		RiskLevel:        constants.RiskLevel(resp.Prediction.RiskLevel),
	}
	if out.RiskLevel == "" {
		out.RiskLevel = riskLevelForProbability(out.FraudProbability)
	}

	c.log.Info("ml.predict.ok",
		"req_id", rid,
		"is_fraudulent", out.IsFraudulent,
		"probability", out.FraudProbability,
		"risk_level", out.RiskLevel,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Healthy probes the predict endpoint with a canary item. The model server
// has no dedicated health route; a well-formed prediction doubles as one.
func (c *MLClient) Healthy(ctx context.Context) bool {
	canary := []entity.DataItem{{ID: "test", Label: constants.LabelTotalAmount, Value: "10.00"}}
	_, err := c.Predict(ctx, canary)
	if err != nil {
		c.log.Warn("ml.health.failed", "error", err)
		return false
	}
	return true
}

func (c *MLClient) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *MLClient) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.UnavailableError(fmt.Sprintf("ml http error: %v", err))
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.log.Warn("ml response body close error", "error", cerr)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, common.UnavailableError(fmt.Sprintf("ml status %d: %s", resp.StatusCode, buf.String()))
	}
	return buf.Bytes(), nil
}

// riskLevelForProbability applies the model server's banding when the
// response omits an explicit level.
func riskLevelForProbability(p float64) constants.RiskLevel {
	switch {
	case p >= 0.8:
		return constants.RiskHigh
	case p >= 0.5:
		return constants.RiskMedium
	default:
		return constants.RiskLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
