// Package toxicity contains a minimal client for the toxicity inference service.
// The service exposes a single JSON endpoint that scores a text and returns the
// probability of the toxic class. Model details live entirely on the other side
// of this boundary.
package toxicity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hatewatch/config"
)

// Client calls the inference service over HTTP.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// NewClient builds a Client from config with the configured request timeout.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		URL:        cfg.AnalyzerURL,
		HTTPClient: &http.Client{Timeout: cfg.AnalyzerTimeout},
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Analyze scores a text and returns the toxic-class probability in [0,1].
// Classification against a threshold is the caller's concern.
func (c *Client) Analyze(ctx context.Context, text string) (float64, error) {
	if text == "" {
		return 0, fmt.Errorf("text empty")
	}
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := c.http().Do(req)
	if err != nil {
		return 0, fmt.Errorf("analyzer request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("analyzer status %d", resp.StatusCode)
	}
	var body struct {
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("analyzer decode: %w", err)
	}
	if body.Confidence < 0 || body.Confidence > 1 {
		return 0, fmt.Errorf("analyzer confidence out of range: %v", body.Confidence)
	}
	slog.Debug("comment analyzed",
		slog.Float64("confidence", body.Confidence),
		slog.Duration("latency", time.Since(start)),
		slog.String("component", "toxicity"))
	return body.Confidence, nil
}
