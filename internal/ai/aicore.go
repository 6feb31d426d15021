package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aimy-copilot/internal/model"
)

// AICoreConfig holds settings for the numeric model service that computes
// pricing, risk, yield and anomaly figures.
type AICoreConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AICoreClient talks to the numeric model service. Every endpoint reports the
// model_version it answered with, and predictions carry confidence intervals.
type AICoreClient struct {
	cfg        AICoreConfig
	httpClient *http.Client
}

func NewAICoreClient(cfg AICoreConfig) *AICoreClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AICoreClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type PricingRequest struct {
	AssetID  string             `json:"asset_id"`
	Features map[string]float64 `json:"features,omitempty"`
}

type RiskRequest struct {
	AssetID  string             `json:"asset_id"`
	Features map[string]float64 `json:"features,omitempty"`
}

type YieldRequest struct {
	AssetID string    `json:"asset_id"`
	History []float64 `json:"history,omitempty"`
	Horizon int       `json:"horizon,omitempty"`
}

type AnomalyRequest struct {
	AssetID string    `json:"asset_id"`
	Series  []float64 `json:"series,omitempty"`
}

// Price returns the model's fair-value estimate for an asset.
func (c *AICoreClient) Price(ctx context.Context, req PricingRequest) (*model.AssetValuation, error) {
	var out model.AssetValuation
	if err := c.post(ctx, "/price", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RiskScore returns the model's risk assessment for an asset.
func (c *AICoreClient) RiskScore(ctx context.Context, req RiskRequest) (*model.AssetRisk, error) {
	var out model.AssetRisk
	if err := c.post(ctx, "/risk_score", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictYield returns the forecast yield series for an asset.
func (c *AICoreClient) PredictYield(ctx context.Context, req YieldRequest) (*model.YieldForecast, error) {
	var out model.YieldForecast
	if err := c.post(ctx, "/predict_yield", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DetectAnomalies flags unusual points in an asset's value series.
func (c *AICoreClient) DetectAnomalies(ctx context.Context, req AnomalyRequest) ([]model.Anomaly, error) {
	var out struct {
		Anomalies    []model.Anomaly `json:"anomalies"`
		ModelVersion string          `json:"model_version"`
	}
	if err := c.post(ctx, "/anomaly", req, &out); err != nil {
		return nil, err
	}
	return out.Anomalies, nil
}

func (c *AICoreClient) post(ctx context.Context, path string, payload, out interface{}) error {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal aicore request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build aicore request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("aicore request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read aicore response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("aicore %s status %d: %s", path, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse aicore %s json failed: %w", path, err)
	}
	return nil
}
