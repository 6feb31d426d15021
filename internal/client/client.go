// Package client holds the HTTP collaborators the pipeline grounds responses
// on: the platform's portfolio and asset APIs, plus an insights adapter over
// the numeric model service.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds settings shared by the platform API clients.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type baseClient struct {
	cfg        Config
	httpClient *http.Client
}

func newBaseClient(cfg Config) baseClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return baseClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *baseClient) getJSON(ctx context.Context, path string, out interface{}) error {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response from %s failed: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s status %d: %s", path, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response from %s failed: %w", path, err)
	}
	return nil
}
