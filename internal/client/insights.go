package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"aimy-copilot/internal/ai"
	"aimy-copilot/internal/model"
)

// InsightsClient composes the numeric model service's four endpoints into a
// single per-asset view. Endpoints fail independently: a section is nil when
// its call failed, and only total failure is an error.
type InsightsClient struct {
	core *ai.AICoreClient
	log  *zap.Logger
}

func NewInsightsClient(core *ai.AICoreClient, log *zap.Logger) *InsightsClient {
	return &InsightsClient{core: core, log: log}
}

func (c *InsightsClient) GetInsights(ctx context.Context, assetID string) (*model.AssetInsights, error) {
	if assetID == "" {
		return nil, fmt.Errorf("asset id is empty")
	}

	insights := &model.AssetInsights{
		AssetID:     assetID,
		GeneratedAt: time.Now().UTC(),
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	run := func(name string, call func() error) {
		defer wg.Done()
		if err := call(); err != nil {
			c.log.Warn("insights endpoint failed",
				zap.String("endpoint", name),
				zap.String("asset_id", assetID),
				zap.Error(err))
			mu.Lock()
			failed++
			mu.Unlock()
		}
	}

	wg.Add(4)
	go run("price", func() error {
		v, err := c.core.Price(ctx, ai.PricingRequest{AssetID: assetID})
		if err != nil {
			return err
		}
		mu.Lock()
		insights.Valuation = v
		mu.Unlock()
		return nil
	})
	go run("risk_score", func() error {
		r, err := c.core.RiskScore(ctx, ai.RiskRequest{AssetID: assetID})
		if err != nil {
			return err
		}
		mu.Lock()
		insights.Risk = r
		mu.Unlock()
		return nil
	})
	go run("predict_yield", func() error {
		y, err := c.core.PredictYield(ctx, ai.YieldRequest{AssetID: assetID})
		if err != nil {
			return err
		}
		mu.Lock()
		insights.Yield = y
		mu.Unlock()
		return nil
	})
	go run("anomaly", func() error {
		anomalies, err := c.core.DetectAnomalies(ctx, ai.AnomalyRequest{AssetID: assetID})
		if err != nil {
			return err
		}
		mu.Lock()
		insights.Anomalies = anomalies
		mu.Unlock()
		return nil
	})
	wg.Wait()

	if failed == 4 {
		return nil, fmt.Errorf("all insights endpoints failed for asset %s", assetID)
	}
	return insights, nil
}
