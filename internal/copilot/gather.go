package copilot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"aimy-copilot/internal/model"
)

// PortfolioProvider serves investor holdings and payout schedules.
type PortfolioProvider interface {
	GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error)
	GetUpcomingPayouts(ctx context.Context, portfolioID string) ([]model.Payout, error)
}

// AssetProvider serves tokenized asset records.
type AssetProvider interface {
	GetAsset(ctx context.Context, id string) (*model.Asset, error)
}

// AIInsightProvider serves numeric model output for an asset.
type AIInsightProvider interface {
	GetInsights(ctx context.Context, assetID string) (*model.AssetInsights, error)
}

// ContextGatherer fetches the external data an intent needs to ground a
// response. Each source is fetched concurrently under its own timeout; a
// failed source is logged and omitted rather than aborting the turn. Only
// when every required source fails does Gather return an error.
type ContextGatherer struct {
	portfolios PortfolioProvider
	assets     AssetProvider
	insights   AIInsightProvider
	timeout    time.Duration
	log        *zap.Logger
}

func NewContextGatherer(
	portfolios PortfolioProvider,
	assets AssetProvider,
	insights AIInsightProvider,
	timeout time.Duration,
	log *zap.Logger,
) *ContextGatherer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ContextGatherer{
		portfolios: portfolios,
		assets:     assets,
		insights:   insights,
		timeout:    timeout,
		log:        log,
	}
}

type sourceFetch struct {
	name  string
	fetch func(ctx context.Context, b *model.ContextBundle) error
}

// Gather populates a ContextBundle for the intent. Fields stay nil for
// sources that were not required or whose fetch failed.
func (g *ContextGatherer) Gather(ctx context.Context, intent model.Intent, sctx model.SessionContext) (*model.ContextBundle, error) {
	bundle := &model.ContextBundle{
		SessionID:  sctx.SessionID,
		GatheredAt: time.Now().UTC(),
	}

	fetches := g.requiredFetches(intent)
	if len(fetches) == 0 {
		return bundle, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)
	for _, f := range fetches {
		wg.Add(1)
		go func(f sourceFetch) {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			if err := f.fetch(fctx, bundle); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
				}
				g.log.Warn("context source fetch failed",
					zap.String("source", f.name),
					zap.String("intent", string(intent.Kind)),
					zap.Error(err))
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", f.name, err))
				mu.Unlock()
			}
		}(f)
	}
	wg.Wait()

	if len(failures) == len(fetches) {
		return bundle, fmt.Errorf("%w: all context sources failed: %w",
			ErrUpstreamUnavailable, errors.Join(failures...))
	}
	return bundle, nil
}

// requiredFetches maps the intent to the minimum set of sources. A source
// whose id cannot be resolved is skipped entirely, which keeps the missing
// field nil without counting as a failure.
func (g *ContextGatherer) requiredFetches(intent model.Intent) []sourceFetch {
	var (
		fetches     []sourceFetch
		mu          sync.Mutex
		portfolioID = intent.Entities.PortfolioID
		assetID     = intent.Entities.AssetID
	)

	if intent.RequiresPortfolioAccess && portfolioID != "" && g.portfolios != nil {
		fetches = append(fetches, sourceFetch{name: "portfolio", fetch: func(ctx context.Context, b *model.ContextBundle) error {
			p, err := g.portfolios.GetPortfolio(ctx, portfolioID)
			if err != nil {
				return err
			}
			mu.Lock()
			b.Portfolio = p
			mu.Unlock()
			return nil
		}})
	}
	if intent.Kind == model.IntentPayoutSchedule && portfolioID != "" && g.portfolios != nil {
		fetches = append(fetches, sourceFetch{name: "payouts", fetch: func(ctx context.Context, b *model.ContextBundle) error {
			payouts, err := g.portfolios.GetUpcomingPayouts(ctx, portfolioID)
			if err != nil {
				return err
			}
			if payouts == nil {
				payouts = []model.Payout{}
			}
			mu.Lock()
			b.Payouts = &payouts
			mu.Unlock()
			return nil
		}})
	}
	if intent.RequiresAssetAccess && assetID != "" && g.assets != nil {
		fetches = append(fetches, sourceFetch{name: "asset", fetch: func(ctx context.Context, b *model.ContextBundle) error {
			a, err := g.assets.GetAsset(ctx, assetID)
			if err != nil {
				return err
			}
			mu.Lock()
			b.Asset = a
			mu.Unlock()
			return nil
		}})
	}
	if (intent.Kind == model.IntentAIReport || intent.Kind == model.IntentAssetRisk) && assetID != "" && g.insights != nil {
		fetches = append(fetches, sourceFetch{name: "ai_insights", fetch: func(ctx context.Context, b *model.ContextBundle) error {
			ins, err := g.insights.GetInsights(ctx, assetID)
			if err != nil {
				return err
			}
			mu.Lock()
			b.AIInsights = ins
			mu.Unlock()
			return nil
		}})
	}
	return fetches
}
