package copilot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aimy-copilot/internal/model"
)

type fakePortfolioProvider struct {
	portfolio    *model.Portfolio
	portfolioErr error
	payouts      []model.Payout
	payoutsErr   error
}

func (f *fakePortfolioProvider) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	return f.portfolio, f.portfolioErr
}

func (f *fakePortfolioProvider) GetUpcomingPayouts(ctx context.Context, portfolioID string) ([]model.Payout, error) {
	return f.payouts, f.payoutsErr
}

type fakeAssetProvider struct {
	asset *model.Asset
	err   error
}

func (f *fakeAssetProvider) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	return f.asset, f.err
}

type fakeInsightProvider struct {
	insights *model.AssetInsights
	err      error
}

func (f *fakeInsightProvider) GetInsights(ctx context.Context, assetID string) (*model.AssetInsights, error) {
	return f.insights, f.err
}

func portfolioIntent(portfolioID string) model.Intent {
	return model.Intent{
		Kind:                    model.IntentPortfolioAnalysis,
		Confidence:              0.8,
		Entities:                model.IntentEntities{PortfolioID: portfolioID},
		RequiresPortfolioAccess: true,
	}
}

func TestGatherPopulatesRequiredSources(t *testing.T) {
	portfolios := &fakePortfolioProvider{
		portfolio: &model.Portfolio{ID: "pf-1", UserID: "user-1"},
		payouts:   []model.Payout{{PortfolioID: "pf-1", Amount: 125.50}},
	}
	g := NewContextGatherer(portfolios, nil, nil, time.Second, zap.NewNop())

	intent := model.Intent{
		Kind:                    model.IntentPayoutSchedule,
		Entities:                model.IntentEntities{PortfolioID: "pf-1"},
		RequiresPortfolioAccess: true,
	}
	bundle, err := g.Gather(context.Background(), intent, model.SessionContext{SessionID: "s-1"})
	require.NoError(t, err)
	require.NotNil(t, bundle.Portfolio)
	assert.Equal(t, "pf-1", bundle.Portfolio.ID)
	require.NotNil(t, bundle.Payouts)
	assert.Len(t, *bundle.Payouts, 1)
	assert.Equal(t, "s-1", bundle.SessionID)
	assert.Nil(t, bundle.Asset)
	assert.Nil(t, bundle.AIInsights)
}

func TestGatherNilPayoutsBecomeEmptySlice(t *testing.T) {
	portfolios := &fakePortfolioProvider{
		portfolio: &model.Portfolio{ID: "pf-1"},
		payouts:   nil,
	}
	g := NewContextGatherer(portfolios, nil, nil, time.Second, zap.NewNop())

	intent := model.Intent{
		Kind:                    model.IntentPayoutSchedule,
		Entities:                model.IntentEntities{PortfolioID: "pf-1"},
		RequiresPortfolioAccess: true,
	}
	bundle, err := g.Gather(context.Background(), intent, model.SessionContext{})
	require.NoError(t, err)
	require.NotNil(t, bundle.Payouts)
	assert.Empty(t, *bundle.Payouts)
}

func TestGatherToleratesPartialFailure(t *testing.T) {
	assets := &fakeAssetProvider{err: errors.New("upstream 503")}
	insights := &fakeInsightProvider{insights: &model.AssetInsights{
		Risk: &model.AssetRisk{Score: 42, Level: "medium"},
	}}
	g := NewContextGatherer(nil, assets, insights, time.Second, zap.NewNop())

	intent := model.Intent{
		Kind:                model.IntentAssetRisk,
		Entities:            model.IntentEntities{AssetID: "SOLAR-001"},
		RequiresAssetAccess: true,
	}
	bundle, err := g.Gather(context.Background(), intent, model.SessionContext{})
	require.NoError(t, err)
	assert.Nil(t, bundle.Asset)
	require.NotNil(t, bundle.AIInsights)
	assert.Equal(t, "medium", bundle.AIInsights.Risk.Level)
}

func TestGatherAllSourcesFailed(t *testing.T) {
	assets := &fakeAssetProvider{err: errors.New("down")}
	insights := &fakeInsightProvider{err: errors.New("also down")}
	g := NewContextGatherer(nil, assets, insights, time.Second, zap.NewNop())

	intent := model.Intent{
		Kind:                model.IntentAssetRisk,
		Entities:            model.IntentEntities{AssetID: "SOLAR-001"},
		RequiresAssetAccess: true,
	}
	bundle, err := g.Gather(context.Background(), intent, model.SessionContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, ErrUpstreamTimeout)
	require.NotNil(t, bundle)
	assert.False(t, bundle.HasAny())
}

func TestGatherSkipsSourceWithoutID(t *testing.T) {
	portfolios := &fakePortfolioProvider{portfolioErr: errors.New("must not be called")}
	g := NewContextGatherer(portfolios, nil, nil, time.Second, zap.NewNop())

	bundle, err := g.Gather(context.Background(), portfolioIntent(""), model.SessionContext{})
	require.NoError(t, err)
	assert.Nil(t, bundle.Portfolio)
}

func TestGatherNoSourcesForGeneralQuestion(t *testing.T) {
	g := NewContextGatherer(nil, nil, nil, time.Second, zap.NewNop())

	intent := model.Intent{Kind: model.IntentGeneralQuestion, Confidence: 0.5}
	bundle, err := g.Gather(context.Background(), intent, model.SessionContext{})
	require.NoError(t, err)
	assert.False(t, bundle.HasAny())
}

func TestGatherHonorsPerSourceTimeout(t *testing.T) {
	slow := &slowAssetProvider{delay: 200 * time.Millisecond}
	g := NewContextGatherer(nil, slow, nil, 20*time.Millisecond, zap.NewNop())

	intent := model.Intent{
		Kind:                model.IntentAssetRisk,
		Entities:            model.IntentEntities{AssetID: "SOLAR-001"},
		RequiresAssetAccess: true,
	}
	start := time.Now()
	bundle, err := g.Gather(context.Background(), intent, model.SessionContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
	assert.Nil(t, bundle.Asset)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

type slowAssetProvider struct {
	delay time.Duration
}

func (s *slowAssetProvider) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	select {
	case <-time.After(s.delay):
		return &model.Asset{ID: id}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
