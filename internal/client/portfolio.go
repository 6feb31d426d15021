package client

import (
	"context"
	"fmt"
	"net/url"

	"aimy-copilot/internal/model"
)

// PortfolioClient reads investor holdings and payout schedules from the
// platform API.
type PortfolioClient struct {
	baseClient
}

func NewPortfolioClient(cfg Config) *PortfolioClient {
	return &PortfolioClient{baseClient: newBaseClient(cfg)}
}

func (c *PortfolioClient) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	if id == "" {
		return nil, fmt.Errorf("portfolio id is empty")
	}
	var out model.Portfolio
	if err := c.getJSON(ctx, "/portfolios/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PortfolioClient) GetUpcomingPayouts(ctx context.Context, portfolioID string) ([]model.Payout, error) {
	if portfolioID == "" {
		return nil, fmt.Errorf("portfolio id is empty")
	}
	var out []model.Payout
	if err := c.getJSON(ctx, "/portfolios/"+url.PathEscape(portfolioID)+"/payouts", &out); err != nil {
		return nil, err
	}
	return out, nil
}
