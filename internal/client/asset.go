package client

import (
	"context"
	"fmt"
	"net/url"

	"aimy-copilot/internal/model"
)

// AssetClient reads tokenized asset records from the platform API.
type AssetClient struct {
	baseClient
}

func NewAssetClient(cfg Config) *AssetClient {
	return &AssetClient{baseClient: newBaseClient(cfg)}
}

func (c *AssetClient) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	if id == "" {
		return nil, fmt.Errorf("asset id is empty")
	}
	var out model.Asset
	if err := c.getJSON(ctx, "/assets/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
