package api

import (
	"context"
	"fmt"
)

// GetTradableSecurities fetches the raw tradable-securities list.
func (c *Client) GetTradableSecurities(ctx context.Context) ([]TradableSecurity, error) {
	var rows []TradableSecurity
	if err := c.get(ctx, "/available-traded/list", nil, &rows); err != nil {
		return nil, fmt.Errorf("get tradable securities: %w", err)
	}
	return rows, nil
}
