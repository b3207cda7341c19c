package api

import (
	"context"
	"fmt"

	"github.com/rickgao/market-data/internal/model"
)

// GetFXQuotes fetches the raw FX quote list.
func (c *Client) GetFXQuotes(ctx context.Context) ([]FXQuote, error) {
	var rows []FXQuote
	if err := c.get(ctx, "/fx", nil, &rows); err != nil {
		return nil, fmt.Errorf("get fx quotes: %w", err)
	}
	return rows, nil
}

// GetExchangeRates fetches FX quotes and converts them. Rows that fail
// conversion are skipped.
func (c *Client) GetExchangeRates(ctx context.Context) ([]model.ExchangeRate, error) {
	rows, err := c.GetFXQuotes(ctx)
	if err != nil {
		return nil, err
	}

	rates := make([]model.ExchangeRate, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		rate, err := row.ToModel()
		if err != nil {
			skipped++
			continue
		}
		rates = append(rates, rate)
	}

	if skipped > 0 {
		c.logger.Debug("skipped invalid fx rows", "skipped", skipped, "total", len(rows))
	}

	return rates, nil
}
