package market

import (
	"context"
	"log/slog"

	"github.com/rickgao/market-data/internal/cache"
	"github.com/rickgao/market-data/internal/metrics"
	"github.com/rickgao/market-data/internal/model"
)

// RateSource provides converted FX rates.
type RateSource interface {
	GetExchangeRates(ctx context.Context) ([]model.ExchangeRate, error)
}

// RatesUpdater replaces the FX cache with a fresh upstream list.
type RatesUpdater struct {
	source  RateSource
	rates   *cache.Cache[model.ExchangeRate]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRatesUpdater creates an updater.
func NewRatesUpdater(source RateSource, rates *cache.Cache[model.ExchangeRate], m *metrics.Metrics, logger *slog.Logger) *RatesUpdater {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatesUpdater{
		source:  source,
		rates:   rates,
		metrics: m,
		logger:  logger,
	}
}

// Update fetches first and swaps the cache only on success, so a failed
// cycle leaves the previous rates in place.
func (u *RatesUpdater) Update(ctx context.Context) error {
	u.logger.Info("updating exchange rates")

	rates, err := u.source.GetExchangeRates(ctx)
	if err != nil {
		u.logger.Error("exchange rate update failed", "err", err)
		u.metrics.RecordFXUpdate(0, err)
		return err
	}

	u.rates.Replace(rates)
	u.metrics.RecordFXUpdate(len(rates), nil)
	u.logger.Info("exchange rates updated", "count", len(rates))
	return nil
}

// USDRate is a midpoint quote from USD into another currency.
type USDRate struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

// USDRates returns midpoints for USD -> each of currencies present in the cache.
// Order follows the cache.
func USDRates(rates *cache.Cache[model.ExchangeRate], currencies []string) []USDRate {
	want := make(map[string]struct{}, len(currencies))
	for _, c := range currencies {
		want[c] = struct{}{}
	}

	out := make([]USDRate, 0, len(currencies))
	for _, r := range rates.Snapshot() {
		if r.From != "USD" {
			continue
		}
		if _, ok := want[r.To]; !ok {
			continue
		}
		out = append(out, USDRate{
			From: r.From,
			To:   r.To,
			Rate: r.Midpoint().InexactFloat64(),
		})
	}
	return out
}
