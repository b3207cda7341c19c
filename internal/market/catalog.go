package market

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/market-data/internal/api"
	"github.com/rickgao/market-data/internal/cache"
	"github.com/rickgao/market-data/internal/metrics"
)

// DefaultExchanges is the supported-exchange allow-list (US venues only).
var DefaultExchanges = []string{"NYSE", "NASDAQ", "BATS", "CBOE", "AMEX"}

// SecuritySource provides the raw tradable-securities list.
type SecuritySource interface {
	GetTradableSecurities(ctx context.Context) ([]api.TradableSecurity, error)
}

// RefreshStats summarizes one catalog refresh.
type RefreshStats struct {
	Fetched     int
	Accepted    int
	Invalid     int
	Unsupported int
	Duration    time.Duration
}

// CatalogRefresher upserts upstream securities into the catalog.
type CatalogRefresher struct {
	source    SecuritySource
	catalog   *cache.SecurityCatalog
	exchanges map[string]struct{}
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewCatalogRefresher creates a refresher. An empty exchanges list means
// DefaultExchanges.
func NewCatalogRefresher(source SecuritySource, catalog *cache.SecurityCatalog, exchanges []string, m *metrics.Metrics, logger *slog.Logger) *CatalogRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	if len(exchanges) == 0 {
		exchanges = DefaultExchanges
	}

	allowed := make(map[string]struct{}, len(exchanges))
	for _, e := range exchanges {
		allowed[e] = struct{}{}
	}

	return &CatalogRefresher{
		source:    source,
		catalog:   catalog,
		exchanges: allowed,
		metrics:   m,
		logger:    logger,
	}
}

// Refresh fetches the full list and upserts every valid record on a supported
// exchange. On upstream failure the catalog is left untouched.
func (r *CatalogRefresher) Refresh(ctx context.Context) (RefreshStats, error) {
	start := time.Now()

	rows, err := r.source.GetTradableSecurities(ctx)
	if err != nil {
		r.logger.Error("catalog refresh failed", "err", err)
		r.metrics.RecordCatalogRefresh(0, 0, 0, r.catalog.Len(), err)
		return RefreshStats{}, err
	}

	stats := RefreshStats{Fetched: len(rows)}
	for _, row := range rows {
		s, err := row.ToModel()
		if err != nil {
			stats.Invalid++
			continue
		}
		if _, ok := r.exchanges[s.Exchange]; !ok {
			stats.Unsupported++
			continue
		}
		r.catalog.Upsert(s.Symbol, s)
		stats.Accepted++
	}
	stats.Duration = time.Since(start)

	r.metrics.RecordCatalogRefresh(stats.Accepted, stats.Invalid, stats.Unsupported, r.catalog.Len(), nil)
	r.logger.Info("catalog refresh complete",
		"fetched", stats.Fetched,
		"updated", stats.Accepted,
		"invalid", stats.Invalid,
		"unsupported_exchange", stats.Unsupported,
		"duration", stats.Duration,
	)

	return stats, nil
}
