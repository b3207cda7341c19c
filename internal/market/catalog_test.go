package market

import (
	"context"
	"errors"
	"testing"

	"github.com/rickgao/market-data/internal/api"
	"github.com/rickgao/market-data/internal/cache"
	"github.com/rickgao/market-data/internal/metrics"
	"github.com/rickgao/market-data/internal/model"
)

type fakeSecuritySource struct {
	rows  []api.TradableSecurity
	err   error
	calls int
}

func (f *fakeSecuritySource) GetTradableSecurities(ctx context.Context) ([]api.TradableSecurity, error) {
	f.calls++
	return f.rows, f.err
}

func row(symbol, name string, price float64, exchange, typ string) api.TradableSecurity {
	return api.TradableSecurity{
		Symbol:            &symbol,
		Name:              &name,
		Price:             &price,
		ExchangeShortName: &exchange,
		Type:              &typ,
	}
}

func TestCatalogRefresher_Refresh(t *testing.T) {
	missingPrice := row("BAD", "No Price", 0, "NYSE", "stock")
	missingPrice.Price = nil

	source := &fakeSecuritySource{rows: []api.TradableSecurity{
		row("AAPL", "Apple Inc.", 150, "NASDAQ", "stock"),
		row("SPY", "SPDR S&P 500", 450, "AMEX", "etf"),
		row("VOD.L", "Vodafone", 70, "LSE", "stock"),
		missingPrice,
	}}
	catalog := cache.NewSecurityCatalog()
	r := NewCatalogRefresher(source, catalog, nil, metrics.New(), nil)

	stats, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if stats.Fetched != 4 || stats.Accepted != 2 || stats.Invalid != 1 || stats.Unsupported != 1 {
		t.Errorf("stats = %+v, want fetched=4 accepted=2 invalid=1 unsupported=1", stats)
	}
	if catalog.Len() != 2 {
		t.Errorf("catalog.Len() = %d, want 2", catalog.Len())
	}
	if catalog.Has("VOD.L") {
		t.Error("unsupported exchange admitted into catalog")
	}
	if catalog.Has("BAD") {
		t.Error("record with missing field admitted into catalog")
	}

	got, err := catalog.Get("SPY")
	if err != nil {
		t.Fatalf("Get(SPY) error = %v", err)
	}
	if got.AssetType != model.AssetETF {
		t.Errorf("SPY AssetType = %q, want %q", got.AssetType, model.AssetETF)
	}
}

func TestCatalogRefresher_CustomExchanges(t *testing.T) {
	source := &fakeSecuritySource{rows: []api.TradableSecurity{
		row("AAPL", "Apple Inc.", 150, "NASDAQ", "stock"),
		row("IBM", "IBM", 180, "NYSE", "stock"),
	}}
	catalog := cache.NewSecurityCatalog()
	r := NewCatalogRefresher(source, catalog, []string{"NYSE"}, nil, nil)

	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if catalog.Has("AAPL") || !catalog.Has("IBM") {
		t.Errorf("catalog = %+v, want only IBM", catalog.GetAll())
	}
}

func TestCatalogRefresher_UpstreamFailureKeepsCatalog(t *testing.T) {
	catalog := cache.NewSecurityCatalog()
	catalog.Upsert("AAPL", model.Security{Symbol: "AAPL", Price: 149})

	source := &fakeSecuritySource{err: api.ErrUnavailable}
	r := NewCatalogRefresher(source, catalog, nil, nil, nil)

	_, err := r.Refresh(context.Background())
	if !errors.Is(err, api.ErrUnavailable) {
		t.Fatalf("Refresh() error = %v, want ErrUnavailable", err)
	}

	got, _ := catalog.Get("AAPL")
	if got.Price != 149 {
		t.Errorf("stale entry changed: Price = %v, want 149", got.Price)
	}
}

func TestCatalogRefresher_OverwritesExisting(t *testing.T) {
	catalog := cache.NewSecurityCatalog()
	catalog.Upsert("AAPL", model.Security{Symbol: "AAPL", Price: 149})

	source := &fakeSecuritySource{rows: []api.TradableSecurity{
		row("AAPL", "Apple Inc.", 151, "NASDAQ", "stock"),
	}}
	r := NewCatalogRefresher(source, catalog, nil, nil, nil)

	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	got, _ := catalog.Get("AAPL")
	if got.Price != 151 || got.Name != "Apple Inc." {
		t.Errorf("Get(AAPL) = %+v, want refreshed record", got)
	}
}
