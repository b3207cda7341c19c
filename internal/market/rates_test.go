package market

import (
	"context"
	"errors"
	"testing"

	"github.com/rickgao/market-data/internal/cache"
	"github.com/rickgao/market-data/internal/model"
	"github.com/shopspring/decimal"
)

type fakeRateSource struct {
	rates []model.ExchangeRate
	err   error
}

func (f *fakeRateSource) GetExchangeRates(ctx context.Context) ([]model.ExchangeRate, error) {
	return f.rates, f.err
}

func rate(from, to, ask, bid string) model.ExchangeRate {
	return model.ExchangeRate{
		From: from,
		To:   to,
		Ask:  decimal.RequireFromString(ask),
		Bid:  decimal.RequireFromString(bid),
	}
}

func TestRatesUpdater_Update(t *testing.T) {
	rates := cache.New[model.ExchangeRate]()
	rates.Add(rate("USD", "CHF", "0.9", "0.9"))

	source := &fakeRateSource{rates: []model.ExchangeRate{
		rate("USD", "EUR", "0.9281", "0.9270"),
		rate("USD", "GBP", "0.7900", "0.7890"),
	}}
	u := NewRatesUpdater(source, rates, nil, nil)

	if err := u.Update(context.Background()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got := rates.Snapshot()
	if len(got) != 2 {
		t.Fatalf("len(rates) = %d, want 2 (old list replaced)", len(got))
	}
	if got[0].To != "EUR" || got[1].To != "GBP" {
		t.Errorf("rates = %+v, want EUR then GBP", got)
	}
}

func TestRatesUpdater_FailureKeepsPreviousRates(t *testing.T) {
	rates := cache.New[model.ExchangeRate]()
	rates.Add(rate("USD", "EUR", "0.9281", "0.9270"))

	u := NewRatesUpdater(&fakeRateSource{err: errors.New("timeout")}, rates, nil, nil)

	if err := u.Update(context.Background()); err == nil {
		t.Fatal("Update() error = nil, want error")
	}
	if rates.Len() != 1 {
		t.Errorf("rates.Len() = %d after failed update, want 1", rates.Len())
	}
}

func TestUSDRates(t *testing.T) {
	rates := cache.New[model.ExchangeRate]()
	rates.AddAll([]model.ExchangeRate{
		rate("USD", "EUR", "0.9281", "0.9270"),
		rate("EUR", "USD", "1.08", "1.07"),
		rate("USD", "GBP", "0.7900", "0.7890"),
		rate("USD", "JPY", "150.20", "150.10"),
	})

	got := USDRates(rates, []string{"EUR", "JPY", "AUD"})
	want := []USDRate{
		{From: "USD", To: "EUR", Rate: 0.93},
		{From: "USD", To: "JPY", Rate: 150.15},
	}

	if len(got) != len(want) {
		t.Fatalf("USDRates() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("USDRates()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
