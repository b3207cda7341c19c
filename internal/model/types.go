package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Securities
// -----------------------------------------------------------------------------

// AssetType classifies a tradable instrument.
type AssetType string

const (
	AssetStock AssetType = "stock"
	AssetETF   AssetType = "etf"
	AssetTrust AssetType = "trust"
	AssetFund  AssetType = "fund"
)

// Security is a tradable instrument as reported by the upstream provider.
type Security struct {
	Symbol    string    `json:"symbol"`    // Primary key (e.g., "AAPL")
	Name      string    `json:"name"`      // Display name
	Price     float64   `json:"price"`     // Latest known price
	Exchange  string    `json:"exchange"`  // Exchange short name (e.g., "NASDAQ")
	AssetType AssetType `json:"assetType"` // stock, etf, ...
}

// -----------------------------------------------------------------------------
// FX
// -----------------------------------------------------------------------------

var two = decimal.NewFromInt(2)

// ExchangeRate is one currency pair snapshot.
type ExchangeRate struct {
	From string          // Base currency (e.g., "USD")
	To   string          // Quote currency (e.g., "EUR")
	Ask  decimal.Decimal // Ask price
	Bid  decimal.Decimal // Bid price
}

// Midpoint returns (bid+ask)/2 rounded to 2 decimal places.
func (r ExchangeRate) Midpoint() decimal.Decimal {
	return r.Bid.Add(r.Ask).Div(two).Round(2)
}

// -----------------------------------------------------------------------------
// Quotes
// -----------------------------------------------------------------------------

// Quotes maps symbol to latest price. It is the payload published on the
// market data channel and the body of every stream frame.
type Quotes map[string]float64

// QuotesOf builds a quote map from securities.
func QuotesOf(securities []Security) Quotes {
	q := make(Quotes, len(securities))
	for _, s := range securities {
		q[s.Symbol] = s.Price
	}
	return q
}

// Filter returns the subset of q whose symbols are in keep.
// The result is never nil, so an empty filter still encodes as {}.
func (q Quotes) Filter(keep map[string]struct{}) Quotes {
	out := make(Quotes, len(keep))
	for symbol, price := range q {
		if _, ok := keep[symbol]; ok {
			out[symbol] = price
		}
	}
	return out
}

// Symbols returns the quote symbols in sorted order.
func (q Quotes) Symbols() []string {
	symbols := make([]string, 0, len(q))
	for s := range q {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
