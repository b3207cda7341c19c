// Package api provides the REST client for the Financial Modeling Prep
// market data provider.
//
// REST endpoints (relative to the v3 base URL):
//   - /available-traded/list: every tradable security with its last price
//   - /fx: bid/ask quotes for currency pairs ("EUR/USD")
//
// The API key travels as the apikey query parameter on every request.
package api
