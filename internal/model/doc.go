// Package model defines shared data types used across the market data service.
//
// Conventions:
//   - Symbols: upstream ticker strings, used verbatim as map keys
//   - Security prices: float64, serialized as JSON numbers
//   - FX prices: decimal.Decimal, midpoint rounded to 2 places
package model
