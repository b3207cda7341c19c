// Package market holds the refresh logic behind the caches: the trading-hours
// gate, the security catalog refresh and the FX rate update.
package market
