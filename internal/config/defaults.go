package config

import (
	"slices"
	"time"

	"github.com/rickgao/market-data/internal/market"
)

// Default values for optional configuration fields.
const (
	DefaultHTTPAddr          = ":5000"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultHTTPMode          = "release"
	DefaultUpstreamURL       = "https://financialmodelingprep.com/api/v3"
	DefaultUpstreamTimeout   = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryBackoff      = 1 * time.Second
	DefaultBrokerDriver      = "redis"
	DefaultBrokerChannel     = "market-data-channel"
	DefaultBrokerBufferSize  = 64
	DefaultBrokerPingTimeout = 5 * time.Second
	DefaultQuoteInterval     = 120 * time.Second
	DefaultFXInterval        = 24 * time.Hour
	DefaultTaskTimeout       = 60 * time.Second
	DefaultMarketOpen        = "14:30"
	DefaultMarketClose       = "21:00"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultLogMaxSizeMB      = 100
	DefaultLogMaxBackups     = 5
	DefaultLogMaxAgeDays     = 28
	DefaultMetricsPath       = "/metrics"
)

func (c *Config) applyDefaults() {
	// HTTP defaults
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.HTTP.Mode == "" {
		c.HTTP.Mode = DefaultHTTPMode
	}

	// Upstream defaults
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultUpstreamURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if c.Upstream.MaxRetries == 0 {
		c.Upstream.MaxRetries = DefaultMaxRetries
	}
	if c.Upstream.RetryBackoff == 0 {
		c.Upstream.RetryBackoff = DefaultRetryBackoff
	}

	// Broker defaults
	if c.Broker.Driver == "" {
		c.Broker.Driver = DefaultBrokerDriver
	}
	if c.Broker.Channel == "" {
		c.Broker.Channel = DefaultBrokerChannel
	}
	if c.Broker.BufferSize == 0 {
		c.Broker.BufferSize = DefaultBrokerBufferSize
	}
	if c.Broker.PingTimeout == 0 {
		c.Broker.PingTimeout = DefaultBrokerPingTimeout
	}

	// Schedule defaults
	if c.Schedule.QuoteInterval == 0 {
		c.Schedule.QuoteInterval = DefaultQuoteInterval
	}
	if c.Schedule.FXInterval == 0 {
		c.Schedule.FXInterval = DefaultFXInterval
	}
	if c.Schedule.TaskTimeout == 0 {
		c.Schedule.TaskTimeout = DefaultTaskTimeout
	}

	// Market defaults
	if c.Market.Open == "" {
		c.Market.Open = DefaultMarketOpen
	}
	if c.Market.Close == "" {
		c.Market.Close = DefaultMarketClose
	}
	if len(c.Market.Exchanges) == 0 {
		c.Market.Exchanges = slices.Clone(market.DefaultExchanges)
	}

	// Database defaults, only when persistence is enabled
	if c.Database.Enabled() {
		applyDBDefaults(&c.Database)
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
