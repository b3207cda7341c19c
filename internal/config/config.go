package config

import "time"

// Config is the root configuration for a market data fetcher instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Broker   BrokerConfig   `yaml:"broker"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Market   MarketConfig   `yaml:"market"`
	Database DBConfig       `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// HTTPConfig holds the REST/streaming server settings.
type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	Mode              string        `yaml:"mode"` // gin mode: release, debug, test
}

// UpstreamConfig holds market data provider settings.
type UpstreamConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// BrokerConfig holds pub/sub settings.
type BrokerConfig struct {
	Driver      string        `yaml:"driver"` // redis or memory
	URL         string        `yaml:"url"`    // redis://[:password@]host:port/db
	Channel     string        `yaml:"channel"`
	BufferSize  int           `yaml:"buffer_size"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
}

// ScheduleConfig holds the periodic task intervals.
type ScheduleConfig struct {
	QuoteInterval time.Duration `yaml:"quote_interval"`
	FXInterval    time.Duration `yaml:"fx_interval"`
	TaskTimeout   time.Duration `yaml:"task_timeout"`
}

// MarketConfig holds trading hours (UTC, "HH:MM") and the exchange allow-list.
type MarketConfig struct {
	Open      string   `yaml:"open"`
	Close     string   `yaml:"close"`
	Exchanges []string `yaml:"exchanges"`
}

// DBConfig holds the optional catalog database. Persistence is disabled
// when Host is empty.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a database is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // optional rotating log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// IsEnabled reports whether metrics are exposed. Unset means enabled.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}
