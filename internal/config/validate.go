package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Upstream.APIKey == "" {
		return errors.New("upstream.api_key is required")
	}
	if c.Upstream.MaxRetries < 0 {
		return errors.New("upstream.max_retries must be >= 0")
	}
	if c.Upstream.RetryBackoff <= 0 {
		return errors.New("upstream.retry_backoff must be > 0")
	}

	switch c.Broker.Driver {
	case "redis":
		if c.Broker.URL == "" {
			return errors.New("broker.url is required for the redis driver")
		}
	case "memory":
	default:
		return fmt.Errorf("broker.driver must be redis or memory, got %q", c.Broker.Driver)
	}
	if c.Broker.BufferSize < 1 {
		return errors.New("broker.buffer_size must be >= 1")
	}

	if c.Schedule.QuoteInterval <= 0 {
		return errors.New("schedule.quote_interval must be > 0")
	}
	if c.Schedule.FXInterval <= 0 {
		return errors.New("schedule.fx_interval must be > 0")
	}
	if c.Schedule.TaskTimeout <= 0 {
		return errors.New("schedule.task_timeout must be > 0")
	}

	if err := c.Market.validate(); err != nil {
		return err
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	return nil
}

func (m *MarketConfig) validate() error {
	open, err := time.Parse("15:04", m.Open)
	if err != nil {
		return fmt.Errorf("market.open must be HH:MM, got %q", m.Open)
	}
	closeAt, err := time.Parse("15:04", m.Close)
	if err != nil {
		return fmt.Errorf("market.close must be HH:MM, got %q", m.Close)
	}
	if !open.Before(closeAt) {
		return fmt.Errorf("market.open (%s) must be before market.close (%s)", m.Open, m.Close)
	}
	if len(m.Exchanges) == 0 {
		return errors.New("market.exchanges must not be empty")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
