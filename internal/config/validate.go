package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}
	if c.Feed.HeartbeatInterval <= 0 {
		return errors.New("feed.heartbeat_interval must be > 0")
	}
	if c.Feed.HeartbeatTimeout <= 0 {
		return errors.New("feed.heartbeat_timeout must be > 0")
	}
	if c.Feed.BackoffInitial <= 0 {
		return errors.New("feed.backoff_initial must be > 0")
	}
	if c.Feed.BackoffMax < c.Feed.BackoffInitial {
		return fmt.Errorf("feed.backoff_max (%s) cannot be less than backoff_initial (%s)", c.Feed.BackoffMax, c.Feed.BackoffInitial)
	}

	for i, s := range c.Subscriptions.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("subscriptions.symbols[%d] is empty", i)
		}
	}

	for i, inst := range c.Instruments {
		if err := inst.validate(fmt.Sprintf("instruments[%d]", i)); err != nil {
			return err
		}
	}

	if c.Catalog.Enabled {
		if err := c.Catalog.Database.validate("catalog.database"); err != nil {
			return err
		}
	}

	if c.Mirror.Enabled {
		if c.Mirror.Addr == "" {
			return errors.New("mirror.addr is required")
		}
		if c.Mirror.BatchSize < 1 {
			return errors.New("mirror.batch_size must be >= 1")
		}
		if c.Mirror.BufferSize < 1 {
			return errors.New("mirror.buffer_size must be >= 1")
		}
	}

	if c.Status.Enabled && (c.Status.Port < 1 || c.Status.Port > 65535) {
		return fmt.Errorf("status.port must be between 1 and 65535, got %d", c.Status.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (i *InstrumentConfig) validate(prefix string) error {
	if strings.TrimSpace(i.Symbol) == "" {
		return fmt.Errorf("%s.symbol is required", prefix)
	}
	if i.ContractMultiplier != "" {
		m, err := decimal.NewFromString(i.ContractMultiplier)
		if err != nil {
			return fmt.Errorf("%s.contract_multiplier: %w", prefix, err)
		}
		if !m.IsPositive() {
			return fmt.Errorf("%s.contract_multiplier must be > 0", prefix)
		}
	}
	if i.DisplayDecimals != nil && (*i.DisplayDecimals < 0 || *i.DisplayDecimals > 10) {
		return fmt.Errorf("%s.display_decimals must be between 0 and 10", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
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
