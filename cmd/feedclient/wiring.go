package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/pricestream/internal/catalog"
	"github.com/rickgao/pricestream/internal/config"
	"github.com/rickgao/pricestream/internal/connection"
	"github.com/rickgao/pricestream/internal/feed"
	"github.com/rickgao/pricestream/internal/instrument"
	"github.com/rickgao/pricestream/internal/mirror"
	"github.com/rickgao/pricestream/internal/pricetable"
)

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// feedConfig maps the YAML feed section onto the client configuration.
func feedConfig(cfg *config.Config) feed.Config {
	conn := connection.DefaultConfig()
	conn.URL = cfg.Feed.URL
	conn.Secure = cfg.Feed.Secure
	conn.HeartbeatInterval = cfg.Feed.HeartbeatInterval
	conn.HeartbeatTimeout = cfg.Feed.HeartbeatTimeout
	conn.BackoffInitial = cfg.Feed.BackoffInitial
	conn.BackoffMax = cfg.Feed.BackoffMax
	conn.HandshakeTimeout = cfg.Feed.HandshakeTimeout
	conn.WriteTimeout = cfg.Feed.WriteTimeout
	conn.FrameBufferSize = cfg.Feed.FrameBufferSize

	return feed.Config{
		Connection: conn,
		Symbols:    cfg.Subscriptions.Symbols,
	}
}

// mirrorConfig maps the YAML mirror section onto the publisher configuration.
func mirrorConfig(cfg config.MirrorConfig) mirror.Config {
	return mirror.Config{
		KeyPrefix:     cfg.KeyPrefix,
		ChannelPrefix: cfg.ChannelPrefix,
		TTL:           cfg.TTL,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		BufferSize:    cfg.BufferSize,
	}
}

// instrumentOverrides converts configured instruments. A missing multiplier
// or precision keeps the builtin value.
func instrumentOverrides(items []config.InstrumentConfig) ([]instrument.Instrument, error) {
	result := make([]instrument.Instrument, 0, len(items))
	for _, item := range items {
		inst := instrument.Instrument{
			Symbol:          instrument.Normalize(item.Symbol),
			Name:            item.Name,
			DisplayDecimals: -1,
		}
		if item.ContractMultiplier != "" {
			m, err := decimal.NewFromString(item.ContractMultiplier)
			if err != nil {
				return nil, fmt.Errorf("instrument %s: contract_multiplier: %w", item.Symbol, err)
			}
			inst.ContractMultiplier = m
		}
		if item.DisplayDecimals != nil {
			inst.DisplayDecimals = *item.DisplayDecimals
		}
		result = append(result, inst)
	}
	return result, nil
}

// loadCatalog reads instrument names and last-known quotes from Postgres.
// Config overrides are applied after catalog entries.
func loadCatalog(ctx context.Context, db catalog.Querier, timeout time.Duration, logger *slog.Logger) ([]instrument.Instrument, []pricetable.Quote, error) {
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries, err := catalog.New(db, logger).Load(loadCtx)
	if err != nil {
		return nil, nil, err
	}
	return catalog.Instruments(entries), catalog.SeedQuotes(entries, time.Now()), nil
}
