package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/pricestream/internal/config"
	"github.com/rickgao/pricestream/internal/instrument"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("expected JSON output, got %s", out)
	}

	buf.Reset()
	newLogger(config.LogConfig{Level: "debug", Format: "text"}, &buf).Debug("dbg")
	if !strings.Contains(buf.String(), "msg=dbg") {
		t.Errorf("expected text output, got %s", buf.String())
	}
}

func TestFeedConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Feed.URL = "https://feed.example.com/ws"
	cfg.Feed.Secure = true
	cfg.Feed.HeartbeatInterval = 15 * time.Second
	cfg.Feed.BackoffMax = 2 * time.Minute
	cfg.Subscriptions.Symbols = []string{"EURUSD", "XAUUSD"}

	fc := feedConfig(cfg)

	if fc.Connection.URL != cfg.Feed.URL || !fc.Connection.Secure {
		t.Errorf("url/secure not mapped: %+v", fc.Connection)
	}
	if fc.Connection.HeartbeatInterval != 15*time.Second || fc.Connection.BackoffMax != 2*time.Minute {
		t.Errorf("timings not mapped: %+v", fc.Connection)
	}
	if len(fc.Symbols) != 2 {
		t.Errorf("Symbols = %v", fc.Symbols)
	}
}

func TestMirrorConfig(t *testing.T) {
	mc := mirrorConfig(config.MirrorConfig{
		KeyPrefix:     "q:",
		ChannelPrefix: "p.",
		TTL:           time.Hour,
		BatchSize:     50,
		FlushInterval: time.Second,
		BufferSize:    10,
	})

	if mc.KeyPrefix != "q:" || mc.ChannelPrefix != "p." || mc.TTL != time.Hour || mc.BatchSize != 50 {
		t.Errorf("unexpected mirror config: %+v", mc)
	}
}

func TestInstrumentOverrides(t *testing.T) {
	two := int32(2)
	items := []config.InstrumentConfig{
		{Symbol: "us30", Name: "Wall Street 30", ContractMultiplier: "1", DisplayDecimals: &two},
		{Symbol: "EURUSD", Name: "Euro"},
	}

	got, err := instrumentOverrides(items)
	if err != nil {
		t.Fatalf("instrumentOverrides: %v", err)
	}

	reg := instrument.New(got...)

	us30, ok := reg.Lookup("US30")
	if !ok {
		t.Fatal("US30 not registered")
	}
	if us30.Name != "Wall Street 30" || us30.ContractMultiplier.IntPart() != 1 || us30.DisplayDecimals != 2 {
		t.Errorf("unexpected US30: %+v", us30)
	}

	eur, _ := reg.Lookup("EURUSD")
	if eur.Name != "Euro" || eur.DisplayDecimals != 5 || eur.ContractMultiplier.IntPart() != 100000 {
		t.Errorf("EURUSD should keep builtin multiplier and precision: %+v", eur)
	}
}

func TestInstrumentOverrides_BadMultiplier(t *testing.T) {
	_, err := instrumentOverrides([]config.InstrumentConfig{{Symbol: "X", ContractMultiplier: "lots"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

type failingQuerier struct{}

func (failingQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("connection refused")
}

func TestLoadCatalog_Error(t *testing.T) {
	_, _, err := loadCatalog(context.Background(), failingQuerier{}, time.Second, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}
