package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
feed:
  url: wss://feed.example.com/ws
  heartbeat_interval: 15s
  heartbeat_timeout: 5s
  backoff_initial: 500ms
  backoff_max: 30s
subscriptions:
  symbols: [EURUSD, XAUUSD, BTCUSD]
instruments:
  - symbol: NAS100
    name: Nasdaq 100
    contract_multiplier: "1"
    display_decimals: 1
mirror:
  enabled: true
  addr: redis:6379
log:
  level: debug
  format: json
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.URL != "wss://feed.example.com/ws" {
		t.Errorf("Feed.URL = %q, want %q", cfg.Feed.URL, "wss://feed.example.com/ws")
	}
	if cfg.Feed.HeartbeatInterval != 15*time.Second {
		t.Errorf("Feed.HeartbeatInterval = %v, want 15s", cfg.Feed.HeartbeatInterval)
	}
	if cfg.Feed.BackoffInitial != 500*time.Millisecond {
		t.Errorf("Feed.BackoffInitial = %v, want 500ms", cfg.Feed.BackoffInitial)
	}
	if strings.Join(cfg.Subscriptions.Symbols, ",") != "EURUSD,XAUUSD,BTCUSD" {
		t.Errorf("Subscriptions.Symbols = %v", cfg.Subscriptions.Symbols)
	}
	if len(cfg.Instruments) != 1 {
		t.Fatalf("len(Instruments) = %d, want 1", len(cfg.Instruments))
	}
	inst := cfg.Instruments[0]
	if inst.Symbol != "NAS100" || inst.ContractMultiplier != "1" {
		t.Errorf("Instruments[0] = %+v", inst)
	}
	if inst.DisplayDecimals == nil || *inst.DisplayDecimals != 1 {
		t.Errorf("Instruments[0].DisplayDecimals = %v, want 1", inst.DisplayDecimals)
	}
	if !cfg.Mirror.Enabled || cfg.Mirror.Addr != "redis:6379" {
		t.Errorf("Mirror = %+v", cfg.Mirror)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FEED_URL", "ws://10.0.0.5:5000/ws")
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
feed:
  url: ${TEST_FEED_URL}
catalog:
  enabled: true
  database:
    host: localhost
    name: trading
    user: trader
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.URL != "ws://10.0.0.5:5000/ws" {
		t.Errorf("Feed.URL = %q", cfg.Feed.URL)
	}
	if cfg.Catalog.Database.Password != "secret123" {
		t.Errorf("Catalog.Database.Password = %q, want %q", cfg.Catalog.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
subscriptions:
  symbols: [EURUSD]
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Feed.URL != DefaultFeedURL {
		t.Errorf("Feed.URL = %q, want default %q", cfg.Feed.URL, DefaultFeedURL)
	}
	if cfg.Feed.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Errorf("Feed.HeartbeatInterval = %v, want default %v", cfg.Feed.HeartbeatInterval, DefaultHeartbeatInterval)
	}
	if cfg.Feed.HeartbeatTimeout != DefaultHeartbeatTimeout {
		t.Errorf("Feed.HeartbeatTimeout = %v, want default %v", cfg.Feed.HeartbeatTimeout, DefaultHeartbeatTimeout)
	}
	if cfg.Feed.BackoffMax != DefaultBackoffMax {
		t.Errorf("Feed.BackoffMax = %v, want default %v", cfg.Feed.BackoffMax, DefaultBackoffMax)
	}
	if cfg.Catalog.Database.Port != DefaultDBPort {
		t.Errorf("Catalog.Database.Port = %d, want default %d", cfg.Catalog.Database.Port, DefaultDBPort)
	}
	if cfg.Mirror.KeyPrefix != DefaultMirrorKeyPrefix {
		t.Errorf("Mirror.KeyPrefix = %q, want default %q", cfg.Mirror.KeyPrefix, DefaultMirrorKeyPrefix)
	}
	if cfg.Status.Port != DefaultStatusPort {
		t.Errorf("Status.Port = %d, want default %d", cfg.Status.Port, DefaultStatusPort)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v, want defaults", cfg.Log)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "feed:\n  backoff_initial: 10s\n  backoff_max: 1s\n")

	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.HasPrefix(err.Error(), "validate config: ") {
		t.Errorf("error = %q, want validate prefix", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("feed: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseUnknownKey(t *testing.T) {
	_, err := Parse([]byte("feed:\n  heartbeat_intervall: 5s\n"))
	if err == nil || !strings.Contains(err.Error(), "heartbeat_intervall") {
		t.Errorf("expected unknown field error, got %v", err)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("empty config should parse: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults alone should validate: %v", err)
	}
}

func validConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	negative := int32(-1)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing feed url",
			mutate:  func(c *Config) { c.Feed.URL = "" },
			wantErr: "feed.url is required",
		},
		{
			name:    "zero heartbeat interval",
			mutate:  func(c *Config) { c.Feed.HeartbeatInterval = 0 },
			wantErr: "feed.heartbeat_interval must be > 0",
		},
		{
			name: "backoff max below initial",
			mutate: func(c *Config) {
				c.Feed.BackoffInitial = 10 * time.Second
				c.Feed.BackoffMax = time.Second
			},
			wantErr: "feed.backoff_max (1s) cannot be less than backoff_initial (10s)",
		},
		{
			name:    "empty symbol",
			mutate:  func(c *Config) { c.Subscriptions.Symbols = []string{"EURUSD", " "} },
			wantErr: "subscriptions.symbols[1] is empty",
		},
		{
			name:    "instrument without symbol",
			mutate:  func(c *Config) { c.Instruments = []InstrumentConfig{{Name: "x"}} },
			wantErr: "instruments[0].symbol is required",
		},
		{
			name: "instrument zero multiplier",
			mutate: func(c *Config) {
				c.Instruments = []InstrumentConfig{{Symbol: "X", ContractMultiplier: "0"}}
			},
			wantErr: "instruments[0].contract_multiplier must be > 0",
		},
		{
			name: "instrument negative decimals",
			mutate: func(c *Config) {
				c.Instruments = []InstrumentConfig{{Symbol: "X", DisplayDecimals: &negative}}
			},
			wantErr: "instruments[0].display_decimals must be between 0 and 10",
		},
		{
			name:    "catalog enabled without host",
			mutate:  func(c *Config) { c.Catalog.Enabled = true },
			wantErr: "catalog.database.host is required",
		},
		{
			name: "catalog min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Catalog.Enabled = true
				c.Catalog.Database = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 2, MinConns: 5}
			},
			wantErr: "catalog.database.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name: "status port out of range",
			mutate: func(c *Config) {
				c.Status.Enabled = true
				c.Status.Port = 70000
			},
			wantErr: "status.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: `log.level must be one of debug, info, warn, error, got "trace"`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("FEED_URL", "")

	cfg, err := LoadAndValidate(filepath.Join("..", "..", "configs", "feedclient.example.yaml"))
	if err != nil {
		t.Fatalf("example config should validate: %v", err)
	}

	if cfg.Feed.URL != DefaultFeedURL {
		t.Errorf("Feed.URL = %q, want default %q", cfg.Feed.URL, DefaultFeedURL)
	}
	if len(cfg.Subscriptions.Symbols) == 0 {
		t.Error("example config should subscribe to some symbols")
	}
	if cfg.Catalog.Enabled || cfg.Mirror.Enabled {
		t.Error("optional integrations should be disabled in the example")
	}
}
