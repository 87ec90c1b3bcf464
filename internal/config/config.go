package config

import "time"

// Config is the top-level configuration of the feed client.
type Config struct {
	Feed          FeedConfig          `yaml:"feed"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	Instruments   []InstrumentConfig  `yaml:"instruments"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Mirror        MirrorConfig        `yaml:"mirror"`
	Status        StatusConfig        `yaml:"status"`
	Log           LogConfig           `yaml:"log"`
}

// FeedConfig holds the upstream connection settings.
type FeedConfig struct {
	URL               string        `yaml:"url"`
	Secure            bool          `yaml:"secure"` // Force wss://
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `yaml:"heartbeat_timeout"`
	BackoffInitial    time.Duration `yaml:"backoff_initial"`
	BackoffMax        time.Duration `yaml:"backoff_max"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	FrameBufferSize   int           `yaml:"frame_buffer_size"`
}

// SubscriptionsConfig lists the symbols subscribed at start-up.
type SubscriptionsConfig struct {
	Symbols []string `yaml:"symbols"`
}

// InstrumentConfig adds or overrides an instrument. Unset fields keep the
// built-in value.
type InstrumentConfig struct {
	Symbol             string `yaml:"symbol"`
	Name               string `yaml:"name"`
	ContractMultiplier string `yaml:"contract_multiplier"` // Decimal text, e.g. "100000"
	DisplayDecimals    *int32 `yaml:"display_decimals"`
}

// CatalogConfig enables loading instrument names and seed quotes from Postgres.
type CatalogConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Database DBConfig      `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DBConfig holds connection settings for a single database.
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

// MirrorConfig enables publishing quotes to Redis.
type MirrorConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	KeyPrefix     string        `yaml:"key_prefix"`     // Latest quote: <prefix><SYMBOL>
	ChannelPrefix string        `yaml:"channel_prefix"` // Pub/sub: <prefix><SYMBOL>
	TTL           time.Duration `yaml:"ttl"`            // 0 = no expiry
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// StatusConfig configures the HTTP status API.
type StatusConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
