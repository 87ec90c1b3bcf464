package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedURL           = "ws://localhost:5000/ws"
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHeartbeatTimeout  = 10 * time.Second
	DefaultBackoffInitial    = 1 * time.Second
	DefaultBackoffMax        = 60 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultFrameBufferSize   = 1024
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultCatalogTimeout    = 10 * time.Second
	DefaultMirrorAddr        = "localhost:6379"
	DefaultMirrorKeyPrefix   = "quote:"
	DefaultMirrorChannel     = "prices."
	DefaultMirrorBatchSize   = 100
	DefaultMirrorFlush       = 250 * time.Millisecond
	DefaultMirrorBufferSize  = 1000
	DefaultStatusPort        = 8080
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.HeartbeatInterval == 0 {
		c.Feed.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Feed.HeartbeatTimeout == 0 {
		c.Feed.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.Feed.BackoffInitial == 0 {
		c.Feed.BackoffInitial = DefaultBackoffInitial
	}
	if c.Feed.BackoffMax == 0 {
		c.Feed.BackoffMax = DefaultBackoffMax
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.FrameBufferSize == 0 {
		c.Feed.FrameBufferSize = DefaultFrameBufferSize
	}

	// Catalog defaults
	applyDBDefaults(&c.Catalog.Database)
	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = DefaultCatalogTimeout
	}

	// Mirror defaults
	if c.Mirror.Addr == "" {
		c.Mirror.Addr = DefaultMirrorAddr
	}
	if c.Mirror.KeyPrefix == "" {
		c.Mirror.KeyPrefix = DefaultMirrorKeyPrefix
	}
	if c.Mirror.ChannelPrefix == "" {
		c.Mirror.ChannelPrefix = DefaultMirrorChannel
	}
	if c.Mirror.BatchSize == 0 {
		c.Mirror.BatchSize = DefaultMirrorBatchSize
	}
	if c.Mirror.FlushInterval == 0 {
		c.Mirror.FlushInterval = DefaultMirrorFlush
	}
	if c.Mirror.BufferSize == 0 {
		c.Mirror.BufferSize = DefaultMirrorBufferSize
	}

	// Status defaults
	if c.Status.Port == 0 {
		c.Status.Port = DefaultStatusPort
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
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
