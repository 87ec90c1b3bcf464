package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStopped          = errors.New("connection manager stopped")
	ErrHeartbeatTimeout = errors.New("heartbeat timeout (no pong)")
)

// TransportError reports a failed dial, read or write. It always leads to a
// reconnect and is never fatal to the caller.
type TransportError struct {
	Op  string // "dial", "read", "write", "heartbeat"
	Err error
}

func (e *TransportError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}

// Frame is one inbound message.
type Frame struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
	SessionID  string    // Connection session the frame arrived on
}

// Status is a point-in-time view of the manager.
type Status struct {
	State       State
	SessionID   string        // Empty when not connected
	ConnectedAt time.Time     // Zero when not connected
	Attempt     int           // Consecutive failed attempts (0 while connected)
	NextRetry   time.Duration // Backoff before the next attempt, when reconnecting
	LastError   string
}

// Reconnecting reports whether the manager is waiting out a backoff delay.
func (s Status) Reconnecting() bool {
	return s.State == StateDisconnected && s.Attempt > 0
}

// Config configures the Connection Manager.
type Config struct {
	URL               string        // ws://, wss://, http:// or https:// endpoint
	Secure            bool          // Force wss:// regardless of the URL scheme
	HeartbeatInterval time.Duration // How often to send a ping
	HeartbeatTimeout  time.Duration // How long to wait for the pong
	BackoffInitial    time.Duration // First reconnect delay
	BackoffMax        time.Duration // Reconnect delay cap
	HandshakeTimeout  time.Duration // WebSocket handshake deadline
	WriteTimeout      time.Duration // Write deadline for sends
	FrameBufferSize   int           // Inbound frame channel buffer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		HeartbeatTimeout:  10 * time.Second,
		BackoffInitial:    1 * time.Second,
		BackoffMax:        60 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		FrameBufferSize:   1024,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = d.HeartbeatTimeout
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = d.BackoffInitial
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = d.BackoffMax
	}
	if c.BackoffMax < c.BackoffInitial {
		c.BackoffMax = c.BackoffInitial
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.FrameBufferSize <= 0 {
		c.FrameBufferSize = d.FrameBufferSize
	}
	return c
}

// Backoff returns the delay before reconnect attempt n (1-based):
// initial * 2^(n-1), capped at max.
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := initial
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= max || wait <= 0 {
			return max
		}
	}
	if wait > max {
		return max
	}
	return wait
}
