package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/pricestream/internal/protocol"
)

// Manager owns the feed connection and its lifecycle.
type Manager interface {
	// Start begins connecting in the background. Calling it again while
	// connecting or connected is a no-op. Returns ErrStopped after Stop.
	Start(ctx context.Context) error

	// Stop closes the connection and cancels any pending reconnect and
	// keepalive timers. No observer is called after Stop returns.
	//
	// Observers run on the loop Stop waits for, so an observer must not call
	// Stop directly: it would block until ctx expires. Call it from a new
	// goroutine instead.
	Stop(ctx context.Context) error

	// Send writes a frame. Returns ErrNotConnected (frame dropped) unless
	// the state is Connected.
	Send(data []byte) error

	// IsConnected reports whether the state is Connected.
	IsConnected() bool

	// State returns the current lifecycle state.
	State() State

	// Status returns a snapshot including backoff progress.
	Status() Status

	// OnStateChange registers an observer for state transitions.
	OnStateChange(fn func(State))

	// OnFrame registers an observer for inbound frames.
	OnFrame(fn func(Frame))

	// OnError registers an observer for transport failures.
	OnError(fn func(error))

	// OnConnected registers a hook run after every transition to Connected.
	// The Subscription Registry binds its replay here.
	OnConnected(fn func())
}

// observers holds registered callbacks. All of them are invoked on the run
// loop goroutine, one event at a time.
type observers struct {
	mu        sync.RWMutex
	state     []func(State)
	frame     []func(Frame)
	errs      []func(error)
	connected []func()
}

// manager implements the Manager interface.
type manager struct {
	cfg    Config
	dialer Dialer
	logger *slog.Logger

	obs observers

	// Lifecycle
	mu      sync.RWMutex
	url     string
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Connection state (guarded by mu)
	state       State
	conn        Conn
	sessionID   string
	connectedAt time.Time
	attempt     int
	nextRetry   time.Duration
	lastErr     error
}

// NewManager creates a Connection Manager. A nil dialer means the
// gorilla/websocket dialer configured from cfg.
func NewManager(cfg Config, dialer Dialer, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if dialer == nil {
		dialer = NewWebSocketDialer(cfg)
	}

	return &manager{
		cfg:    cfg,
		dialer: dialer,
		logger: logger,
		state:  StateDisconnected,
	}
}

// Start begins the connect loop.
func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrStopped
	}
	if m.started {
		return nil
	}

	url, err := ResolveURL(m.cfg.URL, m.cfg.Secure)
	if err != nil {
		return fmt.Errorf("resolve feed url: %w", err)
	}
	m.url = url

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.started = true

	go m.run(runCtx)

	m.logger.Info("connection manager started",
		"url", m.url,
		"heartbeat_interval", m.cfg.HeartbeatInterval,
		"heartbeat_timeout", m.cfg.HeartbeatTimeout,
	)

	return nil
}

// Stop gracefully shuts down.
func (m *manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	started := m.started
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if !started {
		return nil
	}

	m.logger.Info("stopping connection manager")
	cancel()

	// Wait for the run loop: its exit stops every timer and closes the conn.
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("connection manager stop timed out")
		return ctx.Err()
	}

	m.logger.Info("connection manager stopped")
	return nil
}

// Send writes a frame on the current connection.
func (m *manager) Send(data []byte) error {
	m.mu.RLock()
	conn := m.conn
	state := m.state
	stopped := m.stopped
	m.mu.RUnlock()

	if stopped {
		return ErrStopped
	}
	if conn == nil || state != StateConnected {
		return ErrNotConnected
	}

	if err := conn.WriteMessage(data); err != nil {
		// Closing makes the reader fail, which drives the reconnect.
		conn.Close()
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// IsConnected returns the current connection state.
func (m *manager) IsConnected() bool {
	return m.State() == StateConnected
}

// State returns the lifecycle state.
func (m *manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status returns a snapshot of the manager.
func (m *manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		State:       m.state,
		SessionID:   m.sessionID,
		ConnectedAt: m.connectedAt,
		Attempt:     m.attempt,
		NextRetry:   m.nextRetry,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

func (m *manager) OnStateChange(fn func(State)) {
	m.obs.mu.Lock()
	defer m.obs.mu.Unlock()
	m.obs.state = append(m.obs.state, fn)
}

func (m *manager) OnFrame(fn func(Frame)) {
	m.obs.mu.Lock()
	defer m.obs.mu.Unlock()
	m.obs.frame = append(m.obs.frame, fn)
}

func (m *manager) OnError(fn func(error)) {
	m.obs.mu.Lock()
	defer m.obs.mu.Unlock()
	m.obs.errs = append(m.obs.errs, fn)
}

func (m *manager) OnConnected(fn func()) {
	m.obs.mu.Lock()
	defer m.obs.mu.Unlock()
	m.obs.connected = append(m.obs.connected, fn)
}

// run is the single goroutine that owns connection state. It dials, runs a
// session until it fails, then waits out the backoff and tries again.
func (m *manager) run(ctx context.Context) {
	defer close(m.done)
	defer m.setState(StateDisconnected)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		m.setState(StateConnecting)

		conn, err := m.dialer.Dial(ctx, m.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.fail(&TransportError{Op: "dial", Err: err})
		} else {
			attempt = 0
			err = m.session(ctx, conn)
			if ctx.Err() != nil {
				return
			}
			m.fail(err)
		}

		attempt++
		wait := Backoff(attempt, m.cfg.BackoffInitial, m.cfg.BackoffMax)

		m.mu.Lock()
		m.attempt = attempt
		m.nextRetry = wait
		m.mu.Unlock()

		m.logger.Info("scheduling reconnect",
			"attempt", attempt,
			"wait", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session services one live connection until it fails or ctx is cancelled.
// It returns nil only on cancellation.
func (m *manager) session(ctx context.Context, conn Conn) error {
	sessionID := uuid.NewString()
	logger := m.logger.With("session_id", sessionID)

	frames := make(chan Frame, m.cfg.FrameBufferSize)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	readerDone := make(chan struct{})

	go m.readLoop(conn, sessionID, frames, readErr, stop, readerDone)

	m.mu.Lock()
	m.conn = conn
	m.sessionID = sessionID
	m.connectedAt = time.Now()
	m.attempt = 0
	m.nextRetry = 0
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.conn = nil
		m.sessionID = ""
		m.connectedAt = time.Time{}
		m.mu.Unlock()

		close(stop)
		conn.Close()
		<-readerDone
	}()

	logger.Info("feed connected", "url", m.url)
	m.setState(StateConnected)
	m.emitConnected()

	heartbeat := time.NewTicker(m.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	// ackTimer is armed while a ping is outstanding.
	var ackTimer *time.Timer
	var ackC <-chan time.Time
	defer func() {
		if ackTimer != nil {
			ackTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			// Deliver what was read before the failure.
			m.drain(ctx, frames)
			if ctx.Err() != nil {
				return nil
			}
			return &TransportError{Op: "read", Err: err}

		case f := <-frames:
			if ctx.Err() != nil {
				return nil
			}
			if ackTimer != nil && protocol.IsHeartbeatAck(f.Data) {
				ackTimer.Stop()
				ackTimer, ackC = nil, nil
			}
			m.emitFrame(f)

		case <-heartbeat.C:
			if ackC != nil {
				continue
			}
			if err := conn.WriteMessage(protocol.PingFrame()); err != nil {
				return &TransportError{Op: "write", Err: err}
			}
			ackTimer = time.NewTimer(m.cfg.HeartbeatTimeout)
			ackC = ackTimer.C

		case <-ackC:
			logger.Warn("no pong received, connection stale",
				"timeout", m.cfg.HeartbeatTimeout,
			)
			return &TransportError{Op: "heartbeat", Err: ErrHeartbeatTimeout}
		}
	}
}

// readLoop reads frames until the connection fails or stop is closed.
func (m *manager) readLoop(conn Conn, sessionID string, frames chan<- Frame, readErr chan<- error, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		data, err := conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			select {
			case readErr <- err:
			default:
			}
			return
		}

		select {
		case frames <- Frame{Data: data, ReceivedAt: receivedAt, SessionID: sessionID}:
		case <-stop:
			return
		}
	}
}

// drain emits frames already buffered when the reader failed.
func (m *manager) drain(ctx context.Context, frames <-chan Frame) {
	for {
		select {
		case f := <-frames:
			if ctx.Err() != nil {
				return
			}
			m.emitFrame(f)
		default:
			return
		}
	}
}

// fail records a transport failure and publishes it.
func (m *manager) fail(err error) {
	if err == nil {
		return
	}

	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()

	level := slog.LevelWarn
	if errors.Is(err, ErrHeartbeatTimeout) {
		level = slog.LevelError
	}
	m.logger.Log(context.Background(), level, "feed connection lost", "error", err)

	m.emitError(err)
	m.setState(StateDisconnected)
}

// setState updates the state and notifies observers on change.
func (m *manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = s
	m.mu.Unlock()

	m.logger.Debug("state change", "from", prev, "to", s)

	m.obs.mu.RLock()
	fns := append([]func(State){}, m.obs.state...)
	m.obs.mu.RUnlock()

	for _, fn := range fns {
		fn(s)
	}
}

func (m *manager) emitFrame(f Frame) {
	m.obs.mu.RLock()
	fns := append([]func(Frame){}, m.obs.frame...)
	m.obs.mu.RUnlock()

	for _, fn := range fns {
		fn(f)
	}
}

func (m *manager) emitError(err error) {
	m.obs.mu.RLock()
	fns := append([]func(error){}, m.obs.errs...)
	m.obs.mu.RUnlock()

	for _, fn := range fns {
		fn(err)
	}
}

func (m *manager) emitConnected() {
	m.obs.mu.RLock()
	fns := append([]func(){}, m.obs.connected...)
	m.obs.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
