// Package feed wires the streaming client together: one Connection Manager,
// one Subscription Registry, one Message Dispatcher, the Price Table and the
// Analytics Engine, owned by a single Client.
package feed

import (
	"context"
	"log/slog"

	"github.com/rickgao/pricestream/internal/analytics"
	"github.com/rickgao/pricestream/internal/connection"
	"github.com/rickgao/pricestream/internal/dispatcher"
	"github.com/rickgao/pricestream/internal/instrument"
	"github.com/rickgao/pricestream/internal/pricetable"
	"github.com/rickgao/pricestream/internal/protocol"
	"github.com/rickgao/pricestream/internal/subscription"
)

// Config configures a Client.
type Config struct {
	Connection connection.Config
	Symbols    []string // Subscribed before the first connect
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	dialer      connection.Dialer
	instruments *instrument.Registry
	seed        []pricetable.Quote
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d connection.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithInstruments sets the instrument registry used by analytics.
func WithInstruments(r *instrument.Registry) Option {
	return func(o *options) { o.instruments = r }
}

// WithSeedQuotes pre-populates the Price Table.
func WithSeedQuotes(quotes []pricetable.Quote) Option {
	return func(o *options) { o.seed = quotes }
}

// Client is the streaming price client.
type Client struct {
	manager    connection.Manager
	registry   *subscription.Registry
	dispatcher *dispatcher.Dispatcher
	table      *pricetable.Table
	analytics  *analytics.Engine
	logger     *slog.Logger
}

// New creates a Client. Nothing is dialed until Start.
func New(cfg Config, opts ...Option) *Client {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	table := pricetable.New()
	table.Seed(o.seed)

	manager := connection.NewManager(cfg.Connection, o.dialer, o.logger.With("component", "connection"))
	registry := subscription.NewRegistry(manager, o.logger.With("component", "subscription"))
	disp := dispatcher.New(table, o.logger.With("component", "dispatcher"))

	manager.OnFrame(func(f connection.Frame) {
		// Errors are logged and counted by the dispatcher.
		_ = disp.HandleFrame(f)
	})
	manager.OnConnected(registry.Replay)
	disp.OnSubscriptionConfirmed(registry.Confirm)

	registry.Subscribe(cfg.Symbols...)

	return &Client{
		manager:    manager,
		registry:   registry,
		dispatcher: disp,
		table:      table,
		analytics:  analytics.New(o.instruments),
		logger:     o.logger,
	}
}

// Start connects in the background.
func (c *Client) Start(ctx context.Context) error {
	return c.manager.Start(ctx)
}

// Stop disconnects. No listener is called after Stop returns.
func (c *Client) Stop(ctx context.Context) error {
	return c.manager.Stop(ctx)
}

// Subscribe adds symbols to the desired set.
func (c *Client) Subscribe(symbols ...string) {
	c.registry.Subscribe(symbols...)
}

// Unsubscribe removes symbols from the desired set.
func (c *Client) Unsubscribe(symbols ...string) {
	c.registry.Unsubscribe(symbols...)
}

// Subscriptions returns the desired symbols, sorted.
func (c *Client) Subscriptions() []string {
	return c.registry.Desired()
}

// Acknowledged returns the symbols the server confirmed this session.
func (c *Client) Acknowledged() []string {
	return c.registry.Acknowledged()
}

// Prices returns a copy of the Price Table.
func (c *Client) Prices() map[string]pricetable.Quote {
	return c.table.Snapshot()
}

// Quote returns the latest quote for a symbol.
func (c *Client) Quote(symbol string) (pricetable.Quote, bool) {
	return c.table.Get(instrument.Normalize(symbol))
}

// Table exposes the Price Table for read-only consumers.
func (c *Client) Table() *pricetable.Table {
	return c.table
}

// State returns the connection state.
func (c *Client) State() connection.State {
	return c.manager.State()
}

// Status returns the connection status snapshot.
func (c *Client) Status() connection.Status {
	return c.manager.Status()
}

// Stats returns dispatcher statistics.
func (c *Client) Stats() dispatcher.Stats {
	return c.dispatcher.Stats()
}

// Analytics returns the engine bound to this client's instruments.
func (c *Client) Analytics() *analytics.Engine {
	return c.analytics
}

// OnPriceUpdate registers a listener for applied quote batches.
func (c *Client) OnPriceUpdate(fn func(map[string]pricetable.Quote)) {
	c.dispatcher.OnPriceUpdate(fn)
}

// OnNews registers a listener for market news.
func (c *Client) OnNews(fn func(protocol.NewsItem)) {
	c.dispatcher.OnNews(fn)
}

// OnEvent registers a listener for a domain event type.
func (c *Client) OnEvent(msgType string, fn func(dispatcher.Event)) {
	c.dispatcher.OnEvent(msgType, fn)
}

// OnUnknown registers a listener for unrecognised frames.
func (c *Client) OnUnknown(fn func(dispatcher.Event)) {
	c.dispatcher.OnUnknown(fn)
}

// OnStateChange registers a listener for connection state changes.
func (c *Client) OnStateChange(fn func(connection.State)) {
	c.manager.OnStateChange(fn)
}

// OnError registers a listener for transport failures.
func (c *Client) OnError(fn func(error)) {
	c.manager.OnError(fn)
}
