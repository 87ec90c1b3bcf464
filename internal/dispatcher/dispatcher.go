package dispatcher

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/rickgao/pricestream/internal/connection"
	"github.com/rickgao/pricestream/internal/instrument"
	"github.com/rickgao/pricestream/internal/pricetable"
	"github.com/rickgao/pricestream/internal/protocol"
)

// Dispatcher parses frames and routes them. HandleFrame is expected to be
// called from a single goroutine (the Connection Manager's run loop);
// listener registration and Stats are safe from any goroutine.
type Dispatcher struct {
	table  *pricetable.Table
	logger *slog.Logger

	listenersMu sync.RWMutex
	onPrice     []func(map[string]pricetable.Quote)
	onWelcome   []func(protocol.WelcomeMsg)
	onConfirm   []func([]string)
	onNews      []func(protocol.NewsItem)
	onEvent     map[string][]func(Event)
	onUnknown   []func(Event)

	mu    sync.Mutex
	stats Stats
}

// New creates a Dispatcher writing quotes into table.
func New(table *pricetable.Table, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if table == nil {
		table = pricetable.New()
	}

	return &Dispatcher{
		table:   table,
		logger:  logger,
		onEvent: make(map[string][]func(Event)),
		stats:   Stats{ByType: make(map[string]int64)},
	}
}

// Table returns the Price Table the dispatcher writes to.
func (d *Dispatcher) Table() *pricetable.Table {
	return d.table
}

// OnPriceUpdate registers a listener called after a batch has been applied.
// The map holds only the symbols present in that frame.
func (d *Dispatcher) OnPriceUpdate(fn func(map[string]pricetable.Quote)) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.onPrice = append(d.onPrice, fn)
}

// OnWelcome registers a listener for the server greeting.
func (d *Dispatcher) OnWelcome(fn func(protocol.WelcomeMsg)) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.onWelcome = append(d.onWelcome, fn)
}

// OnSubscriptionConfirmed registers a listener for acknowledged symbols.
func (d *Dispatcher) OnSubscriptionConfirmed(fn func([]string)) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.onConfirm = append(d.onConfirm, fn)
}

// OnNews registers a listener for decoded market_news items.
func (d *Dispatcher) OnNews(fn func(protocol.NewsItem)) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.onNews = append(d.onNews, fn)
}

// OnEvent registers a listener for frames of the given type. The frame is
// passed verbatim. Registering for a built-in type adds a listener alongside
// the built-in handling.
func (d *Dispatcher) OnEvent(msgType string, fn func(Event)) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.onEvent[msgType] = append(d.onEvent[msgType], fn)
}

// OnUnknown registers a listener for frames no other listener claims.
func (d *Dispatcher) OnUnknown(fn func(Event)) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.onUnknown = append(d.onUnknown, fn)
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.ByType = make(map[string]int64, len(d.stats.ByType))
	for k, v := range d.stats.ByType {
		s.ByType[k] = v
	}
	return s
}

// HandleFrame parses and routes a single frame. It returns the parse error,
// if any, after it has been logged and counted.
func (d *Dispatcher) HandleFrame(f connection.Frame) error {
	d.mu.Lock()
	d.stats.MessagesReceived++
	d.mu.Unlock()

	msgType, err := protocol.ExtractType(f.Data)
	if err != nil {
		return d.parseError(&ParseError{Err: err})
	}

	d.mu.Lock()
	d.stats.ByType[msgType]++
	d.mu.Unlock()

	var routed bool

	switch msgType {
	case protocol.TypePriceUpdate:
		if err := d.handlePriceUpdate(f); err != nil {
			return d.parseError(err)
		}
		routed = true

	case protocol.TypePong:
		routed = true

	case protocol.TypeWelcome:
		var msg protocol.WelcomeMsg
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return d.parseError(&ParseError{Kind: msgType, Err: err})
		}
		d.logger.Info("server welcome", "message", msg.Message, "session_id", f.SessionID)
		for _, fn := range d.welcomeListeners() {
			fn(msg)
		}
		routed = true

	case protocol.TypeSubscriptionConfirmed:
		var msg protocol.SubscriptionConfirmedMsg
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return d.parseError(&ParseError{Kind: msgType, Err: err})
		}
		d.logger.Debug("subscription confirmed", "symbols", msg.Symbols)
		for _, fn := range d.confirmListeners() {
			fn(msg.Symbols)
		}
		routed = true

	case protocol.TypeMarketNews:
		var msg protocol.MarketNewsMsg
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return d.parseError(&ParseError{Kind: msgType, Err: err})
		}
		news := d.newsListeners()
		for _, fn := range news {
			fn(msg.Data)
		}
		routed = len(news) > 0
	}

	event := Event{Type: msgType, Payload: json.RawMessage(f.Data), ReceivedAt: f.ReceivedAt}

	if fns := d.eventListeners(msgType); len(fns) > 0 {
		for _, fn := range fns {
			fn(event)
		}
		routed = true
	}

	if !routed {
		d.mu.Lock()
		d.stats.UnknownMessages++
		d.mu.Unlock()

		fns := d.unknownListeners()
		if len(fns) == 0 {
			d.logger.Debug("skipping message type", "type", msgType)
			return nil
		}
		for _, fn := range fns {
			fn(event)
		}
	}

	d.mu.Lock()
	d.stats.MessagesRouted++
	d.mu.Unlock()

	return nil
}

// handlePriceUpdate applies a priceUpdate batch to the table.
func (d *Dispatcher) handlePriceUpdate(f connection.Frame) *ParseError {
	var wire protocol.PriceUpdateMsg
	if err := json.Unmarshal(f.Data, &wire); err != nil {
		return &ParseError{Kind: protocol.TypePriceUpdate, Err: err}
	}

	batch := make(map[string]pricetable.Quote, len(wire.Data))
	for symbol, q := range wire.Data {
		symbol = instrument.Normalize(symbol)
		if symbol == "" {
			continue
		}
		if !q.Bid.Valid() || !q.Ask.Valid() {
			d.logger.Warn("dropping quote with invalid bid/ask",
				"symbol", symbol,
				"bid", q.Bid.String(),
				"ask", q.Ask.String(),
			)
			d.mu.Lock()
			d.stats.InvalidQuotes++
			d.mu.Unlock()
			continue
		}
		batch[symbol] = pricetable.Quote{
			Symbol:        symbol,
			Bid:           q.Bid.String(),
			Ask:           q.Ask.String(),
			Change:        q.Change.String(),
			ChangePercent: q.ChangePercent.String(),
			ReceivedAt:    f.ReceivedAt,
		}
	}

	if len(batch) == 0 {
		return nil
	}

	d.table.Apply(batch)

	for _, fn := range d.priceListeners() {
		fn(batch)
	}
	return nil
}

func (d *Dispatcher) parseError(err *ParseError) error {
	d.logger.Warn("failed to parse message", "kind", err.Kind, "error", err.Err)
	d.mu.Lock()
	d.stats.ParseErrors++
	d.mu.Unlock()
	return err
}

func (d *Dispatcher) priceListeners() []func(map[string]pricetable.Quote) {
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	return append([]func(map[string]pricetable.Quote){}, d.onPrice...)
}

func (d *Dispatcher) welcomeListeners() []func(protocol.WelcomeMsg) {
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	return append([]func(protocol.WelcomeMsg){}, d.onWelcome...)
}

func (d *Dispatcher) confirmListeners() []func([]string) {
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	return append([]func([]string){}, d.onConfirm...)
}

func (d *Dispatcher) newsListeners() []func(protocol.NewsItem) {
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	return append([]func(protocol.NewsItem){}, d.onNews...)
}

func (d *Dispatcher) eventListeners(msgType string) []func(Event) {
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	return append([]func(Event){}, d.onEvent[msgType]...)
}

func (d *Dispatcher) unknownListeners() []func(Event) {
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	return append([]func(Event){}, d.onUnknown...)
}
