// Package subscription implements the Subscription Registry.
//
// The registry owns the set of symbols the client wants streamed. It is the
// single source of truth for "what should be streaming": the network layer
// only reads it, and after every (re)connection the full set is replayed in
// one subscribe frame because the server keeps no state across sessions.
package subscription

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/rickgao/pricestream/internal/instrument"
	"github.com/rickgao/pricestream/internal/protocol"
)

// Sender transmits frames to the server.
type Sender interface {
	// Send writes a frame. It fails when the connection is not up.
	Send(data []byte) error

	// IsConnected reports whether frames can currently be sent.
	IsConnected() bool
}

// Registry tracks desired subscriptions.
type Registry struct {
	sender Sender
	logger *slog.Logger

	// mu also serializes frame emission so a Replay and a concurrent
	// Subscribe cannot interleave their view of the set.
	mu      sync.Mutex
	desired map[string]struct{}
	acked   map[string]struct{}
}

// NewRegistry creates an empty registry sending through sender.
func NewRegistry(sender Sender, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		sender:  sender,
		logger:  logger,
		desired: make(map[string]struct{}),
		acked:   make(map[string]struct{}),
	}
}

// Subscribe adds symbols to the desired set. When connected, one subscribe
// frame is sent for the symbols that were not already desired.
func (r *Registry) Subscribe(symbols ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []string
	for _, s := range normalize(symbols) {
		if _, exists := r.desired[s]; exists {
			continue
		}
		r.desired[s] = struct{}{}
		added = append(added, s)
	}

	if len(added) == 0 {
		return
	}

	r.logger.Debug("subscribe", "symbols", added, "desired", len(r.desired))
	r.emit(protocol.EncodeSubscribe, added)
}

// Unsubscribe removes symbols from the desired set. When connected, one
// unsubscribe frame is sent for the symbols that were actually removed.
func (r *Registry) Unsubscribe(symbols ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for _, s := range normalize(symbols) {
		if _, exists := r.desired[s]; !exists {
			continue
		}
		delete(r.desired, s)
		delete(r.acked, s)
		removed = append(removed, s)
	}

	if len(removed) == 0 {
		return
	}

	r.logger.Debug("unsubscribe", "symbols", removed, "desired", len(r.desired))
	r.emit(protocol.EncodeUnsubscribe, removed)
}

// Replay sends the entire desired set in a single subscribe frame. It is
// bound to the Connection Manager's connected hook.
func (r *Registry) Replay() {
	r.mu.Lock()
	defer r.mu.Unlock()

	// New session: nothing has been confirmed yet.
	r.acked = make(map[string]struct{})

	if len(r.desired) == 0 {
		return
	}

	symbols := sortedKeys(r.desired)
	r.logger.Info("replaying subscriptions", "count", len(symbols))
	r.emit(protocol.EncodeSubscribe, symbols)
}

// Confirm records symbols acknowledged by the server. Symbols that are no
// longer desired are ignored.
func (r *Registry) Confirm(symbols []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range normalize(symbols) {
		if _, ok := r.desired[s]; ok {
			r.acked[s] = struct{}{}
		}
	}
}

// Desired returns a sorted snapshot of the desired set.
func (r *Registry) Desired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.desired)
}

// Acknowledged returns a sorted snapshot of symbols confirmed in the
// current session.
func (r *Registry) Acknowledged() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.acked)
}

// IsDesired reports whether a symbol is in the desired set.
func (r *Registry) IsDesired(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.desired[instrument.Normalize(symbol)]
	return ok
}

// emit encodes and sends a frame. Caller must hold mu.
func (r *Registry) emit(encode func([]string) ([]byte, error), symbols []string) {
	if r.sender == nil || !r.sender.IsConnected() {
		// Replay on the next connect covers it.
		return
	}

	data, err := encode(symbols)
	if err != nil {
		r.logger.Error("encode subscription frame", "error", err)
		return
	}

	if err := r.sender.Send(data); err != nil {
		r.logger.Debug("subscription frame not sent", "symbols", symbols, "error", err)
	}
}

// normalize upper-cases, drops empties and de-duplicates while keeping order.
func normalize(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	result := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = instrument.Normalize(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}
	return result
}

func sortedKeys(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for s := range set {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}
