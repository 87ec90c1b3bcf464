// Package pricetable holds the latest known quote per symbol.
//
// The table is written only by the Message Dispatcher (Apply) and at start-up
// (Seed). Readers receive copies; a Quote is an immutable value that is
// replaced wholesale on every update.
package pricetable

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a per-symbol snapshot. Numeric fields keep the exact decimal text
// received from the server.
type Quote struct {
	Symbol        string
	Bid           string
	Ask           string
	Change        string // Absolute price delta since the reference point
	ChangePercent string
	ReceivedAt    time.Time
}

// BidDecimal parses Bid.
func (q Quote) BidDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(q.Bid)
}

// AskDecimal parses Ask.
func (q Quote) AskDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(q.Ask)
}

// ChangeDecimal parses Change.
func (q Quote) ChangeDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(q.Change)
}

// ChangePercentDecimal parses ChangePercent.
func (q Quote) ChangePercentDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(q.ChangePercent)
}

// Spread returns Ask - Bid.
func (q Quote) Spread() (decimal.Decimal, error) {
	bid, err := q.BidDecimal()
	if err != nil {
		return decimal.Zero, err
	}
	ask, err := q.AskDecimal()
	if err != nil {
		return decimal.Zero, err
	}
	return ask.Sub(bid), nil
}

// Table is the published price state.
type Table struct {
	mu     sync.RWMutex
	quotes map[string]Quote

	updates int64
}

// New creates an empty table.
func New() *Table {
	return &Table{quotes: make(map[string]Quote)}
}

// Apply replaces the entry of every symbol in the batch. Symbols not present
// in the batch are left untouched. The whole batch is published under one
// write lock, so readers see either the old or the new quote, never a mix.
func (t *Table) Apply(batch map[string]Quote) {
	if len(batch) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for symbol, q := range batch {
		q.Symbol = symbol
		t.quotes[symbol] = q
	}
	t.updates++
}

// Seed inserts quotes for symbols the table has not seen yet.
func (t *Table) Seed(quotes []Quote) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, q := range quotes {
		if q.Symbol == "" {
			continue
		}
		if _, exists := t.quotes[q.Symbol]; !exists {
			t.quotes[q.Symbol] = q
		}
	}
}

// Get returns the latest quote for a symbol.
func (t *Table) Get(symbol string) (Quote, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	q, ok := t.quotes[symbol]
	return q, ok
}

// Snapshot returns a copy of the whole table.
func (t *Table) Snapshot() map[string]Quote {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]Quote, len(t.quotes))
	for symbol, q := range t.quotes {
		result[symbol] = q
	}
	return result
}

// Symbols returns the known symbols in sorted order.
func (t *Table) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]string, 0, len(t.quotes))
	for symbol := range t.quotes {
		result = append(result, symbol)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.quotes)
}

// Updates returns how many batches have been applied.
func (t *Table) Updates() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updates
}
