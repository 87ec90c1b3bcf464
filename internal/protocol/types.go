package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Client -> server message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
)

// Server -> client message types.
const (
	TypePriceUpdate           = "priceUpdate"
	TypePong                  = "pong"
	TypeWelcome               = "welcome"
	TypeSubscriptionConfirmed = "subscription_confirmed"
	TypeMarketNews            = "market_news"
)

// SymbolsCommand is a subscribe or unsubscribe command.
type SymbolsCommand struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// PingCommand is the heartbeat probe.
type PingCommand struct {
	Type string `json:"type"`
}

// Envelope is used for fast type extraction.
type Envelope struct {
	Type string `json:"type"`
}

// PriceUpdateMsg carries full quotes for one or more symbols.
type PriceUpdateMsg struct {
	Type string               `json:"type"`
	Data map[string]QuoteWire `json:"data"`
}

// QuoteWire is the wire format of a single quote.
type QuoteWire struct {
	Bid           NumericString `json:"bid"`
	Ask           NumericString `json:"ask"`
	Change        NumericString `json:"change"`
	ChangePercent NumericString `json:"changePercent"`
}

// WelcomeMsg is sent by the server right after the handshake.
type WelcomeMsg struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SubscriptionConfirmedMsg acknowledges a subscribe command.
type SubscriptionConfirmedMsg struct {
	Type      string   `json:"type"`
	Symbols   []string `json:"symbols"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// MarketNewsMsg is a news domain event.
type MarketNewsMsg struct {
	Type string   `json:"type"`
	Data NewsItem `json:"data"`
}

// NewsItem is the payload of a market_news event.
type NewsItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Category  string   `json:"category"`
	Impact    string   `json:"impact"` // "low", "medium", "high", "very_high", "breaking"
	Source    string   `json:"source"`
	Timestamp string   `json:"timestamp"`
	Symbols   []string `json:"symbols"`
	Priority  int      `json:"priority"`
	Tags      []string `json:"tags"`
}

// NumericString holds a decimal number exactly as it appeared on the wire.
// The server sends quote fields as JSON strings ("1.08523"); bare JSON numbers
// are accepted too and kept verbatim so no float rounding happens here.
type NumericString string

// UnmarshalJSON accepts a JSON string, number or null.
func (n *NumericString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumericString(s)
		return nil
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("numeric field: %w", err)
		}
		*n = NumericString(num.String())
		return nil
	}
}

// String returns the raw text.
func (n NumericString) String() string {
	return string(n)
}

// Valid reports whether the text is a plain decimal number. NaN, infinities,
// hex floats and digit separators are rejected.
func (n NumericString) Valid() bool {
	_, err := decimal.NewFromString(string(n))
	return err == nil
}
