package dispatcher

import (
	"encoding/json"
	"fmt"
	"time"
)

// ParseError reports a frame that could not be decoded.
type ParseError struct {
	Kind string // Message type, empty when the envelope itself failed
	Err  error
}

func (e *ParseError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("parse frame: %v", e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Event is a frame delivered verbatim to event or generic listeners.
type Event struct {
	Type       string
	Payload    json.RawMessage // The whole frame
	ReceivedAt time.Time
}

// Stats contains runtime statistics.
type Stats struct {
	MessagesReceived int64            `json:"messages_received"`
	MessagesRouted   int64            `json:"messages_routed"`
	ParseErrors      int64            `json:"parse_errors"`
	UnknownMessages  int64            `json:"unknown_messages"`
	InvalidQuotes    int64            `json:"invalid_quotes"` // Quotes dropped for non-numeric fields
	ByType           map[string]int64 `json:"by_type"`
}
