package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrMissingType is returned when a frame has no "type" field.
var ErrMissingType = errors.New("message has no type")

var pingFrame = mustMarshal(PingCommand{Type: TypePing})

// PingFrame returns the encoded heartbeat command.
func PingFrame() []byte {
	out := make([]byte, len(pingFrame))
	copy(out, pingFrame)
	return out
}

// EncodeSubscribe encodes a subscribe command.
func EncodeSubscribe(symbols []string) ([]byte, error) {
	return encodeSymbols(TypeSubscribe, symbols)
}

// EncodeUnsubscribe encodes an unsubscribe command.
func EncodeUnsubscribe(symbols []string) ([]byte, error) {
	return encodeSymbols(TypeUnsubscribe, symbols)
}

func encodeSymbols(typ string, symbols []string) ([]byte, error) {
	if symbols == nil {
		symbols = []string{}
	}
	return json.Marshal(SymbolsCommand{Type: typ, Symbols: symbols})
}

// ExtractType returns the "type" discriminator of a frame.
func ExtractType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	if env.Type == "" {
		return "", ErrMissingType
	}
	return env.Type, nil
}

// IsHeartbeatAck reports whether a frame is a pong.
func IsHeartbeatAck(data []byte) bool {
	// Quick check before paying for a full decode
	if !bytes.Contains(data, []byte(TypePong)) {
		return false
	}
	typ, err := ExtractType(data)
	return err == nil && typ == TypePong
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
