package protocol

import (
	"encoding/json"
	"testing"
)

func TestEncodeSubscribe(t *testing.T) {
	data, err := EncodeSubscribe([]string{"EURUSD", "XAUUSD"})
	if err != nil {
		t.Fatalf("EncodeSubscribe: %v", err)
	}

	want := `{"type":"subscribe","symbols":["EURUSD","XAUUSD"]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestEncodeUnsubscribe_Empty(t *testing.T) {
	data, err := EncodeUnsubscribe(nil)
	if err != nil {
		t.Fatalf("EncodeUnsubscribe: %v", err)
	}

	want := `{"type":"unsubscribe","symbols":[]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestPingFrame(t *testing.T) {
	if got := string(PingFrame()); got != `{"type":"ping"}` {
		t.Errorf("PingFrame = %s", got)
	}

	// Callers may scribble on the returned slice.
	f := PingFrame()
	f[0] = 'x'
	if PingFrame()[0] != '{' {
		t.Error("PingFrame shares its backing array")
	}
}

func TestExtractType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"price update", `{"type":"priceUpdate","data":{}}`, TypePriceUpdate, false},
		{"pong", `{"type":"pong","timestamp":"2024-01-01T00:00:00Z"}`, TypePong, false},
		{"missing type", `{"data":{}}`, "", true},
		{"not json", `hello`, "", true},
		{"array", `[1,2,3]`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractType([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("type = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHeartbeatAck(t *testing.T) {
	if !IsHeartbeatAck([]byte(`{"type":"pong"}`)) {
		t.Error("pong not recognised")
	}
	if IsHeartbeatAck([]byte(`{"type":"welcome","message":"pong"}`)) {
		t.Error("welcome mentioning pong treated as ack")
	}
	if IsHeartbeatAck([]byte(`pong`)) {
		t.Error("bare text treated as ack")
	}
}

func TestQuoteWire_NumericForms(t *testing.T) {
	input := `{"bid":"1.08520","ask":1.0853,"change":null,"changePercent":"-0.12"}`

	var q QuoteWire
	if err := json.Unmarshal([]byte(input), &q); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if q.Bid != "1.08520" {
		t.Errorf("Bid = %q, want trailing zero preserved", q.Bid)
	}
	if q.Ask != "1.0853" {
		t.Errorf("Ask = %q", q.Ask)
	}
	if q.Change != "" {
		t.Errorf("Change = %q, want empty for null", q.Change)
	}
	if !q.ChangePercent.Valid() {
		t.Error("ChangePercent should be valid")
	}
	if q.Change.Valid() {
		t.Error("empty Change should not be valid")
	}
}

func TestNumericString_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1.08520", true},
		{"-0.12", true},
		{"2035", true},
		{"1e-3", true},
		{"", false},
		{"abc", false},
		{"NaN", false},
		{"Inf", false},
		{"-Infinity", false},
		{"0x1p0", false},
		{"1_0", false},
	}

	for _, tt := range tests {
		if got := NumericString(tt.in).Valid(); got != tt.want {
			t.Errorf("NumericString(%q).Valid() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQuoteWire_RejectsObjects(t *testing.T) {
	var q QuoteWire
	if err := json.Unmarshal([]byte(`{"bid":{"x":1}}`), &q); err == nil {
		t.Error("expected error for object-valued bid")
	}
}
