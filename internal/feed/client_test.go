package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/rickgao/pricestream/internal/analytics"
	"github.com/rickgao/pricestream/internal/connection"
	"github.com/rickgao/pricestream/internal/dispatcher"
	"github.com/rickgao/pricestream/internal/pricetable"
	"github.com/rickgao/pricestream/internal/protocol"
)

// pipeConn is an in-memory connection controlled by the test.
type pipeConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written []protocol.SymbolsCommand
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *pipeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *pipeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}

	var cmd protocol.SymbolsCommand
	if err := json.Unmarshal(data, &cmd); err == nil && cmd.Type != protocol.TypePing {
		c.mu.Lock()
		c.written = append(c.written, cmd)
		c.mu.Unlock()
	}
	return nil
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) commands() []protocol.SymbolsCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.SymbolsCommand(nil), c.written...)
}

type pipeDialer struct {
	mu    sync.Mutex
	conns []*pipeConn
}

func (d *pipeDialer) Dial(ctx context.Context, url string) (connection.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := newPipeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *pipeDialer) conn(i int) *pipeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testConfig(symbols ...string) Config {
	return Config{
		Connection: connection.Config{
			URL:               "ws://feed.test/ws",
			HeartbeatInterval: time.Hour,
			HeartbeatTimeout:  time.Hour,
			BackoffInitial:    10 * time.Millisecond,
			BackoffMax:        20 * time.Millisecond,
		},
		Symbols: symbols,
	}
}

func stopClient(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestClient_SubscribesOnConnect(t *testing.T) {
	dialer := &pipeDialer{}
	c := New(testConfig("eurusd", "XAUUSD"), WithDialer(dialer))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stopClient(t, c)

	waitFor(t, "initial subscribe", func() bool {
		conn := dialer.conn(0)
		return conn != nil && len(conn.commands()) == 1
	})

	cmd := dialer.conn(0).commands()[0]
	if cmd.Type != protocol.TypeSubscribe {
		t.Fatalf("expected subscribe, got %s", cmd.Type)
	}
	if strings.Join(cmd.Symbols, ",") != "EURUSD,XAUUSD" {
		t.Errorf("unexpected symbols: %v", cmd.Symbols)
	}
}

func TestClient_ReplaysExactlyOnceAfterReconnect(t *testing.T) {
	dialer := &pipeDialer{}
	c := New(testConfig("A", "B"), WithDialer(dialer))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stopClient(t, c)

	waitFor(t, "first session", func() bool {
		conn := dialer.conn(0)
		return conn != nil && len(conn.commands()) == 1
	})

	dialer.conn(0).Close()

	waitFor(t, "second session", func() bool {
		conn := dialer.conn(1)
		return conn != nil && len(conn.commands()) >= 1
	})
	// Anything extra would have been sent synchronously on connect.
	time.Sleep(20 * time.Millisecond)

	cmds := dialer.conn(1).commands()
	if len(cmds) != 1 {
		t.Fatalf("expected exactly one frame after reconnect, got %d: %v", len(cmds), cmds)
	}
	if cmds[0].Type != protocol.TypeSubscribe || strings.Join(cmds[0].Symbols, ",") != "A,B" {
		t.Errorf("expected subscribe [A B], got %+v", cmds[0])
	}
}

func TestClient_SubscribeWhileConnectedSendsDelta(t *testing.T) {
	dialer := &pipeDialer{}
	c := New(testConfig("EURUSD"), WithDialer(dialer))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stopClient(t, c)

	waitFor(t, "connected", func() bool { return c.State() == connection.StateConnected })
	waitFor(t, "replay", func() bool { return len(dialer.conn(0).commands()) == 1 })

	c.Subscribe("EURUSD", "GBPUSD")
	c.Unsubscribe("EURUSD")
	c.Unsubscribe("NOTSUBSCRIBED")

	cmds := dialer.conn(0).commands()
	if len(cmds) != 3 {
		t.Fatalf("expected 3 frames, got %d: %v", len(cmds), cmds)
	}
	if cmds[1].Type != protocol.TypeSubscribe || strings.Join(cmds[1].Symbols, ",") != "GBPUSD" {
		t.Errorf("expected subscribe delta [GBPUSD], got %+v", cmds[1])
	}
	if cmds[2].Type != protocol.TypeUnsubscribe || strings.Join(cmds[2].Symbols, ",") != "EURUSD" {
		t.Errorf("expected unsubscribe [EURUSD], got %+v", cmds[2])
	}
	if strings.Join(c.Subscriptions(), ",") != "GBPUSD" {
		t.Errorf("unexpected desired set: %v", c.Subscriptions())
	}
}

func TestClient_PriceUpdatesAndConfirmations(t *testing.T) {
	dialer := &pipeDialer{}
	c := New(testConfig("A", "B"), WithDialer(dialer))

	var mu sync.Mutex
	var batches int
	c.OnPriceUpdate(func(map[string]pricetable.Quote) {
		mu.Lock()
		batches++
		mu.Unlock()
	})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stopClient(t, c)

	waitFor(t, "connected", func() bool { return dialer.conn(0) != nil })
	conn := dialer.conn(0)

	conn.inbound <- []byte(`{"type":"subscription_confirmed","symbols":["A","B"]}`)
	conn.inbound <- []byte(`{"type":"priceUpdate","data":{"A":{"bid":"1.1","ask":"1.2","change":"0.1","changePercent":"1"},"B":{"bid":"2.1","ask":"2.2","change":"-0.1","changePercent":"-1"}}}`)
	conn.inbound <- []byte(`{"type":"priceUpdate","data":{"A":{"bid":"1.3","ask":"1.4","change":"0.3","changePercent":"3"}}}`)

	waitFor(t, "two batches", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return batches == 2
	})

	a, _ := c.Quote("a")
	b, _ := c.Quote("B")
	if a.Bid != "1.3" {
		t.Errorf("expected A replaced, got %+v", a)
	}
	if b.Bid != "2.1" || b.Ask != "2.2" {
		t.Errorf("expected B untouched, got %+v", b)
	}
	if len(c.Prices()) != 2 {
		t.Errorf("expected 2 prices, got %d", len(c.Prices()))
	}
	if strings.Join(c.Acknowledged(), ",") != "A,B" {
		t.Errorf("expected A,B acknowledged, got %v", c.Acknowledged())
	}
}

func TestClient_NewsAndUnknown(t *testing.T) {
	dialer := &pipeDialer{}
	c := New(testConfig(), WithDialer(dialer))

	news := make(chan protocol.NewsItem, 1)
	unknown := make(chan string, 1)
	c.OnNews(func(n protocol.NewsItem) { news <- n })
	c.OnUnknown(func(e dispatcher.Event) { unknown <- e.Type })

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stopClient(t, c)

	waitFor(t, "connected", func() bool { return dialer.conn(0) != nil })
	conn := dialer.conn(0)
	conn.inbound <- []byte(`{"type":"market_news","data":{"id":"1","title":"CPI beats"}}`)
	conn.inbound <- []byte(`{"type":"status","data":{}}`)

	select {
	case n := <-news:
		if n.Title != "CPI beats" {
			t.Errorf("unexpected news: %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no news delivered")
	}

	select {
	case typ := <-unknown:
		if typ != "status" {
			t.Errorf("unexpected unknown type %q", typ)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no unknown delivered")
	}
}

func TestClient_SeedQuotes(t *testing.T) {
	c := New(testConfig(), WithSeedQuotes([]pricetable.Quote{
		{Symbol: "EURUSD", Bid: "1.08", Ask: "1.09"},
	}))

	q, ok := c.Quote("EURUSD")
	if !ok || q.Bid != "1.08" {
		t.Errorf("expected seeded quote, got %+v (%v)", q, ok)
	}
}

func TestClient_StopThenStart(t *testing.T) {
	dialer := &pipeDialer{}
	c := New(testConfig("A"), WithDialer(dialer))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "connected", func() bool { return c.State() == connection.StateConnected })
	stopClient(t, c)

	if c.State() != connection.StateDisconnected {
		t.Errorf("expected disconnected, got %s", c.State())
	}
	if err := c.Start(context.Background()); !errors.Is(err, connection.ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestClient_AgainstWebSocketServer(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome","message":"ok","timestamp":"2024-01-15T12:00:00Z"}`))
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd protocol.SymbolsCommand
			if json.Unmarshal(msg, &cmd) != nil {
				continue
			}
			switch cmd.Type {
			case protocol.TypeSubscribe:
				ack, _ := json.Marshal(protocol.SubscriptionConfirmedMsg{Type: protocol.TypeSubscriptionConfirmed, Symbols: cmd.Symbols})
				conn.WriteMessage(websocket.TextMessage, ack)
				conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"priceUpdate","data":{"XAUUSD":{"bid":"2034.50","ask":"2035.10","change":"-3.20","changePercent":"-0.16"}}}`))
			case protocol.TypePing:
				conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
			}
		}
	}))
	defer server.Close()

	cfg := testConfig("XAUUSD")
	cfg.Connection.URL = server.URL // http:// is upgraded to ws://
	c := New(cfg)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stopClient(t, c)

	waitFor(t, "quote", func() bool {
		_, ok := c.Quote("XAUUSD")
		return ok
	})

	q, _ := c.Quote("XAUUSD")
	pos := analytics.Position{
		Side:      analytics.Buy,
		Symbol:    "XAUUSD",
		OpenPrice: decimal.RequireFromString("2000"),
		Volume:    decimal.RequireFromString("0.5"),
	}
	pnl, err := c.Analytics().PositionPnL(pos, q)
	if err != nil {
		t.Fatalf("PositionPnL failed: %v", err)
	}
	// (2034.50 - 2000) * 0.5 * 100
	if pnl.StringFixed(2) != "1725.00" {
		t.Errorf("expected P&L 1725.00, got %s", pnl.StringFixed(2))
	}

	waitFor(t, "acknowledged", func() bool { return len(c.Acknowledged()) == 1 })
}
