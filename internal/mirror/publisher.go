package mirror

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/pricestream/internal/pricetable"
)

// Config configures a Publisher.
type Config struct {
	KeyPrefix     string
	ChannelPrefix string
	TTL           time.Duration // 0 = keep forever
	BatchSize     int           // Max quotes per pipeline
	FlushInterval time.Duration
	BufferSize    int // Initial queue capacity
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:     "quote:",
		ChannelPrefix: "prices.",
		BatchSize:     100,
		FlushInterval: 250 * time.Millisecond,
		BufferSize:    1000,
	}
}

// Metrics tracks publisher activity.
type Metrics struct {
	Published int64 // Quotes written
	Coalesced int64 // Quotes superseded before they were written
	Flushes   int64
	Errors    int64
}

// Payload is the JSON document stored and published per quote.
type Payload struct {
	Symbol        string    `json:"symbol"`
	Bid           string    `json:"bid"`
	Ask           string    `json:"ask"`
	Change        string    `json:"change"`
	ChangePercent string    `json:"changePercent"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// Publisher consumes quote batches from the dispatcher and writes them to
// Redis from its own goroutine.
type Publisher struct {
	cfg    Config
	client redis.Cmdable
	logger *slog.Logger

	// Input from the dispatcher
	input *queue[pricetable.Quote]

	// Batching: latest quote per symbol
	pending   map[string]pricetable.Quote
	pendingMu sync.Mutex

	// flushMu is held from taking pending until the pipeline returns, so an
	// older batch can never land after a newer one.
	flushMu sync.Mutex

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	stopFlush chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	metrics Metrics
}

// NewPublisher creates a Publisher.
func NewPublisher(cfg Config, client redis.Cmdable, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultConfig()
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = d.KeyPrefix
	}
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = d.ChannelPrefix
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = d.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = d.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = d.BufferSize
	}

	return &Publisher{
		cfg:       cfg,
		client:    client,
		logger:    logger,
		input:     newQueue[pricetable.Quote](cfg.BufferSize),
		pending:   make(map[string]pricetable.Quote),
		stopFlush: make(chan struct{}),
	}
}

// Enqueue hands a batch to the publisher without blocking. It matches the
// dispatcher's price listener signature.
func (p *Publisher) Enqueue(batch map[string]pricetable.Quote) {
	items := make([]pricetable.Quote, 0, len(batch))
	for _, q := range batch {
		items = append(items, q)
	}
	if !p.input.Push(items...) {
		p.logger.Debug("publisher closed, dropping quotes", "count", len(items))
	}
}

// Start begins consuming quotes and writing to Redis.
func (p *Publisher) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	// Consumer goroutine
	p.wg.Add(1)
	go p.consumeLoop()

	// Flush ticker goroutine
	p.wg.Add(1)
	go p.flushLoop()

	p.logger.Info("quote mirror started",
		"batch_size", p.cfg.BatchSize,
		"flush_interval", p.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the queue, writes what is pending and shuts down.
func (p *Publisher) Stop(ctx context.Context) error {
	p.logger.Info("stopping quote mirror")

	// Closing lets the consumer drain what is queued, then exit.
	p.input.Close()
	p.stopOnce.Do(func() { close(p.stopFlush) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("quote mirror stopped")
	case <-ctx.Done():
		p.logger.Warn("quote mirror stop timed out")
	}

	// Final flush
	p.flush(ctx)

	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// Stats returns current metrics.
func (p *Publisher) Stats() Metrics {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return p.metrics
}

// QueueStats returns statistics of the inbound queue.
func (p *Publisher) QueueStats() QueueStats {
	return p.input.stats()
}

// consumeLoop moves quotes from the queue into the pending set.
func (p *Publisher) consumeLoop() {
	defer p.wg.Done()

	for {
		quotes, ok := p.input.PopBatch(p.cfg.BatchSize)
		if !ok {
			return
		}

		p.pendingMu.Lock()
		for _, q := range quotes {
			if _, exists := p.pending[q.Symbol]; exists {
				p.metrics.Coalesced++
			}
			p.pending[q.Symbol] = q
		}
		shouldFlush := len(p.pending) >= p.cfg.BatchSize
		p.pendingMu.Unlock()

		if shouldFlush {
			p.flush(p.ctx)
		}
	}
}

// flushLoop periodically flushes the pending set.
func (p *Publisher) flushLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.stopFlush:
			return
		case <-ticker.C:
			p.flush(p.ctx)
		}
	}
}

// flush writes the pending quotes in one pipeline. Flushes are serialized.
func (p *Publisher) flush(ctx context.Context) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.pendingMu.Lock()
	if len(p.pending) == 0 {
		p.pendingMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := p.pending
	p.pending = make(map[string]pricetable.Quote, len(batch))
	p.pendingMu.Unlock()

	start := time.Now()

	if err := p.write(ctx, batch); err != nil {
		p.logger.Error("redis pipeline failed", "error", err, "count", len(batch))
		p.pendingMu.Lock()
		p.metrics.Errors++
		p.pendingMu.Unlock()
		return
	}

	p.pendingMu.Lock()
	p.metrics.Published += int64(len(batch))
	p.metrics.Flushes++
	p.pendingMu.Unlock()

	p.logger.Debug("flushed quotes",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// write stores and publishes every quote using a single pipeline.
func (p *Publisher) write(ctx context.Context, batch map[string]pricetable.Quote) error {
	pipe := p.client.Pipeline()

	for symbol, q := range batch {
		payload, err := json.Marshal(Payload{
			Symbol:        symbol,
			Bid:           q.Bid,
			Ask:           q.Ask,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			ReceivedAt:    q.ReceivedAt,
		})
		if err != nil {
			return err
		}
		pipe.Set(ctx, p.cfg.KeyPrefix+symbol, payload, p.cfg.TTL)
		pipe.Publish(ctx, p.cfg.ChannelPrefix+symbol, payload)
	}

	_, err := pipe.Exec(ctx)
	return err
}
