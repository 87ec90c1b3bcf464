// streamtest connects to the price feed and prints parsed messages to the console.
// Usage: go run ./cmd/streamtest --url ws://localhost:5000/ws --symbols EURUSD,XAUUSD
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/pricestream/internal/analytics"
	"github.com/rickgao/pricestream/internal/config"
	"github.com/rickgao/pricestream/internal/connection"
	"github.com/rickgao/pricestream/internal/dispatcher"
	"github.com/rickgao/pricestream/internal/feed"
	"github.com/rickgao/pricestream/internal/pricetable"
	"github.com/rickgao/pricestream/internal/protocol"
)

func main() {
	url := flag.String("url", config.DefaultFeedURL, "feed endpoint")
	symbols := flag.String("symbols", "EURUSD,GBPUSD,USDJPY,XAUUSD,BTCUSD", "comma-separated symbols to subscribe")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	connCfg := connection.DefaultConfig()
	connCfg.URL = *url

	client := feed.New(feed.Config{
		Connection: connCfg,
		Symbols:    strings.Split(*symbols, ","),
	}, feed.WithLogger(logger))

	engine := client.Analytics()

	client.OnPriceUpdate(func(batch map[string]pricetable.Quote) {
		for symbol, q := range batch {
			printQuote(engine, symbol, q, *verbose)
		}
	})
	client.OnNews(func(item protocol.NewsItem) {
		fmt.Printf("[NEWS] %s (%s, %s)\n", item.Title, item.Category, item.Impact)
	})
	client.OnUnknown(func(ev dispatcher.Event) {
		fmt.Printf("[%s] %s\n", strings.ToUpper(ev.Type), ev.Payload)
	})
	client.OnStateChange(func(s connection.State) {
		fmt.Printf("[STATE] %s\n", s)
	})

	if err := client.Start(ctx); err != nil {
		logger.Error("failed to start feed client", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := client.Stats()
				status := client.Status()
				logger.Info("stats",
					"state", status.State,
					"session_id", status.SessionID,
					"acknowledged", len(client.Acknowledged()),
					"received", stats.MessagesReceived,
					"routed", stats.MessagesRouted,
					"parse_errors", stats.ParseErrors,
					"invalid_quotes", stats.InvalidQuotes,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	client.Stop(shutdownCtx)
	logger.Info("shutdown complete")
}

func printQuote(engine *analytics.Engine, symbol string, q pricetable.Quote, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(q, "", "  ")
		fmt.Printf("[QUOTE] %s\n", data)
		return
	}

	bid, err := engine.FormatPriceString(q.Bid, symbol)
	if err != nil {
		bid = q.Bid
	}
	ask, err := engine.FormatPriceString(q.Ask, symbol)
	if err != nil {
		ask = q.Ask
	}
	pct, err := analytics.FormatPercentageString(q.ChangePercent)
	if err != nil {
		pct = q.ChangePercent
	}
	dir, err := analytics.ClassifyChangeString(q.Change)
	if err != nil {
		dir = analytics.Neutral
	}

	fmt.Printf("[QUOTE] %-8s bid=%s ask=%s %s %s\n", symbol, bid, ask, dir.Glyph(), pct)
}
