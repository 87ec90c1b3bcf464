// feedclient streams quotes from the price feed, keeps the latest price per
// symbol, and serves them over HTTP. Quotes can optionally be mirrored to Redis.
//
// Usage: go run ./cmd/feedclient --config configs/feedclient.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/pricestream/internal/catalog"
	"github.com/rickgao/pricestream/internal/config"
	"github.com/rickgao/pricestream/internal/connection"
	"github.com/rickgao/pricestream/internal/feed"
	"github.com/rickgao/pricestream/internal/httpapi"
	"github.com/rickgao/pricestream/internal/instrument"
	"github.com/rickgao/pricestream/internal/mirror"
	"github.com/rickgao/pricestream/internal/pricetable"
	"github.com/rickgao/pricestream/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feedclient.example.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	// Missing .env is fine; variables may come from the environment.
	_ = godotenv.Load(*envFile)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log, os.Stdout)
	logger.Info("starting feedclient",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Instruments: builtin table, then catalog entries, then config overrides.
	var instruments []instrument.Instrument
	var seed []pricetable.Quote

	if cfg.Catalog.Enabled {
		logger.Info("connecting to catalog database",
			"host", cfg.Catalog.Database.Host,
			"port", cfg.Catalog.Database.Port,
			"database", cfg.Catalog.Database.Name,
		)
		pool, err := catalog.Connect(ctx, cfg.Catalog.Database)
		if err != nil {
			logger.Error("failed to connect to catalog database", "error", err)
			os.Exit(1)
		}
		instruments, seed, err = loadCatalog(ctx, pool, cfg.Catalog.Timeout, logger)
		pool.Close()
		if err != nil {
			logger.Error("failed to load catalog", "error", err)
			os.Exit(1)
		}
		logger.Info("catalog loaded", "instruments", len(instruments), "seed_quotes", len(seed))
	}

	overrides, err := instrumentOverrides(cfg.Instruments)
	if err != nil {
		logger.Error("invalid instrument config", "error", err)
		os.Exit(1)
	}
	instruments = append(instruments, overrides...)

	client := feed.New(feedConfig(cfg),
		feed.WithLogger(logger),
		feed.WithInstruments(instrument.New(instruments...)),
		feed.WithSeedQuotes(seed),
	)

	client.OnStateChange(func(s connection.State) {
		logger.Info("feed state", "state", s)
	})

	var publisher *mirror.Publisher
	var rdb *redis.Client
	if cfg.Mirror.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Mirror.Addr,
			Password: cfg.Mirror.Password,
			DB:       cfg.Mirror.DB,
		})

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.Mirror.Addr, "error", err)
			os.Exit(1)
		}

		publisher = mirror.NewPublisher(mirrorConfig(cfg.Mirror), rdb, logger)
		// Detached from the signal context so the final flush still reaches redis.
		if err := publisher.Start(context.Background()); err != nil {
			logger.Error("failed to start mirror", "error", err)
			os.Exit(1)
		}
		client.OnPriceUpdate(publisher.Enqueue)
		logger.Info("mirroring quotes to redis", "addr", cfg.Mirror.Addr)
	}

	if err := client.Start(ctx); err != nil {
		logger.Error("failed to start feed client", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	var server *http.Server
	if cfg.Status.Enabled {
		server = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Status.Port),
			Handler:           httpapi.NewRouter(httpapi.NewHandler(client), logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting status server", "port", cfg.Status.Port)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				stats := client.Stats()
				logger.Info("stats",
					"state", client.State(),
					"symbols", client.Table().Len(),
					"messages_received", stats.MessagesReceived,
					"messages_routed", stats.MessagesRouted,
					"parse_errors", stats.ParseErrors,
					"unknown_messages", stats.UnknownMessages,
				)
			}
		}
	})

	logger.Info("feedclient running", "symbols", client.Subscriptions())

	// Shut down when a signal arrives or the status server fails.
	<-gctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown", "error", err)
		}
	}
	if err := client.Stop(shutdownCtx); err != nil {
		logger.Warn("feed client shutdown", "error", err)
	}
	if publisher != nil {
		if err := publisher.Stop(shutdownCtx); err != nil {
			logger.Warn("mirror shutdown", "error", err)
		}
		m := publisher.Stats()
		logger.Info("mirror stopped", "published", m.Published, "coalesced", m.Coalesced, "errors", m.Errors)
		rdb.Close()
	}

	if err := g.Wait(); err != nil {
		logger.Error("feedclient exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("feedclient stopped")
}
