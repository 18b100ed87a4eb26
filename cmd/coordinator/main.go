// Package main wires the cross-chain arbitrage coordinator together: the
// candidate-opportunity consumer loop, the Router, the Solana-native
// detection engine, the forwarding Publisher, the cleanup scheduler, and the
// HTTP control surface, then runs them until a termination signal arrives.
//
// Grounded on the reference implementation's cmd/server/main.go main(): .env loading, a
// context cancelled by signal.Notify, a createStores-style collaborator
// bootstrap (here: optional audit/analytics sinks), a background HTTP
// server goroutine, and the double-signal/30s-timeout forced-exit pattern.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sonicx222/arbitrage-coordinator/internal/analytics"
	"github.com/sonicx222/arbitrage-coordinator/internal/audit"
	"github.com/sonicx222/arbitrage-coordinator/internal/cleanup"
	"github.com/sonicx222/arbitrage-coordinator/internal/config"
	"github.com/sonicx222/arbitrage-coordinator/internal/control"
	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/publisher"
	"github.com/sonicx222/arbitrage-coordinator/internal/router"
	"github.com/sonicx222/arbitrage-coordinator/internal/solanaengine"
	"github.com/sonicx222/arbitrage-coordinator/internal/stream/redisstream"
)

func main() {
	logger := logging.New("[coordinator] ")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	streamClient, err := redisstream.NewFromURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := router.New(routerConfig(cfg), streamClient, nil, logger)
	pub := publisher.New(streamClient, publisherConfig(cfg), logger)
	engine := solanaengine.New(engineConfig(cfg), pub, logger)

	closeSinks := wireObservabilitySinks(ctx, cfg, r, engine, logger)
	defer closeSinks()

	scheduler := cleanup.New(cleanup.DefaultConfig(), r, engine.Store(), logger)
	metrics := control.NewMetrics("")
	server := control.New(cfg.ControlAddr, r, engine, pub, metrics, logger)

	consumer := newConsumerLoop(cfg, streamClient, r, logger)

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received termination signal, shutting down", logging.Fields{"signal": sig.String()})
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate exit", logging.Fields{"signal": sig.String()})
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit", nil)
			os.Exit(1)
		case <-done:
		}
	}()

	go scheduler.Run(ctx)

	go func() {
		if err := server.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("control server stopped", logging.Fields{"error": err.Error()})
		}
	}()

	err = consumer.run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		log.Fatalf("consumer loop error: %v", err)
	}

	logger.Info("shutdown complete", nil)
}

func routerConfig(cfg config.Config) router.Config {
	rc := router.DefaultConfig()
	rc.ServiceName = cfg.ServiceName
	rc.InstanceID = cfg.InstanceID
	return rc
}

func engineConfig(cfg config.Config) solanaengine.Config {
	ec := solanaengine.DefaultConfig()
	ec.Detection = cfg.Detection
	return ec
}

func publisherConfig(cfg config.Config) publisher.Config {
	return publisher.Config{ServiceName: cfg.ServiceName}
}

// wireObservabilitySinks connects the optional Postgres audit sink and
// ClickHouse analytics sink when their DSNs are configured. Both are
// best-effort collaborators: a connection failure here is logged, not
// fatal, since neither sink sits on the correctness-critical path. Returns
// a cleanup func that closes whatever was opened.
func wireObservabilitySinks(ctx context.Context, cfg config.Config, r *router.Router, e *solanaengine.Engine, log logging.Logger) func() {
	var closers []func()

	if cfg.PostgresDSN != "" {
		pool, err := audit.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Warn("audit postgres connection failed, continuing without it", logging.Fields{"error": err.Error()})
		} else if err := audit.Migrate(ctx, pool); err != nil {
			log.Warn("audit postgres migration failed, continuing without it", logging.Fields{"error": err.Error()})
			pool.Close()
		} else {
			r.SetAuditSink(audit.NewPostgresSink(pool, log))
			closers = append(closers, pool.Close)
		}
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := analytics.NewConn(ctx, cfg.ClickHouseDSN)
		if err != nil {
			log.Warn("analytics clickhouse connection failed, continuing without it", logging.Fields{"error": err.Error()})
		} else if err := analytics.Migrate(ctx, conn); err != nil {
			log.Warn("analytics clickhouse migration failed, continuing without it", logging.Fields{"error": err.Error()})
			conn.Close()
		} else {
			e.SetAnalyticsSink(analytics.NewClickHouseSink(conn, log))
			closers = append(closers, func() { conn.Close() })
		}
	}

	return func() {
		for _, c := range closers {
			c()
		}
	}
}
