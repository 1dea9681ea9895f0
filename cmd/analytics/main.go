// Command analytics consumes query events from Kafka, aggregates them in
// memory, and serves the totals at GET /api/v1/analytics. When Postgres is
// reachable, snapshots are persisted to query_stats_snapshots on a fixed
// interval and listed at GET /api/v1/analytics/snapshots.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	port := flag.Int("port", 0, "HTTP port, overrides server.port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	go func() {
		if err := agg.Consume(ctx, cfg.Kafka, cfg.Kafka.Topics.QueryEvents); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()

	checker := health.NewChecker()

	var snapshots analytics.SnapshotLister
	var db *postgres.Client
	err = resilience.Retry(ctx, "postgres connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var err error
		db, err = postgres.New(ctx, cfg.Postgres)
		return err
	})
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
	} else {
		defer db.Close()
		store := aggregator.NewStore(db, cfg.Analytics.SnapshotRetention)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare snapshot table", "error", err)
			os.Exit(1)
		}
		store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		snapshots = store
		checker.Register("postgres", health.PingCheck(db.Ping, false))
	}

	h := analytics.NewHandler(agg, snapshots)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", h.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var root http.Handler = mux
	if cfg.Metrics.Enabled {
		reg := newRegistry()
		root = middleware.Metrics(metrics.New(reg))(root)
		metricsServer := metrics.NewServer(cfg.Metrics.Port, "analytics", reg)
		metricsServer.Start()
		defer metricsServer.Shutdown(context.Background())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.RequestID(root),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

// newRegistry returns a private registry carrying the runtime collectors
// alongside the service's own.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
