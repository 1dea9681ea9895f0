// Command searcher loads one text document and serves boolean queries over
// it on HTTP.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml] [-document corpus.txt]
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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textquery/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	documentPath := flag.String("document", "", "document to index, overrides document.path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *documentPath != "" {
		cfg.Document.Path = *documentPath
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)
	slog.Info("starting search service", "port", cfg.Server.Port, "document", cfg.Document.Path)

	if cfg.Document.Path == "" {
		slog.Error("no document configured: set document.path, TQ_DOCUMENT_PATH or -document")
		os.Exit(1)
	}
	doc, err := indexer.Load(cfg.Document.Path)
	if err != nil {
		slog.Error("failed to load document", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := newRegistry()
		m = metrics.New(reg)
		m.DocumentLines.Set(float64(doc.Store.Len()))
		m.DocumentTerms.Set(float64(doc.Index.TermCount()))
		metricsServer := metrics.NewServer(cfg.Metrics.Port, "searcher", reg)
		metricsServer.Start()
		defer metricsServer.Shutdown(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("document", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d lines, %d terms", doc.Store.Len(), doc.Index.TermCount()),
		}
	})

	var resultCache handler.ResultCache
	if cfg.Redis.Enabled {
		var redisClient *pkgredis.Client
		err := resilience.Retry(ctx, "redis connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			var err error
			redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			resultCache = cache.New(redisClient, cfg.Redis, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, false))
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var tracker handler.EventTracker
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		slog.Info("query analytics enabled", "topic", cfg.Kafka.Topics.QueryEvents)
	}

	exec := executor.New(doc, m, cfg.Search)
	h := handler.New(exec, resultCache, tracker, cfg.Search)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID}
	if m != nil {
		mws = append(mws, middleware.Metrics(m))
	}
	mws = append(mws, middleware.Timeout(cfg.Search.QueryTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
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

	slog.Info("search service listening", "addr", server.Addr, "fingerprint", doc.ShortFingerprint())
	start := time.Now()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped", "uptime", time.Since(start).Round(time.Second))
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
