package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carebook/internal/config"
	"github.com/jwalitptl/carebook/internal/email"
	"github.com/jwalitptl/carebook/internal/worker"
	"github.com/jwalitptl/carebook/pkg/logger"
	"github.com/jwalitptl/carebook/pkg/messaging/redis"
	"github.com/jwalitptl/carebook/pkg/metrics"
)

func setupHealthCheck(port int, monitor *worker.BrokerMonitor, gatherer prometheus.Gatherer, logger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if !monitor.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	l := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Output: os.Stdout,
		Pretty: cfg.Log.Pretty,
	}).WithFields(map[string]interface{}{"component": "worker"})
	log.Logger = l.Zerolog()
	zerolog.DefaultContextLogger = &log.Logger

	if cfg.Redis.URL == "" {
		l.Fatal(errors.New("redis.url is empty"), "The worker needs a broker to consume events from")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Logger)
	if err != nil {
		l.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	m := metrics.NewMetrics(cfg.Metrics.Namespace, "worker", prometheus.DefaultRegisterer)

	notifier := worker.NewEventNotifier(
		broker,
		email.NewService(cfg.Email),
		worker.NotifierConfig{
			Channel:       cfg.Redis.Channel,
			RetryAttempts: 3,
			RetryDelay:    2 * time.Second,
		},
		l,
		m,
	)
	monitor := worker.NewBrokerMonitor(broker, 15*time.Second, l)

	// Setup health check endpoints
	health := setupHealthCheck(cfg.Metrics.WorkerPort, monitor, prometheus.DefaultGatherer, l)

	go monitor.Start(ctx)

	l.Info("Worker started", "channel", cfg.Redis.Channel)
	if err := notifier.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Error(err, "Notifier stopped")
	}

	l.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	_ = health.Shutdown(shutdownCtx)
}
