package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/carebook/internal/config"
	"github.com/jwalitptl/carebook/internal/handler/appointment"
	"github.com/jwalitptl/carebook/internal/handler/auth"
	"github.com/jwalitptl/carebook/internal/handler/health"
	"github.com/jwalitptl/carebook/internal/handler/notification"
	"github.com/jwalitptl/carebook/internal/handler/provider"
	"github.com/jwalitptl/carebook/internal/handler/view"
	"github.com/jwalitptl/carebook/internal/middleware"
	"github.com/jwalitptl/carebook/internal/repository"
	"github.com/jwalitptl/carebook/internal/repository/memory"
	"github.com/jwalitptl/carebook/internal/repository/postgres"
	"github.com/jwalitptl/carebook/internal/router"
	appointmentService "github.com/jwalitptl/carebook/internal/service/appointment"
	auditService "github.com/jwalitptl/carebook/internal/service/audit"
	authService "github.com/jwalitptl/carebook/internal/service/auth"
	eventService "github.com/jwalitptl/carebook/internal/service/event"
	notificationService "github.com/jwalitptl/carebook/internal/service/notification"
	tokens "github.com/jwalitptl/carebook/pkg/auth"
	"github.com/jwalitptl/carebook/pkg/logger"
	"github.com/jwalitptl/carebook/pkg/messaging"
	"github.com/jwalitptl/carebook/pkg/messaging/redis"
	"github.com/jwalitptl/carebook/pkg/metrics"
	"github.com/jwalitptl/carebook/pkg/security"
)

func main() {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "carebook",
		Short: "Patient appointment booking server",
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yml")

	rootCmd.AddCommand(serveCmd(&configDir))
	rootCmd.AddCommand(migrateCmd(&configDir))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			setupLogger(cfg.Log)
			return runServer(cfg)
		},
	}
}

func migrateCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			setupLogger(cfg.Log)

			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info().Str("database", cfg.Database.Name).Msg("schema applied")
			return nil
		},
	}
}

func loadConfig(dir string) (*config.Config, error) {
	if dir == "" {
		return config.LoadConfig()
	}
	return config.LoadConfig(dir)
}

func setupLogger(cfg config.LogConfig) {
	l := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Level),
		Output: os.Stdout,
		Pretty: cfg.Pretty,
	})
	log.Logger = l.Zerolog()
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.Level))
	zerolog.DefaultContextLogger = &log.Logger
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		return memory.NewStore(cfg.Providers), nil
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	store, err := postgres.NewStore(ctx, db, cfg.Providers)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func openBroker(ctx context.Context, cfg config.RedisConfig) (messaging.Broker, error) {
	if cfg.URL == "" {
		log.Info().Msg("no redis url configured, events stay in-process")
		return messaging.NewNoopBroker(), nil
	}
	return redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, log.Logger)
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.Server.Mode)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer store.Close()

	broker, err := openBroker(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer broker.Close()

	auditor, err := auditService.NewService(cfg.Audit.Output)
	if err != nil {
		return err
	}
	defer auditor.Close()

	m := metrics.NewMetrics(cfg.Metrics.Namespace, "", prometheus.DefaultRegisterer)
	events := eventService.NewService(broker, cfg.Redis.Channel, m)

	// Initialize services
	authSvc := authService.NewService(store.Users(), security.NewBcryptHasher(bcrypt.DefaultCost), cfg.Admin, auditor, m)
	appointmentSvc := appointmentService.NewService(store.Appointments(), store.Providers(), events, auditor, m)
	notificationSvc := notificationService.NewService(store.Appointments(), events, auditor, m)

	views, err := view.NewRenderer(notificationSvc)
	if err != nil {
		return err
	}

	sessions := middleware.NewAuthMiddleware(
		tokens.NewTokenManager(cfg.Session.Secret, cfg.Session.TTL),
		middleware.SessionConfig{CookieName: cfg.Session.CookieName, Secure: cfg.Session.Secure},
	)

	// Initialize handlers
	handlers := router.Handlers{
		Auth:         auth.NewHandler(authSvc, sessions, views, auditor),
		Appointment:  appointment.NewHandler(appointmentSvc, notificationSvc, views, cfg.Booking.Doctors),
		Notification: notification.NewHandler(notificationSvc),
		Provider:     provider.NewHandler(store.Providers()),
		Health: health.NewHandler(map[string]health.Pinger{
			"store":  store,
			"broker": broker,
		}, prometheus.DefaultGatherer),
	}

	r := router.NewRouter(sessions, handlers, router.RouterConfig{
		RateLimit: middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
		Secure:         cfg.Session.Secure,
		RequestTimeout: cfg.Server.WriteTimeout,
		MetricsPrefix:  cfg.Metrics.Namespace + "_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("storage", cfg.Storage.Driver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}
