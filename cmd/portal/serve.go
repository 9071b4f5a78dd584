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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-portal/internal/backend"
	"github.com/jwalitptl/patient-portal/internal/billing"
	"github.com/jwalitptl/patient-portal/internal/config"
	"github.com/jwalitptl/patient-portal/internal/event"
	"github.com/jwalitptl/patient-portal/internal/flash"
	"github.com/jwalitptl/patient-portal/internal/handler"
	"github.com/jwalitptl/patient-portal/internal/handler/appointment"
	"github.com/jwalitptl/patient-portal/internal/handler/auth"
	"github.com/jwalitptl/patient-portal/internal/handler/bills"
	"github.com/jwalitptl/patient-portal/internal/handler/health"
	"github.com/jwalitptl/patient-portal/internal/handler/message"
	"github.com/jwalitptl/patient-portal/internal/handler/page"
	"github.com/jwalitptl/patient-portal/internal/handler/patient"
	prometheusHandler "github.com/jwalitptl/patient-portal/internal/handler/prometheus"
	"github.com/jwalitptl/patient-portal/internal/router"
	appointmentService "github.com/jwalitptl/patient-portal/internal/service/appointment"
	"github.com/jwalitptl/patient-portal/internal/session"
	"github.com/jwalitptl/patient-portal/internal/table"
	"github.com/jwalitptl/patient-portal/pkg/logger"
	redisBroker "github.com/jwalitptl/patient-portal/pkg/messaging/redis"
	"github.com/jwalitptl/patient-portal/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal server",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, _ := cmd.Flags().GetStringSlice("config-path")
			return runServer(paths)
		},
	}
}

// loadConfig reads .env when present, then the config file, and sets up the
// global logger.
func loadConfig(paths []string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Console: cfg.Development()})
	return cfg, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func runServer(configPaths []string) error {
	cfg, err := loadConfig(configPaths)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry, "portal")

	// Hospital backend
	client, err := backend.NewClient(cfg.Backend, m, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create backend client")
	}

	// Sessions and the event mirror share one Redis connection when configured
	var (
		store   session.Store
		busOpts []event.Option
	)
	if cfg.Session.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		rdb, err := connectRedis(ctx, cfg.Session.RedisURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()

		store = session.NewRedisStore(rdb, cfg.Session.TTL)
		busOpts = append(busOpts, event.WithMirror(redisBroker.NewBroker(rdb, log.Logger), cfg.Events.RedisChannel))
		log.Info().Str("channel", cfg.Events.RedisChannel).Msg("Using Redis session store")
	} else {
		store = session.NewMemoryStore(cfg.Session.TTL)
		log.Warn().Msg("session.redis_url not set; sessions are kept in memory")
	}

	sessions := session.NewManager(store, session.NewIssuer(cfg.Session.Secret, cfg.Session.TTL), cfg.Session.CookieName, cfg.Session.Secure, m)
	board := flash.NewBoard(flash.WithTTL(cfg.Session.TTL))
	selections := table.NewSelectionStore(cfg.Session.TTL)
	bus := event.NewBus(log.Logger, busOpts...)

	// Services
	appointmentSvc := appointmentService.NewService(client, board, bus, m, log.Logger)
	renderer := billing.NewRenderer(cfg.Billing.HospitalName, m, log.Logger)

	// Handlers
	authHandler := auth.NewHandler(client, sessions, board.Clear, selections.Drop)

	r := router.NewRouter(
		sessions,
		m,
		authHandler,
		[]handler.RouteRegistrar{
			health.NewHandler(client),
			prometheusHandler.New(registry),
		},
		[]handler.RouteRegistrar{
			page.NewHandler(cfg.Billing.HospitalName),
			authHandler,
			patient.NewHandler(appointmentSvc),
			appointment.NewHandler(appointmentSvc, table.New(), selections, bus),
			message.NewHandler(board),
			bills.NewHandler(client, renderer, cfg.Billing.Logo),
		},
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.RateLimit.RPS),
			RateBurst:      cfg.RateLimit.Burst,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			TLS:            cfg.Session.Secure,
			Release:        !cfg.Development(),
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("backend", cfg.Backend.BaseURL).Msg("Portal listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}
