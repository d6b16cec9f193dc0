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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/assemblymk1/localgov/internal/auth"
	"github.com/assemblymk1/localgov/internal/config"
	"github.com/assemblymk1/localgov/internal/db"
	"github.com/assemblymk1/localgov/internal/events"
	internalhttp "github.com/assemblymk1/localgov/internal/http"
	"github.com/assemblymk1/localgov/internal/repo"
	"github.com/assemblymk1/localgov/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api stopped with error")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	if cfg.InsecureSecret {
		log.Warn().Msg("JWT_SECRET is not set; tokens are signed with an insecure default")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("schema applied")
	}

	checks := []internalhttp.ReadyCheck{{Name: "postgres", Ping: pool.Ping}}

	// A nil interface keeps the dashboard uncached.
	var cache service.Cache
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis parse: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		cache = redisClient
		checks = append(checks, internalhttp.ReadyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	} else {
		log.Info().Msg("REDIS_URL not set; dashboard cache disabled")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue)
		if err != nil {
			return fmt.Errorf("events: %w", err)
		}
		publisher = amqpPublisher
		log.Info().Str("queue", cfg.EventsQueue).Msg("publishing process events")
	}
	defer publisher.Close()

	repository := repo.New(pool)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	dashboard := service.NewDashboardService(repository, cache, cfg.DashboardCacheTTL)
	handler, err := internalhttp.NewRouter(cfg, internalhttp.Deps{
		Auth:      service.NewAuthService(repository, jwtManager),
		Dashboard: dashboard,
		Processes: service.NewProcessService(repository, publisher, dashboard),
		Rates:     service.NewRatesService(repository),
		Checks:    checks,
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API listening on :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
