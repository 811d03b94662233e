package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/maxviazov/youth-hoops-tracker/internal/config"
	"github.com/maxviazov/youth-hoops-tracker/internal/feed"
	"github.com/maxviazov/youth-hoops-tracker/internal/handler"
	"github.com/maxviazov/youth-hoops-tracker/internal/logger"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
	pgrepo "github.com/maxviazov/youth-hoops-tracker/internal/repository/postgres"
	"github.com/maxviazov/youth-hoops-tracker/internal/service"
	"github.com/maxviazov/youth-hoops-tracker/migrations"
)

func main() {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	path := os.Getenv("APP_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("❌ Config loading failed: %v", err)
	}

	if cfg.Logger.ServiceName == "" {
		cfg.Logger.ServiceName = cfg.App.Name
	}
	if cfg.Logger.ServiceVersion == "" {
		cfg.Logger.ServiceVersion = cfg.App.Version
	}
	if cfg.Logger.Env == "" {
		cfg.Logger.Env = cfg.App.Env
	}
	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("❌ Logger initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("server stopped with error")
	}
	appLogger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) error {
	db, err := repository.New(ctx, &cfg.Postgres, &appLogger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer db.Close()

	if cfg.Postgres.AutoMigrate {
		if err := migrate(ctx, cfg.Postgres, appLogger); err != nil {
			return err
		}
	}

	health := map[string]handler.Pinger{"postgres": pgrepo.NewPinger(db.Pool())}
	var broker feed.Broker
	if cfg.Redis.Enabled {
		client, err := feed.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		rb := feed.NewRedis(client, appLogger)
		broker, health["redis"] = rb, rb
	} else {
		broker = feed.NewLocal(appLogger)
	}
	defer broker.Close()

	pool := db.Pool()
	svc := service.NewStatsService(
		pgrepo.NewStatEventRepository(pool),
		pgrepo.NewPlayerRepository(pool),
		pgrepo.NewGameRepository(pool),
		pgrepo.NewTxManager(pool),
		broker,
		appLogger,
	)

	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	draining := make(chan struct{})
	r := gin.New()
	handler.Register(r, handler.Deps{
		Stats:          svc,
		Feed:           broker,
		Health:         health,
		Logger:         appLogger,
		AllowedOrigins: cfg.App.Cors.AllowedOrigins,
		Draining:       draining,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(func() { close(draining) })

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Int("port", cfg.App.Port).Str("env", cfg.App.Env).Msg("🚀 Service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	appLogger.Info().Dur("timeout", timeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// migrate runs on its own database/sql handle because goose needs one; it is closed right after.
func migrate(ctx context.Context, cfg config.PostgresConfig, appLogger zerolog.Logger) error {
	sqlDB, err := sql.Open("pgx", repository.DSN(cfg))
	if err != nil {
		return fmt.Errorf("open migration handle: %w", err)
	}
	defer sqlDB.Close()

	applied, err := migrations.Up(ctx, sqlDB, goose.DialectPostgres)
	if err != nil {
		return err
	}
	appLogger.Info().Int("applied", applied).Msg("✅ Migrations up to date")
	return nil
}
