package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Reymilan15/milos-cuentas/api"
	"github.com/Reymilan15/milos-cuentas/internal/config"
	"github.com/Reymilan15/milos-cuentas/internal/events"
	"github.com/Reymilan15/milos-cuentas/internal/events/kafka"
	"github.com/Reymilan15/milos-cuentas/internal/fx"
	"github.com/Reymilan15/milos-cuentas/internal/handler"
	"github.com/Reymilan15/milos-cuentas/internal/logging"
	"github.com/Reymilan15/milos-cuentas/internal/metrics"
	"github.com/Reymilan15/milos-cuentas/internal/repository"
	"github.com/Reymilan15/milos-cuentas/internal/service"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("milcuentas-api", cfg.LogLevel, cfg.AppEnv)

	docs, err := api.Load()
	if err != nil {
		slog.Error("failed to load api document", "error", err)
		os.Exit(1)
	}
	version := docs.Info.Version

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.NewRegistry())

	defaults, _ := cfg.DefaultRates()
	eurFactor, _ := cfg.EURMultiplier()
	rates := fx.NewRateService(
		fx.NewDolarAPIClient(cfg.RatesAPIURL, cfg.RatesTimeout, eurFactor),
		defaults, cfg.RatesRefreshInterval, logger, m,
	)

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		slog.Info("publishing ledger events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	defer publisher.Close()

	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	idemRepo := repository.NewIdempotencyRepository(db)

	feed := handler.NewWSHandler()
	syncer := service.NewSyncer(ledgerRepo, publisher, logger, m)
	ledgers := service.NewLedgerService(ledgerRepo, rates, syncer, feed, m)
	authSvc := service.NewAuthService(userRepo, ledgers, cfg.JWTSecret, cfg.JWTExpiry)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Go(func() { rates.Start(bgCtx) })
	wg.Go(func() { syncer.Run(bgCtx) })
	wg.Go(func() { cleanIdempotencyKeys(bgCtx, idemRepo) })

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: routes(routeDeps{
			cfg:     cfg,
			db:      repository.NewDB(db),
			metrics: m,
			users:   userRepo,
			idem:    idemRepo,
			ledgers: ledgers,
			auth:    authSvc,
			rates:   rates,
			feed:    feed,
			docs:    docs,
			version: version,
		}),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := feed.Close(); err != nil {
		slog.Warn("failed to close ledger feed", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stopping the syncer flushes pending snapshots before the pool closes.
	stopBackground()
	wg.Wait()
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		if db, err = repository.NewPostgresDB(context.Background(), cfg.DatabaseURL, pool); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}

func cleanIdempotencyKeys(ctx context.Context, repo *repository.IdempotencyRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanExpired(ctx)
			if err != nil {
				slog.Warn("failed to clean idempotency keys", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("cleaned idempotency keys", "count", n)
			}
		}
	}
}
