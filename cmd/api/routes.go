package main

import (
	"net/http"

	"github.com/Reymilan15/milos-cuentas/api"
	"github.com/Reymilan15/milos-cuentas/internal/config"
	"github.com/Reymilan15/milos-cuentas/internal/fx"
	"github.com/Reymilan15/milos-cuentas/internal/handler"
	"github.com/Reymilan15/milos-cuentas/internal/metrics"
	"github.com/Reymilan15/milos-cuentas/internal/middleware"
	"github.com/Reymilan15/milos-cuentas/internal/repository"
	"github.com/Reymilan15/milos-cuentas/internal/service"
)

type routeDeps struct {
	cfg     *config.Config
	db      *repository.DB
	metrics *metrics.Metrics
	users   *repository.UserRepository
	idem    *repository.IdempotencyRepository
	ledgers *service.LedgerService
	auth    *service.AuthService
	rates   *fx.RateService
	feed    *handler.WSHandler
	docs    *api.Document
	version string
}

func routes(d routeDeps) http.Handler {
	health := handler.NewHealthHandler(d.db, d.version)
	authH := handler.NewAuthHandler(d.auth)
	userH := handler.NewUserHandler(d.users)
	ledgerH := handler.NewLedgerHandler(d.ledgers)
	ratesH := handler.NewRatesHandler(d.rates)

	requireAuth := middleware.Auth(d.cfg.JWTSecret)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /ready", health.Readiness)
	mux.Handle("GET /metrics", d.metrics.Handler())
	mux.HandleFunc("GET /docs", handler.ServeDocs(d.docs.Info.Title, d.docs.Info.Version))
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(api.Spec))

	mux.HandleFunc("POST /api/v1/auth/register", authH.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authH.Login)
	mux.Handle("POST /api/v1/auth/logout", protected(authH.Logout))
	mux.Handle("GET /api/v1/users/me", protected(userH.Me))
	mux.Handle("PATCH /api/v1/users/me", protected(userH.UpdateProfile))

	mux.Handle("GET /api/v1/ledger", protected(ledgerH.Get))
	mux.Handle("PUT /api/v1/ledger/budget", protected(ledgerH.SetBudget))
	mux.Handle("POST /api/v1/ledger/transactions", middleware.Chain(
		http.HandlerFunc(ledgerH.AddTransaction),
		requireAuth,
		middleware.Idempotency(d.idem),
	))
	mux.Handle("DELETE /api/v1/ledger/transactions/{id}", protected(ledgerH.RemoveTransaction))
	mux.Handle("GET /api/v1/ledger/remaining", protected(ledgerH.Remaining))
	mux.Handle("POST /api/v1/ledger/reset", protected(ledgerH.Reset))
	mux.Handle("GET /api/v1/ledger/ws", protected(d.feed.Subscribe))

	mux.HandleFunc("GET /api/v1/rates", ratesH.List)
	mux.HandleFunc("GET /api/v1/rates/convert", ratesH.Convert)

	// config.Load has already rejected malformed entries.
	trusted, _ := d.cfg.TrustedProxyPrefixes()
	limiter := middleware.NewRateLimiter(d.cfg.RateLimitRPS, d.cfg.RateLimitBurst, trusted)

	return middleware.Chain(mux,
		middleware.Recovery,
		middleware.Tracing,
		middleware.Logging(d.metrics),
		limiter.Middleware,
	)
}
