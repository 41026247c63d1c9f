package main

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/settlewise/internal/auth"
	"github.com/mmynk/settlewise/internal/config"
	"github.com/mmynk/settlewise/internal/middleware"
	"github.com/mmynk/settlewise/internal/service"
	"github.com/mmynk/settlewise/internal/settlement"
	"github.com/mmynk/settlewise/internal/storage"
)

type routerDeps struct {
	cfg        *config.Config
	store      storage.Store
	finalizer  *settlement.Finalizer
	jwtManager *auth.JWTManager
	registry   *prometheus.Registry
}

// newRouter wires health, metrics and the Connect services.
func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Authorization", "Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms",
			service.IdempotencyHeader,
		},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))

	requireAuth := connect.WithInterceptors(middleware.RequireAuth(deps.jwtManager), middleware.LoggingInterceptor())
	logged := connect.WithInterceptors(middleware.LoggingInterceptor())

	settlementPath, settlementHandler := service.NewSettlementServiceHandler(
		service.NewSettlementService(deps.store, deps.finalizer),
		requireAuth,
	)
	authPath, authHandler := service.NewAuthServiceHandler(
		service.NewAuthService(auth.NewPasswordAuthenticator(deps.store), deps.jwtManager, deps.store),
		[]connect.HandlerOption{logged},
		connect.WithInterceptors(middleware.RequireAuth(deps.jwtManager)),
	)

	r.Group(func(r chi.Router) {
		if deps.cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(deps.cfg.RateLimitPerMinute, time.Minute))
		}
		r.Handle(settlementPath+"*", settlementHandler)
		r.Handle(authPath+"*", authHandler)
	})

	return r
}
