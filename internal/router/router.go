// Package router assembles the chi router: global middleware, public auth
// routes and the protected book routes.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfmark/shelfmark/internal/handler"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/middleware"
)

// Config carries everything the router mounts.
type Config struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder

	Info   *handler.Handler
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	Books  *handler.BookHandler

	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler

	AuthConfig middleware.AuthConfig

	CORSOrigins   []string
	MaxBodyBytes  int64
	IsDevelopment bool
}

// New configures the chi router with all routes and middleware.
func New(cfg Config) *chi.Mux {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))

	// Health endpoints (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// Root info endpoint
	r.Get("/", cfg.Info.Hello)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
		})

		r.Route("/books", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.AuthConfig))

			r.Post("/", cfg.Books.Create)
			r.Get("/", cfg.Books.List)
			r.Get("/user", cfg.Books.ListMine)
			r.Delete("/{id}", cfg.Books.Delete)
		})
	})

	// 404 and 405 handlers
	r.NotFound(cfg.Info.NotFound)
	r.MethodNotAllowed(cfg.Info.MethodNotAllowed)

	return r
}
