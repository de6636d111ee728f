package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/splitledger/internal/adapter/http/handler"
	"github.com/iho/splitledger/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AuthHandler       *handler.AuthHandler
	GroupHandler      *handler.GroupHandler
	ExpenseHandler    *handler.ExpenseHandler
	LedgerHandler     *handler.LedgerHandler
	SettlementHandler *handler.SettlementHandler
	HealthHandler     *handler.HealthHandler

	TokenVerifier  middleware.TokenVerifier
	RateLimiter    *middleware.RateLimiter
	HTTPMetrics    *middleware.HTTPMetrics
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Wrap)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Limit)
			}
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		})

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier))
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Limit)
			}

			r.Get("/auth/me", cfg.AuthHandler.Me)

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", cfg.GroupHandler.Create)
				r.Get("/", cfg.GroupHandler.List)

				r.Route("/{groupID}", func(r chi.Router) {
					r.Get("/", cfg.GroupHandler.Get)
					r.Patch("/", cfg.GroupHandler.Rename)

					r.Get("/members", cfg.GroupHandler.ListMembers)
					r.Post("/members", cfg.GroupHandler.AddMember)
					r.Patch("/members/{membershipID}", cfg.GroupHandler.ChangeRole)
					r.Delete("/members/{membershipID}", cfg.GroupHandler.RemoveMember)

					r.With(middleware.IdempotencyKey).Post("/expenses", cfg.ExpenseHandler.Create)
					r.Get("/expenses", cfg.ExpenseHandler.List)

					r.Get("/balances", cfg.LedgerHandler.Balances)
					r.Get("/integrity", cfg.LedgerHandler.CheckIntegrity)

					r.With(middleware.IdempotencyKey).Post("/settlements/compute", cfg.SettlementHandler.Compute)
					r.Get("/settlements/latest", cfg.SettlementHandler.Latest)
					r.Get("/settlements", cfg.SettlementHandler.List)

					r.Get("/activity", cfg.GroupHandler.ListActivity)
				})
			})

			r.Get("/expenses/{expenseID}", cfg.ExpenseHandler.Get)
			r.Patch("/expenses/{expenseID}", cfg.ExpenseHandler.Update)

			r.Get("/settlement-batches/{batchID}", cfg.SettlementHandler.GetBatch)
			r.With(middleware.IdempotencyKey).Post("/settlement-batches/{batchID}/void", cfg.SettlementHandler.Void)

			r.With(middleware.IdempotencyKey).Post("/settlements/{settlementID}/paid", cfg.SettlementHandler.MarkPaid)
		})
	})

	return r
}
