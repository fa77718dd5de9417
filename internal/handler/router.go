package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/advocacia-ai/painel/internal/middleware"
)

// RouterConfig carries everything the router mounts.
type RouterConfig struct {
	Logger *slog.Logger

	Health       *HealthHandler
	Auth         *AuthHandler
	Profile      *ProfileHandler
	Leads        *LeadHandler
	Conversation *ConversationHandler
	Notes        *NoteHandler
	Tasks        *TaskHandler
	Dashboard    *DashboardHandler
	// Metrics is optional; /metrics is only mounted when set.
	Metrics *MetricsHandler

	Resolver  middleware.Resolver
	RateLimit middleware.RateLimitConfig

	Security    middleware.SecurityConfig
	CORS        middleware.CORSConfig
	MaxBodySize int64

	// TrustProxy enables chi's RealIP; only set it behind a proxy that
	// overwrites X-Forwarded-For.
	TrustProxy bool
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public account routes, throttled per IP
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitIP(cfg.RateLimit))
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/password-reset", cfg.Auth.RequestPasswordReset)
			r.Post("/password-reset/confirm", cfg.Auth.ConfirmPasswordReset)
			r.Post("/confirm-email", cfg.Auth.ConfirmEmail)
		})

		// Everything else requires a resolved principal
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(middleware.AuthConfig{
				Logger:   cfg.Logger,
				Resolver: cfg.Resolver,
			}))
			r.Use(middleware.RateLimitPrincipal(cfg.RateLimit))

			r.Get("/profile", cfg.Profile.Get)
			r.Put("/profile", cfg.Profile.Update)
			r.Post("/account/deactivate", cfg.Auth.Deactivate)

			r.Route("/leads", func(r chi.Router) {
				r.Post("/", cfg.Leads.Create)
				r.Get("/", cfg.Leads.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.Leads.Get)
					r.Put("/", cfg.Leads.Update)
					r.Delete("/", cfg.Leads.Delete)

					r.Post("/messages", cfg.Conversation.Append)
					r.Get("/messages", cfg.Conversation.List)
					r.Post("/messages/read", cfg.Conversation.MarkRead)

					r.Post("/notes", cfg.Notes.Create)
					r.Get("/notes", cfg.Notes.List)
					r.Delete("/notes/{noteID}", cfg.Notes.Delete)
				})
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", cfg.Tasks.Create)
				r.Get("/", cfg.Tasks.List)
				r.Put("/{id}", cfg.Tasks.Update)
				r.Delete("/{id}", cfg.Tasks.Delete)
			})

			r.Get("/dashboard/stats", cfg.Dashboard.Stats)
		})
	})

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	return r
}
