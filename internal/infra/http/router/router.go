package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/ligue-quotes/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-quotes/internal/infra/http/middleware"
)

type Handlers struct {
	Lead        *handlers.LeadHandler
	Tracking    *handlers.TrackingHandler
	Diagnostics *handlers.DiagnosticsHandler
	Health      *handlers.HealthHandler
}

type Options struct {
	AllowedOrigins []string
	// RateLimiter guards the public POST routes; nil disables limiting.
	RateLimiter handlers.RateLimiter
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// friends. Only enable it behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

func New(h Handlers, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(handlers.MethodNotAllowed)
	r.NotFound(handlers.NotFound)

	if h.Health != nil {
		r.Get("/health", h.Health.Handle)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(handlers.RateLimit(opts.RateLimiter))
		}
		r.Post("/quotes", h.Lead.SubmitQuote)
		r.Post("/funnel/abandonment", h.Tracking.Abandonment)
		r.Post("/funnel/completion", h.Tracking.Completion)
		r.Post("/funnel/submission", h.Tracking.Submission)
	})

	if h.Diagnostics != nil {
		r.Route("/internal", func(r chi.Router) {
			r.Get("/leads/{id}/notifications", h.Diagnostics.LeadNotifications)
			r.Get("/funnel/{formId}/events", h.Diagnostics.FunnelEvents)
		})
	}

	return r
}
