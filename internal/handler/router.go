package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/metrics"
)

// RouterOptions carries the ambient collaborators of the router.
type RouterOptions struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter builds the chi router with the global middleware stack.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))          // structured access log
	r.Use(Metrics(opts.Metrics))
	r.Use(CORS)

	// Health and metrics
	r.Get("/health", h.HealthCheck)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/session", h.Session)
		r.Post("/logout", h.Logout)
	})

	r.Route("/meetings", func(r chi.Router) {
		r.Get("/", h.ListMeetings)
		r.Get("/{id}", h.GetMeeting)
	})
	r.Get("/events", h.ListEvents)
	r.Get("/age-groups", h.ListAgeGroups)

	// Session resolves its own token so it can tell anonymous from rejected.
	r.Route("/registrations", func(r chi.Router) {
		r.Use(Authenticate(h.sessions, h.cookieName))
		r.Post("/", h.SubmitRegistration)
		r.Get("/", h.ListRegistrations)
	})

	return r
}
