package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	leadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_leads_created_total",
			Help: "Total number of quote leads stored",
		},
		[]string{"insurance_type"},
	)

	funnelEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_funnel_events_total",
			Help: "Total number of funnel events recorded",
		},
		[]string{"event_type", "insurance_type"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_notifications_total",
			Help: "Notification channel outcomes per lead",
		},
		[]string{"channel", "status"},
	)

	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quote_notification_duration_seconds",
			Help:    "Time spent per notification channel",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics labels requests by chi route pattern so path parameters do not
// create new series.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func RecordLead(lead *entity.Lead) {
	leadsCreated.WithLabelValues(string(lead.InsuranceType)).Inc()
}

func RecordFunnelEvent(event *entity.FunnelEvent) {
	funnelEvents.WithLabelValues(string(event.EventType), string(event.InsuranceType)).Inc()
}

func RecordNotification(task entity.NotificationTask) {
	notifications.WithLabelValues(string(task.Channel), string(task.Status)).Inc()
	if !task.FinishedAt.IsZero() && !task.StartedAt.IsZero() {
		notificationDuration.WithLabelValues(string(task.Channel)).Observe(task.FinishedAt.Sub(task.StartedAt).Seconds())
	}
}
