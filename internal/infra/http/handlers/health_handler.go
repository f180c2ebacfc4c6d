package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Broker is satisfied by *amqp.Connection and the call routing producer.
type Broker interface {
	IsClosed() bool
}

type Configurable interface {
	IsConfigured() bool
}

type HealthHandler struct {
	DB       Pinger
	RabbitMQ Broker
	// Channels maps a notification channel name to its service handle.
	Channels  map[string]Configurable
	StartTime time.Time
	Version   string
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
	Channels     map[string]bool   `json:"channels"`
}

func NewHealthHandler(db Pinger, rabbitMQ Broker, channels map[string]Configurable) *HealthHandler {
	return &HealthHandler{
		DB:        db,
		RabbitMQ:  rabbitMQ,
		Channels:  channels,
		StartTime: time.Now(),
		Version:   "1.0.0",
	}
}

// Handle reports 503 only when a hard dependency is down. Unconfigured
// notification channels are listed but never degrade the status.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)
	status := "healthy"

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			deps["database"] = fmt.Sprintf("unhealthy: %v", err)
			status = "degraded"
		} else {
			deps["database"] = "healthy"
		}
	} else {
		deps["database"] = "not configured"
		status = "degraded"
	}

	switch {
	case h.RabbitMQ == nil:
		deps["rabbitmq"] = "not configured"
	case h.RabbitMQ.IsClosed():
		deps["rabbitmq"] = "unhealthy: connection closed"
	default:
		deps["rabbitmq"] = "healthy"
	}

	channels := make(map[string]bool, len(h.Channels))
	for name, svc := range h.Channels {
		channels[name] = svc != nil && svc.IsConfigured()
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
		Channels:     channels,
	})
}
