package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

type LeadFinder interface {
	FindByID(ctx context.Context, id string) (*entity.Lead, error)
}

type AttemptLister interface {
	ListByLeadID(ctx context.Context, leadID string) ([]entity.NotificationTask, error)
}

// DiagnosticsHandler serves the operator views under /internal.
type DiagnosticsHandler struct {
	Leads    LeadFinder
	Attempts AttemptLister
	Events   entity.FunnelEventReader
}

type LeadNotificationsResponse struct {
	LeadID        string                    `json:"leadId"`
	CRMLeadID     string                    `json:"crmLeadId,omitempty"`
	Notifications []entity.NotificationTask `json:"notifications"`
}

type FunnelEventsResponse struct {
	FormID string                `json:"formId"`
	Events []*entity.FunnelEvent `json:"events"`
}

// LeadNotifications handles GET /internal/leads/{id}/notifications.
func (h *DiagnosticsHandler) LeadNotifications(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// leads.id is a uuid column; anything else can only be a miss.
	if _, err := uuid.Parse(id); err != nil {
		writeErrorResponse(w, http.StatusNotFound, "error", "lead not found", nil)
		return
	}

	lead, err := h.Leads.FindByID(r.Context(), id)
	if errors.Is(err, entity.ErrLeadNotFound) {
		writeErrorResponse(w, http.StatusNotFound, "error", "lead not found", nil)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("lead_id", id).Msg("failed to load lead")
		writeErrorResponse(w, http.StatusInternalServerError, "error", "failed to load lead", nil)
		return
	}

	tasks, err := h.Attempts.ListByLeadID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("lead_id", id).Msg("failed to list notification attempts")
		writeErrorResponse(w, http.StatusInternalServerError, "error", "failed to list notifications", nil)
		return
	}
	if tasks == nil {
		tasks = []entity.NotificationTask{}
	}

	writeJSON(w, http.StatusOK, LeadNotificationsResponse{
		LeadID:        lead.ID,
		CRMLeadID:     lead.CRMLeadID,
		Notifications: tasks,
	})
}

// FunnelEvents handles GET /internal/funnel/{formId}/events.
func (h *DiagnosticsHandler) FunnelEvents(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")

	if h.Events == nil {
		writeErrorResponse(w, http.StatusNotImplemented, "error", "event listing needs the postgres analytics driver", nil)
		return
	}

	events, err := h.Events.ListByFormID(r.Context(), formID)
	if err != nil {
		log.Error().Err(err).Str("form_id", formID).Msg("failed to list funnel events")
		writeErrorResponse(w, http.StatusInternalServerError, "error", "failed to list events", nil)
		return
	}
	if events == nil {
		events = []*entity.FunnelEvent{}
	}

	writeJSON(w, http.StatusOK, FunnelEventsResponse{FormID: formID, Events: events})
}
