package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/entity"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

type EventTracker interface {
	Execute(ctx context.Context, input usecase.TrackEventInput, kind entity.EventType) (*entity.FunnelEvent, error)
}

type TrackingHandler struct {
	tracker EventTracker
}

func NewTrackingHandler(tracker EventTracker) *TrackingHandler {
	return &TrackingHandler{tracker: tracker}
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type MessageResponse struct {
	Message string              `json:"message"`
	Data    *entity.FunnelEvent `json:"data,omitempty"`
}

// Abandonment handles POST /api/funnel/abandonment.
func (h *TrackingHandler) Abandonment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.track(w, r, entity.EventAbandonment, "error"); ok {
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
	}
}

// Completion handles POST /api/funnel/completion.
func (h *TrackingHandler) Completion(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.track(w, r, entity.EventCompletion, "message"); ok {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "completion tracked"})
	}
}

// Submission handles POST /api/funnel/submission.
func (h *TrackingHandler) Submission(w http.ResponseWriter, r *http.Request) {
	if event, ok := h.track(w, r, entity.EventSubmission, "message"); ok {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "submission tracked", Data: event})
	}
}

func (h *TrackingHandler) track(w http.ResponseWriter, r *http.Request, kind entity.EventType, errKey string) (*entity.FunnelEvent, bool) {
	var input usecase.TrackEventInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, errKey, err.Error(), nil)
		return nil, false
	}

	event, err := h.tracker.Execute(r.Context(), input, kind)
	if err != nil {
		status, msg, details := statusFor(err, "failed to track "+string(kind))
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("event_type", string(kind)).Str("form_id", input.FormID).Msg("funnel tracking failed")
		}
		writeErrorResponse(w, status, errKey, msg, details)
		return nil, false
	}
	return event, true
}
