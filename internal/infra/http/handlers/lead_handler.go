package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

type LeadSubmitter interface {
	Execute(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.SubmitLeadOutput, error)
}

type LeadHandler struct {
	submitter LeadSubmitter
}

func NewLeadHandler(submitter LeadSubmitter) *LeadHandler {
	return &LeadHandler{submitter: submitter}
}

// SubmitQuote handles POST /api/quotes. The response is sent once the lead is
// stored; notifications keep running after it.
func (h *LeadHandler) SubmitQuote(w http.ResponseWriter, r *http.Request) {
	var input usecase.SubmitLeadInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "error", err.Error(), nil)
		return
	}

	output, err := h.submitter.Execute(r.Context(), input)
	if err != nil {
		status, msg, details := statusFor(err, "failed to submit quote request")
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("insurance_type", input.InsuranceType).Msg("quote submission failed")
		}
		writeErrorResponse(w, status, "error", msg, details)
		return
	}

	writeJSON(w, http.StatusOK, output)
}
