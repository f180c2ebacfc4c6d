package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

const maxBodyBytes = 64 << 10

type ErrorResponse struct {
	Error   string                   `json:"error,omitempty"`
	Message string                   `json:"message,omitempty"`
	Details usecase.ValidationErrors `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

// writeErrorResponse puts msg under "error" or "message"; the tracking
// endpoints differ in which key their clients read.
func writeErrorResponse(w http.ResponseWriter, status int, key, msg string, details usecase.ValidationErrors) {
	resp := ErrorResponse{Details: details}
	if key == "message" {
		resp.Message = msg
	} else {
		resp.Error = msg
	}
	writeJSON(w, status, resp)
}

// MethodNotAllowed is the JSON 405 used by the router.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// statusFor maps use case errors to the HTTP status and client message.
// Anything that is not a validation problem is a 500 with a generic text.
func statusFor(err error, internal string) (int, string, usecase.ValidationErrors) {
	var verrs usecase.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, "validation failed", verrs
	}
	return http.StatusInternalServerError, internal, nil
}
