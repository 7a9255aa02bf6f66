package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	app_errors "onlinellm-gateway/backend/internal/errors"
)

// This file contains the shared error envelope and the helpers used to send
// consistent HTTP responses.

// Error types reported in ErrorDetail.Type.
const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeUpstream       = "upstream_error"
	errTypeServer         = "server_error"
)

// ErrorResponse is the OpenAI-style error envelope used for every failure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a single error. Param and Code are null when not applicable.
type ErrorDetail struct {
	Message string  `json:"message" example:"Invalid API key"`
	Type    string  `json:"type" example:"invalid_request_error"`
	Param   *string `json:"param"`
	Code    *string `json:"code" example:"invalid_api_key"`
}

// StatusResponse is returned by the health check.
type StatusResponse struct {
	Status string `json:"status"`
}

func strPtr(s string) *string { return &s }

// respondWithError maps business-layer sentinel errors to HTTP status codes and
// writes the error envelope. Internal details are logged, never sent.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		statusCode int
		detail     ErrorDetail
	)

	switch {
	case errors.Is(err, app_errors.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		detail = ErrorDetail{Message: "Invalid API key", Type: errTypeInvalidRequest, Code: strPtr("invalid_api_key")}
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
		// Validation messages are written for the client already.
		detail = ErrorDetail{Message: err.Error(), Type: errTypeInvalidRequest}
	case errors.Is(err, app_errors.ErrUpstream):
		statusCode = http.StatusBadGateway
		detail = ErrorDetail{Message: "The upstream model provider failed to produce a completion.", Type: errTypeUpstream}
	default:
		statusCode = http.StatusInternalServerError
		detail = ErrorDetail{Message: "An unexpected internal server error occurred.", Type: errTypeServer}
	}

	slog.Warn("Responding with error",
		"request_id", RequestIDFromContext(r.Context()),
		"status_code", statusCode,
		"client_message", detail.Message,
		"internal_error", err,
	)

	respondWithJSON(w, statusCode, ErrorResponse{Error: detail})
}

// respondWithJSON is a low-level helper for marshaling a payload to JSON
// and writing it to the http.ResponseWriter with a given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}
