package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"coach-ai/internal/service"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError maps service error kinds to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, service.ErrVectorStore):
		writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
	case errors.Is(err, service.ErrExternalService):
		writeError(w, http.StatusBadGateway, "External service error")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to process query")
	}
}
