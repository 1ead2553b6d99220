// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shelfmark/shelfmark/internal/apperr"
	"github.com/shelfmark/shelfmark/internal/handler/dto"
	"github.com/shelfmark/shelfmark/internal/middleware"
)

// Version is reported by the info endpoint.
const Version = "1.0.0"

// Handler serves the info endpoint and the router fallbacks.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello reports that the API is up.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "Shelfmark API is running",
		"version": Version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse("NOT_FOUND", "Resource not found"))
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse("METHOD_NOT_ALLOWED", "Method not allowed"))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err through the apperr table. Internal causes are logged
// with the request ID and never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr := apperr.From(err)
	status := apperr.HTTPStatus(appErr)

	if appErr.Kind == apperr.KindInternal {
		logger.Error("internal_error",
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}

	writeJSON(w, status, errorResponse(appErr.Code, appErr.Message))
}

// decodeJSON reads a request body into dst. Oversized bodies answer 413,
// anything else unreadable answers 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("PAYLOAD_TOO_LARGE", "Request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("INVALID_JSON", "Invalid request body"))
		return false
	}
	return true
}

func errorResponse(code, message string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: dto.ErrorBody{Code: code, Message: message}}
}
