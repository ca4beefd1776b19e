package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/woutermans/searchllama/orchestrator"
)

// ErrorResponse is the plain JSON error envelope for /search and /chat.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes err as a JSON error response, picking a status code
// from its kind. orchestrator.ErrModel maps to 502 (upstream model
// failure); anything else is treated as a client-side request problem.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := http.StatusBadRequest
	if errors.Is(err, orchestrator.ErrModel) {
		status = http.StatusBadGateway
	}

	if logger != nil {
		logger.Error("request failed", "path", r.URL.Path, "error", err, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}
