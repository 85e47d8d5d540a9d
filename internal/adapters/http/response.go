package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the body shape of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	body.Success = status < http.StatusBadRequest
	writeJSON(w, status, body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, envelope{Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeEnvelope(w, status, envelope{Message: message, Data: data})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	rt.logger.Log(r.Context(), level, "request_failed",
		"request_id", requestIDFromContext(r.Context()),
		"op", op,
		"status", status,
		"error", err,
	)
	writeEnvelope(w, status, envelope{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusBadRequest, envelope{Error: message})
}
