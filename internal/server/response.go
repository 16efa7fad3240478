package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// response is the JSON envelope for the server's own endpoints.
type response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, response{Status: "ok", RequestID: reqID, Data: data})
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, msg string) {
	respondJSON(w, status, response{Status: "error", RequestID: reqID, Error: msg})
}

func respondJSON(w http.ResponseWriter, status int, resp response) {
	resp.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
