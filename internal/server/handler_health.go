package server

import (
	"net/http"
	"runtime"
	"time"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Backend   string `json:"backend"`
	Store     string `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	// A lookup of an unknown ID touches the database without side effects.
	if _, err := s.store.GetBrowserSession(r.Context(), ""); err != nil {
		s.logger.Error("health check: store unavailable", "error", err)
		respondError(w, reqID, http.StatusServiceUnavailable, "session store unavailable")
		return
	}

	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Backend:   s.client.BaseURL(),
		Store:     "sqlite",
	})
}
