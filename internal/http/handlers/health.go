package handlers

import (
	"net/http"
	"time"
)

const (
	ServiceName    = "GovSense API"
	ServiceVersion = "1.0.0"
)

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Health reports that the service is up.
func Health(now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:    "online",
			Service:   ServiceName,
			Version:   ServiceVersion,
			Timestamp: now().UTC().Format(time.RFC3339Nano),
		})
	}
}
