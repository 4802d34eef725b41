// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/authsentry/internal/models"
)

// Health handles GET /health. It reports "ok" while the incident index is
// readable and "degraded" with status 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := models.HealthStatus{
		Status:        "ok",
		Version:       h.version,
		Entities:      h.pipeline.Risk().Len(),
		NATSEnabled:   h.config != nil && h.config.NATS.Enabled,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	status := http.StatusOK
	incidents, err := h.pipeline.Store().List()
	if err != nil {
		health.Status = "degraded"
		status = http.StatusServiceUnavailable
		respondJSON(w, status, health)
		return
	}
	health.Incidents = len(incidents)
	respondJSON(w, status, health)
}
