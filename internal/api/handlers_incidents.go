// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/authsentry/internal/incident"
	"github.com/tomtom215/authsentry/internal/models"
)

// ListIncidents handles GET /api/v1/incidents.
//
// Query parameters:
//   - status: open, acknowledged or closed
//   - type: brute_force or credential_abuse
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter := models.IncidentFilter{
		Status: r.URL.Query().Get("status"),
		Type:   r.URL.Query().Get("type"),
	}
	if apiErr := validateRequest(&filter); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	incidents, err := h.pipeline.Store().List()
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	store := h.pipeline.Store()
	views := make([]incident.View, 0, len(incidents))
	for i := range incidents {
		if filter.Status != "" && string(incidents[i].Status) != filter.Status {
			continue
		}
		if filter.Type != "" && string(incidents[i].Type) != filter.Type {
			continue
		}
		views = append(views, store.ViewOf(incidents[i]))
	}

	respondSuccess(w, r, http.StatusOK, models.IncidentListResponse{
		Incidents: views,
		Total:     len(views),
	}, start)
}

// GetIncident handles GET /api/v1/incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	inc, err := h.pipeline.Store().Get(chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.pipeline.Store().ViewOf(inc), start)
}

// UpdateIncident handles PATCH /api/v1/incidents/{id}.
//
// Only open -> acknowledged and acknowledged -> closed are accepted; any
// other change answers 409 and leaves the incident untouched.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.TransitionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	updated, err := h.pipeline.Store().Transition(chi.URLParam(r, "id"), req.Status, req.ResolutionReason)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.pipeline.Store().ViewOf(updated), start)
}
