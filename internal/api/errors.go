// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/authsentry/internal/incident"
)

// errBodyTooLarge is returned by readBody when the body limit is hit.
var errBodyTooLarge = errors.New("request body too large")

// respondStoreError maps incident store errors to HTTP responses.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, incident.ErrIncidentNotFound):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Incident not found", nil)
	case errors.Is(err, incident.ErrInvalidTransition):
		detail := strings.TrimPrefix(err.Error(), incident.ErrInvalidTransition.Error()+": ")
		respondError(w, r, http.StatusConflict, "INVALID_TRANSITION", "Invalid transition: "+detail, nil)
	case errors.Is(err, incident.ErrInvalidIncident):
		respondError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid incident", err)
	default:
		respondError(w, r, http.StatusInternalServerError, "STORAGE_ERROR", "Incident storage failed", err)
	}
}
