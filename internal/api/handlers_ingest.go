// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/authsentry/internal/detection"
	"github.com/tomtom215/authsentry/internal/ingest"
	"github.com/tomtom215/authsentry/internal/logging"
)

// Ingest handles POST /api/v1/ingest.
//
// The body is {"events": [...]}, a bare array of events, or a single event.
// Items that are not event objects are skipped and counted as dropped. If
// any incident could not be stored the response is a storage error.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := readBody(r)
	if errors.Is(err, errBodyTooLarge) {
		respondError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Failed to read request body", err)
		return
	}

	events, skipped, err := detection.DecodeEvents(body)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be a JSON array or object of events", nil)
		return
	}
	if skipped > 0 {
		logging.Ctx(r.Context()).Debug().Int("skipped", skipped).Msg("Skipped non-event items in ingest payload")
	}

	result, err := h.pipeline.Run(r.Context(), events)
	switch {
	case errors.Is(err, ingest.ErrNoEvents):
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "No events in request", nil)
		return
	case err != nil:
		respondStoreError(w, r, err)
		return
	}

	result.EventsReceived += skipped
	result.EventsDropped += skipped
	respondSuccess(w, r, http.StatusOK, result, start)
}
