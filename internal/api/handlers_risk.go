// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/authsentry/internal/detection"
	"github.com/tomtom215/authsentry/internal/models"
	"github.com/tomtom215/authsentry/internal/risk"
)

// EntityRisk handles GET /api/v1/entity-risk.
func (h *Handler) EntityRisk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rows, err := h.pipeline.Snapshot()
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, models.EntityRiskResponse{
		GeneratedAt:        detection.FormatTimestamp(h.now()),
		DecayHalfLifeHours: risk.HalfLifeHours,
		IncrementWeights:   risk.Weights(),
		Entities:           rows,
	}, start)
}
