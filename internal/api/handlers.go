// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package api

import (
	"time"

	"github.com/tomtom215/authsentry/internal/config"
	"github.com/tomtom215/authsentry/internal/ingest"
)

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_helpers.go: response envelope and request helpers
//   - handlers_health.go: GET /health
//   - handlers_ingest.go: POST /api/v1/ingest
//   - handlers_incidents.go: incident list, get and status change
//   - handlers_risk.go: GET /api/v1/entity-risk
type Handler struct {
	pipeline  *ingest.Pipeline
	config    *config.Config
	version   string
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a handler over the ingest pipeline. cfg may be nil in tests.
func NewHandler(pipeline *ingest.Pipeline, cfg *config.Config, version string) *Handler {
	return &Handler{
		pipeline:  pipeline,
		config:    cfg,
		version:   version,
		startTime: time.Now(),
		now:       time.Now,
	}
}
