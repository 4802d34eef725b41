// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

// Package models holds the request and response shapes of the HTTP API.
package models

import (
	"time"

	"github.com/tomtom215/authsentry/internal/detection"
	"github.com/tomtom215/authsentry/internal/incident"
	"github.com/tomtom215/authsentry/internal/risk"
)

// APIResponse is the envelope used by every JSON endpoint except /health.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"incidents": [...], "total": 3},
//	  "metadata": {"timestamp": "2024-01-01T12:00:00Z", "query_time_ms": 2}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "error": {
//	    "code": "INVALID_TRANSITION",
//	    "message": "Invalid transition: open -> closed"
//	  },
//	  "metadata": {"timestamp": "2024-01-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is the error body of a failed request.
//
// Codes used by the API:
//   - VALIDATION_ERROR: malformed body or query parameter
//   - NOT_FOUND: unknown incident id
//   - INVALID_TRANSITION: status change not allowed from the current status
//   - PAYLOAD_TOO_LARGE: request body exceeds the configured limit
//   - STORAGE_ERROR: the incident index could not be read or written
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the /health body.
type HealthStatus struct {
	Status        string  `json:"status"`
	Version       string  `json:"version,omitempty"`
	Incidents     int     `json:"incidents"`
	Entities      int     `json:"entities_tracked"`
	NATSEnabled   bool    `json:"nats_enabled"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// IncidentListResponse is returned by GET /api/v1/incidents.
type IncidentListResponse struct {
	Incidents []incident.View `json:"incidents"`
	Total     int             `json:"total"`
}

// IncidentFilter holds the optional list filters.
type IncidentFilter struct {
	Status string `json:"status" validate:"omitempty,oneof=open acknowledged closed"`
	Type   string `json:"type" validate:"omitempty,oneof=brute_force credential_abuse"`
}

// TransitionRequest is the PATCH /api/v1/incidents/{id} body.
//
//	{"status": "closed", "resolution_reason": "password reset"}
type TransitionRequest struct {
	Status           detection.Status `json:"status" validate:"required,oneof=open acknowledged closed"`
	ResolutionReason *string          `json:"resolution_reason" validate:"omitempty,max=1024"`
}

// EntityRiskResponse is returned by GET /api/v1/entity-risk.
type EntityRiskResponse struct {
	GeneratedAt        string                             `json:"generated_at"`
	DecayHalfLifeHours float64                            `json:"decay_half_life_hours"`
	IncrementWeights   map[detection.IncidentType]float64 `json:"increment_weights"`
	Entities           []risk.Row                         `json:"entities"`
}
