// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package incident

import "errors"

var (
	// ErrIncidentNotFound is returned when no incident has the requested ID.
	ErrIncidentNotFound = errors.New("incident not found")

	// ErrInvalidTransition is returned for a status change the lifecycle
	// does not allow. Nothing is modified.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidIncident is returned by Upsert for a candidate that fails validation.
	ErrInvalidIncident = errors.New("invalid incident")

	// ErrPersistence wraps failures reading or writing the incident file.
	ErrPersistence = errors.New("incident store persistence failed")
)
