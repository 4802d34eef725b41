// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

// Package ingest runs event batches through detection and into the incident
// store. It is the single entry point used by the HTTP API and the NATS
// subscriber.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/authsentry/internal/detection"
	"github.com/tomtom215/authsentry/internal/incident"
	"github.com/tomtom215/authsentry/internal/logging"
	"github.com/tomtom215/authsentry/internal/metrics"
	"github.com/tomtom215/authsentry/internal/risk"
)

// ErrNoEvents is returned by Run for an empty batch.
var ErrNoEvents = errors.New("no events in batch")

// RunResult summarizes one ingestion run.
type RunResult struct {
	RunID             string          `json:"run_id"`
	EventsReceived    int             `json:"events_received"`
	EventsValid       int             `json:"events_valid"`
	EventsDropped     int             `json:"events_dropped"`
	IncidentsDetected int             `json:"incidents_detected"`
	UpsertFailures    int             `json:"upsert_failures"`
	Incidents         []incident.View `json:"incidents"`
}

// Pipeline wires detection to the store and the risk scorer.
type Pipeline struct {
	store *incident.Store
	risk  *risk.Scorer
}

// NewPipeline creates a pipeline. The store should have been created with
// the same scorer as its risk recorder.
func NewPipeline(store *incident.Store, scorer *risk.Scorer) *Pipeline {
	return &Pipeline{store: store, risk: scorer}
}

// Store returns the incident store.
func (p *Pipeline) Store() *incident.Store {
	return p.store
}

// Risk returns the risk scorer.
func (p *Pipeline) Risk() *risk.Scorer {
	return p.risk
}

// Bootstrap loads the incident index and rebuilds risk state from it.
// Call once at startup before serving traffic.
func (p *Pipeline) Bootstrap() error {
	if err := p.store.Load(); err != nil {
		return fmt.Errorf("load incidents: %w", err)
	}
	incidents, err := p.store.List()
	if err != nil {
		return fmt.Errorf("list incidents: %w", err)
	}
	p.risk.Rehydrate(incidents)
	return nil
}

// Run detects incidents in events and upserts each one. A failed upsert is
// logged and counted and the run continues; the first such error is
// returned alongside the partial result. Cancelling ctx stops the run
// before the next upsert.
func (p *Pipeline) Run(ctx context.Context, events []detection.CanonicalEvent) (*RunResult, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	start := time.Now()
	runID := uuid.New().String()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.Ctx(ctx)

	detected := detection.Run(events)
	result := &RunResult{
		RunID:             runID,
		EventsReceived:    len(events),
		EventsValid:       detected.Valid,
		EventsDropped:     detected.Dropped,
		IncidentsDetected: len(detected.Incidents),
		Incidents:         make([]incident.View, 0, len(detected.Incidents)),
	}
	for i := range detected.Incidents {
		metrics.IncidentsDetected.WithLabelValues(string(detected.Incidents[i].Type)).Inc()
	}

	var firstErr error
	for i := range detected.Incidents {
		if err := ctx.Err(); err != nil {
			firstErr = err
			break
		}
		stored, err := p.store.Upsert(detected.Incidents[i])
		if err != nil {
			result.UpsertFailures++
			log.Error().Err(err).Str("incident_id", detected.Incidents[i].IncidentID).Msg("Failed to store incident")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Incidents = append(result.Incidents, p.store.ViewOf(stored))
	}

	partial := firstErr != nil && len(result.Incidents) > 0
	metrics.RecordIngestRun(result.EventsReceived, result.EventsDropped, time.Since(start), firstErr, partial)

	log.Info().
		Int("events_received", result.EventsReceived).
		Int("events_valid", result.EventsValid).
		Int("incidents_detected", result.IncidentsDetected).
		Int("upsert_failures", result.UpsertFailures).
		Dur("duration", time.Since(start)).
		Msg("Ingest run complete")

	if firstErr != nil {
		return result, fmt.Errorf("ingest run %s: %w", runID, firstErr)
	}
	return result, nil
}

// Snapshot returns risk rows for the current incident index.
func (p *Pipeline) Snapshot() ([]risk.Row, error) {
	incidents, err := p.store.List()
	if err != nil {
		return nil, err
	}
	return p.risk.BuildRows(incidents), nil
}
