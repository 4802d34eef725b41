// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

// Package metrics holds the Prometheus instruments for AuthSentry:
// ingest throughput, incident lifecycle counters, entity risk tracking,
// persistence failures and HTTP request latency. All collectors register
// with the default registry and are served by promhttp at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest
	EventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authsentry_events_ingested_total",
			Help: "Total number of authentication events received for detection",
		},
	)

	EventsInvalid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authsentry_events_invalid_total",
			Help: "Total number of events dropped by validation or timestamp parsing",
		},
	)

	IngestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authsentry_ingest_runs_total",
			Help: "Total number of detection runs by outcome",
		},
		[]string{"outcome"}, // "success", "partial", "error"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "authsentry_ingest_duration_seconds",
			Help:    "Duration of a detect-and-upsert run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	IncidentsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authsentry_incidents_detected_total",
			Help: "Total number of candidate incidents produced by detection",
		},
		[]string{"type"},
	)

	// Incident lifecycle
	IncidentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authsentry_incidents_created_total",
			Help: "Total number of incidents stored for the first time",
		},
	)

	IncidentsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authsentry_incidents_updated_total",
			Help: "Total number of upserts merged into an existing incident",
		},
	)

	IncidentsReopened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authsentry_incidents_reopened_total",
			Help: "Total number of closed incidents reopened by a new detection",
		},
	)

	IncidentsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authsentry_incidents_closed_total",
			Help: "Total number of incidents transitioned to closed",
		},
	)

	IncidentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authsentry_incident_transitions_total",
			Help: "Total number of status transition requests by target status and result",
		},
		[]string{"to", "result"}, // result: "ok", "invalid", "not_found", "error"
	)

	StoreWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authsentry_store_write_errors_total",
			Help: "Total number of failed incident index writes",
		},
	)

	IncidentsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "authsentry_incidents",
			Help: "Current number of stored incidents by status",
		},
		[]string{"status"},
	)

	IncidentsStale = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authsentry_incidents_stale",
			Help: "Current number of open or acknowledged incidents with no activity in the stale window",
		},
	)

	// Entity risk
	EntitiesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authsentry_entities_tracked",
			Help: "Current number of entities with a risk score",
		},
	)

	// NATS ingest
	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authsentry_nats_messages_consumed_total",
			Help: "Total number of NATS messages received",
		},
	)

	NATSParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authsentry_nats_parse_failed_total",
			Help: "Total number of NATS messages dropped because they could not be decoded",
		},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authsentry_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authsentry_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordIngestRun records the outcome and duration of one detection run.
func RecordIngestRun(received, invalid int, duration time.Duration, err error, partial bool) {
	EventsIngested.Add(float64(received))
	EventsInvalid.Add(float64(invalid))
	IngestDuration.Observe(duration.Seconds())

	outcome := "success"
	switch {
	case err != nil && !partial:
		outcome = "error"
	case err != nil:
		outcome = "partial"
	}
	IngestRuns.WithLabelValues(outcome).Inc()
}

// RecordTransition records a status transition attempt.
func RecordTransition(to, result string) {
	IncidentTransitions.WithLabelValues(to, result).Inc()
}

// RecordAPIRequest records one API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetIncidentGauges replaces the per-status and stale incident gauges.
// Statuses missing from byStatus are reset to zero.
func SetIncidentGauges(byStatus map[string]int, stale int, statuses []string) {
	for _, status := range statuses {
		IncidentsByStatus.WithLabelValues(status).Set(float64(byStatus[status]))
	}
	IncidentsStale.Set(float64(stale))
}
