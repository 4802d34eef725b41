// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordIngestRun(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		partial bool
		outcome string
	}{
		{"success", nil, false, "success"},
		{"partial", errors.New("write failed"), true, "partial"},
		{"error", errors.New("write failed"), false, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			beforeRuns := testutil.ToFloat64(IngestRuns.WithLabelValues(tt.outcome))
			beforeEvents := testutil.ToFloat64(EventsIngested)
			beforeInvalid := testutil.ToFloat64(EventsInvalid)

			RecordIngestRun(10, 2, 5*time.Millisecond, tt.err, tt.partial)

			if got := testutil.ToFloat64(IngestRuns.WithLabelValues(tt.outcome)) - beforeRuns; got != 1 {
				t.Errorf("runs{%s} delta = %v, want 1", tt.outcome, got)
			}
			if got := testutil.ToFloat64(EventsIngested) - beforeEvents; got != 10 {
				t.Errorf("events ingested delta = %v, want 10", got)
			}
			if got := testutil.ToFloat64(EventsInvalid) - beforeInvalid; got != 2 {
				t.Errorf("events invalid delta = %v, want 2", got)
			}
		})
	}
}

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(IncidentTransitions.WithLabelValues("closed", "invalid"))
	RecordTransition("closed", "invalid")
	if got := testutil.ToFloat64(IncidentTransitions.WithLabelValues("closed", "invalid")) - before; got != 1 {
		t.Errorf("transition delta = %v, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/incidents", "200"))
	RecordAPIRequest("GET", "/api/v1/incidents", 200, time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/incidents", "200")) - before; got != 1 {
		t.Errorf("api request delta = %v, want 1", got)
	}
}

func TestSetIncidentGauges(t *testing.T) {
	statuses := []string{"open", "acknowledged", "closed"}

	SetIncidentGauges(map[string]int{"open": 3, "closed": 1}, 2, statuses)
	if got := testutil.ToFloat64(IncidentsByStatus.WithLabelValues("open")); got != 3 {
		t.Errorf("open = %v, want 3", got)
	}
	if got := testutil.ToFloat64(IncidentsByStatus.WithLabelValues("acknowledged")); got != 0 {
		t.Errorf("acknowledged = %v, want 0 for a missing status", got)
	}
	if got := testutil.ToFloat64(IncidentsStale); got != 2 {
		t.Errorf("stale = %v, want 2", got)
	}

	SetIncidentGauges(map[string]int{}, 0, statuses)
	if got := testutil.ToFloat64(IncidentsByStatus.WithLabelValues("open")); got != 0 {
		t.Errorf("open = %v after reset, want 0", got)
	}
}
