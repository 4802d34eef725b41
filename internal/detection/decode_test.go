// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package detection

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		payload     string
		wantEvents  int
		wantSkipped int
		wantErr     bool
	}{
		{
			name:       "array",
			payload:    `[{"timestamp":"2024-01-01T10:00:00Z","event_type":"login","result":"failure"}]`,
			wantEvents: 1,
		},
		{
			name:       "envelope",
			payload:    `{"events":[{"timestamp":"2024-01-01T10:00:00Z","event_type":"login","result":"failure"},{"timestamp":"2024-01-01T10:00:01Z","event_type":"login","result":"success"}]}`,
			wantEvents: 2,
		},
		{
			name:       "single object",
			payload:    `{"timestamp":"2024-01-01T10:00:00Z","event_type":"login","result":"failure","source_ip":"10.0.0.1"}`,
			wantEvents: 1,
		},
		{
			name:        "non-object items skipped",
			payload:     `[1, "x", null, {"timestamp":"2024-01-01T10:00:00Z","event_type":"login","result":"failure"}, {"timestamp": 5}]`,
			wantEvents:  1,
			wantSkipped: 4,
		},
		{
			name:       "raw_source string kept",
			payload:    `[{"timestamp":"2024-01-01T10:00:00Z","event_type":"login","result":"failure","raw_source":"{\"msg\":\"sshd failed\"}"}]`,
			wantEvents: 1,
		},
		{
			name:        "raw_source object skipped",
			payload:     `[{"timestamp":"2024-01-01T10:00:00Z","event_type":"login","result":"failure","raw_source":{"msg":"sshd failed"}}]`,
			wantSkipped: 1,
		},
		{
			name:    "scalar",
			payload: `42`,
			wantErr: true,
		},
		{
			name:    "broken json",
			payload: `[{"timestamp":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			events, skipped, err := DecodeEvents([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(events) != tt.wantEvents {
				t.Errorf("got %d events, want %d", len(events), tt.wantEvents)
			}
			if skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
		})
	}
}

func TestDecodeEvents_Empty(t *testing.T) {
	t.Parallel()

	if _, _, err := DecodeEvents([]byte("   ")); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("err = %v, want ErrEmptyPayload", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-01-01T10:00:00Z",
		"2024-01-01T12:00:00+02:00",
		"2024-01-01T10:00:00",
		"2024-01-01 10:00:00",
		"2024-01-01T10:00:00.000Z",
	} {
		got, ok := ParseTimestamp(s)
		if !ok {
			t.Errorf("ParseTimestamp(%q) failed", s)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}
	if _, ok := ParseTimestamp("01/02/2024"); ok {
		t.Error("expected non-ISO date to fail")
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	tests := map[string]time.Time{
		"2024-01-01T10:00:00Z":        time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		"2024-01-01T10:00:01Z":        time.Date(2024, 1, 1, 10, 0, 1, 999, time.UTC),
		"2024-01-01T10:00:00.500000Z": time.Date(2024, 1, 1, 10, 0, 0, 500_000_000, time.UTC),
		"2024-01-01T10:00:00.120000Z": time.Date(2024, 1, 1, 10, 0, 0, 120_000_000, time.UTC),
		"2024-01-01T08:00:00.123456Z": time.Date(2024, 1, 1, 10, 0, 0, 123_456_789, time.FixedZone("x", 2*3600)),
	}
	for want, in := range tests {
		if got := FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestIncidentClone(t *testing.T) {
	t.Parallel()

	reason := "false positive"
	orig := Incident{
		IncidentID:       "inc_x",
		AffectedEntities: []string{"a"},
		Evidence: Evidence{
			Counts: map[string]int{CountFailures: 1},
			Events: []CanonicalEvent{{Username: "a"}},
		},
		ResolutionReason: &reason,
	}
	c := orig.Clone()
	c.AffectedEntities[0] = "b"
	c.Evidence.Counts[CountFailures] = 9
	c.Evidence.Events[0].Username = "b"
	*c.ResolutionReason = "changed"

	if orig.AffectedEntities[0] != "a" || orig.Evidence.Counts[CountFailures] != 1 ||
		orig.Evidence.Events[0].Username != "a" || *orig.ResolutionReason != "false positive" {
		t.Error("Clone shares state with the original")
	}
}
