// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package detection

import (
	"sort"
	"strings"

	"github.com/tomtom215/authsentry/internal/logging"
	"github.com/tomtom215/authsentry/internal/validation"
)

// authEventMarkers classify an event_type as authentication related.
var authEventMarkers = []string{"login", "logon", "signin", "sign_in", "auth"}

// Result is the outcome of one detection pass.
type Result struct {
	// Incidents are sorted by IncidentID.
	Incidents []Incident

	// Valid is the number of events that passed validation and timestamp parsing.
	Valid int

	// Dropped is the number of events that did not.
	Dropped int

	// Rejected is the number of candidate incidents that failed validation.
	Rejected int
}

// Detect runs both rules over events and returns the resulting incidents
// sorted by IncidentID. Invalid events are skipped.
func Detect(events []CanonicalEvent) []Incident {
	return Run(events).Incidents
}

// Run is Detect with bookkeeping about what was dropped along the way.
func Run(events []CanonicalEvent) Result {
	ordered, dropped := preprocess(events)

	bruteForce := newBruteForceTracker()
	credAbuse := newCredentialAbuseWindow()

	for _, te := range ordered {
		if !qualifies(&te.event) {
			continue
		}
		bruteForce.Observe(te)
		credAbuse.Observe(te)
	}

	candidates := make([]*Incident, 0, len(bruteForce.Incidents())+len(credAbuse.Incidents()))
	candidates = append(candidates, bruteForce.Incidents()...)
	candidates = append(candidates, credAbuse.Incidents()...)

	result := Result{
		Incidents: make([]Incident, 0, len(candidates)),
		Valid:     len(ordered),
		Dropped:   dropped,
	}
	for _, inc := range candidates {
		if verr := validation.ValidateStruct(inc); verr != nil {
			logging.Warn().
				Str("incident_id", inc.IncidentID).
				Str("type", string(inc.Type)).
				Err(verr).
				Msg("Dropping candidate incident that failed validation")
			result.Rejected++
			continue
		}
		result.Incidents = append(result.Incidents, inc.Clone())
	}

	sort.SliceStable(result.Incidents, func(i, j int) bool {
		return result.Incidents[i].IncidentID < result.Incidents[j].IncidentID
	})
	return result
}

// preprocess validates events, parses their timestamps and returns them in
// ascending time order. Ties keep input order.
func preprocess(events []CanonicalEvent) ([]timedEvent, int) {
	out := make([]timedEvent, 0, len(events))
	dropped := 0

	for i := range events {
		ev := normalizeEvent(events[i])
		if verr := validation.ValidateStruct(&ev); verr != nil {
			first := verr.Errors()[0]
			logging.Debug().
				Int("index", i).
				Str("field", first.Field()).
				Str("tag", first.Tag()).
				Err(verr).
				Msg("Skipping invalid event")
			dropped++
			continue
		}
		at, ok := ParseTimestamp(ev.Timestamp)
		if !ok {
			logging.Debug().Int("index", i).Str("timestamp", ev.Timestamp).Msg("Skipping event with unparsable timestamp")
			dropped++
			continue
		}
		out = append(out, timedEvent{at: at, event: ev})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].at.Before(out[j].at)
	})
	return out, dropped
}

// normalizeEvent trims identity fields and lower-cases the result so that
// "FAILURE" and "failure" are treated alike.
func normalizeEvent(ev CanonicalEvent) CanonicalEvent {
	ev.Timestamp = strings.TrimSpace(ev.Timestamp)
	ev.SourceIP = strings.TrimSpace(ev.SourceIP)
	ev.Username = strings.TrimSpace(ev.Username)
	ev.EventType = strings.TrimSpace(ev.EventType)
	ev.Result = strings.ToLower(strings.TrimSpace(ev.Result))
	return ev
}

// IsAuthEvent reports whether an event_type names an authentication action.
func IsAuthEvent(eventType string) bool {
	et := strings.ToLower(eventType)
	for _, marker := range authEventMarkers {
		if strings.Contains(et, marker) {
			return true
		}
	}
	return false
}

// qualifies reports whether an event feeds the correlation rules: an
// authentication failure that names both a source IP and a username.
func qualifies(ev *CanonicalEvent) bool {
	return ev.Result == ResultFailure &&
		ev.SourceIP != "" &&
		ev.Username != "" &&
		IsAuthEvent(ev.EventType)
}
