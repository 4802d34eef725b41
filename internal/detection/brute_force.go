// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package detection

import "time"

// timedEvent is a validated event with its parsed timestamp.
type timedEvent struct {
	at    time.Time
	event CanonicalEvent
}

type pairKey struct {
	sourceIP string
	username string
}

// activeIncident marks a brute-force incident that is still absorbing
// failures. It lives until WindowSeconds after start.
type activeIncident struct {
	incident *Incident
	start    time.Time
}

// pairState is one row of the brute-force state table.
type pairState struct {
	failures []timedEvent
	active   *activeIncident
}

// bruteForceTracker is the per-(source IP, username) state machine behind
// the brute-force rule. It lives for a single Detect call.
type bruteForceTracker struct {
	pairs   map[pairKey]*pairState
	emitted []*Incident
}

func newBruteForceTracker() *bruteForceTracker {
	return &bruteForceTracker{pairs: make(map[pairKey]*pairState)}
}

// Observe feeds one qualifying failure, in timestamp order. It returns the
// incident that now holds the failure, or nil if no incident is active yet.
func (t *bruteForceTracker) Observe(te timedEvent) *Incident {
	key := pairKey{sourceIP: te.event.SourceIP, username: te.event.Username}
	st, ok := t.pairs[key]
	if !ok {
		st = &pairState{}
		t.pairs[key] = st
	}

	if st.active != nil && te.at.Sub(st.active.start) > Window {
		st.active = nil
		st.failures = st.failures[:0]
	}

	st.failures = append(st.failures, te)
	st.failures = trimWindow(st.failures, te.at)

	if st.active != nil {
		absorbBruteForce(st.active.incident, te)
		return st.active.incident
	}

	if len(st.failures) < BruteForceFailureThreshold {
		return nil
	}

	inc := buildBruteForce(key, st.failures)
	st.active = &activeIncident{incident: inc, start: st.failures[0].at}
	t.emitted = append(t.emitted, inc)
	return inc
}

// Incidents returns every incident raised so far, in emission order.
func (t *bruteForceTracker) Incidents() []*Incident {
	return t.emitted
}

func buildBruteForce(key pairKey, window []timedEvent) *Incident {
	entities := sortedUnique(key.sourceIP, key.username)
	inc := newIncident(
		IncidentTypeBruteForce,
		Subject{SourceIP: key.sourceIP, Username: key.username},
		entities,
		window,
	)
	inc.Explanation = Explanation{
		Threshold:    BruteForceFailureThreshold,
		Observed:     BruteForceFailureThreshold,
		Window:       windowLabel(Window),
		TriggerField: "username",
	}
	inc.Severity, inc.Confidence = bruteForceRating(inc.EvidenceCount)
	inc.Summary = BuildSummary(inc)
	return inc
}

// absorbBruteForce appends a failure to an active incident in place.
// Explanation.Observed stays at the threshold that raised the incident.
func absorbBruteForce(inc *Incident, te timedEvent) {
	ts := FormatTimestamp(te.at)

	inc.Evidence.Events = append(inc.Evidence.Events, te.event)
	inc.Evidence.Timeline = append(inc.Evidence.Timeline, timelineEntry(&te.event))
	inc.Evidence.WindowEnd = ts
	inc.LastSeen = ts
	inc.EvidenceCount = len(inc.Evidence.Events)
	inc.Evidence.Counts[CountFailures] = inc.EvidenceCount
	inc.SourceCount = CountSources(inc.Evidence.Events)
	inc.Severity, inc.Confidence = bruteForceRating(inc.EvidenceCount)
	inc.Summary = BuildSummary(inc)
}

// trimWindow drops events older than Window before now. An event exactly
// Window old is kept.
func trimWindow(events []timedEvent, now time.Time) []timedEvent {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(events) && events[i].at.Before(cutoff) {
		i++
	}
	if i == 0 {
		return events
	}
	return append(events[:0], events[i:]...)
}
