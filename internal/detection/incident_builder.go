// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package detection

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

var mitreByType = map[IncidentType]Mitre{
	IncidentTypeBruteForce: {
		Tactic:        "Credential Access",
		Technique:     "T1110",
		TechniqueName: "Brute Force",
	},
	IncidentTypeCredentialAbuse: {
		Tactic:        "Credential Access",
		Technique:     "T1110.003",
		TechniqueName: "Password Spraying",
	},
}

// MitreFor returns the ATT&CK mapping for an incident type.
func MitreFor(t IncidentType) (Mitre, bool) {
	m, ok := mitreByType[t]
	return m, ok
}

// RecommendedActions returns the fixed analyst playbook attached to every incident.
func RecommendedActions() []string {
	return []string{
		"Validate whether the source IP and login pattern are expected for this user (VPNs, known locations, automation).",
		"Review authentication activity before and after the detection window to identify escalation or successful access.",
		"Assess account controls (lockout behavior, MFA enforcement) and confirm whether the user experienced authentication issues.",
		"If activity is unauthorized, follow response policy: reset credentials, revoke active sessions, and apply network controls as appropriate.",
	}
}

// IncidentID derives the stable ID for a detection. The seed is
// type|entity...|window_start with entities sorted ascending, and the ID is
// "inc_" plus the first 24 hex characters of its SHA-256.
func IncidentID(t IncidentType, entities []string, windowStart string) string {
	sorted := append([]string(nil), entities...)
	sort.Strings(sorted)

	parts := make([]string, 0, len(sorted)+2)
	parts = append(parts, string(t))
	parts = append(parts, sorted...)
	parts = append(parts, windowStart)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "inc_" + hex.EncodeToString(sum[:])[:24]
}

// bruteForceRating maps an evidence count to severity and confidence.
func bruteForceRating(count int) (Severity, float64) {
	switch {
	case count >= 20:
		return SeverityHigh, 0.95
	case count >= 10:
		return SeverityMedium, 0.85
	default:
		return SeverityLow, 0.70
	}
}

func credentialAbuseSeverity(distinctUsers int) Severity {
	if distinctUsers > 15 {
		return SeverityCritical
	}
	return SeverityHigh
}

// sortedUnique returns the distinct non-empty values in ascending order.
func sortedUnique(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func timelineEntry(ev *CanonicalEvent) TimelineEntry {
	return TimelineEntry{
		Timestamp: ev.Timestamp,
		EventType: ev.EventType,
		Result:    ev.Result,
		Reason:    ev.Reason,
		Username:  ev.Username,
	}
}

// CountSources returns the number of distinct non-empty Source values.
func CountSources(events []CanonicalEvent) int {
	seen := make(map[string]struct{})
	for i := range events {
		if events[i].Source != "" {
			seen[events[i].Source] = struct{}{}
		}
	}
	return len(seen)
}

// DistinctUsernames returns the number of distinct non-empty usernames.
func DistinctUsernames(events []CanonicalEvent) int {
	seen := make(map[string]struct{})
	for i := range events {
		if events[i].Username != "" {
			seen[events[i].Username] = struct{}{}
		}
	}
	return len(seen)
}

// BuildSummary renders the analyst-facing summary from the incident's
// subject, counts and window.
func BuildSummary(inc *Incident) string {
	failures := inc.Evidence.Counts[CountFailures]
	ws, we := inc.Evidence.WindowStart, inc.Evidence.WindowEnd

	switch inc.Type {
	case IncidentTypeCredentialAbuse:
		return fmt.Sprintf(
			"Potential Credential Abuse detected (MITRE %s - %s): %d failed login attempts across %d distinct accounts from source IP %s during %s to %s. "+
				"This pattern is indicative of compromised credentials or unauthorized access attempts.",
			inc.Mitre.Technique, inc.Mitre.TechniqueName,
			failures, inc.Evidence.Counts[CountDistinctUsers],
			orUnknown(inc.Subject.SourceIP), ws, we,
		)
	default:
		return fmt.Sprintf(
			"Brute-force authentication activity detected (MITRE %s): %d failed login attempts against user '%s' from source IP %s during %s to %s, exceeding brute-force threshold.",
			inc.Mitre.Technique, failures,
			orUnknown(inc.Subject.Username), orUnknown(inc.Subject.SourceIP), ws, we,
		)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// newIncident assembles an incident from windowed evidence. The caller sets
// the rule-specific counts and explanation on the returned incident.
func newIncident(t IncidentType, subject Subject, entities []string, window []timedEvent) *Incident {
	start, end := window[0].at, window[len(window)-1].at
	windowStart := FormatTimestamp(start)

	events := make([]CanonicalEvent, len(window))
	timeline := make([]TimelineEntry, len(window))
	for i := range window {
		events[i] = window[i].event
		timeline[i] = timelineEntry(&window[i].event)
	}

	mitre, _ := MitreFor(t)
	return &Incident{
		IncidentID:         IncidentID(t, entities, windowStart),
		Type:               t,
		Mitre:              mitre,
		FirstSeen:          windowStart,
		LastSeen:           FormatTimestamp(end),
		AffectedEntities:   entities,
		EvidenceCount:      len(events),
		SourceCount:        CountSources(events),
		RecommendedActions: RecommendedActions(),
		Subject:            subject,
		Evidence: Evidence{
			WindowStart: windowStart,
			WindowEnd:   FormatTimestamp(end),
			Counts:      map[string]int{CountFailures: len(events)},
			Timeline:    timeline,
			Events:      events,
		},
		Status: StatusOpen,
	}
}

func windowLabel(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
