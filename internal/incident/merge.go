// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package incident

import (
	"sort"

	"github.com/tomtom215/authsentry/internal/detection"
)

// mergeIncident folds incoming into existing and returns a new incident.
// Evidence and time bounds accumulate; classification fields come from
// incoming because it reflects the latest detection pass. Lifecycle fields
// (status, created_at, resolution_reason) are left as in existing for the
// caller to settle.
func mergeIncident(existing, incoming *detection.Incident, now string) detection.Incident {
	merged := existing.Clone()

	merged.FirstSeen = minTimestamp(existing.FirstSeen, incoming.FirstSeen)
	merged.LastSeen = maxTimestamp(existing.LastSeen, incoming.LastSeen)
	merged.EvidenceCount = existing.EvidenceCount + incoming.EvidenceCount
	merged.AffectedEntities = unionSorted(existing.AffectedEntities, incoming.AffectedEntities)
	merged.UpdatedAt = now

	merged.Evidence.WindowStart = minTimestamp(existing.Evidence.WindowStart, incoming.Evidence.WindowStart)
	merged.Evidence.WindowEnd = maxTimestamp(existing.Evidence.WindowEnd, incoming.Evidence.WindowEnd)

	merged.Evidence.Timeline = make([]detection.TimelineEntry, 0, len(existing.Evidence.Timeline)+len(incoming.Evidence.Timeline))
	merged.Evidence.Timeline = append(merged.Evidence.Timeline, existing.Evidence.Timeline...)
	merged.Evidence.Timeline = append(merged.Evidence.Timeline, incoming.Evidence.Timeline...)

	merged.Evidence.Events = make([]detection.CanonicalEvent, 0, len(existing.Evidence.Events)+len(incoming.Evidence.Events))
	merged.Evidence.Events = append(merged.Evidence.Events, existing.Evidence.Events...)
	merged.Evidence.Events = append(merged.Evidence.Events, incoming.Evidence.Events...)

	if sources := detection.CountSources(merged.Evidence.Events); sources > 0 {
		merged.SourceCount = sources
	} else {
		merged.SourceCount = max(existing.SourceCount, incoming.SourceCount)
	}

	merged.Evidence.Counts = mergeCounts(existing.Evidence.Counts, incoming.Evidence.Counts, &merged)

	incomingCopy := incoming.Clone()
	merged.Severity = incomingCopy.Severity
	merged.Confidence = incomingCopy.Confidence
	merged.Summary = incomingCopy.Summary
	merged.RecommendedActions = incomingCopy.RecommendedActions
	merged.Explanation = incomingCopy.Explanation
	merged.Subject = incomingCopy.Subject

	return merged
}

// mergeCounts starts from the existing counts. Keys present only in incoming
// are dropped. failures and distinct_users are recomputed from the merged
// incident when either side carries them.
func mergeCounts(existing, incoming map[string]int, merged *detection.Incident) map[string]int {
	counts := make(map[string]int, len(existing)+2)
	for k, v := range existing {
		counts[k] = v
	}

	_, failuresA := existing[detection.CountFailures]
	_, failuresB := incoming[detection.CountFailures]
	if failuresA || failuresB {
		counts[detection.CountFailures] = merged.EvidenceCount
	}

	_, usersA := existing[detection.CountDistinctUsers]
	_, usersB := incoming[detection.CountDistinctUsers]
	if usersA || usersB {
		if n := detection.DistinctUsernames(merged.Evidence.Events); n > 0 {
			counts[detection.CountDistinctUsers] = n
		}
	}
	return counts
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// minTimestamp compares by parsed time. A parsable value beats an
// unparsable one; two unparsable values compare as strings.
func minTimestamp(a, b string) string {
	ta, okA := detection.ParseTimestamp(a)
	tb, okB := detection.ParseTimestamp(b)
	switch {
	case okA && okB:
		if !ta.After(tb) {
			return a
		}
		return b
	case okA:
		return a
	case okB:
		return b
	case a <= b:
		return a
	default:
		return b
	}
}

// maxTimestamp mirrors minTimestamp.
func maxTimestamp(a, b string) string {
	ta, okA := detection.ParseTimestamp(a)
	tb, okB := detection.ParseTimestamp(b)
	switch {
	case okA && okB:
		if !ta.Before(tb) {
			return a
		}
		return b
	case okA:
		return a
	case okB:
		return b
	case a >= b:
		return a
	default:
		return b
	}
}
