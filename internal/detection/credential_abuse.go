// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package detection

import "sort"

// credentialAbuseWindow keeps one trailing window of qualifying failures
// across all pairs and re-evaluates every source IP on each new failure.
// There is no active-incident marker: every distinct window snapshot that
// crosses both thresholds is its own incident.
type credentialAbuseWindow struct {
	failures []timedEvent
	emitted  map[string]*Incident
	order    []*Incident
}

func newCredentialAbuseWindow() *credentialAbuseWindow {
	return &credentialAbuseWindow{emitted: make(map[string]*Incident)}
}

// Observe feeds one qualifying failure, in timestamp order, and returns any
// incidents first raised by it.
func (w *credentialAbuseWindow) Observe(te timedEvent) []*Incident {
	w.failures = append(w.failures, te)
	w.failures = trimWindow(w.failures, te.at)

	byIP := make(map[string][]timedEvent)
	for _, f := range w.failures {
		byIP[f.event.SourceIP] = append(byIP[f.event.SourceIP], f)
	}

	ips := make([]string, 0, len(byIP))
	for ip := range byIP {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	var raised []*Incident
	for _, ip := range ips {
		events := byIP[ip]
		if len(events) < CredAbuseFailureThreshold {
			continue
		}

		users := make([]string, 0, len(events))
		for _, e := range events {
			users = append(users, e.event.Username)
		}
		users = sortedUnique(users...)
		if len(users) < CredAbuseDistinctUserThreshold {
			continue
		}

		entities := sortedUnique(append([]string{ip}, users...)...)
		id := IncidentID(IncidentTypeCredentialAbuse, entities, FormatTimestamp(events[0].at))
		if _, seen := w.emitted[id]; seen {
			continue
		}

		inc := buildCredentialAbuse(ip, users, entities, events)
		w.emitted[inc.IncidentID] = inc
		w.order = append(w.order, inc)
		raised = append(raised, inc)
	}
	return raised
}

// Incidents returns every incident raised so far, in emission order.
func (w *credentialAbuseWindow) Incidents() []*Incident {
	return w.order
}

func buildCredentialAbuse(ip string, users, entities []string, window []timedEvent) *Incident {
	inc := newIncident(
		IncidentTypeCredentialAbuse,
		Subject{SourceIP: ip, Username: MultipleAccounts},
		entities,
		window,
	)
	inc.Evidence.Counts[CountDistinctUsers] = len(users)
	inc.Explanation = Explanation{
		Threshold:    CredAbuseFailureThreshold,
		Observed:     inc.EvidenceCount,
		Window:       windowLabel(Window),
		TriggerField: "source_ip",
	}
	inc.Severity = credentialAbuseSeverity(len(users))
	inc.Confidence = 0.90
	inc.Summary = BuildSummary(inc)
	return inc
}
