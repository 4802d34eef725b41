// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package detection

import "time"

// Detection constants. Changing any of these changes which incident IDs are
// produced for the same input, so they are not configurable.
const (
	// WindowSeconds bounds both the trailing failure window and the lifetime
	// of an active brute-force incident measured from its window start.
	WindowSeconds = 60

	BruteForceFailureThreshold     = 5
	CredAbuseDistinctUserThreshold = 5
	CredAbuseFailureThreshold      = 8

	// MultipleAccounts is the subject username of credential abuse incidents.
	MultipleAccounts = "multiple_accounts"
)

// Window is WindowSeconds as a duration.
const Window = WindowSeconds * time.Second

// IncidentType identifies the detection rule that raised an incident.
type IncidentType string

const (
	// IncidentTypeBruteForce is repeated failures for one IP and username.
	IncidentTypeBruteForce IncidentType = "brute_force"

	// IncidentTypeCredentialAbuse is one IP failing across many usernames.
	IncidentTypeCredentialAbuse IncidentType = "credential_abuse"
)

// Severity indicates the severity level of an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status is the lifecycle state of a stored incident.
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusClosed       Status = "closed"
)

// Result values of a CanonicalEvent.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// CanonicalEvent is one normalized authentication log line.
type CanonicalEvent struct {
	Timestamp string `json:"timestamp" validate:"required"`
	SourceIP  string `json:"source_ip,omitempty"`
	Username  string `json:"username,omitempty"`
	EventType string `json:"event_type" validate:"required"`
	Result    string `json:"result" validate:"required,oneof=success failure"`
	Reason    string `json:"reason,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Source    string `json:"source,omitempty"`
	RawSource string `json:"raw_source,omitempty"`
}

// Mitre is the ATT&CK classification of an incident.
type Mitre struct {
	Tactic        string `json:"tactic"`
	Technique     string `json:"technique"`
	TechniqueName string `json:"technique_name"`
}

// Explanation records which threshold a detection crossed.
type Explanation struct {
	Threshold    int    `json:"threshold"`
	Observed     int    `json:"observed"`
	Window       string `json:"window"`
	TriggerField string `json:"trigger_field"`
}

// Subject is the primary actor of an incident.
type Subject struct {
	SourceIP string `json:"source_ip,omitempty"`
	Username string `json:"username,omitempty"`
}

// TimelineEntry is a compact digest of one evidence event.
type TimelineEntry struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Result    string `json:"result"`
	Reason    string `json:"reason,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Evidence holds the events behind an incident. Timeline and Events grow by
// concatenation when incidents merge; they are never deduplicated.
type Evidence struct {
	WindowStart string           `json:"window_start"`
	WindowEnd   string           `json:"window_end"`
	Counts      map[string]int   `json:"counts"`
	Timeline    []TimelineEntry  `json:"timeline"`
	Events      []CanonicalEvent `json:"events"`
}

// Evidence count keys.
const (
	CountFailures      = "failures"
	CountDistinctUsers = "distinct_users"
)

// Incident is a correlated detection result. Detection fills everything up
// to Evidence; the incident store owns Status, CreatedAt, UpdatedAt and
// ResolutionReason.
type Incident struct {
	IncidentID         string       `json:"incident_id" validate:"required,startswith=inc_"`
	Type               IncidentType `json:"type" validate:"required"`
	Mitre              Mitre        `json:"mitre"`
	Severity           Severity     `json:"severity" validate:"required,oneof=low medium high critical"`
	Confidence         float64      `json:"confidence" validate:"gte=0,lte=1"`
	FirstSeen          string       `json:"first_seen" validate:"required,utc_timestamp"`
	LastSeen           string       `json:"last_seen" validate:"required,utc_timestamp"`
	AffectedEntities   []string     `json:"affected_entities" validate:"required,min=1"`
	EvidenceCount      int          `json:"evidence_count" validate:"gte=0"`
	SourceCount        int          `json:"source_count" validate:"gte=0"`
	Summary            string       `json:"summary"`
	RecommendedActions []string     `json:"recommended_actions"`
	Explanation        Explanation  `json:"explanation"`
	Subject            Subject      `json:"subject"`
	Evidence           Evidence     `json:"evidence"`
	Status             Status       `json:"status,omitempty" validate:"omitempty,oneof=open acknowledged closed"`
	CreatedAt          string       `json:"created_at,omitempty"`
	UpdatedAt          string       `json:"updated_at,omitempty"`
	ResolutionReason   *string      `json:"resolution_reason"`
}

// Clone returns a deep copy of the incident.
func (i *Incident) Clone() Incident {
	out := *i
	out.AffectedEntities = append([]string(nil), i.AffectedEntities...)
	out.RecommendedActions = append([]string(nil), i.RecommendedActions...)
	if i.Evidence.Counts != nil {
		out.Evidence.Counts = make(map[string]int, len(i.Evidence.Counts))
		for k, v := range i.Evidence.Counts {
			out.Evidence.Counts[k] = v
		}
	}
	out.Evidence.Timeline = append([]TimelineEntry(nil), i.Evidence.Timeline...)
	out.Evidence.Events = append([]CanonicalEvent(nil), i.Evidence.Events...)
	if i.ResolutionReason != nil {
		reason := *i.ResolutionReason
		out.ResolutionReason = &reason
	}
	return out
}
