// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

// Package incident is the authoritative, persisted index of detected
// incidents. It merges repeated detections of the same incident ID, drives
// the open -> acknowledged -> closed lifecycle, reopens closed incidents on
// new evidence, and notifies entity risk scoring when an incident is created
// or reopened.
//
// Every operation runs under one mutex that also serializes file writes.
// The index is loaded lazily on first use and rewritten in full on every
// mutation, through a temp file renamed over the target.
package incident

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/authsentry/internal/detection"
	"github.com/tomtom215/authsentry/internal/logging"
	"github.com/tomtom215/authsentry/internal/metrics"
	"github.com/tomtom215/authsentry/internal/validation"
)

// StaleAfter is how long after last_seen an incident is reported as stale.
const StaleAfter = 5 * time.Minute

// RiskRecorder receives incidents that should accrue entity risk.
// risk.Scorer implements it.
type RiskRecorder interface {
	Record(inc *detection.Incident)
}

// Store holds incidents keyed by ID.
type Store struct {
	mu        sync.Mutex
	path      string
	incidents map[string]*detection.Incident
	loaded    bool
	risk      RiskRecorder
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at, updated_at and staleness.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store backed by the JSON file at path. risk may be nil.
func NewStore(path string, risk RiskRecorder, opts ...Option) *Store {
	s := &Store{
		path:      path,
		incidents: make(map[string]*detection.Incident),
		risk:      risk,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load (re)reads the backing file, replacing the in-memory index.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Get returns a copy of the incident with the given ID.
func (s *Store) Get(id string) (detection.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return detection.Incident{}, err
	}
	inc, ok := s.incidents[id]
	if !ok {
		return detection.Incident{}, fmt.Errorf("%w: %s", ErrIncidentNotFound, id)
	}
	return inc.Clone(), nil
}

// List returns copies of all incidents sorted by ID.
func (s *Store) List() ([]detection.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	out := make([]detection.Incident, 0, len(s.incidents))
	for _, id := range s.sortedIDsLocked() {
		out = append(out, s.incidents[id].Clone())
	}
	return out, nil
}

// Upsert stores a candidate incident.
//
// A new ID is stored open. A closed incident is merged and reopened. An open
// or acknowledged incident is merged and keeps its status. Entity risk is
// recorded only for the first two cases.
func (s *Store) Upsert(candidate detection.Incident) (detection.Incident, error) {
	if verr := validation.ValidateStruct(&candidate); verr != nil {
		return detection.Incident{}, fmt.Errorf("%w: %s", ErrInvalidIncident, verr.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return detection.Incident{}, err
	}

	now := detection.FormatTimestamp(s.now())
	incoming := candidate.Clone()
	existing, found := s.incidents[incoming.IncidentID]

	if !found {
		incoming.Status = detection.StatusOpen
		incoming.ResolutionReason = nil
		incoming.CreatedAt = now
		incoming.UpdatedAt = now
		if err := s.commitLocked(&incoming, nil); err != nil {
			return detection.Incident{}, err
		}
		metrics.IncidentsCreated.Inc()
		logging.Info().
			Str("incident_id", incoming.IncidentID).
			Str("type", string(incoming.Type)).
			Str("severity", string(incoming.Severity)).
			Int("evidence_count", incoming.EvidenceCount).
			Msg("Incident created")
		s.recordRisk(&incoming)
		return incoming.Clone(), nil
	}

	// mergeIncident starts from a copy of existing, so created_at and
	// resolution_reason carry over unless reopened below.
	merged := mergeIncident(existing, &incoming, now)

	if existing.Status == detection.StatusClosed {
		merged.Status = detection.StatusOpen
		merged.ResolutionReason = nil
		if err := s.commitLocked(&merged, existing); err != nil {
			return detection.Incident{}, err
		}
		metrics.IncidentsReopened.Inc()
		logging.Info().
			Str("incident_id", merged.IncidentID).
			Int("evidence_count", merged.EvidenceCount).
			Msg("Closed incident reopened by new detection")
		s.recordRisk(&merged)
		return merged.Clone(), nil
	}

	merged.Status = existing.Status
	if err := s.commitLocked(&merged, existing); err != nil {
		return detection.Incident{}, err
	}
	metrics.IncidentsUpdated.Inc()
	logging.Debug().
		Str("incident_id", merged.IncidentID).
		Int("evidence_count", merged.EvidenceCount).
		Msg("Incident updated")
	return merged.Clone(), nil
}

// validTransitions lists the statuses reachable from each status by a
// direct transition. Leaving closed requires a new detection via Upsert.
var validTransitions = map[detection.Status][]detection.Status{
	detection.StatusOpen:         {detection.StatusAcknowledged},
	detection.StatusAcknowledged: {detection.StatusClosed},
	detection.StatusClosed:       nil,
}

// CanTransition reports whether from -> to is an allowed direct transition.
func CanTransition(from, to detection.Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves an incident to a new status. resolutionReason is stored
// only when closing.
func (s *Store) Transition(id string, to detection.Status, resolutionReason *string) (detection.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		metrics.RecordTransition(string(to), "error")
		return detection.Incident{}, err
	}

	existing, ok := s.incidents[id]
	if !ok {
		metrics.RecordTransition(string(to), "not_found")
		return detection.Incident{}, fmt.Errorf("%w: %s", ErrIncidentNotFound, id)
	}

	if !CanTransition(existing.Status, to) {
		metrics.RecordTransition(string(to), "invalid")
		return detection.Incident{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, to)
	}

	updated := existing.Clone()
	updated.Status = to
	updated.UpdatedAt = detection.FormatTimestamp(s.now())
	if to == detection.StatusClosed {
		updated.ResolutionReason = nil
		if resolutionReason != nil {
			reason := *resolutionReason
			updated.ResolutionReason = &reason
		}
	}

	if err := s.commitLocked(&updated, existing); err != nil {
		metrics.RecordTransition(string(to), "error")
		return detection.Incident{}, err
	}

	metrics.RecordTransition(string(to), "ok")
	if to == detection.StatusClosed {
		metrics.IncidentsClosed.Inc()
	}
	logging.Info().
		Str("incident_id", id).
		Str("from", string(existing.Status)).
		Str("to", string(to)).
		Msg("Incident status changed")
	return updated.Clone(), nil
}

// IsStale reports whether the incident's last activity is older than StaleAfter.
// Unparsable last_seen values are never stale.
func IsStale(inc *detection.Incident, now time.Time) bool {
	seen, ok := detection.ParseTimestamp(inc.LastSeen)
	if !ok {
		return false
	}
	return now.Sub(seen) > StaleAfter
}

// View is an incident plus fields derived at read time.
type View struct {
	detection.Incident
	IsStale bool `json:"is_stale"`
}

// ViewOf derives the read-time fields for inc using the store's clock.
func (s *Store) ViewOf(inc detection.Incident) View {
	return View{Incident: inc, IsStale: IsStale(&inc, s.now())}
}

// commitLocked installs inc in the index and persists. On a write failure
// the previous value (nil for a new ID) is restored so memory never runs
// ahead of the file.
func (s *Store) commitLocked(inc, previous *detection.Incident) error {
	stored := inc.Clone()
	s.incidents[inc.IncidentID] = &stored

	if err := s.saveLocked(); err != nil {
		if previous == nil {
			delete(s.incidents, inc.IncidentID)
		} else {
			s.incidents[inc.IncidentID] = previous
		}
		metrics.StoreWriteErrors.Inc()
		logging.Error().Err(err).Str("incident_id", inc.IncidentID).Msg("Failed to persist incident index")
		return err
	}
	return nil
}

// recordRisk forwards to the risk recorder. A failing recorder must not
// undo a stored incident, so panics are logged and swallowed.
func (s *Store) recordRisk(inc *detection.Incident) {
	if s.risk == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Warn().
				Str("incident_id", inc.IncidentID).
				Interface("panic", r).
				Msg("Entity risk update failed")
		}
	}()
	s.risk.Record(inc)
}

func (s *Store) sortedIDsLocked() []string {
	ids := make([]string, 0, len(s.incidents))
	for id := range s.incidents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
