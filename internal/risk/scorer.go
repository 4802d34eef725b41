// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

// Package risk keeps a decaying risk score per source IP and username.
//
// Scores rise by a fixed weight per incident type each time an incident is
// created or reopened and halve every HalfLifeHours in the absence of new
// incidents. State lives only in memory and is rebuilt from the incident
// index with Rehydrate.
package risk

import (
	"math"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/authsentry/internal/detection"
	"github.com/tomtom215/authsentry/internal/logging"
	"github.com/tomtom215/authsentry/internal/metrics"
)

// HalfLifeHours is the time for an untouched score to halve.
const HalfLifeHours = 24.0

// decayLambda is ln2 / half-life, per hour.
var decayLambda = math.Ln2 / HalfLifeHours

// EntityType names the kind of entity a score belongs to.
type EntityType string

const (
	EntitySourceIP EntityType = "source_ip"
	EntityUsername EntityType = "username"
)

// weights is the score added per incident, by type. Types not listed do not
// affect any score.
var weights = map[detection.IncidentType]float64{
	detection.IncidentTypeBruteForce:      10.0,
	detection.IncidentTypeCredentialAbuse: 25.0,
}

// Weights returns a copy of the per-type increments.
func Weights() map[detection.IncidentType]float64 {
	out := make(map[detection.IncidentType]float64, len(weights))
	for k, v := range weights {
		out[k] = v
	}
	return out
}

type entityKey struct {
	entityType EntityType
	id         string
}

type entityState struct {
	score       float64
	lastUpdated time.Time
}

// decayTo returns the score as of at. Moments at or before lastUpdated
// leave the score as is.
func (st entityState) decayTo(at time.Time) float64 {
	if !at.After(st.lastUpdated) {
		return st.score
	}
	hours := at.Sub(st.lastUpdated).Hours()
	return st.score * math.Exp(-decayLambda*hours)
}

// Row is one entity in a risk snapshot.
type Row struct {
	EntityType        EntityType `json:"entity_type"`
	EntityID          string     `json:"entity_id"`
	RiskScore         float64    `json:"risk_score"`
	TotalIncidents    int        `json:"total_incidents"`
	OpenIncidents     int        `json:"open_incidents"`
	HighestConfidence float64    `json:"highest_confidence"`
	LastSeen          *string    `json:"last_seen"`
}

// Scorer owns the score map. It is safe for concurrent use.
type Scorer struct {
	mu       sync.Mutex
	entities map[entityKey]*entityState
	now      func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock overrides the time source used for unparsable timestamps and snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer returns an empty scorer.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		entities: make(map[entityKey]*entityState),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record applies the incident's weight to every entity it implicates, as of
// its last_seen time (or now when last_seen does not parse).
func (s *Scorer) Record(inc *detection.Incident) {
	at := s.incidentTime(inc)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordLocked(inc, at)
	metrics.EntitiesTracked.Set(float64(len(s.entities)))
}

// Rehydrate discards all state and replays incidents in ascending last_seen order.
func (s *Scorer) Rehydrate(incidents []detection.Incident) {
	type timed struct {
		inc *detection.Incident
		at  time.Time
	}
	ordered := make([]timed, len(incidents))
	for i := range incidents {
		ordered[i] = timed{inc: &incidents[i], at: s.incidentTime(&incidents[i])}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].at.Before(ordered[j].at)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = make(map[entityKey]*entityState)
	for _, t := range ordered {
		s.recordLocked(t.inc, t.at)
	}
	metrics.EntitiesTracked.Set(float64(len(s.entities)))

	logging.Info().
		Int("incidents", len(incidents)).
		Int("entities", len(s.entities)).
		Msg("Entity risk rehydrated")
}

// Score returns the current decayed score for an entity and whether it is tracked.
func (s *Scorer) Score(entityType EntityType, id string) (float64, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.entities[entityKey{entityType, id}]
	if !ok {
		return 0, false
	}
	return st.decayTo(now), true
}

// Len returns the number of tracked entities.
func (s *Scorer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// BuildRows returns a point-in-time snapshot: every scored entity decayed to
// now, joined with aggregates over incidents. Stored scores are not changed.
func (s *Scorer) BuildRows(incidents []detection.Incident) []Row {
	now := s.now()

	s.mu.Lock()
	scores := make(map[entityKey]float64, len(s.entities))
	for key, st := range s.entities {
		scores[key] = round(st.decayTo(now), 2)
	}
	s.mu.Unlock()

	rows := make(map[entityKey]*Row)
	rowFor := func(key entityKey) *Row {
		row, ok := rows[key]
		if !ok {
			row = &Row{EntityType: key.entityType, EntityID: key.id}
			rows[key] = row
		}
		return row
	}

	for i := range incidents {
		inc := &incidents[i]
		for _, key := range collectEntities(inc) {
			row := rowFor(key)
			row.TotalIncidents++
			if inc.Status == detection.StatusOpen {
				row.OpenIncidents++
			}
			row.HighestConfidence = math.Max(row.HighestConfidence, inc.Confidence)
			row.LastSeen = laterSeen(row.LastSeen, inc.LastSeen)
		}
	}
	for key := range scores {
		rowFor(key)
	}

	out := make([]Row, 0, len(rows))
	for key, row := range rows {
		row.RiskScore = scores[key]
		row.HighestConfidence = round(row.HighestConfidence, 4)
		out = append(out, *row)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.RiskScore != b.RiskScore:
			return a.RiskScore > b.RiskScore
		case a.OpenIncidents != b.OpenIncidents:
			return a.OpenIncidents > b.OpenIncidents
		case a.HighestConfidence != b.HighestConfidence:
			return a.HighestConfidence > b.HighestConfidence
		case a.EntityType != b.EntityType:
			return a.EntityType < b.EntityType
		default:
			return a.EntityID < b.EntityID
		}
	})
	return out
}

func (s *Scorer) recordLocked(inc *detection.Incident, at time.Time) {
	weight, ok := weights[inc.Type]
	if !ok || weight <= 0 {
		return
	}
	for _, key := range collectEntities(inc) {
		st, ok := s.entities[key]
		if !ok {
			st = &entityState{lastUpdated: at}
			s.entities[key] = st
		}
		if at.After(st.lastUpdated) {
			st.score = st.decayTo(at)
			st.lastUpdated = at
		}
		st.score += weight
	}
}

func (s *Scorer) incidentTime(inc *detection.Incident) time.Time {
	if at, ok := detection.ParseTimestamp(inc.LastSeen); ok {
		return at
	}
	return s.now().UTC()
}

// collectEntities returns the distinct entities an incident implicates.
// affected_entities are bucketed by whether they parse as an IP address.
func collectEntities(inc *detection.Incident) []entityKey {
	seen := make(map[entityKey]struct{})
	var out []entityKey
	add := func(key entityKey) {
		if key.id == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}

	add(entityKey{EntitySourceIP, inc.Subject.SourceIP})
	if inc.Subject.Username != detection.MultipleAccounts {
		add(entityKey{EntityUsername, inc.Subject.Username})
	}
	for _, entity := range inc.AffectedEntities {
		if _, err := netip.ParseAddr(entity); err == nil {
			add(entityKey{EntitySourceIP, entity})
		} else {
			add(entityKey{EntityUsername, entity})
		}
	}
	return out
}

// laterSeen keeps the more recent of two last_seen values. Unparsable
// candidates are ignored.
func laterSeen(current *string, candidate string) *string {
	at, ok := detection.ParseTimestamp(candidate)
	if !ok {
		return current
	}
	if current != nil {
		if prev, ok := detection.ParseTimestamp(*current); ok && at.Before(prev) {
			return current
		}
	}
	v := candidate
	return &v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
