// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package incident

import "github.com/tomtom215/authsentry/internal/detection"

// Statuses lists every lifecycle status in lifecycle order.
var Statuses = []detection.Status{
	detection.StatusOpen,
	detection.StatusAcknowledged,
	detection.StatusClosed,
}

// Stats is a point-in-time count of the index.
type Stats struct {
	Total    int
	ByStatus map[detection.Status]int
	// Stale counts incidents that are not closed and past StaleAfter.
	Stale int
}

// Stats counts incidents by status using the store's clock.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return Stats{}, err
	}

	now := s.now()
	st := Stats{
		Total:    len(s.incidents),
		ByStatus: make(map[detection.Status]int, len(Statuses)),
	}
	for _, inc := range s.incidents {
		st.ByStatus[inc.Status]++
		if inc.Status != detection.StatusClosed && IsStale(inc, now) {
			st.Stale++
		}
	}
	return st, nil
}
