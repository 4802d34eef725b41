// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package ingest

import (
	"context"
	"fmt"

	"github.com/tomtom215/authsentry/internal/incident"
	"github.com/tomtom215/authsentry/internal/metrics"
)

// RefreshGauges publishes the current incident counts and the number of
// tracked entities. Staleness is time-driven, so it is sampled rather than
// updated on write.
func (p *Pipeline) RefreshGauges(_ context.Context) error {
	st, err := p.store.Stats()
	if err != nil {
		return fmt.Errorf("incident stats: %w", err)
	}

	byStatus := make(map[string]int, len(st.ByStatus))
	labels := make([]string, 0, len(incident.Statuses))
	for _, status := range incident.Statuses {
		labels = append(labels, string(status))
		byStatus[string(status)] = st.ByStatus[status]
	}
	metrics.SetIncidentGauges(byStatus, st.Stale, labels)
	metrics.EntitiesTracked.Set(float64(p.risk.Len()))
	return nil
}
