// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package detection

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrEmptyPayload is returned by DecodeEvents for an empty body.
var ErrEmptyPayload = errors.New("empty event payload")

// eventEnvelope is the {"events": [...]} request form.
type eventEnvelope struct {
	Events []json.RawMessage `json:"events"`
}

// DecodeEvents parses an event batch. It accepts a JSON array, a single
// event object, or an object with an "events" array. Items that are not
// objects or do not decode into a CanonicalEvent are skipped and counted.
// Only a payload that is not JSON at all is an error.
func DecodeEvents(data []byte) ([]CanonicalEvent, int, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, 0, ErrEmptyPayload
	}

	var items []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, 0, fmt.Errorf("decode event array: %w", err)
		}
	case '{':
		var env eventEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, 0, fmt.Errorf("decode event object: %w", err)
		}
		if env.Events != nil {
			items = env.Events
		} else {
			items = []json.RawMessage{data}
		}
	default:
		return nil, 0, fmt.Errorf("decode events: expected array or object")
	}

	events := make([]CanonicalEvent, 0, len(items))
	skipped := 0
	for _, raw := range items {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			skipped++
			continue
		}
		var ev CanonicalEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}
