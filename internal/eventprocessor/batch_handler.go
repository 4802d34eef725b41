// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package eventprocessor

import (
	"context"
	"errors"

	"github.com/tomtom215/authsentry/internal/detection"
	"github.com/tomtom215/authsentry/internal/ingest"
	"github.com/tomtom215/authsentry/internal/logging"
	"github.com/tomtom215/authsentry/internal/metrics"
)

// Runner runs a decoded batch. *ingest.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, events []detection.CanonicalEvent) (*ingest.RunResult, error)
}

// BatchHandler turns one message payload into one ingest run.
type BatchHandler struct {
	runner Runner
}

// NewBatchHandler creates a handler over runner.
func NewBatchHandler(runner Runner) *BatchHandler {
	return &BatchHandler{runner: runner}
}

// Handle decodes payload and runs it. A nil return means the message
// should be acknowledged: that covers success and payloads that will never
// decode. A non-nil return means the message should be redelivered.
func (h *BatchHandler) Handle(ctx context.Context, messageID string, payload []byte) error {
	metrics.NATSMessagesConsumed.Inc()
	log := logging.Ctx(ctx).With().Str("message_uuid", messageID).Logger()

	events, skipped, err := detection.DecodeEvents(payload)
	if err != nil {
		metrics.NATSParseFailed.Inc()
		log.Warn().Err(err).Int("bytes", len(payload)).Msg("Dropping undecodable event batch")
		return nil
	}
	if len(events) == 0 {
		metrics.NATSParseFailed.Inc()
		log.Warn().Int("skipped", skipped).Msg("Dropping event batch with no event objects")
		return nil
	}

	result, err := h.runner.Run(ctx, events)
	if errors.Is(err, ingest.ErrNoEvents) {
		return nil
	}
	if err != nil {
		return err
	}

	log.Debug().
		Str("run_id", result.RunID).
		Int("incidents_detected", result.IncidentsDetected).
		Msg("Event batch processed")
	return nil
}
