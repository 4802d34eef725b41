// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/authsentry/internal/logging"
)

// Consumer is a blocking message consumer. *eventprocessor.Consumer
// satisfies it.
type Consumer interface {
	Run(ctx context.Context) error
	Close() error
}

// IngestConsumerService supervises the NATS ingest consumer.
//
// A Run error is returned to the supervisor, which restarts Run on the same
// consumer after backoff. The consumer is closed once, when the service's
// context ends. If Run returns nil the subscription has been closed
// underneath it and restarting cannot help, so the service stops for good.
type IngestConsumerService struct {
	consumer Consumer
	name     string
}

// NewIngestConsumerService wraps consumer.
func NewIngestConsumerService(consumer Consumer) *IngestConsumerService {
	return &IngestConsumerService{
		consumer: consumer,
		name:     "nats-ingest",
	}
}

// Serve implements suture.Service.
func (s *IngestConsumerService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx)

	if ctx.Err() != nil {
		if cerr := s.consumer.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Closing NATS consumer failed")
		}
		return ctx.Err()
	}

	switch {
	case err == nil:
		logging.Warn().Msg("NATS subscription closed, ingest consumer stopping")
		return suture.ErrDoNotRestart
	case errors.Is(err, suture.ErrDoNotRestart):
		return err
	default:
		return fmt.Errorf("nats ingest consumer: %w", err)
	}
}

func (s *IngestConsumerService) String() string {
	return s.name
}
