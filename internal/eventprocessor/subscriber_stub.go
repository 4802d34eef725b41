// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

//go:build !nats

package eventprocessor

import (
	"context"
	"log/slog"
)

// Consumer is a stub when built without the nats tag.
type Consumer struct{}

// NewConsumer returns ErrNATSNotEnabled when built without the nats tag.
func NewConsumer(_ SubscriberConfig, _ *BatchHandler, _ *slog.Logger) (*Consumer, error) {
	return nil, ErrNATSNotEnabled
}

// Run returns ErrNATSNotEnabled.
func (c *Consumer) Run(_ context.Context) error {
	return ErrNATSNotEnabled
}

// Close is a no-op.
func (c *Consumer) Close() error {
	return nil
}
