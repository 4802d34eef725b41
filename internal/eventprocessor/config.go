// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/tomtom215/authsentry/internal/config"
)

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL              string
	Subject          string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration

	// StreamName binds to an existing JetStream stream instead of letting
	// the subscriber provision one named after the subject. Required when
	// Subject contains wildcards.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		Subject:          "authsentry.events",
		DurableName:      "authsentry-ingest",
		QueueGroup:       "authsentry",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    256,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// SubscriberConfigFromApp overlays the application's NATS settings on the defaults.
func SubscriberConfigFromApp(cfg *config.NATSConfig) SubscriberConfig {
	sc := DefaultSubscriberConfig(cfg.URL)
	if cfg.Subject != "" {
		sc.Subject = cfg.Subject
	}
	if cfg.DurableName != "" {
		sc.DurableName = cfg.DurableName
	}
	if cfg.QueueGroup != "" {
		sc.QueueGroup = cfg.QueueGroup
	}
	if cfg.SubscribersCnt > 0 {
		sc.SubscribersCount = cfg.SubscribersCnt
	}
	if cfg.AckWaitTimeout > 0 {
		sc.AckWaitTimeout = cfg.AckWaitTimeout
	}
	if cfg.CloseTimeout > 0 {
		sc.CloseTimeout = cfg.CloseTimeout
	}
	sc.StreamName = cfg.StreamName
	return sc
}

// Validate checks the fields the subscriber cannot start without.
func (c *SubscriberConfig) Validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("%w: NATS URL is required", ErrInvalidConfig)
	case c.Subject == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidConfig)
	case c.DurableName == "":
		return fmt.Errorf("%w: durable name is required", ErrInvalidConfig)
	case c.SubscribersCount < 1:
		return fmt.Errorf("%w: subscribers count must be at least 1", ErrInvalidConfig)
	case c.MaxDeliver < 1:
		return fmt.Errorf("%w: max deliver must be at least 1", ErrInvalidConfig)
	}
	return nil
}
