// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

//go:build nats

package main

import (
	"fmt"

	"github.com/tomtom215/authsentry/internal/config"
	"github.com/tomtom215/authsentry/internal/eventprocessor"
	"github.com/tomtom215/authsentry/internal/ingest"
	"github.com/tomtom215/authsentry/internal/logging"
	"github.com/tomtom215/authsentry/internal/supervisor"
	"github.com/tomtom215/authsentry/internal/supervisor/services"
)

// addNATSIngest adds the JetStream ingest consumer to the messaging layer
// when NATS is enabled.
func addNATSIngest(cfg *config.Config, pipeline *ingest.Pipeline, tree *supervisor.SupervisorTree) error {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS ingest disabled (NATS_ENABLED=false)")
		return nil
	}

	subCfg := eventprocessor.SubscriberConfigFromApp(&cfg.NATS)
	consumer, err := eventprocessor.NewConsumer(subCfg, eventprocessor.NewBatchHandler(pipeline), logging.NewSlogLogger())
	if err != nil {
		return fmt.Errorf("create NATS consumer: %w", err)
	}

	tree.AddMessagingService(services.NewIngestConsumerService(consumer))
	logging.Info().
		Str("url", subCfg.URL).
		Str("subject", subCfg.Subject).
		Str("durable", subCfg.DurableName).
		Msg("NATS ingest consumer added to supervisor tree (messaging layer)")
	return nil
}
