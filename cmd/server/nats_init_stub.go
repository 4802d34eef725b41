// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

//go:build !nats

package main

import (
	"github.com/tomtom215/authsentry/internal/config"
	"github.com/tomtom215/authsentry/internal/ingest"
	"github.com/tomtom215/authsentry/internal/logging"
	"github.com/tomtom215/authsentry/internal/supervisor"
)

// addNATSIngest only warns in builds without the nats tag.
func addNATSIngest(cfg *config.Config, _ *ingest.Pipeline, _ *supervisor.SupervisorTree) error {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
	}
	return nil
}
