// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

/*
Package main is the entry point for the AuthSentry server.

AuthSentry ingests authentication events, detects brute-force and
credential-abuse patterns, tracks the resulting incidents through an
open -> acknowledged -> closed lifecycle, and keeps a decaying risk score
per source IP and username.

# Application Architecture

	RootSupervisor ("authsentry")
	├── DataSupervisor ("data-layer")
	│   └── incident-gauges (refreshes Prometheus gauges every 30s)
	├── MessagingSupervisor ("messaging-layer")
	│   └── nats-ingest (optional, -tags nats and NATS_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── http-server

Startup order:

 1. Configuration: koanf defaults, config.yaml, environment
 2. Logging: zerolog, JSON or console
 3. Risk scorer and incident store (JSON index at INCIDENTS_PATH)
 4. Bootstrap: load the index and rebuild risk scores from it
 5. Supervisor tree with the services above

# Configuration

	HTTP_HOST=0.0.0.0
	HTTP_PORT=8080
	INCIDENTS_PATH=runs/incidents.json
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console
	RATE_LIMIT_REQUESTS=100
	DISABLE_RATE_LIMIT=false

	NATS_ENABLED=false
	NATS_URL=nats://127.0.0.1:4222
	NATS_SUBJECT=authsentry.events
	NATS_STREAM=                 # bind to an existing stream

# Build Tags

	go build ./cmd/server               # HTTP ingest only
	go build -tags nats ./cmd/server    # plus JetStream ingest

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests for up to SHUTDOWN_TIMEOUT, the NATS consumer is closed,
and any service that overruns the supervisor timeout is reported.
*/
package main
