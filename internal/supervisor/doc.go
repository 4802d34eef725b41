// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

/*
Package supervisor runs AuthSentry's long-lived components under a suture
supervisor tree.

	authsentry (root)
	├── data-layer
	│   └── incident-gauges (periodic)
	├── messaging-layer
	│   └── nats-ingest (only with -tags nats and nats.enabled)
	└── api-layer
	    └── http-server

Each service implements suture.Service: Serve(ctx) blocks until ctx is
cancelled and returns an error to request a restart. Repeated failures put
the owning layer into backoff (FailureThreshold, FailureDecay,
FailureBackoff) without affecting sibling layers. Supervisor events are
logged through sutureslog into the global zerolog logger.

The service wrappers live in the services subpackage.
*/
package supervisor
