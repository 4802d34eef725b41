// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

/*
Package api provides the HTTP REST API for AuthSentry.

Routes:

	GET   /health                    liveness and index summary
	GET   /metrics                   Prometheus exposition
	POST  /api/v1/ingest             run an event batch through detection
	GET   /api/v1/incidents          list incidents (?status=, ?type=)
	GET   /api/v1/incidents/{id}     fetch one incident
	PATCH /api/v1/incidents/{id}     change status
	GET   /api/v1/entity-risk        decayed risk per source IP and username

Every /api/v1 response uses the envelope in models.APIResponse. Errors
carry a machine-readable code: VALIDATION_ERROR (400), NOT_FOUND (404),
INVALID_TRANSITION (409), PAYLOAD_TOO_LARGE (413), RATE_LIMIT_EXCEEDED
(429) and STORAGE_ERROR (500).

Middleware order is request ID with logging context, real IP, panic
recovery and CORS on every route, then rate limiting, body limit,
security headers and request metrics on /api/v1.

Example:

	handler := api.NewHandler(pipeline, cfg, version)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromAPI(&cfg.API)))
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: router.SetupChi()}
*/
package api
