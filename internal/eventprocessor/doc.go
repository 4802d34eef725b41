// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

// Package eventprocessor consumes authentication event batches from NATS
// JetStream and runs them through the ingest pipeline.
//
// Each message payload is a JSON array of events, an {"events": [...]}
// object, or a single event object, exactly as accepted by POST
// /api/v1/ingest. Payloads that cannot be decoded are acknowledged and
// dropped so a poison message is never redelivered. Pipeline failures are
// negatively acknowledged and JetStream redelivers them up to MaxDeliver
// times.
//
// The Watermill/NATS subscriber is only compiled with the nats build tag:
//
//	go build -tags nats ./cmd/server
//
// Without it NewConsumer returns ErrNATSNotEnabled and the rest of the
// service runs HTTP-only.
package eventprocessor
