// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

// Package services adapts AuthSentry components to suture.Service.
//
// Components expose whatever lifecycle fits them (ListenAndServe/Shutdown,
// Run/Close, a periodic func); each wrapper translates that into a Serve(ctx)
// that blocks until ctx is cancelled and a String() used in supervisor logs.
// The wrappers depend on small interfaces rather than concrete types so they
// can be tested with fakes.
package services
