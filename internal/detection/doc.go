// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

// Package detection correlates canonical authentication events into
// security incidents.
//
// Detection Architecture:
//
//	[]CanonicalEvent -> preprocess -> bruteForceTracker    -> []Incident
//	                    (validate,    credentialAbuseWindow
//	                     parse, sort)
//
// Detect is a pure function: it holds no state between calls, so any number
// of runs may execute concurrently and the same input always produces the
// same incidents in the same order (sorted by incident ID).
//
// Supported Detection Rules:
//   - Brute Force (MITRE T1110): five or more failures for one
//     (source IP, username) pair inside a 60 second window. Once raised,
//     the incident keeps absorbing failures for that pair until 60 seconds
//     after its window start, then a fresh streak starts a new incident.
//   - Credential Abuse (MITRE T1110.003): one source IP failing against
//     five or more distinct usernames with eight or more failures inside
//     the trailing 60 second window. Each distinct window snapshot is its
//     own incident; as old failures age out, a continuing spray yields new
//     incident IDs.
//
// Incident IDs are content hashes of the rule type, the sorted affected
// entities and the window start, so independent runs over overlapping
// data converge on the same IDs and the incident store can merge them.
//
// Thresholds and the window length are fixed constants rather than
// configuration because stored incident IDs depend on them.
package detection
