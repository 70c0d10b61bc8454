// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine assembles the observation pipeline for one host
// surface. An Engine consumes the operation reports produced by the
// interception layer, maintains the node graph, the pipeline
// signature, and the session lifecycle, and delivers signature
// changes, recording-state transitions, and detected-encoder records
// to a caller-supplied Emitter.
//
// The engine also arbitrates encoder evidence. Conclusions arrive at
// three provenance levels: worker configuration messages, recorder
// media-type requests, and name-based heuristics. The strongest
// record for the newest session is cached and attached to that
// session's finalize report; a reset classification for a newer
// session clears the cache.
//
// Reports may come from live interception or from journal replay. The
// engine does not distinguish: it implements intercept.Observer and
// accepts reports from either feed.
package engine
