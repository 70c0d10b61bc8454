// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package graph maintains the observed audio-processing topology: a
// directed multigraph of typed node identities plus an append-only
// link/unlink history.
//
// The builder is passive. It consumes the evidence the engine routes
// to it (constructions, links, unlinks, context closures) and answers
// queries; it never initiates anything and keeps no timers. History
// is never discarded: the live adjacency changes as edges retire, but
// the event log only grows, because reset classification needs links
// from before a teardown.
//
// Evidence hygiene rules, in order of appearance:
//
//   - a link naming an endpoint never reported as constructed is
//     dropped, so the graph can never contain an edge to a phantom
//     node;
//   - an unlink that matches nothing (late-attached instrumentation
//     observing a teardown it missed the setup of) is ignored, not an
//     error;
//   - duplicate constructions of the same identity are insert-if-
//     absent (a context's destination reports once per access).
//
// Path queries run over live edges only, breadth-first, fewest hops
// first, with ties broken by event arrival order: adjacency lists
// preserve insertion order and the search visits them in that order.
package graph
