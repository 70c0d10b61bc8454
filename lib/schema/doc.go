// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the plain data types that cross the probe's
// boundaries: inbound observation reports produced by the interception
// layer, and outbound records handed to the bridging collaborator.
//
// Everything here is behavior-free structured data. Types carry json
// tags; CBOR encoding (lib/codec) reuses the same tags through
// fxamacker's json-tag fallback, so one spelling serves the diagnostic
// JSON surface and the boundary-crossing binary encoding alike.
//
// Enumerations are named string types whose values are the domain
// vocabulary itself ("workletProcessor", "capturedStream", "hard"),
// so records remain legible in journal dumps without a decoder ring.
package schema
