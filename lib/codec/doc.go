// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for every record that
// crosses the probe boundary: outbound engine records handed to the
// bridging collaborator and evidence-journal frames.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2) so the
// same logical record always produces identical bytes. Byte equality
// is record equality, which keeps journal diffing and deduplication
// trivial. Decoding ignores unknown fields for forward compatibility:
// an older reader can replay a journal written by a newer probe.
package codec
