// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal persists operation reports as a framed binary
// stream, so a captured surface session can be replayed through the
// engine long after the surface is gone.
//
// A journal is an 8-byte signature followed by frames. Each frame is
// a 9-byte header (compression tag, compressed size, uncompressed
// size, sizes big-endian) and the payload: one report in
// deterministic CBOR. Compression is chosen per journal but applied
// per frame; a frame that does not shrink is stored uncompressed
// under its own tag, so mixed journals decode without configuration.
//
// Reports are journaled before interpretation. Replaying a journal
// through a fresh engine reproduces every emitted record, because the
// engine consumes nothing but the report stream.
package journal
