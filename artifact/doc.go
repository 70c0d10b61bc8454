// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifact infers recording-session timing and throughput from
// the binary artifacts a page emits, when no structural or message
// evidence exists.
//
// The tracker consumes artifacts whose declared media type names a
// known audio encoding and classifies the page's emission pattern as
// chunked (each artifact is a new slice; sizes sum) or cumulative (each
// artifact replaces the running total). The discriminator is size
// growth: a new artifact larger than growthFactor times the previous
// one cannot be another slice of the same stream.
//
// The same growth signal read while the session machine is no longer
// active means something different: the page is saving its finished
// file. That artifact is the final export, and the session should
// finalize immediately instead of waiting out the grace window.
//
// Duration is estimated from arrival cadence. An artifact carries audio
// captured before its emission, so the estimated session start is the
// first artifact's time minus the mean inter-artifact gap. Bitrate is
// total bytes over estimated duration, recomputed at most once per
// configured interval while the session runs and once more, exactly, at
// finalize.
//
// Artifacts carrying payload bytes are deduplicated by keyed BLAKE3
// digest, since the same blob routinely surfaces through more than one
// hook. Payloads are hashed, never decoded.
package artifact
