// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package signature derives the pipeline technology fingerprint from
// accumulated construction and wiring history.
//
// The [Engine] keeps per-context registers (processor constructions,
// worklet module loads, capture-destination links) and surface-wide
// registers (worker constructions and recorder activity, neither of
// which is owned by a pipeline-context on real surfaces), and
// [Engine.Compute] folds them into a [schema.Signature]. Compute is a pure function of
// the registers: with no intervening evidence, repeated calls yield
// identical tuples.
//
// Technology priorities when evidence conflicts:
//
//   - processing: a worklet processor outranks a low-level processor;
//     pages that construct both use the legacy unit as a fallback
//     shim, not as the active path.
//   - encoding: an encoder-classified worker outranks an
//     encoder-classified worklet module, which outranks the browser-
//     native default. Shipping an encoder to a worker is deliberate.
//   - output: one link into a capture-stream destination flips the
//     output to capturedStream, permanently; evidence accumulates and
//     survives teardowns.
//
// The [Classifier] decides whether a worker or worklet module is
// encoder-related by keyword-matching its resource name, and names
// the library it recognized. Deployments extend the keyword table
// through configuration.
package signature
