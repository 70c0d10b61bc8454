// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// ProcessingPath names which processing-unit technology a pipeline
// uses. When both appear in one context the worklet path wins: it is
// the deliberate modern choice, and pages that construct both use the
// legacy unit as a fallback shim.
type ProcessingPath string

const (
	// ProcessingNone means no processing unit has been observed.
	ProcessingNone ProcessingPath = "none"

	// ProcessingLowLevel means the legacy callback-based unit.
	ProcessingLowLevel ProcessingPath = "lowLevelProcessor"

	// ProcessingWorklet means the modern worklet-based unit.
	ProcessingWorklet ProcessingPath = "workletProcessor"
)

// EncodingType names where encoding work happens. Worker-based
// evidence outranks worklet-based evidence, which outranks the
// browser-native default: a page that ships its own encoder to a
// worker did so on purpose.
type EncodingType string

const (
	// EncodingBrowserNative means the host's built-in recorder does
	// the encoding. This is the default in the absence of contrary
	// evidence.
	EncodingBrowserNative EncodingType = "browserNative"

	// EncodingWorkerWasm means a background worker hosts a
	// compiled-code encoder.
	EncodingWorkerWasm EncodingType = "workerBasedWasm"

	// EncodingWorkletWasm means the worklet processor itself encodes.
	EncodingWorkletWasm EncodingType = "workletBasedWasm"
)

// OutputPath names where the processed audio ends up. Any link into a
// capture-stream destination flips the path to capturedStream and it
// stays there for the life of the pipeline.
type OutputPath string

const (
	// OutputSpeakers means audio reaches only the audible output.
	OutputSpeakers OutputPath = "speakers"

	// OutputCapturedStream means audio is routed into an outgoing
	// capture stream.
	OutputCapturedStream OutputPath = "capturedStream"
)

// ResetKind classifies how a new session relates to its predecessor.
type ResetKind string

const (
	// ResetHard means the page tore the pipeline down and rebuilt it:
	// a fresh context, fresh nodes, fresh capture.
	ResetHard ResetKind = "hard"

	// ResetSoft means the page reused the standing pipeline and only
	// restarted the recording machinery.
	ResetSoft ResetKind = "soft"
)

// Signature is the compact fingerprint of one pipeline's observed
// shape: the 3-tuple of processing, encoding, and output technology.
// It is recomputed from accumulated evidence after every relevant
// report. Any differing field between two sessions' signatures means
// the page changed technology, which classifies as a hard reset;
// which pipeline-context a signature was computed for is attribution,
// carried by the records, never part of the fingerprint.
type Signature struct {
	// Processing is the processing-unit technology in use.
	Processing ProcessingPath `json:"processing"`

	// Encoding is where encoding work happens.
	Encoding EncodingType `json:"encoding"`

	// Output is where the processed audio is routed.
	Output OutputPath `json:"output"`
}

// Equal reports whether two signatures describe the same pipeline
// technology.
func (s Signature) Equal(other Signature) bool { return s == other }

// IsZero reports whether the signature carries no evidence at all.
func (s Signature) IsZero() bool { return s == Signature{} }

// String renders the tuple as "processing/encoding/output".
func (s Signature) String() string {
	return string(s.Processing) + "/" + string(s.Encoding) + "/" + string(s.Output)
}
