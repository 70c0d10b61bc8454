// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// NodeID is the stable opaque identifier assigned to one observed
// object (a processing unit, stream source or sink, encoding worker,
// or recorder). IDs are minted by the identity resolver and remain
// valid for as long as the object stays reachable on the host surface.
// Consumers treat the value as opaque; it happens to be ULID text, so
// IDs sort by creation time.
type NodeID string

// IsZero reports whether the ID is unset.
func (id NodeID) IsZero() bool { return id == "" }

// String returns the raw identifier text.
func (id NodeID) String() string { return string(id) }

// ContextID identifies one pipeline-context: the grouping identity for
// the nodes, links, and session evidence belonging to one logical
// processing-graph instance. Concurrent pipelines on the same surface
// carry different context IDs and never cross-contaminate.
type ContextID string

// IsZero reports whether the context ID is unset.
func (id ContextID) IsZero() bool { return id == "" }

// String returns the raw identifier text.
func (id ContextID) String() string { return string(id) }

// SurfaceID identifies one observed host execution context. The engine
// assumes exactly one active surface at a time; the ID exists so
// outbound records remain attributable after crossing the boundary.
type SurfaceID string

// IsZero reports whether the surface ID is unset.
func (id SurfaceID) IsZero() bool { return id == "" }

// NodeRole classifies an observed node by what it does in the
// processing graph. Roles drive signature computation, the encoder
// location heuristics, and main-chain queries.
type NodeRole string

const (
	// RoleContext is a pipeline-context object itself, observed so
	// that ownership of later nodes can be attributed.
	RoleContext NodeRole = "context"

	// RoleCaptureSource is a node feeding captured input (typically a
	// microphone stream) into the graph. Its construction is the
	// canonical intent-to-record evidence.
	RoleCaptureSource NodeRole = "captureSource"

	// RoleWorkletProcessor is a processing unit running on the modern
	// worklet path.
	RoleWorkletProcessor NodeRole = "workletProcessor"

	// RoleLowLevelProcessor is a processing unit on the legacy
	// low-level callback path.
	RoleLowLevelProcessor NodeRole = "lowLevelProcessor"

	// RoleGain is a plain pass-through stage (level adjustment). It
	// participates in paths but is never an encoding candidate.
	RoleGain NodeRole = "gain"

	// RoleAnalysisTap is a monitoring-only node (visualization,
	// metering). Taps must never appear in the main chain.
	RoleAnalysisTap NodeRole = "analysisTap"

	// RoleSpeakerDestination is the surface's audible output sink.
	RoleSpeakerDestination NodeRole = "speakerDestination"

	// RoleCaptureStreamDestination is a sink exposing audio as an
	// outgoing stream rather than to the speakers. A link terminating
	// here is the strongest signal that processed audio is being
	// collected.
	RoleCaptureStreamDestination NodeRole = "captureStreamDestination"

	// RoleEncodingWorker is a background worker constructed by the
	// page. Whether it actually hosts an encoder is decided later by
	// resource-name classification.
	RoleEncodingWorker NodeRole = "encodingWorker"

	// RoleRecorder is a host-native recorder instance.
	RoleRecorder NodeRole = "recorder"
)

// IsProcessor reports whether the role is a processing unit eligible
// as an encoding-location candidate.
func (r NodeRole) IsProcessor() bool {
	return r == RoleWorkletProcessor || r == RoleLowLevelProcessor
}

// IsDestination reports whether the role is a terminal sink.
func (r NodeRole) IsDestination() bool {
	return r == RoleSpeakerDestination || r == RoleCaptureStreamDestination
}

// KnownRole reports whether r is one of the defined roles.
func KnownRole(r NodeRole) bool {
	switch r {
	case RoleContext, RoleCaptureSource, RoleWorkletProcessor,
		RoleLowLevelProcessor, RoleGain, RoleAnalysisTap,
		RoleSpeakerDestination, RoleCaptureStreamDestination,
		RoleEncodingWorker, RoleRecorder:
		return true
	}
	return false
}
