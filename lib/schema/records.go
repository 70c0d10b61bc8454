// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// SignatureChange is emitted whenever a pipeline-context's computed
// signature differs from the previously emitted one.
type SignatureChange struct {
	Surface   SurfaceID `json:"surface,omitempty"`
	Context   ContextID `json:"context,omitempty"`
	Signature Signature `json:"signature"`

	// Previous is the last emitted signature, nil on the first
	// emission for a context.
	Previous *Signature `json:"previous,omitempty"`

	// Reset carries the session reset classification when this
	// change coincides with one; empty for mid-session evidence
	// accumulation.
	Reset ResetKind `json:"reset,omitempty"`

	// SessionOrdinal is the session the change was observed during,
	// or 0 before any session has started.
	SessionOrdinal int `json:"sessionOrdinal,omitempty"`

	// Time is when the triggering report was processed.
	Time time.Time `json:"time"`
}

// RecordingState is emitted once when a session becomes active and
// once when it finalizes.
type RecordingState struct {
	Surface SurfaceID `json:"surface,omitempty"`
	Context ContextID `json:"context,omitempty"`

	// Active is true on session start, false on finalize.
	Active bool `json:"active"`

	// SessionOrdinal is the 1-based ordinal of the session.
	SessionOrdinal int `json:"sessionOrdinal"`

	// Reset classifies how the session relates to its predecessor.
	// Empty for the first session and until classification fires.
	Reset ResetKind `json:"reset,omitempty"`

	// Session carries the measured outcome. Present only on the
	// finalize emission.
	Session *SessionInfo `json:"session,omitempty"`

	// Time is when the transition was processed.
	Time time.Time `json:"time"`
}

// SessionInfo summarizes one finalized session.
type SessionInfo struct {
	// Ordinal is the 1-based session number on the surface.
	Ordinal int `json:"ordinal"`

	// Reset classifies the session against its predecessor. Empty
	// for the first session.
	Reset ResetKind `json:"reset,omitempty"`

	// Signature is the pipeline signature at finalize time.
	Signature Signature `json:"signature"`

	// Encoder is the encoder conclusion current at finalize time,
	// nil when none was reached.
	Encoder *EncoderRecord `json:"encoder,omitempty"`

	// Started and Ended bound the session's active phase as the
	// engine observed it.
	Started time.Time `json:"started"`
	Ended   time.Time `json:"ended"`

	// EstimatedStart is the artifact-derived estimate of when
	// encoded output actually began, one cadence before the first
	// artifact. Zero when no artifacts were observed.
	EstimatedStart time.Time `json:"estimatedStart,omitzero"`

	// EstimatedDuration is the artifact-derived recording length.
	EstimatedDuration time.Duration `json:"estimatedDuration,omitempty"`

	// EstimatedBitrate is the artifact-derived output rate in bits
	// per second, 0 when it could not be estimated.
	EstimatedBitrate int `json:"estimatedBitrate,omitempty"`

	// ArtifactCount and ArtifactBytes total the session's observed
	// encoded output.
	ArtifactCount int   `json:"artifactCount"`
	ArtifactBytes int64 `json:"artifactBytes"`

	// ExplicitStop reports whether the session ended on a recorder
	// stop rather than on artifact silence.
	ExplicitStop bool `json:"explicitStop"`
}

// DetectedEncoder is emitted when the encoder conclusion for the
// current session changes.
type DetectedEncoder struct {
	Surface SurfaceID     `json:"surface,omitempty"`
	Context ContextID     `json:"context,omitempty"`
	Record  EncoderRecord `json:"record"`

	// Time is when the conclusion was reached.
	Time time.Time `json:"time"`
}

// ArtifactInfo describes one encoded output artifact. The engine
// inspects size, timing, and declared media type only; payloads are
// digested for deduplication and never decoded.
type ArtifactInfo struct {
	// MediaType is the artifact's declared container/codec, or ""
	// when the producer did not declare one.
	MediaType string `json:"mediaType,omitempty"`

	// Size is the artifact's byte length.
	Size int64 `json:"size"`

	// Cumulative reports whether Size is a running total rather
	// than an increment. Export-style producers re-emit the whole
	// output on each artifact.
	Cumulative bool `json:"cumulative,omitempty"`

	// Payload optionally carries the artifact bytes for digesting.
	// It never crosses the surface boundary in outbound records.
	Payload []byte `json:"-"`

	// Time is when the artifact was produced.
	Time time.Time `json:"time"`
}

// NodeInfo describes one node in a graph snapshot.
type NodeInfo struct {
	ID      NodeID    `json:"id"`
	Role    NodeRole  `json:"role"`
	Context ContextID `json:"context,omitempty"`

	// Label carries the node's most useful observed name: the
	// processor name for worklets, the resource name for workers.
	Label string `json:"label,omitempty"`

	// Created is when construction was observed.
	Created time.Time `json:"created"`

	// Live is false once the node's context closed or the node was
	// otherwise retired.
	Live bool `json:"live"`
}

// EdgeInfo describes one live link in a graph snapshot.
type EdgeInfo struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`

	// OutputIndex and InputIndex carry the link's slots when the
	// page supplied them, -1 otherwise.
	OutputIndex int `json:"outputIndex"`
	InputIndex  int `json:"inputIndex"`

	// Linked is when the link was observed.
	Linked time.Time `json:"linked"`
}

// GraphSnapshot is a point-in-time copy of the observed topology.
type GraphSnapshot struct {
	Surface SurfaceID `json:"surface,omitempty"`

	// Context is the pipeline-context the snapshot was filtered to,
	// zero for a whole-surface snapshot.
	Context ContextID  `json:"context,omitempty"`
	Nodes   []NodeInfo `json:"nodes"`
	Edges   []EdgeInfo `json:"edges"`

	// Taken is when the snapshot was assembled.
	Taken time.Time `json:"taken"`
}
