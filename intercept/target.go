// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package intercept

import (
	"fmt"

	"github.com/thornografi/audioinspector/lib/schema"
)

// Kind names the shape of an intercepted capability.
type Kind string

const (
	// KindConstruct is a constructor: construct(args) returns a new
	// object that receives an identity.
	KindConstruct Kind = "construct"

	// KindMethod is an instance method: method(receiver, args). The
	// receiver's previously minted identity becomes the report
	// subject.
	KindMethod Kind = "method"

	// KindAccess is a property read returning an owned object that
	// receives an identity on first access (a context's speaker
	// destination).
	KindAccess Kind = "access"
)

// Target describes one interceptable operation: how to wrap it, what
// role its product carries, and how its arguments map into report
// details. Argument positions are 1-based so that a zero value means
// "none", which keeps absent manifest fields harmless.
type Target struct {
	// Op is the operation name reported (one of the schema.Op
	// constants for the production set; manifests may add more).
	Op string `json:"op"`

	// Kind selects the wrapper shape.
	Kind Kind `json:"kind"`

	// Role is attributed to the produced object (constructs and
	// accesses). Empty for plain method calls.
	Role schema.NodeRole `json:"role,omitempty"`

	// ContextArg is the 1-based position of the argument holding the
	// owning pipeline-context object, 0 when no argument does.
	ContextArg int `json:"contextArg,omitempty"`

	// TargetArg is the 1-based position of the argument resolved
	// into the report's Target identity (the link target for
	// connects, the input stream for recorder construction), 0 when
	// none.
	TargetArg int `json:"targetArg,omitempty"`

	// ContextFromReceiver attributes the report to the receiver's
	// identity as pipeline-context (methods and accesses on the
	// context object itself).
	ContextFromReceiver bool `json:"contextFromReceiver,omitempty"`

	// ArgKeys maps 0-based scalar argument positions to detail keys.
	// An empty key skips the position. Map-valued arguments flatten
	// under their own keys regardless of ArgKeys.
	ArgKeys []string `json:"argKeys,omitempty"`

	// Disabled leaves the capability unwrapped: the operation runs
	// unobserved.
	Disabled bool `json:"disabled,omitempty"`
}

// argKey returns the detail key for 0-based argument position i, or
// "".
func (t Target) argKey(i int) string {
	if i < 0 || i >= len(t.ArgKeys) {
		return ""
	}
	return t.ArgKeys[i]
}

// Validate checks the target definition for internal consistency.
func (t Target) Validate() error {
	if t.Op == "" {
		return fmt.Errorf("target missing op")
	}
	switch t.Kind {
	case KindConstruct, KindMethod, KindAccess:
	default:
		return fmt.Errorf("target %s: unknown kind %q", t.Op, t.Kind)
	}
	if t.Kind == KindConstruct || t.Kind == KindAccess {
		if t.Role == "" {
			return fmt.Errorf("target %s: %s targets require a role", t.Op, t.Kind)
		}
	}
	if t.Role != "" && !schema.KnownRole(t.Role) {
		return fmt.Errorf("target %s: unknown role %q", t.Op, t.Role)
	}
	if t.ContextArg < 0 {
		return fmt.Errorf("target %s: contextArg must be >= 0, got %d", t.Op, t.ContextArg)
	}
	if t.TargetArg < 0 {
		return fmt.Errorf("target %s: targetArg must be >= 0, got %d", t.Op, t.TargetArg)
	}
	if t.ContextFromReceiver && t.Kind == KindConstruct {
		return fmt.Errorf("target %s: constructs have no receiver", t.Op)
	}
	return nil
}

// DefaultTargets returns the production interception set: every
// constructor, method, and accessor the engine knows how to interpret.
// The slice is freshly allocated; callers may edit it.
func DefaultTargets() []Target {
	return []Target{
		{Op: schema.OpContextNew, Kind: KindConstruct, Role: schema.RoleContext},
		{Op: schema.OpContextClose, Kind: KindMethod, ContextFromReceiver: true},
		{Op: schema.OpSourceNew, Kind: KindConstruct, Role: schema.RoleCaptureSource, ContextArg: 1},
		{Op: schema.OpWorkletNew, Kind: KindConstruct, Role: schema.RoleWorkletProcessor, ContextArg: 1,
			ArgKeys: []string{"", schema.DetailProcessorName}},
		{Op: schema.OpProcessorNew, Kind: KindConstruct, Role: schema.RoleLowLevelProcessor, ContextArg: 1,
			ArgKeys: []string{"", schema.DetailBufferSize}},
		{Op: schema.OpGainNew, Kind: KindConstruct, Role: schema.RoleGain, ContextArg: 1},
		{Op: schema.OpTapNew, Kind: KindConstruct, Role: schema.RoleAnalysisTap, ContextArg: 1},
		{Op: schema.OpCaptureDestNew, Kind: KindConstruct, Role: schema.RoleCaptureStreamDestination, ContextArg: 1},
		{Op: schema.OpDestinationGet, Kind: KindAccess, Role: schema.RoleSpeakerDestination, ContextFromReceiver: true},
		{Op: schema.OpNodeConnect, Kind: KindMethod, TargetArg: 1,
			ArgKeys: []string{"", schema.DetailOutputIndex, schema.DetailInputIndex}},
		{Op: schema.OpNodeDisconnect, Kind: KindMethod, TargetArg: 1,
			ArgKeys: []string{"", schema.DetailOutputIndex}},
		{Op: schema.OpWorkletModule, Kind: KindMethod, ContextFromReceiver: true,
			ArgKeys: []string{schema.DetailModuleURL}},
		{Op: schema.OpWorkerNew, Kind: KindConstruct, Role: schema.RoleEncodingWorker,
			ArgKeys: []string{schema.DetailWorkerURL}},
		{Op: schema.OpWorkerMessage, Kind: KindMethod,
			ArgKeys: []string{schema.DetailMessageSummary}},
		{Op: schema.OpRecorderNew, Kind: KindConstruct, Role: schema.RoleRecorder, TargetArg: 1,
			ArgKeys: []string{"", schema.DetailMediaType}},
		{Op: schema.OpRecorderStart, Kind: KindMethod,
			ArgKeys: []string{schema.DetailTimeslice}},
		{Op: schema.OpRecorderStop, Kind: KindMethod},
		{Op: schema.OpCaptureAcquire, Kind: KindMethod},
		{Op: schema.OpArtifactEmit, Kind: KindMethod},
	}
}
