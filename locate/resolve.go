// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import "github.com/thornografi/audioinspector/lib/schema"

// Method tags the strategy that produced a location.
type Method string

const (
	// MethodCaptureLink: exactly one processor links directly into a
	// capture-stream destination.
	MethodCaptureLink Method = "captureLink"

	// MethodCaptureLinkRecent: several processors link into a
	// capture-stream destination; the most recently created wins.
	MethodCaptureLinkRecent Method = "captureLinkRecent"

	// MethodElimination: exactly one processor survives after
	// removing those with a live path to the speakers.
	MethodElimination Method = "elimination"

	// MethodSoleProcessor: the context has exactly one processor.
	MethodSoleProcessor Method = "soleProcessor"

	// MethodMostRecent: several survivors and no stronger signal; the
	// most recently created survivor wins.
	MethodMostRecent Method = "mostRecent"
)

// Location is a resolved encoding location.
type Location struct {
	Node       schema.NodeID
	Confidence schema.Confidence
	Method     Method
}

// View is the read-only topology projection resolution runs over.
// graph.Builder satisfies it.
type View interface {
	// CreationOrder returns a context's node identities in observed
	// construction order.
	CreationOrder(context schema.ContextID) []schema.NodeID

	// NodesByRole returns a context's nodes with the given role, in
	// creation order.
	NodesByRole(context schema.ContextID, role schema.NodeRole) []schema.NodeID

	// Role returns a node's role.
	Role(id schema.NodeID) (schema.NodeRole, bool)

	// DirectSources returns the nodes with a live link into to.
	DirectSources(to schema.NodeID) []schema.NodeID

	// HasLivePath reports whether a live path leads from one node to
	// another.
	HasLivePath(from, to schema.NodeID) bool
}

// Resolve names the node most likely producing encoded output in the
// given context. ok is false when no strategy matches; the caller
// must treat the location as unknown.
func Resolve(view View, context schema.ContextID) (Location, bool) {
	processors := processorsIn(view, context)
	if len(processors) == 0 {
		return Location{}, false
	}

	captureLinked := directlyLinkedInto(view, context, processors, schema.RoleCaptureStreamDestination)
	if len(captureLinked) == 1 {
		return Location{
			Node:       captureLinked[0],
			Confidence: schema.ConfidenceHigh,
			Method:     MethodCaptureLink,
		}, true
	}
	if len(captureLinked) > 1 {
		return Location{
			Node:       captureLinked[len(captureLinked)-1],
			Confidence: schema.ConfidenceHigh,
			Method:     MethodCaptureLinkRecent,
		}, true
	}

	// A processor feeding the speakers is monitoring the signal, not
	// encoding it.
	speakers := view.NodesByRole(context, schema.RoleSpeakerDestination)
	var survivors []schema.NodeID
	for _, processor := range processors {
		if !reachesAny(view, processor, speakers) {
			survivors = append(survivors, processor)
		}
	}
	if len(survivors) == 1 {
		return Location{
			Node:       survivors[0],
			Confidence: schema.ConfidenceMedium,
			Method:     MethodElimination,
		}, true
	}

	if len(processors) == 1 {
		return Location{
			Node:       processors[0],
			Confidence: schema.ConfidenceMedium,
			Method:     MethodSoleProcessor,
		}, true
	}

	if len(survivors) > 1 {
		return Location{
			Node:       survivors[len(survivors)-1],
			Confidence: schema.ConfidenceLow,
			Method:     MethodMostRecent,
		}, true
	}

	// Every processor feeds the speakers and none feeds a capture
	// stream: nothing here encodes.
	return Location{}, false
}

// processorsIn returns the context's processors in creation order, so
// "most recently created" is always the last element.
func processorsIn(view View, context schema.ContextID) []schema.NodeID {
	var processors []schema.NodeID
	for _, id := range view.CreationOrder(context) {
		if role, ok := view.Role(id); ok && role.IsProcessor() {
			processors = append(processors, id)
		}
	}
	return processors
}

// directlyLinkedInto returns the subset of candidates with a live
// direct link into any node of the given role, preserving candidate
// order.
func directlyLinkedInto(view View, context schema.ContextID, candidates []schema.NodeID, role schema.NodeRole) []schema.NodeID {
	linked := make(map[schema.NodeID]struct{})
	for _, destination := range view.NodesByRole(context, role) {
		for _, source := range view.DirectSources(destination) {
			linked[source] = struct{}{}
		}
	}
	var matched []schema.NodeID
	for _, candidate := range candidates {
		if _, ok := linked[candidate]; ok {
			matched = append(matched, candidate)
		}
	}
	return matched
}

func reachesAny(view View, from schema.NodeID, destinations []schema.NodeID) bool {
	for _, destination := range destinations {
		if view.HasLivePath(from, destination) {
			return true
		}
	}
	return false
}
