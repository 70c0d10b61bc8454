// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// Operation names carried by reports. Each name identifies one
// intercepted construction, method call, or property access on the
// host surface. The engine routes on these strings, so they form the
// wire vocabulary between the interception layer and everything
// downstream of it.
const (
	// OpContextNew reports construction of a pipeline-context.
	OpContextNew = "context.new"

	// OpContextClose reports a pipeline-context being closed. All
	// nodes owned by the context become unreachable.
	OpContextClose = "context.close"

	// OpSourceNew reports construction of a capture source node from
	// an input stream.
	OpSourceNew = "source.new"

	// OpWorkletNew reports construction of a worklet processing unit.
	OpWorkletNew = "worklet.new"

	// OpProcessorNew reports construction of a legacy low-level
	// processing unit.
	OpProcessorNew = "processor.new"

	// OpGainNew reports construction of a gain stage.
	OpGainNew = "gain.new"

	// OpTapNew reports construction of an analysis tap.
	OpTapNew = "tap.new"

	// OpCaptureDestNew reports construction of a capture-stream
	// destination node.
	OpCaptureDestNew = "capturedest.new"

	// OpDestinationGet reports first access to the context's speaker
	// destination. The destination is owned by the context, so it is
	// observed on access rather than on construction.
	OpDestinationGet = "destination.get"

	// OpNodeConnect reports a directed link between two nodes.
	OpNodeConnect = "node.connect"

	// OpNodeDisconnect reports removal of a link, or of all outgoing
	// links when no target argument was supplied.
	OpNodeDisconnect = "node.disconnect"

	// OpWorkletModule reports a processing-module script being loaded
	// into a context's worklet scope.
	OpWorkletModule = "worklet.module"

	// OpWorkerNew reports construction of a background worker. The
	// resource name argument feeds encoder classification.
	OpWorkerNew = "worker.new"

	// OpWorkerMessage reports a message posted to a background
	// worker. Configuration-shaped payloads feed encoder detection.
	OpWorkerMessage = "worker.message"

	// OpRecorderNew reports construction of a host-native recorder.
	OpRecorderNew = "recorder.new"

	// OpRecorderStart reports a recorder being started.
	OpRecorderStart = "recorder.start"

	// OpRecorderStop reports a recorder being stopped. Stop is
	// explicit end-of-session evidence and finalizes immediately.
	OpRecorderStop = "recorder.stop"

	// OpCaptureAcquire reports the host page acquiring a capture
	// stream (microphone permission granted and stream live).
	OpCaptureAcquire = "capture.acquire"

	// OpArtifactEmit reports an encoded output artifact leaving the
	// pipeline (a recorder chunk, an exported buffer, a worker
	// result). Artifact reports carry an ArtifactInfo.
	OpArtifactEmit = "artifact.emit"
)

// Detail keys used in Report.Details. Keys are optional per
// operation; absent keys mean the interception layer could not observe
// the value.
const (
	// DetailModuleURL carries the script URL for worklet.module.
	DetailModuleURL = "moduleURL"

	// DetailWorkerURL carries the resource name for worker.new.
	DetailWorkerURL = "workerURL"

	// DetailProcessorName carries the registered processor name for
	// worklet.new.
	DetailProcessorName = "processorName"

	// DetailMediaType carries the requested container/codec string
	// for recorder.new.
	DetailMediaType = "mediaType"

	// DetailMessageSummary carries the summarized payload for
	// worker.message.
	DetailMessageSummary = "messageSummary"

	// DetailBufferSize carries the configured block size for
	// processor.new.
	DetailBufferSize = "bufferSize"

	// DetailTimeslice carries the requested chunk interval in
	// milliseconds for recorder.start.
	DetailTimeslice = "timeslice"

	// DetailOutputIndex carries the source slot for node.connect and
	// node.disconnect when one was supplied.
	DetailOutputIndex = "outputIndex"

	// DetailInputIndex carries the target slot for node.connect when
	// one was supplied.
	DetailInputIndex = "inputIndex"
)

// Report is one observed interaction with the host surface. The
// interception layer produces reports; the engine consumes them in
// arrival order. A report names the operation, the object it happened
// on, and whatever arguments survived summarization.
type Report struct {
	// Op is the operation name (one of the Op constants).
	Op string `json:"op"`

	// Surface attributes the report to one host execution context.
	Surface SurfaceID `json:"surface,omitempty"`

	// Subject is the resolved identity of the object the operation
	// happened on: the constructed node for constructions, the
	// receiver for method calls. Zero when the operation has no
	// object identity (capture.acquire).
	Subject NodeID `json:"subject,omitempty"`

	// Context is the resolved identity of the owning
	// pipeline-context, when one is known.
	Context ContextID `json:"context,omitempty"`

	// Target is the resolved identity of the second object involved,
	// when there is one: the link target for node.connect and
	// node.disconnect, the recorder's input for recorder.new.
	Target NodeID `json:"target,omitempty"`

	// Role classifies the subject for construction reports.
	Role NodeRole `json:"role,omitempty"`

	// Details carries summarized argument values keyed by the Detail
	// constants.
	Details map[string]ArgValue `json:"details,omitempty"`

	// Artifact is present only on artifact.emit reports.
	Artifact *ArtifactInfo `json:"artifact,omitempty"`

	// Time is when the interception layer observed the operation.
	Time time.Time `json:"time"`
}

// Detail returns the string form of a detail value, or "" when the
// key is absent.
func (r *Report) Detail(key string) string {
	if r.Details == nil {
		return ""
	}
	return r.Details[key].Text
}

// DetailNumber returns the numeric form of a detail value. ok is
// false when the key is absent or the value was not numeric.
func (r *Report) DetailNumber(key string) (float64, bool) {
	if r.Details == nil {
		return 0, false
	}
	value, present := r.Details[key]
	if !present || !value.IsNumber {
		return 0, false
	}
	return value.Number, value.IsNumber
}

// ArgValue is one summarized argument. Interception never captures
// media payloads or raw buffers; arguments are reduced to a short text
// form and, where meaningful, a numeric value.
type ArgValue struct {
	// Text is the summarized textual form.
	Text string `json:"text,omitempty"`

	// Number is the numeric value when the argument was a number.
	Number float64 `json:"number,omitempty"`

	// IsNumber reports whether Number is meaningful.
	IsNumber bool `json:"isNumber,omitempty"`
}

// TextArg builds a textual argument value.
func TextArg(text string) ArgValue { return ArgValue{Text: text} }

// NumberArg builds a numeric argument value.
func NumberArg(number float64) ArgValue {
	return ArgValue{Number: number, IsNumber: true}
}
