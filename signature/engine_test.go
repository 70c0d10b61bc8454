// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package signature_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/thornografi/audioinspector/lib/schema"
	"github.com/thornografi/audioinspector/signature"
)

func newTestEngine() *signature.Engine {
	return signature.NewEngine(signature.EngineConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestComputeDefaults(t *testing.T) {
	engine := newTestEngine()

	got := engine.Compute(schema.ContextID("ctx-unseen"))
	want := schema.Signature{
		Processing: schema.ProcessingNone,
		Encoding:   schema.EncodingBrowserNative,
		Output:     schema.OutputSpeakers,
	}
	if got != want {
		t.Fatalf("Compute on unseen context = %v, want %v", got, want)
	}
}

func TestComputeIsPure(t *testing.T) {
	engine := newTestEngine()
	ctx := schema.ContextID("ctx-1")

	engine.NoteWorkletProcessor(ctx, "capture-processor")
	engine.NoteWorker("opus-media-recorder.js")
	engine.NoteCaptureLink(ctx)

	first := engine.Compute(ctx)
	for i := 0; i < 5; i++ {
		if got := engine.Compute(ctx); got != first {
			t.Fatalf("Compute #%d = %v, want %v (no new evidence arrived)", i+2, got, first)
		}
	}
}

func TestProcessingPriority(t *testing.T) {
	engine := newTestEngine()
	ctx := schema.ContextID("ctx-1")

	engine.NoteLowLevelProcessor(ctx)
	if got := engine.Compute(ctx).Processing; got != schema.ProcessingLowLevel {
		t.Fatalf("Processing = %v, want %v", got, schema.ProcessingLowLevel)
	}

	// A worklet processor outranks the low-level one even though both
	// remain on the books.
	engine.NoteWorkletProcessor(ctx, "meter-processor")
	if got := engine.Compute(ctx).Processing; got != schema.ProcessingWorklet {
		t.Fatalf("Processing = %v, want %v after worklet arrives", got, schema.ProcessingWorklet)
	}
}

func TestEncodingPriority(t *testing.T) {
	engine := newTestEngine()
	ctx := schema.ContextID("ctx-1")

	if _, ok := engine.NoteWorkletModule(ctx, "encoder-worklet.js"); !ok {
		t.Fatal("expected module to classify as encoder")
	}
	if got := engine.Compute(ctx).Encoding; got != schema.EncodingWorkletWasm {
		t.Fatalf("Encoding = %v, want %v", got, schema.EncodingWorkletWasm)
	}

	if _, ok := engine.NoteWorker("lamejs.min.js"); !ok {
		t.Fatal("expected worker to classify as encoder")
	}
	if got := engine.Compute(ctx).Encoding; got != schema.EncodingWorkerWasm {
		t.Fatalf("Encoding = %v, want %v after encoder worker arrives", got, schema.EncodingWorkerWasm)
	}
}

func TestNonEncoderWorkerIgnored(t *testing.T) {
	engine := newTestEngine()
	ctx := schema.ContextID("ctx-1")

	if _, ok := engine.NoteWorker("analytics-worker.js"); ok {
		t.Fatal("analytics worker should not classify as encoder")
	}
	if got := engine.Compute(ctx).Encoding; got != schema.EncodingBrowserNative {
		t.Fatalf("Encoding = %v, want %v", got, schema.EncodingBrowserNative)
	}
}

func TestWorkletProcessorNameClassified(t *testing.T) {
	engine := newTestEngine()
	ctx := schema.ContextID("ctx-1")

	engine.NoteWorkletProcessor(ctx, "gain-processor")
	if got := engine.Compute(ctx).Encoding; got != schema.EncodingBrowserNative {
		t.Fatalf("Encoding = %v, want %v for a non-encoder processor name", got, schema.EncodingBrowserNative)
	}

	engine.NoteWorkletProcessor(ctx, "mp3-encoder-processor")
	if got := engine.Compute(ctx).Encoding; got != schema.EncodingWorkletWasm {
		t.Fatalf("Encoding = %v, want %v for an encoder processor name", got, schema.EncodingWorkletWasm)
	}
}

func TestCaptureLinkSticky(t *testing.T) {
	engine := newTestEngine()
	ctx := schema.ContextID("ctx-1")

	if got := engine.Compute(ctx).Output; got != schema.OutputSpeakers {
		t.Fatalf("Output = %v, want %v before any capture link", got, schema.OutputSpeakers)
	}

	engine.NoteCaptureLink(ctx)
	if got := engine.Compute(ctx).Output; got != schema.OutputCapturedStream {
		t.Fatalf("Output = %v, want %v", got, schema.OutputCapturedStream)
	}
}

func TestContextIsolation(t *testing.T) {
	engine := newTestEngine()
	first := schema.ContextID("ctx-1")
	second := schema.ContextID("ctx-2")

	engine.NoteWorkletProcessor(first, "capture-processor")
	engine.NoteCaptureLink(first)

	got := engine.Compute(second)
	if got.Processing != schema.ProcessingNone {
		t.Fatalf("Processing leaked across contexts: %v", got.Processing)
	}
	if got.Output != schema.OutputSpeakers {
		t.Fatalf("Output leaked across contexts: %v", got.Output)
	}
}

func TestWorkersApplySurfaceWide(t *testing.T) {
	engine := newTestEngine()
	first := schema.ContextID("ctx-1")
	second := schema.ContextID("ctx-2")

	// Workers are not owned by a context; an encoder worker colors
	// every context's signature.
	engine.NoteWorker("opus-recorder.js")
	for _, ctx := range []schema.ContextID{first, second} {
		if got := engine.Compute(ctx).Encoding; got != schema.EncodingWorkerWasm {
			t.Fatalf("Encoding for %s = %v, want %v", ctx, got, schema.EncodingWorkerWasm)
		}
	}
}

func TestRecorderCounters(t *testing.T) {
	engine := newTestEngine()

	engine.NoteRecorder()
	engine.NoteRecorder()
	engine.NoteRecorderStart()

	if got := engine.Recorders(); got != 2 {
		t.Fatalf("Recorders = %d, want 2", got)
	}
	if got := engine.RecorderStarts(); got != 1 {
		t.Fatalf("RecorderStarts = %d, want 1", got)
	}
}

func TestRecorderCountDoesNotChangeSignature(t *testing.T) {
	engine := newTestEngine()
	ctx := schema.ContextID("ctx-1")

	engine.NoteWorkletProcessor(ctx, "capture-processor")
	before := engine.Compute(ctx)

	engine.NoteRecorder()
	engine.NoteRecorderStart()

	if got := engine.Compute(ctx); got != before {
		t.Fatalf("signature changed from %v to %v on recorder activity", before, got)
	}
}

func TestNoteWorkerReturnsHint(t *testing.T) {
	engine := newTestEngine()

	hint, ok := engine.NoteWorker("vendor/lamejs.min.js")
	if !ok {
		t.Fatal("expected lamejs to classify")
	}
	want := signature.Hint{Library: "lamejs", Codec: "mp3", Container: "mp3"}
	if hint != want {
		t.Fatalf("hint = %+v, want %+v", hint, want)
	}
}
