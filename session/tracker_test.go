// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package session_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/thornografi/audioinspector/artifact"
	"github.com/thornografi/audioinspector/lib/clock"
	"github.com/thornografi/audioinspector/lib/schema"
	"github.com/thornografi/audioinspector/session"
)

var base = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// stubSignatures serves a settable signature for every context.
type stubSignatures struct {
	mu        sync.Mutex
	signature schema.Signature
}

func (s *stubSignatures) Compute(schema.ContextID) schema.Signature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signature
}

func (s *stubSignatures) set(signature schema.Signature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signature = signature
}

// recordingEmitter captures everything the tracker emits.
type recordingEmitter struct {
	mu      sync.Mutex
	changes []schema.SignatureChange
	states  []schema.RecordingState
}

func (e *recordingEmitter) SignatureChange(change schema.SignatureChange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changes = append(e.changes, change)
}

func (e *recordingEmitter) RecordingState(state schema.RecordingState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = append(e.states, state)
}

func (e *recordingEmitter) finalizes() []schema.RecordingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []schema.RecordingState
	for _, state := range e.states {
		if !state.Active {
			out = append(out, state)
		}
	}
	return out
}

func (e *recordingEmitter) starts() []schema.RecordingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []schema.RecordingState
	for _, state := range e.states {
		if state.Active {
			out = append(out, state)
		}
	}
	return out
}

type fixture struct {
	tracker    *session.Tracker
	clk        *clock.FakeClock
	signatures *stubSignatures
	emitter    *recordingEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.Fake(base)
	signatures := &stubSignatures{signature: schema.Signature{
		Processing: schema.ProcessingNone,
		Encoding:   schema.EncodingBrowserNative,
		Output:     schema.OutputSpeakers,
	}}
	emitter := &recordingEmitter{}
	tracker := session.NewTracker(session.TrackerConfig{
		Surface:    schema.SurfaceID("surface-1"),
		Signatures: signatures,
		Artifacts:  artifact.NewTracker(artifact.TrackerConfig{Logger: logger}),
		Emitter:    emitter,
		Clock:      clk,
		Logger:     logger,
	})
	return &fixture{tracker: tracker, clk: clk, signatures: signatures, emitter: emitter}
}

func audioChunk(size int64, at time.Time) schema.ArtifactInfo {
	return schema.ArtifactInfo{
		MediaType: "audio/webm;codecs=opus",
		Size:      size,
		Time:      at,
	}
}

func TestStartOnCaptureAcquire(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	f.tracker.NoteCaptureAcquire(ctx, base)

	if got := f.tracker.Phase(); got != session.PhaseActive {
		t.Fatalf("Phase = %q, want %q", got, session.PhaseActive)
	}
	if got := f.tracker.Ordinal(); got != 1 {
		t.Fatalf("Ordinal = %d, want 1", got)
	}

	starts := f.emitter.starts()
	if len(starts) != 1 {
		t.Fatalf("got %d active records, want 1", len(starts))
	}
	if starts[0].SessionOrdinal != 1 || starts[0].Reset != schema.ResetSoft {
		t.Fatalf("active record = ordinal %d reset %q, want ordinal 1 reset %q",
			starts[0].SessionOrdinal, starts[0].Reset, schema.ResetSoft)
	}
	if len(f.emitter.changes) != 1 {
		t.Fatalf("got %d signature changes, want 1", len(f.emitter.changes))
	}
	if f.emitter.changes[0].Previous != nil {
		t.Fatal("first session carried a previous signature")
	}
}

func TestOrdinalsStrictlyIncrease(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		f.tracker.NoteCaptureAcquire(ctx, at)
		f.tracker.NoteRecorderStop(at.Add(10 * time.Second))
	}

	starts := f.emitter.starts()
	if len(starts) != 3 {
		t.Fatalf("got %d active records, want 3", len(starts))
	}
	for i, state := range starts {
		if state.SessionOrdinal != i+1 {
			t.Fatalf("session %d ordinal = %d, want %d", i, state.SessionOrdinal, i+1)
		}
	}
}

func TestResetClassifiedOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	f.tracker.NoteCaptureAcquire(ctx, base)
	// Later triggers within the same session must be no-ops.
	f.tracker.NoteDestinationLink(ctx, base.Add(time.Second))
	f.tracker.NoteCaptureAcquire(ctx, base.Add(2*time.Second))
	f.tracker.NoteStructuralChange(ctx, base.Add(3*time.Second))

	if got := len(f.emitter.changes); got != 1 {
		t.Fatalf("got %d signature changes, want exactly 1 per session", got)
	}
}

func TestHardResetOnSignatureDifference(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	first := schema.Signature{
		Processing: schema.ProcessingWorklet,
		Encoding:   schema.EncodingWorkerWasm,
		Output:     schema.OutputCapturedStream,
	}
	f.signatures.set(first)
	f.tracker.NoteCaptureAcquire(ctx, base)
	f.tracker.NoteRecorderStop(base.Add(5 * time.Second))

	second := first
	second.Encoding = schema.EncodingBrowserNative
	f.signatures.set(second)
	f.tracker.NoteCaptureAcquire(ctx, base.Add(time.Minute))

	changes := f.emitter.changes
	if len(changes) != 2 {
		t.Fatalf("got %d signature changes, want 2", len(changes))
	}
	if changes[1].Reset != schema.ResetHard {
		t.Fatalf("second classification = %q, want %q", changes[1].Reset, schema.ResetHard)
	}
	if changes[1].Previous == nil || !changes[1].Previous.Equal(first) {
		t.Fatalf("Previous = %v, want previous session's final signature", changes[1].Previous)
	}
	if changes[1].SessionOrdinal != 2 {
		t.Fatalf("SessionOrdinal = %d, want 2", changes[1].SessionOrdinal)
	}
}

func TestSoftResetOnIdenticalSignature(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	signature := schema.Signature{
		Processing: schema.ProcessingWorklet,
		Encoding:   schema.EncodingWorkerWasm,
		Output:     schema.OutputCapturedStream,
	}
	f.signatures.set(signature)

	f.tracker.NoteCaptureAcquire(ctx, base)
	f.tracker.NoteRecorderStop(base.Add(5 * time.Second))
	f.tracker.NoteCaptureAcquire(ctx, base.Add(time.Minute))

	changes := f.emitter.changes
	if len(changes) != 2 {
		t.Fatalf("got %d signature changes, want 2", len(changes))
	}
	if changes[1].Reset != schema.ResetSoft {
		t.Fatalf("same technology, new take classified %q, want %q",
			changes[1].Reset, schema.ResetSoft)
	}
}

func TestClassificationBeforeStartBindsToUpcomingSession(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	f.tracker.NoteCaptureAcquire(ctx, base)
	f.tracker.NoteRecorderStop(base.Add(5 * time.Second))

	// The page wires its next pipeline before acquiring capture: the
	// destination link classifies the upcoming session.
	f.tracker.NoteDestinationLink(ctx, base.Add(time.Minute))
	if got := len(f.emitter.changes); got != 2 {
		t.Fatalf("got %d signature changes after idle trigger, want 2", got)
	}
	if got := f.emitter.changes[1].SessionOrdinal; got != 2 {
		t.Fatalf("idle classification bound to session %d, want upcoming session 2", got)
	}

	f.tracker.NoteCaptureAcquire(ctx, base.Add(time.Minute+time.Second))
	if got := len(f.emitter.changes); got != 2 {
		t.Fatalf("starting transition re-classified: %d changes, want 2", got)
	}
	starts := f.emitter.starts()
	if got := starts[len(starts)-1].SessionOrdinal; got != 2 {
		t.Fatalf("second session ordinal = %d, want 2", got)
	}
}

func TestStructuralChangeClassifiesOnlyRealChanges(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	signature := schema.Signature{
		Processing: schema.ProcessingLowLevel,
		Encoding:   schema.EncodingBrowserNative,
		Output:     schema.OutputSpeakers,
	}
	f.signatures.set(signature)
	f.tracker.NoteCaptureAcquire(ctx, base)
	f.tracker.NoteRecorderStop(base.Add(5 * time.Second))

	// Construction that leaves the signature identical is not
	// evidence of a technology change.
	f.tracker.NoteStructuralChange(ctx, base.Add(time.Minute))
	if got := len(f.emitter.changes); got != 1 {
		t.Fatalf("no-change structural evidence classified: %d changes, want 1", got)
	}

	changed := signature
	changed.Processing = schema.ProcessingWorklet
	f.signatures.set(changed)
	f.tracker.NoteStructuralChange(ctx, base.Add(2*time.Minute))

	changes := f.emitter.changes
	if len(changes) != 2 {
		t.Fatalf("got %d signature changes, want 2", len(changes))
	}
	if changes[1].Reset != schema.ResetHard {
		t.Fatalf("classification = %q, want %q", changes[1].Reset, schema.ResetHard)
	}
}

func TestStructuralChangeWithNoPreviousSession(t *testing.T) {
	f := newFixture(t)

	f.tracker.NoteStructuralChange(schema.ContextID("ctx-1"), base)

	if got := len(f.emitter.changes); got != 0 {
		t.Fatalf("got %d signature changes with nothing to change from, want 0", got)
	}
}

func TestExplicitStopFinalizesSynchronously(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	f.tracker.NoteCaptureAcquire(ctx, base)
	f.tracker.NoteArtifact(ctx, audioChunk(4000, base.Add(time.Second)))
	f.tracker.NoteRecorderStop(base.Add(2 * time.Second))

	if got := f.tracker.Phase(); got != session.PhaseIdle {
		t.Fatalf("Phase = %q after stop, want %q", got, session.PhaseIdle)
	}
	finalizes := f.emitter.finalizes()
	if len(finalizes) != 1 {
		t.Fatalf("got %d finalize records, want 1", len(finalizes))
	}
	info := finalizes[0].Session
	if info == nil {
		t.Fatal("finalize record carried no session info")
	}
	if !info.ExplicitStop {
		t.Fatal("ExplicitStop = false on an explicit stop")
	}
	if info.ArtifactCount != 1 || info.ArtifactBytes != 4000 {
		t.Fatalf("session info = %d artifacts / %d bytes, want 1 / 4000",
			info.ArtifactCount, info.ArtifactBytes)
	}
	if got := f.clk.PendingCount(); got != 0 {
		t.Fatalf("%d timers still pending after explicit stop", got)
	}
}

func TestSilenceFinalizeWorkedExample(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	// Three 4000-byte artifacts one second apart, then silence.
	f.tracker.NoteArtifact(ctx, audioChunk(4000, base))
	f.clk.Advance(time.Second)
	f.tracker.NoteArtifact(ctx, audioChunk(4000, base.Add(time.Second)))
	f.clk.Advance(time.Second)
	f.tracker.NoteArtifact(ctx, audioChunk(4000, base.Add(2*time.Second)))

	// The first artifact was start evidence.
	starts := f.emitter.starts()
	if len(starts) != 1 {
		t.Fatalf("got %d active records, want 1", len(starts))
	}

	// Finalize grace, then the resume window, expire unanswered.
	f.clk.Advance(session.DefaultFinalizeGrace)
	if got := f.tracker.Phase(); got != session.PhaseFinalizing {
		t.Fatalf("Phase = %q after grace, want %q", got, session.PhaseFinalizing)
	}
	f.clk.Advance(session.DefaultResumeWindow)

	finalizes := f.emitter.finalizes()
	if len(finalizes) != 1 {
		t.Fatalf("got %d finalize records, want exactly 1", len(finalizes))
	}
	info := finalizes[0].Session
	if info == nil {
		t.Fatal("finalize record carried no session info")
	}
	if info.EstimatedDuration != 3*time.Second {
		t.Fatalf("EstimatedDuration = %v, want 3s", info.EstimatedDuration)
	}
	if info.EstimatedBitrate != 32000 {
		t.Fatalf("EstimatedBitrate = %d, want 32000", info.EstimatedBitrate)
	}
	if info.ArtifactCount != 3 || info.ArtifactBytes != 12000 {
		t.Fatalf("session info = %d artifacts / %d bytes, want 3 / 12000",
			info.ArtifactCount, info.ArtifactBytes)
	}
	if info.ExplicitStop {
		t.Fatal("ExplicitStop = true on a silence finalize")
	}
}

func TestResumeInsideWindowProducesSingleFinalize(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	f.tracker.NoteArtifact(ctx, audioChunk(4000, base))

	// Grace expires at +2s; the next artifact lands at +3s, inside
	// the resume window.
	f.clk.Advance(3 * time.Second)
	if got := f.tracker.Phase(); got != session.PhaseFinalizing {
		t.Fatalf("Phase = %q, want %q before the resuming artifact", got, session.PhaseFinalizing)
	}
	if got := len(f.emitter.finalizes()); got != 0 {
		t.Fatalf("got %d finalize records during the resume window, want 0", got)
	}

	f.tracker.NoteArtifact(ctx, audioChunk(4000, base.Add(3*time.Second)))
	if got := f.tracker.Phase(); got != session.PhaseActive {
		t.Fatalf("Phase = %q after resuming artifact, want %q", got, session.PhaseActive)
	}

	// Now let it die for real: grace expires, then the resume window.
	f.clk.Advance(session.DefaultFinalizeGrace)
	f.clk.Advance(session.DefaultResumeWindow)

	finalizes := f.emitter.finalizes()
	if len(finalizes) != 1 {
		t.Fatalf("got %d finalize records, want exactly 1", len(finalizes))
	}
	starts := f.emitter.starts()
	if len(starts) != 1 {
		t.Fatalf("got %d active records, want the pause not to split the session", len(starts))
	}
}

func TestExportFinalizesImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	f.tracker.NoteArtifact(ctx, audioChunk(4000, base))
	f.clk.Advance(time.Second)
	f.tracker.NoteArtifact(ctx, audioChunk(4000, base.Add(time.Second)))

	// Silence long enough to enter finalizing.
	f.clk.Advance(session.DefaultFinalizeGrace)
	if got := f.tracker.Phase(); got != session.PhaseFinalizing {
		t.Fatalf("Phase = %q, want %q", got, session.PhaseFinalizing)
	}

	// The saved file, far beyond growth ratio, bypasses the resume
	// window entirely.
	exportAt := base.Add(time.Second + session.DefaultFinalizeGrace + 500*time.Millisecond)
	f.tracker.NoteArtifact(ctx, audioChunk(12000, exportAt))

	if got := f.tracker.Phase(); got != session.PhaseIdle {
		t.Fatalf("Phase = %q after export, want %q", got, session.PhaseIdle)
	}
	finalizes := f.emitter.finalizes()
	if len(finalizes) != 1 {
		t.Fatalf("got %d finalize records, want 1", len(finalizes))
	}
	if got := finalizes[0].Session.ArtifactBytes; got != 12000 {
		t.Fatalf("ArtifactBytes = %d, want export total 12000", got)
	}
	if got := f.clk.PendingCount(); got != 0 {
		t.Fatalf("%d timers still pending after export finalize", got)
	}
}

func TestCaptureAcquireDuringFinalizingClosesPreviousSession(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	f.tracker.NoteArtifact(ctx, audioChunk(4000, base))
	f.clk.Advance(session.DefaultFinalizeGrace)
	if got := f.tracker.Phase(); got != session.PhaseFinalizing {
		t.Fatalf("Phase = %q, want %q", got, session.PhaseFinalizing)
	}

	// Fresh acquisition contradicts a resume: session 1 closes,
	// session 2 starts.
	f.tracker.NoteCaptureAcquire(ctx, base.Add(3*time.Second))

	finalizes := f.emitter.finalizes()
	if len(finalizes) != 1 || finalizes[0].SessionOrdinal != 1 {
		t.Fatalf("finalizes = %+v, want session 1 closed once", finalizes)
	}
	starts := f.emitter.starts()
	if len(starts) != 2 || starts[1].SessionOrdinal != 2 {
		t.Fatalf("starts = %+v, want session 2 started", starts)
	}
	if got := f.tracker.Phase(); got != session.PhaseActive {
		t.Fatalf("Phase = %q, want %q", got, session.PhaseActive)
	}
}

func TestRecorderStopWhileIdleIsNoop(t *testing.T) {
	f := newFixture(t)

	f.tracker.NoteRecorderStop(base)

	if got := len(f.emitter.states); got != 0 {
		t.Fatalf("got %d records from a stop with no session, want 0", got)
	}
}

func TestContextBindingFixedForSessionDuration(t *testing.T) {
	f := newFixture(t)
	first := schema.ContextID("ctx-1")
	second := schema.ContextID("ctx-2")

	f.tracker.NoteCaptureAcquire(first, base)
	f.tracker.NoteStructuralChange(second, base.Add(time.Second))
	if got := f.tracker.Context(); got != first {
		t.Fatalf("Context = %q mid-session, want binding fixed to %q", got, first)
	}

	f.tracker.NoteRecorderStop(base.Add(2 * time.Second))
	f.tracker.NoteCaptureAcquire(second, base.Add(time.Minute))
	if got := f.tracker.Context(); got != second {
		t.Fatalf("Context = %q, want rebinding to %q after close", got, second)
	}
}

func TestSessionlessDurationFallsBackToWallClock(t *testing.T) {
	f := newFixture(t)
	ctx := schema.ContextID("ctx-1")

	f.tracker.NoteCaptureAcquire(ctx, base)
	f.tracker.NoteRecorderStop(base.Add(7 * time.Second))

	finalizes := f.emitter.finalizes()
	if len(finalizes) != 1 {
		t.Fatalf("got %d finalize records, want 1", len(finalizes))
	}
	info := finalizes[0].Session
	if info.EstimatedDuration != 7*time.Second {
		t.Fatalf("EstimatedDuration = %v with no artifacts, want started→stopped span 7s",
			info.EstimatedDuration)
	}
	if info.EstimatedBitrate != 0 {
		t.Fatalf("EstimatedBitrate = %d with no artifacts, want 0", info.EstimatedBitrate)
	}
}
