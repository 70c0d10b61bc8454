// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/thornografi/audioinspector/artifact"
	"github.com/thornografi/audioinspector/lib/clock"
	"github.com/thornografi/audioinspector/lib/schema"
)

// Phase is the session machine's position in its cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseStarting   Phase = "starting"
	PhaseActive     Phase = "active"
	PhaseFinalizing Phase = "finalizing"
)

// Default grace windows. Both are config-tunable; these apply when the
// config leaves them unset.
const (
	DefaultFinalizeGrace = 2 * time.Second
	DefaultResumeWindow  = 2 * time.Second
)

// SignatureSource computes the current pipeline signature for a
// context. It must be pure: no intervening evidence, identical result.
type SignatureSource interface {
	Compute(context schema.ContextID) schema.Signature
}

// Emitter receives the tracker's outbound records. Calls are
// synchronous and may arrive from a timer goroutine; implementations
// must not call back into the Tracker.
type Emitter interface {
	SignatureChange(schema.SignatureChange)
	RecordingState(schema.RecordingState)
}

// TrackerConfig carries the Tracker dependencies. Nil Clock falls back
// to clock.Real(), nil Logger to slog.Default(), nil Artifacts to a
// default artifact tracker, nil Emitter to a discard emitter, and
// non-positive windows to the package defaults.
type TrackerConfig struct {
	Surface       schema.SurfaceID
	Signatures    SignatureSource
	Artifacts     *artifact.Tracker
	Emitter       Emitter
	Clock         clock.Clock
	Logger        *slog.Logger
	FinalizeGrace time.Duration
	ResumeWindow  time.Duration
}

// Tracker is the session state machine for one surface.
type Tracker struct {
	mu            sync.Mutex
	surface       schema.SurfaceID
	signatures    SignatureSource
	artifacts     *artifact.Tracker
	emitter       Emitter
	clk           clock.Clock
	logger        *slog.Logger
	finalizeGrace time.Duration
	resumeWindow  time.Duration

	phase   Phase
	ordinal int
	context schema.ContextID
	started time.Time

	// Reset classification state. classified guards the once-per-
	// session contract; classifiedOrdinal names the session the
	// verdict belongs to, which may be the upcoming one when evidence
	// arrives before the starting transition.
	classified        bool
	classifiedOrdinal int
	reset             schema.ResetKind
	previous          *schema.Signature

	finalizeTimer *clock.Timer
	resumeTimer   *clock.Timer
}

// NewTracker returns a tracker in the idle phase with ordinal zero.
func NewTracker(config TrackerConfig) *Tracker {
	signatures := config.Signatures
	if signatures == nil {
		signatures = defaultSignatureSource{}
	}
	artifacts := config.Artifacts
	if artifacts == nil {
		artifacts = artifact.NewTracker(artifact.TrackerConfig{Logger: config.Logger})
	}
	emitter := config.Emitter
	if emitter == nil {
		emitter = discardEmitter{}
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	finalizeGrace := config.FinalizeGrace
	if finalizeGrace <= 0 {
		finalizeGrace = DefaultFinalizeGrace
	}
	resumeWindow := config.ResumeWindow
	if resumeWindow <= 0 {
		resumeWindow = DefaultResumeWindow
	}
	return &Tracker{
		surface:       config.Surface,
		signatures:    signatures,
		artifacts:     artifacts,
		emitter:       emitter,
		clk:           clk,
		logger:        logger,
		finalizeGrace: finalizeGrace,
		resumeWindow:  resumeWindow,
		phase:         PhaseIdle,
	}
}

// NoteCaptureAcquire records capture-source acquisition: start
// evidence and a reset-classification trigger.
func (t *Tracker) NoteCaptureAcquire(context schema.ContextID, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.noteStartEvidenceLocked(context, at, "captureAcquire")
}

// NoteRecorderStart records an explicit recorder start: start
// evidence.
func (t *Tracker) NoteRecorderStart(context schema.ContextID, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.noteStartEvidenceLocked(context, at, "recorderStart")
}

// NoteRecorderStop records an explicit stop. The session finalizes
// synchronously; there is no resume from an explicit stop.
func (t *Tracker) NoteRecorderStop(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == PhaseIdle {
		t.logger.Debug("recorder stop with no session")
		return
	}
	t.finalizeLocked(at, true)
}

// NoteStructuralChange records construction evidence that may have
// changed the pipeline's technology. It classifies the reset only
// when the recomputed signature actually differs from the previous
// session's final signature: construction that leaves the signature
// alone is not evidence of a change, and must not consume the
// once-per-session classification.
func (t *Tracker) NoteStructuralChange(context schema.ContextID, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.classified && t.classifiedOrdinal == t.targetOrdinalLocked() {
		t.logger.Debug("reset already classified, structural evidence ignored",
			"session", t.classifiedOrdinal)
		return
	}
	if t.previous == nil {
		// Nothing to have changed from.
		return
	}
	t.noteContextLocked(context)
	if t.signatures.Compute(t.context).Equal(*t.previous) {
		return
	}
	t.classifyLocked(context, at, "structuralChange")
}

// NoteDestinationLink records the first link into a destination, a
// reset-classification trigger: by then the pipeline is wired and the
// signature is as settled as structure can make it.
func (t *Tracker) NoteDestinationLink(context schema.ContextID, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.classifyLocked(context, at, "destinationLink")
}

// NoteArtifact feeds one emitted artifact through the artifact tracker
// and applies its verdict to the lifecycle: start evidence when idle,
// grace-window liveness while active, resume or immediate export
// finalize while finalizing.
func (t *Tracker) NoteArtifact(context schema.ContextID, info schema.ArtifactInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := artifact.SessionIdle
	switch t.phase {
	case PhaseStarting, PhaseActive:
		state = artifact.SessionActive
	case PhaseFinalizing:
		state = artifact.SessionFinalizing
	}

	switch t.artifacts.Observe(info, state) {
	case artifact.DispositionIgnored, artifact.DispositionDuplicate, artifact.DispositionLateExport:
		return

	case artifact.DispositionStart:
		t.startLocked(context, info.Time, "artifact", false)
		t.armFinalizeLocked()

	case artifact.DispositionResume:
		// Recording is still going. Cancel the pending finalize and
		// return to active; no finalize report was ever emitted.
		t.stopTimersLocked()
		t.phase = PhaseActive
		t.logger.Debug("session resumed by artifact", "session", t.ordinal)
		t.armFinalizeLocked()

	case artifact.DispositionExport:
		t.finalizeLocked(info.Time, false)

	default:
		t.armFinalizeLocked()
	}
}

// Phase returns the current phase.
func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Ordinal returns the most recent session ordinal; zero before any
// session started.
func (t *Tracker) Ordinal() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ordinal
}

// Active reports whether a session is running (starting, active, or
// winding down in the finalizing phase).
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase != PhaseIdle
}

// TargetOrdinal names the session that new evidence arriving now
// belongs to: the running session, or the upcoming one when idle.
func (t *Tracker) TargetOrdinal() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.targetOrdinalLocked()
}

// Context returns the pipeline-context the current or most recent
// session is bound to.
func (t *Tracker) Context() schema.ContextID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.context
}

// Current returns a diagnostic snapshot of the running session.
// Ended is zero while the session runs.
func (t *Tracker) Current() schema.SessionInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	measurement := t.artifacts.Measurement()
	return schema.SessionInfo{
		Ordinal:           t.ordinal,
		Reset:             t.reset,
		Signature:         t.signatures.Compute(t.context),
		Started:           t.started,
		EstimatedStart:    measurement.EstimatedStart,
		EstimatedDuration: measurement.EstimatedDuration,
		EstimatedBitrate:  measurement.Bitrate,
		ArtifactCount:     measurement.ArtifactCount,
		ArtifactBytes:     measurement.TotalBytes,
	}
}

// noteStartEvidenceLocked handles capture-acquire and recorder-start
// evidence uniformly. Such evidence while finalizing contradicts any
// resume of the winding-down session: it is closed on the spot and the
// new session starts cleanly.
func (t *Tracker) noteStartEvidenceLocked(context schema.ContextID, at time.Time, evidence string) {
	if t.phase == PhaseFinalizing {
		t.finalizeLocked(at, false)
	}
	if t.phase == PhaseIdle {
		t.startLocked(context, at, evidence, true)
		return
	}
	// Mid-session duplicate evidence: at most a classification
	// trigger, and the guard makes that a no-op too when spent.
	t.classifyLocked(context, at, evidence)
}

// startLocked performs the idle→starting transition: bump the ordinal,
// classify if no earlier trigger already did, report the active state,
// and move straight to active. freshArtifacts clears the artifact
// accumulators; a session started by an artifact must keep them, since
// that artifact is already counted.
func (t *Tracker) startLocked(context schema.ContextID, at time.Time, evidence string, freshArtifacts bool) {
	if t.phase != PhaseIdle {
		return
	}
	t.noteContextLocked(context)
	t.ordinal++
	t.phase = PhaseStarting
	t.started = at
	if freshArtifacts {
		t.artifacts.Begin()
	}
	t.classifyLocked(context, at, evidence)
	t.logger.Info("session starting",
		"session", t.ordinal, "evidence", evidence,
		"context", t.context, "reset", t.reset)
	t.emitter.RecordingState(schema.RecordingState{
		Surface:        t.surface,
		Context:        t.context,
		Active:         true,
		SessionOrdinal: t.ordinal,
		Reset:          t.reset,
		Time:           at,
	})
	t.phase = PhaseActive
}

// finalizeLocked performs the →idle transition: fix duration and
// bitrate, report the inactive state exactly once, and store the final
// signature for the next session's classification.
func (t *Tracker) finalizeLocked(at time.Time, explicit bool) {
	if t.phase == PhaseIdle {
		return
	}
	t.stopTimersLocked()

	measurement := t.artifacts.Finalize()
	final := t.signatures.Compute(t.context)
	info := &schema.SessionInfo{
		Ordinal:           t.ordinal,
		Reset:             t.reset,
		Signature:         final,
		Started:           t.started,
		Ended:             at,
		EstimatedStart:    measurement.EstimatedStart,
		EstimatedDuration: measurement.EstimatedDuration,
		EstimatedBitrate:  measurement.Bitrate,
		ArtifactCount:     measurement.ArtifactCount,
		ArtifactBytes:     measurement.TotalBytes,
		ExplicitStop:      explicit,
	}
	if measurement.ArtifactCount == 0 && at.After(t.started) {
		// No artifacts means no cadence estimate; the session's own
		// bounds are the only duration evidence.
		info.EstimatedDuration = at.Sub(t.started)
	}

	t.phase = PhaseIdle
	t.classified = false
	stored := final
	t.previous = &stored

	t.logger.Info("session finalized",
		"session", info.Ordinal, "explicit", explicit,
		"duration", info.EstimatedDuration, "bitrate", info.EstimatedBitrate,
		"artifacts", info.ArtifactCount, "bytes", info.ArtifactBytes)
	t.emitter.RecordingState(schema.RecordingState{
		Surface:        t.surface,
		Context:        t.context,
		Active:         false,
		SessionOrdinal: info.Ordinal,
		Reset:          info.Reset,
		Session:        info,
		Time:           at,
	})
}

// classifyLocked performs reset classification at most once per
// session. Evidence arriving while idle classifies the upcoming
// session; the later starting transition finds the verdict spent and
// keeps it.
func (t *Tracker) classifyLocked(context schema.ContextID, at time.Time, trigger string) {
	target := t.targetOrdinalLocked()
	if t.classified && t.classifiedOrdinal == target {
		t.logger.Debug("reset already classified",
			"session", target, "trigger", trigger)
		return
	}
	t.noteContextLocked(context)

	signature := t.signatures.Compute(t.context)
	kind := schema.ResetSoft
	if t.previous != nil && !signature.Equal(*t.previous) {
		kind = schema.ResetHard
	}
	t.classified = true
	t.classifiedOrdinal = target
	t.reset = kind

	var previous *schema.Signature
	if t.previous != nil {
		copied := *t.previous
		previous = &copied
	}
	t.logger.Info("reset classified",
		"kind", kind, "session", target, "trigger", trigger,
		"signature", signature.String())
	t.emitter.SignatureChange(schema.SignatureChange{
		Surface:        t.surface,
		Context:        t.context,
		Signature:      signature,
		Previous:       previous,
		Reset:          kind,
		SessionOrdinal: target,
		Time:           at,
	})
}

// targetOrdinalLocked names the session a classification fired now
// would belong to: the running one, or the upcoming one when idle.
func (t *Tracker) targetOrdinalLocked() int {
	if t.phase == PhaseIdle {
		return t.ordinal + 1
	}
	return t.ordinal
}

// noteContextLocked binds the tracker to a pipeline-context. The
// binding is fixed for the duration of a session: mid-session evidence
// from another context describes a future pipeline, not this one.
func (t *Tracker) noteContextLocked(context schema.ContextID) {
	if context.IsZero() {
		return
	}
	if t.context.IsZero() || t.phase == PhaseIdle {
		t.context = context
	}
}

func (t *Tracker) armFinalizeLocked() {
	if t.finalizeTimer != nil {
		t.finalizeTimer.Stop()
	}
	t.finalizeTimer = t.clk.AfterFunc(t.finalizeGrace, t.onFinalizeGrace)
}

// onFinalizeGrace fires when the finalize grace window elapses with no
// artifact: the session moves to finalizing and the resume window
// starts.
func (t *Tracker) onFinalizeGrace() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != PhaseActive {
		return
	}
	t.phase = PhaseFinalizing
	t.logger.Debug("artifact silence, session finalizing", "session", t.ordinal)
	if t.resumeTimer != nil {
		t.resumeTimer.Stop()
	}
	t.resumeTimer = t.clk.AfterFunc(t.resumeWindow, t.onResumeExpired)
}

// onResumeExpired fires when the resume window elapses with no
// artifact: the finalize is real.
func (t *Tracker) onResumeExpired() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != PhaseFinalizing {
		return
	}
	t.finalizeLocked(t.clk.Now(), false)
}

func (t *Tracker) stopTimersLocked() {
	if t.finalizeTimer != nil {
		t.finalizeTimer.Stop()
		t.finalizeTimer = nil
	}
	if t.resumeTimer != nil {
		t.resumeTimer.Stop()
		t.resumeTimer = nil
	}
}

// defaultSignatureSource stands in when no signature engine is wired;
// every context reads as the untouched default pipeline.
type defaultSignatureSource struct{}

func (defaultSignatureSource) Compute(schema.ContextID) schema.Signature {
	return schema.Signature{
		Processing: schema.ProcessingNone,
		Encoding:   schema.EncodingBrowserNative,
		Output:     schema.OutputSpeakers,
	}
}

type discardEmitter struct{}

func (discardEmitter) SignatureChange(schema.SignatureChange) {}
func (discardEmitter) RecordingState(schema.RecordingState)   {}
