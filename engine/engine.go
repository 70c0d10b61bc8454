// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thornografi/audioinspector/artifact"
	"github.com/thornografi/audioinspector/graph"
	"github.com/thornografi/audioinspector/intercept"
	"github.com/thornografi/audioinspector/lib/clock"
	"github.com/thornografi/audioinspector/lib/config"
	"github.com/thornografi/audioinspector/lib/schema"
	"github.com/thornografi/audioinspector/locate"
	"github.com/thornografi/audioinspector/session"
	"github.com/thornografi/audioinspector/signature"
)

// Emitter receives the engine's conclusions. Calls are synchronous
// with report routing; implementations must return promptly and must
// not call back into the engine. Panics are recovered and counted
// rather than propagated into the observation path.
type Emitter interface {
	// SignatureChange delivers a reset classification.
	SignatureChange(change schema.SignatureChange)

	// RecordingState delivers a session boundary. On session end the
	// Session field carries the finalize report.
	RecordingState(state schema.RecordingState)

	// DetectedEncoder delivers a new or upgraded encoder conclusion.
	DetectedEncoder(detected schema.DetectedEncoder)
}

// discardEmitter stands in when no emitter is configured, for callers
// that only query engine state.
type discardEmitter struct{}

func (discardEmitter) SignatureChange(schema.SignatureChange) {}
func (discardEmitter) RecordingState(schema.RecordingState)   {}
func (discardEmitter) DetectedEncoder(schema.DetectedEncoder) {}

// Config assembles an Engine.
type Config struct {
	// Surface attributes every record to one host execution context.
	Surface schema.SurfaceID

	// Settings tunes timing and interpretation. If nil,
	// config.Default() is used.
	Settings *config.Config

	// Emitter receives conclusions. If nil, conclusions are dropped
	// and the engine is query-only.
	Emitter Emitter

	// Clock drives session timing. If nil, the real clock is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Engine is the assembled observation pipeline for one surface. It
// implements intercept.Observer; every report passes through exactly
// once, in observation order, whether it comes from live interception
// or from journal replay.
//
// The engine-level mutex covers only the encoder cache and the worker
// hints. It is never held across calls into sub-components: the
// session tracker calls back into the engine from its timer
// callbacks, and a wider lock would deadlock that path.
type Engine struct {
	surface  schema.SurfaceID
	logger   *slog.Logger
	clk      clock.Clock
	settings *config.Config

	layer      *intercept.Layer
	graph      *graph.Builder
	signatures *signature.Engine
	artifacts  *artifact.Tracker
	sessions   *session.Tracker

	emitter Emitter
	enabled atomic.Bool

	mu          sync.Mutex
	encoder     *schema.EncoderRecord
	workerHints map[schema.NodeID]signature.Hint

	reportsRouted atomic.Uint64
	unknownOps    atomic.Uint64
	staleDropped  atomic.Uint64
	emitted       atomic.Uint64
	emitterPanics atomic.Uint64
}

// New assembles a complete observation engine for one surface. The
// interception layer, identity registry, graph builder, signature
// engine, artifact tracker, and session tracker are constructed and
// wired internally; the engine registers itself as the layer's
// observer. Emission starts enabled.
func New(cfg Config) *Engine {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = discardEmitter{}
	}

	engine := &Engine{
		surface:     cfg.Surface,
		logger:      logger,
		clk:         clk,
		settings:    settings,
		emitter:     emitter,
		workerHints: make(map[schema.NodeID]signature.Hint),
	}
	engine.enabled.Store(true)

	engine.layer = intercept.NewLayer(intercept.LayerConfig{
		Surface: cfg.Surface,
		Clock:   clk,
		Logger:  logger,
	})
	engine.layer.AddObserver(engine)

	engine.graph = graph.NewBuilder(logger)
	engine.signatures = signature.NewEngine(signature.EngineConfig{
		Classifier: signature.NewClassifier(settings.Classifier.ExtraKeywords),
		Logger:     logger,
	})
	engine.artifacts = artifact.NewTracker(artifact.TrackerConfig{
		GrowthFactor:      settings.Artifact.ExportGrowthFactor,
		RecomputeInterval: settings.BitrateRecomputeInterval(),
		DigestHistory:     settings.Artifact.DigestHistory,
		Logger:            logger,
	})
	engine.sessions = session.NewTracker(session.TrackerConfig{
		Surface:       cfg.Surface,
		Signatures:    engine.signatures,
		Artifacts:     engine.artifacts,
		Emitter:       conclusionRelay{engine},
		Clock:         clk,
		Logger:        logger,
		FinalizeGrace: settings.FinalizeGrace(),
		ResumeWindow:  settings.ResumeWindow(),
	})
	return engine
}

// Layer returns the interception layer. The embedding harness wraps
// the surface's capabilities through it.
func (e *Engine) Layer() *intercept.Layer { return e.layer }

// SetEnabled turns outbound emission on or off. The engine keeps
// observing and keeps its model current while disabled; only delivery
// to the emitter is gated.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
	e.logger.Info("emission toggled", "enabled", enabled)
}

// Enabled reports whether outbound emission is on.
func (e *Engine) Enabled() bool { return e.enabled.Load() }

// SetSuspended pauses or resumes interception at the layer. While
// suspended, wrapped capabilities pass straight through and no
// reports are produced.
func (e *Engine) SetSuspended(suspended bool) {
	e.layer.SetSuspended(suspended)
}

// Snapshot captures one pipeline-context's current topology.
func (e *Engine) Snapshot(context schema.ContextID) schema.GraphSnapshot {
	snapshot := e.graph.Snapshot(context, e.clk.Now())
	snapshot.Surface = e.surface
	return snapshot
}

// ResolveEncoderLocation runs the ranked location heuristics over one
// pipeline-context's topology and names the node most likely
// producing encoded output. ok is false when the topology supports no
// conclusion.
func (e *Engine) ResolveEncoderLocation(context schema.ContextID) (locate.Location, bool) {
	return locate.Resolve(e.graph, context)
}

// ObserveReport routes one operation report to the components it
// concerns. Routing is synchronous, so downstream state is current
// before the next report arrives.
func (e *Engine) ObserveReport(report schema.Report) {
	e.reportsRouted.Add(1)

	switch report.Op {
	case schema.OpContextNew:
		// A context node belongs to itself; the report's context
		// field is empty for the constructor.
		info := nodeInfo(report)
		info.Context = schema.ContextID(report.Subject)
		e.graph.AddNode(info)

	case schema.OpContextClose:
		e.graph.CloseContext(report.Context, report.Time)

	case schema.OpSourceNew, schema.OpGainNew, schema.OpTapNew,
		schema.OpCaptureDestNew, schema.OpDestinationGet:
		e.graph.AddNode(nodeInfo(report))

	case schema.OpWorkletNew:
		e.graph.AddNode(nodeInfo(report))
		e.signatures.NoteWorkletProcessor(report.Context, report.Detail(schema.DetailProcessorName))
		e.sessions.NoteStructuralChange(report.Context, report.Time)

	case schema.OpProcessorNew:
		e.graph.AddNode(nodeInfo(report))
		e.signatures.NoteLowLevelProcessor(report.Context)
		e.sessions.NoteStructuralChange(report.Context, report.Time)

	case schema.OpWorkletModule:
		hint, ok := e.signatures.NoteWorkletModule(report.Context, report.Detail(schema.DetailModuleURL))
		if ok {
			e.noteHeuristicEncoder(hint, report, schema.EncodingWorkletWasm)
		}
		e.sessions.NoteStructuralChange(report.Context, report.Time)

	case schema.OpWorkerNew:
		e.graph.AddNode(nodeInfo(report))
		hint, ok := e.signatures.NoteWorker(report.Detail(schema.DetailWorkerURL))
		if ok {
			e.setWorkerHint(report.Subject, hint)
			e.noteHeuristicEncoder(hint, report, schema.EncodingWorkerWasm)
			e.sessions.NoteStructuralChange(report.Context, report.Time)
		}

	case schema.OpWorkerMessage:
		e.sniffWorkerMessage(report)

	case schema.OpNodeConnect:
		e.routeConnect(report)

	case schema.OpNodeDisconnect:
		e.routeDisconnect(report)

	case schema.OpRecorderNew:
		e.routeRecorderNew(report)

	case schema.OpRecorderStart:
		e.signatures.NoteRecorderStart()
		e.sessions.NoteRecorderStart(e.contextOf(report), report.Time)

	case schema.OpRecorderStop:
		e.sessions.NoteRecorderStop(report.Time)

	case schema.OpCaptureAcquire:
		e.sessions.NoteCaptureAcquire(report.Context, report.Time)

	case schema.OpArtifactEmit:
		if report.Artifact != nil {
			e.sessions.NoteArtifact(e.contextOf(report), *report.Artifact)
		}

	default:
		e.unknownOps.Add(1)
		e.logger.Debug("unrouted operation", "op", report.Op)
	}
}

// routeConnect records the edge, then fires the signature and session
// consequences of linking into a destination. The signature note runs
// first so a classification triggered by the link sees the captured-
// stream output path already in place.
func (e *Engine) routeConnect(report schema.Report) {
	context := e.contextOf(report)
	output := slot(report, schema.DetailOutputIndex, 0)
	input := slot(report, schema.DetailInputIndex, 0)
	e.graph.Link(report.Subject, report.Target, output, input, context, report.Time)

	role, ok := e.graph.Role(report.Target)
	if !ok {
		return
	}
	if role == schema.RoleCaptureStreamDestination {
		e.signatures.NoteCaptureLink(context)
	}
	if role.IsDestination() {
		e.sessions.NoteDestinationLink(context, report.Time)
	}
}

// routeDisconnect retires edges. A disconnect without a target clears
// every edge leaving the subject; without a slot detail it clears all
// slots.
func (e *Engine) routeDisconnect(report schema.Report) {
	context := e.contextOf(report)
	output := slot(report, schema.DetailOutputIndex, -1)
	if report.Target.IsZero() {
		e.graph.UnlinkAll(report.Subject, output, context, report.Time)
		return
	}
	e.graph.Unlink(report.Subject, report.Target, output, context, report.Time)
}

func (e *Engine) routeRecorderNew(report schema.Report) {
	e.graph.AddNode(nodeInfo(report))
	e.signatures.NoteRecorder()
	if !report.Target.IsZero() {
		// The recorded stream, when its producer is a known node,
		// links into the recorder so snapshots show what feeds it.
		if source, ok := e.graph.Node(report.Target); ok {
			e.graph.Link(report.Target, report.Subject, 0, 0, source.Context, report.Time)
		}
	}
	e.noteMediaTypeEncoder(report)
}

// contextOf resolves the pipeline-context a report belongs to. Method
// reports carry no context of their own; the subject node's
// registration supplies it when the graph knows the node.
func (e *Engine) contextOf(report schema.Report) schema.ContextID {
	if !report.Context.IsZero() {
		return report.Context
	}
	if info, ok := e.graph.Node(report.Subject); ok {
		return info.Context
	}
	return report.Context
}

// Keys real encoder workers and recorders use in their configuration
// objects. Flattened map arguments surface them verbatim.
var (
	codecKeys      = []string{"codec", "mimeType"}
	sampleRateKeys = []string{"sampleRate", "encoderSampleRate", "originalSampleRate"}
	bitrateKeys    = []string{"bitRate", "bitrate", "encoderBitRate", "bitsPerSecond"}
	channelKeys    = []string{"channels", "channelCount", "numberOfChannels"}
)

// sniffWorkerMessage inspects a worker message for encoder
// configuration. A message naming a codec, sample rate, bitrate, or
// channel count is the strongest evidence there is: the page told its
// own encoder what to do.
func (e *Engine) sniffWorkerMessage(report schema.Report) {
	codecText := firstText(&report, codecKeys)
	sampleRate, hasRate := firstNumber(&report, sampleRateKeys)
	bitrate, hasBitrate := firstNumber(&report, bitrateKeys)
	channels, hasChannels := firstNumber(&report, channelKeys)
	if codecText == "" && !hasRate && !hasBitrate && !hasChannels {
		return
	}

	record := schema.EncoderRecord{
		SessionOrdinal: e.sessions.TargetOrdinal(),
		Encoding:       schema.EncodingWorkerWasm,
		Provenance:     schema.ProvenanceConfigMessage,
		Confidence:     schema.ConfidenceHigh,
	}
	hint := e.workerHint(report.Subject)
	record.Library = hint.Library
	record.Codec = hint.Codec
	record.Container = hint.Container
	if codecText != "" {
		if container, codec, ok := schema.ParseMediaType(codecText); ok {
			record.Container, record.Codec = container, codec
		} else {
			record.Codec = strings.ToLower(strings.TrimSpace(codecText))
		}
	}
	if hasRate {
		record.SampleRate = int(sampleRate)
	}
	if hasBitrate {
		record.Bitrate = int(bitrate)
	}
	if hasChannels {
		record.Channels = int(channels)
	}
	e.storeEncoder(record, e.contextOf(report), report.Time)
}

// noteMediaTypeEncoder derives an encoder record from a recorder's
// requested media type. The recorder may still fall back to another
// format, so the conclusion is medium confidence.
func (e *Engine) noteMediaTypeEncoder(report schema.Report) {
	mediaType := firstText(&report, []string{schema.DetailMediaType, "mimeType"})
	if mediaType == "" {
		return
	}
	container, codec, ok := schema.ParseMediaType(mediaType)
	if !ok {
		return
	}
	record := schema.EncoderRecord{
		SessionOrdinal: e.sessions.TargetOrdinal(),
		Container:      container,
		Codec:          codec,
		Encoding:       schema.EncodingBrowserNative,
		Provenance:     schema.ProvenanceMediaType,
		Confidence:     schema.ConfidenceMedium,
	}
	if bitrate, ok := firstNumber(&report, []string{"audioBitsPerSecond", "bitsPerSecond"}); ok {
		record.Bitrate = int(bitrate)
	}
	e.storeEncoder(record, e.contextOf(report), report.Time)
}

// noteHeuristicEncoder derives an encoder record from a classified
// resource name. Knowing the library raises the confidence a notch;
// a bare codec keyword stays low.
func (e *Engine) noteHeuristicEncoder(hint signature.Hint, report schema.Report, encoding schema.EncodingType) {
	if hint.Library == "" && hint.Codec == "" {
		return
	}
	record := schema.EncoderRecord{
		SessionOrdinal: e.sessions.TargetOrdinal(),
		Container:      hint.Container,
		Codec:          hint.Codec,
		Library:        hint.Library,
		Encoding:       encoding,
		Provenance:     schema.ProvenanceHeuristic,
		Confidence:     schema.ConfidenceLow,
	}
	if hint.Library != "" {
		record.Confidence = schema.ConfidenceMedium
	}
	e.storeEncoder(record, e.contextOf(report), report.Time)
}

// storeEncoder applies the supersession rule to the cache and emits
// the record when it sticks. Evidence for an older session, or weaker
// evidence for the same session, is dropped and counted; an exact
// repeat is dropped silently.
func (e *Engine) storeEncoder(record schema.EncoderRecord, context schema.ContextID, at time.Time) {
	e.mu.Lock()
	if e.encoder != nil {
		if record == *e.encoder {
			e.mu.Unlock()
			return
		}
		if !record.Supersedes(*e.encoder) {
			e.mu.Unlock()
			e.staleDropped.Add(1)
			e.logger.Debug("encoder evidence dropped",
				"session", record.SessionOrdinal, "provenance", record.Provenance)
			return
		}
	}
	stored := record
	e.encoder = &stored
	e.mu.Unlock()

	e.logger.Info("encoder detected",
		"library", record.Library, "codec", record.Codec,
		"container", record.Container, "provenance", record.Provenance,
		"confidence", record.Confidence, "session", record.SessionOrdinal)
	e.emitDetectedEncoder(schema.DetectedEncoder{
		Surface: e.surface,
		Context: context,
		Record:  record,
		Time:    at,
	})
}

func (e *Engine) setWorkerHint(id schema.NodeID, hint signature.Hint) {
	if id.IsZero() {
		return
	}
	e.mu.Lock()
	e.workerHints[id] = hint
	e.mu.Unlock()
}

func (e *Engine) workerHint(id schema.NodeID) signature.Hint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workerHints[id]
}

// conclusionRelay is the session tracker's emitter. It lets the
// engine react to classifications and enrich finalize reports before
// they leave the process.
type conclusionRelay struct {
	engine *Engine
}

func (r conclusionRelay) SignatureChange(change schema.SignatureChange) {
	r.engine.noteClassification(change)
	r.engine.emitSignatureChange(change)
}

func (r conclusionRelay) RecordingState(state schema.RecordingState) {
	if !state.Active && state.Session != nil {
		r.engine.attachEncoder(state.Session)
	}
	r.engine.emitRecordingState(state)
}

// noteClassification clears encoder knowledge cached for older
// sessions once a newer session is classified. Evidence already bound
// to the classified session survives both reset kinds.
func (e *Engine) noteClassification(change schema.SignatureChange) {
	e.mu.Lock()
	stale := e.encoder != nil && e.encoder.SessionOrdinal < change.SessionOrdinal
	if stale {
		e.encoder = nil
	}
	e.mu.Unlock()
	if stale {
		e.logger.Debug("cached encoder cleared",
			"reset", change.Reset, "session", change.SessionOrdinal)
	}
}

// attachEncoder enriches a finalize report with the cached encoder
// record when the record belongs to the finalized session.
func (e *Engine) attachEncoder(info *schema.SessionInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.encoder == nil || e.encoder.SessionOrdinal != info.Ordinal {
		return
	}
	record := *e.encoder
	info.Encoder = &record
}

func (e *Engine) emitSignatureChange(change schema.SignatureChange) {
	if !e.enabled.Load() {
		return
	}
	defer e.recoverEmit("signatureChange")
	e.emitter.SignatureChange(change)
	e.emitted.Add(1)
}

func (e *Engine) emitRecordingState(state schema.RecordingState) {
	if !e.enabled.Load() {
		return
	}
	defer e.recoverEmit("recordingState")
	e.emitter.RecordingState(state)
	e.emitted.Add(1)
}

func (e *Engine) emitDetectedEncoder(detected schema.DetectedEncoder) {
	if !e.enabled.Load() {
		return
	}
	defer e.recoverEmit("detectedEncoder")
	e.emitter.DetectedEncoder(detected)
	e.emitted.Add(1)
}

func (e *Engine) recoverEmit(kind string) {
	if r := recover(); r != nil {
		e.emitterPanics.Add(1)
		e.logger.Error("emitter panicked", "record", kind, "panic", r)
	}
}

// Diagnostics is a point-in-time sample of the engine's counters.
type Diagnostics struct {
	ReportsRouted    uint64        `json:"reportsRouted"`
	UnknownOps       uint64        `json:"unknownOps"`
	StaleEncoders    uint64        `json:"staleEncoders"`
	RecordsEmitted   uint64        `json:"recordsEmitted"`
	EmitterPanics    uint64        `json:"emitterPanics"`
	InterceptReports uint64        `json:"interceptReports"`
	ObserverPanics   uint64        `json:"observerPanics"`
	SkippedHooks     uint64        `json:"skippedHooks"`
	LiveIdentities   int           `json:"liveIdentities"`
	MintedIdentities uint64        `json:"mintedIdentities"`
	SessionOrdinal   int           `json:"sessionOrdinal"`
	SessionPhase     session.Phase `json:"sessionPhase"`
}

// Diagnostics samples the engine's counters.
func (e *Engine) Diagnostics() Diagnostics {
	stats := e.layer.Stats()
	registry := e.layer.Registry()
	return Diagnostics{
		ReportsRouted:    e.reportsRouted.Load(),
		UnknownOps:       e.unknownOps.Load(),
		StaleEncoders:    e.staleDropped.Load(),
		RecordsEmitted:   e.emitted.Load(),
		EmitterPanics:    e.emitterPanics.Load(),
		InterceptReports: stats.Reports,
		ObserverPanics:   stats.ObserverPanics,
		SkippedHooks:     stats.SkippedHooks,
		LiveIdentities:   registry.Live(),
		MintedIdentities: registry.Minted(),
		SessionOrdinal:   e.sessions.Ordinal(),
		SessionPhase:     e.sessions.Phase(),
	}
}

func nodeInfo(report schema.Report) schema.NodeInfo {
	return schema.NodeInfo{
		ID:      report.Subject,
		Role:    report.Role,
		Context: report.Context,
		Label:   nodeLabel(report),
		Created: report.Time,
		Live:    true,
	}
}

func nodeLabel(report schema.Report) string {
	switch report.Op {
	case schema.OpWorkletNew:
		return report.Detail(schema.DetailProcessorName)
	case schema.OpWorkerNew:
		return report.Detail(schema.DetailWorkerURL)
	case schema.OpRecorderNew:
		return report.Detail(schema.DetailMediaType)
	}
	return ""
}

func slot(report schema.Report, key string, fallback int) int {
	if value, ok := report.DetailNumber(key); ok {
		return int(value)
	}
	return fallback
}

func firstText(report *schema.Report, keys []string) string {
	for _, key := range keys {
		if value := report.Detail(key); value != "" {
			return value
		}
	}
	return ""
}

func firstNumber(report *schema.Report, keys []string) (float64, bool) {
	for _, key := range keys {
		if value, ok := report.DetailNumber(key); ok {
			return value, true
		}
	}
	return 0, false
}
