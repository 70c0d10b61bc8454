// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"log/slog"
	"sync"

	"github.com/thornografi/audioinspector/lib/schema"
)

// contextRegisters accumulates the per-context evidence that feeds a
// signature. Counters only ever grow; the capture flag is sticky.
type contextRegisters struct {
	workletProcessors  int
	lowLevelProcessors int
	workletModules     int
	encoderModules     int
	captureLinked      bool
}

// surfaceRegisters accumulates the evidence that is not owned by any
// one context: workers and recorders belong to the surface.
type surfaceRegisters struct {
	encoderWorkers int
	recorders      int
	recorderStarts int
}

// Engine derives pipeline signatures from accumulated observations.
// Mutators record evidence; Compute is a pure read and returns the
// same signature until new evidence arrives.
type Engine struct {
	mu         sync.Mutex
	classifier *Classifier
	logger     *slog.Logger
	contexts   map[schema.ContextID]*contextRegisters
	surface    surfaceRegisters
}

// EngineConfig carries the Engine dependencies. Nil fields fall back
// to a classifier with no extra keywords and slog.Default().
type EngineConfig struct {
	Classifier *Classifier
	Logger     *slog.Logger
}

// NewEngine returns an engine with empty registers.
func NewEngine(config EngineConfig) *Engine {
	classifier := config.Classifier
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		classifier: classifier,
		logger:     logger,
		contexts:   make(map[schema.ContextID]*contextRegisters),
	}
}

// Classifier exposes the engine's resource-name classifier so callers
// can reuse it for evidence outside the signature itself.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

func (e *Engine) registers(context schema.ContextID) *contextRegisters {
	registers, ok := e.contexts[context]
	if !ok {
		registers = &contextRegisters{}
		e.contexts[context] = registers
	}
	return registers
}

// NoteWorkletProcessor records a worklet processor construction. The
// processor name is classified: an encoder-sounding name is evidence
// of worklet-hosted encoding in this context.
func (e *Engine) NoteWorkletProcessor(context schema.ContextID, processorName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	registers := e.registers(context)
	registers.workletProcessors++
	if _, ok := e.classifier.Classify(processorName); ok {
		registers.encoderModules++
		e.logger.Debug("worklet processor classified as encoder",
			"context", context, "processor", processorName)
	}
}

// NoteLowLevelProcessor records a low-level script processor
// construction in the given context.
func (e *Engine) NoteLowLevelProcessor(context schema.ContextID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registers(context).lowLevelProcessors++
}

// NoteWorkletModule records a worklet module load. The module URL is
// classified the same way worker URLs are; a recognized encoder
// module is worklet-encoding evidence for the context. The hint is
// returned so callers can mine it for encoder details.
func (e *Engine) NoteWorkletModule(context schema.ContextID, moduleURL string) (Hint, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	registers := e.registers(context)
	registers.workletModules++
	hint, ok := e.classifier.Classify(moduleURL)
	if ok {
		registers.encoderModules++
		e.logger.Debug("worklet module classified as encoder",
			"context", context, "module", moduleURL)
	}
	return hint, ok
}

// NoteWorker records a background worker construction. Workers are
// surface-level: pages routinely spin up an encoder worker before or
// without touching a processing context. Only workers whose resource
// name classifies as encoder-related count toward the signature.
func (e *Engine) NoteWorker(resourceName string) (Hint, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	hint, ok := e.classifier.Classify(resourceName)
	if ok {
		e.surface.encoderWorkers++
		e.logger.Debug("worker classified as encoder", "worker", resourceName)
	}
	return hint, ok
}

// NoteRecorder records a recorder construction.
func (e *Engine) NoteRecorder() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.surface.recorders++
}

// NoteRecorderStart records a recorder start call.
func (e *Engine) NoteRecorderStart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.surface.recorderStarts++
}

// NoteCaptureLink records that some node in the context linked into a
// capture-stream destination. The output path stays capturedStream
// from then on even if the link is later removed: the page has shown
// where its audio goes.
func (e *Engine) NoteCaptureLink(context schema.ContextID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registers(context).captureLinked = true
}

// Compute derives the signature for a context from the registers as
// they stand. It never mutates state: calling it twice in a row
// yields identical signatures.
//
// Priorities when evidence conflicts: worklet processing outranks
// low-level processing; worker-hosted encoding outranks
// worklet-hosted encoding outranks the browser's native encoder; any
// capture link outranks speaker output.
func (e *Engine) Compute(context schema.ContextID) schema.Signature {
	e.mu.Lock()
	defer e.mu.Unlock()

	registers, ok := e.contexts[context]
	if !ok {
		registers = &contextRegisters{}
	}

	signature := schema.Signature{
		Processing: schema.ProcessingNone,
		Encoding:   schema.EncodingBrowserNative,
		Output:     schema.OutputSpeakers,
	}
	switch {
	case registers.workletProcessors > 0:
		signature.Processing = schema.ProcessingWorklet
	case registers.lowLevelProcessors > 0:
		signature.Processing = schema.ProcessingLowLevel
	}
	switch {
	case e.surface.encoderWorkers > 0:
		signature.Encoding = schema.EncodingWorkerWasm
	case registers.encoderModules > 0:
		signature.Encoding = schema.EncodingWorkletWasm
	}
	if registers.captureLinked {
		signature.Output = schema.OutputCapturedStream
	}
	return signature
}

// Recorders reports how many recorders the surface has constructed.
func (e *Engine) Recorders() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface.recorders
}

// RecorderStarts reports how many recorder start calls the surface
// has seen.
func (e *Engine) RecorderStarts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface.recorderStarts
}
