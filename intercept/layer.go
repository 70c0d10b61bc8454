// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package intercept

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/thornografi/audioinspector/identity"
	"github.com/thornografi/audioinspector/lib/clock"
	"github.com/thornografi/audioinspector/lib/schema"
)

// Observer consumes reports produced by wrapped capabilities.
// Delivery is synchronous, in registration order, inside the host
// callback that performed the operation. A panicking observer is
// recovered, logged, and counted; it never affects the host result or
// the other observers.
type Observer interface {
	ObserveReport(report schema.Report)
}

// Stats is a point-in-time copy of the layer's delivery counters.
type Stats struct {
	// Reports counts reports delivered to observers.
	Reports uint64

	// ObserverPanics counts recovered observer panics.
	ObserverPanics uint64

	// SkippedHooks counts targets left unwrapped because the real
	// capability was absent.
	SkippedHooks uint64
}

// LayerConfig configures a Layer.
type LayerConfig struct {
	// Surface attributes every report to one host execution context.
	Surface schema.SurfaceID

	// Registry resolves object identities. Required.
	Registry *identity.Registry

	// Clock stamps reports. If nil, the real clock is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Layer owns observer registration, the suspension flag, and delivery
// accounting for one observed surface. The wrap functions close over
// it; the layer itself never calls into the host.
type Layer struct {
	surface  schema.SurfaceID
	registry *identity.Registry
	clock    clock.Clock
	logger   *slog.Logger

	suspended atomic.Bool

	mu        sync.Mutex
	observers []Observer

	reports        atomic.Uint64
	observerPanics atomic.Uint64
	skippedHooks   atomic.Uint64
}

// NewLayer returns a layer for one surface.
func NewLayer(config LayerConfig) *Layer {
	registry := config.Registry
	if registry == nil {
		registry = identity.NewRegistry(config.Logger)
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{
		surface:  config.Surface,
		registry: registry,
		clock:    clk,
		logger:   logger,
	}
}

// Registry returns the identity registry the layer resolves against.
func (l *Layer) Registry() *identity.Registry { return l.registry }

// AddObserver registers an observer. Observers added during delivery
// see reports from the next operation on.
func (l *Layer) AddObserver(observer Observer) {
	if observer == nil {
		return
	}
	l.mu.Lock()
	l.observers = append(l.observers, observer)
	l.mu.Unlock()
}

// SetSuspended toggles observation. While suspended the wrapped
// operations still run; they just produce no identities and no
// reports.
func (l *Layer) SetSuspended(suspended bool) {
	l.suspended.Store(suspended)
}

// Suspended reports the current suspension flag.
func (l *Layer) Suspended() bool { return l.suspended.Load() }

// Stats returns a copy of the delivery counters.
func (l *Layer) Stats() Stats {
	return Stats{
		Reports:        l.reports.Load(),
		ObserverPanics: l.observerPanics.Load(),
		SkippedHooks:   l.skippedHooks.Load(),
	}
}

// WrapConstruct decorates a constructor capability. If real is nil
// (the host lacks the API), the hook is skipped, logged, and counted,
// and nil is returned so the caller leaves the original untouched.
func WrapConstruct[T any](layer *Layer, target Target, real func(args ...any) (*T, error)) func(args ...any) (*T, error) {
	if real == nil {
		layer.skipHook(target)
		return nil
	}
	if target.Disabled {
		return real
	}
	return func(args ...any) (*T, error) {
		object, err := real(args...)
		if err != nil || object == nil {
			return object, err
		}
		if layer.Suspended() {
			return object, nil
		}
		report := layer.buildReport(target, args)
		report.Subject = identity.Resolve(layer.registry, object)
		if target.Role == schema.RoleContext {
			report.Context = schema.ContextID(report.Subject)
		}
		layer.notify(report)
		return object, nil
	}
}

// WrapMethod decorates an instance method capability. The receiver is
// passed through to the real method unmodified; its previously minted
// identity becomes the report subject when one exists.
func WrapMethod(layer *Layer, target Target, real func(receiver any, args ...any) (any, error)) func(receiver any, args ...any) (any, error) {
	if real == nil {
		layer.skipHook(target)
		return nil
	}
	if target.Disabled {
		return real
	}
	return func(receiver any, args ...any) (any, error) {
		result, err := real(receiver, args...)
		if err != nil {
			return result, err
		}
		if layer.Suspended() {
			return result, nil
		}
		report := layer.buildReport(target, args)
		if id, ok := layer.registry.Lookup(receiver); ok {
			report.Subject = id
			if target.ContextFromReceiver {
				report.Context = schema.ContextID(id)
			}
		}
		layer.notify(report)
		return result, nil
	}
}

// WrapAccess decorates a property read returning an owned object.
// The object resolves to the same identity on every access.
func WrapAccess[R, T any](layer *Layer, target Target, real func(receiver *R) (*T, error)) func(receiver *R) (*T, error) {
	if real == nil {
		layer.skipHook(target)
		return nil
	}
	if target.Disabled {
		return real
	}
	return func(receiver *R) (*T, error) {
		object, err := real(receiver)
		if err != nil || object == nil {
			return object, err
		}
		if layer.Suspended() {
			return object, nil
		}
		report := layer.buildReport(target, nil)
		report.Subject = identity.Resolve(layer.registry, object)
		if target.ContextFromReceiver {
			if id, ok := layer.registry.Lookup(receiver); ok {
				report.Context = schema.ContextID(id)
			}
		}
		layer.notify(report)
		return object, nil
	}
}

// buildReport assembles the common report fields: operation, surface,
// role, timestamp, argument-derived identities and details.
func (l *Layer) buildReport(target Target, args []any) schema.Report {
	report := schema.Report{
		Op:      target.Op,
		Surface: l.surface,
		Role:    target.Role,
		Time:    l.clock.Now(),
	}
	if index := target.ContextArg - 1; index >= 0 && index < len(args) {
		if id, ok := l.registry.Lookup(args[index]); ok {
			report.Context = schema.ContextID(id)
		}
	}
	if index := target.TargetArg - 1; index >= 0 && index < len(args) {
		if id, ok := l.registry.Lookup(args[index]); ok {
			report.Target = id
		}
	}
	for i, arg := range args {
		if i == target.ContextArg-1 || i == target.TargetArg-1 {
			continue
		}
		switch value := arg.(type) {
		case *schema.ArtifactInfo:
			report.Artifact = value
			continue
		case schema.ArtifactInfo:
			info := value
			report.Artifact = &info
			continue
		case map[string]any:
			// Map arguments flatten under their own keys
			// (recorder options, worker messages, capture
			// constraints).
			for key, element := range value {
				if summary, ok := summarizeScalar(element); ok {
					setDetail(&report, key, summary)
				}
			}
			continue
		}
		key := target.argKey(i)
		if key == "" {
			continue
		}
		if summary, ok := summarizeScalar(arg); ok {
			setDetail(&report, key, summary)
		}
	}
	return report
}

// summarizeScalar reduces a scalar argument to its summary form.
// Non-scalar values are dropped: summaries must never retain host
// references.
func summarizeScalar(arg any) (schema.ArgValue, bool) {
	switch value := arg.(type) {
	case string:
		return schema.TextArg(value), true
	case bool:
		if value {
			return schema.TextArg("true"), true
		}
		return schema.TextArg("false"), true
	case int:
		return schema.NumberArg(float64(value)), true
	case int32:
		return schema.NumberArg(float64(value)), true
	case int64:
		return schema.NumberArg(float64(value)), true
	case uint:
		return schema.NumberArg(float64(value)), true
	case uint32:
		return schema.NumberArg(float64(value)), true
	case uint64:
		return schema.NumberArg(float64(value)), true
	case float32:
		return schema.NumberArg(float64(value)), true
	case float64:
		return schema.NumberArg(value), true
	}
	return schema.ArgValue{}, false
}

func setDetail(report *schema.Report, key string, value schema.ArgValue) {
	if report.Details == nil {
		report.Details = make(map[string]schema.ArgValue)
	}
	report.Details[key] = value
}

// notify delivers a report to every observer, containing panics at
// the delivery site.
func (l *Layer) notify(report schema.Report) {
	l.reports.Add(1)
	l.mu.Lock()
	observers := l.observers
	l.mu.Unlock()
	for _, observer := range observers {
		l.deliver(observer, report)
	}
}

func (l *Layer) deliver(observer Observer, report schema.Report) {
	defer func() {
		if recovered := recover(); recovered != nil {
			l.observerPanics.Add(1)
			l.logger.Error("observer panicked", "op", report.Op, "panic", recovered)
		}
	}()
	observer.ObserveReport(report)
}

func (l *Layer) skipHook(target Target) {
	l.skippedHooks.Add(1)
	l.logger.Warn("hook skipped, capability absent", "op", target.Op)
}
