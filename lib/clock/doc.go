// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for the probe
// engine's deferred callbacks.
//
// The engine never blocks and never polls: the only time-based behavior
// it has is a pair of cancelable grace windows (session finalize and
// session resume) plus timestamping of observed evidence. Production
// code accepts a Clock parameter instead of calling time.Now or
// time.AfterFunc directly; tests inject Fake() and drive the windows
// deterministically with Advance.
//
// # Wiring pattern
//
// Add a Clock field to structs that schedule windows:
//
//	type Tracker struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	t := session.NewTracker(..., clock.Real(), ...)
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	t := session.NewTracker(..., c, ...)
//	c.Advance(3 * time.Second) // fire the finalize window synchronously
//
// FakeClock fires callbacks synchronously inside Advance, in deadline
// order, which matches the engine's single-threaded reactive model: a
// grace window expiring is just another callback mutating state in
// arrival order.
package clock
