// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the two time operations the probe engine performs:
// reading the current time and scheduling a cancelable deferred
// callback. Production code injects Real(); tests inject Fake() with
// deterministic time control.
//
// Every engine component that stamps evidence or arms a grace window
// should hold a Clock field instead of calling the time package
// directly. Nothing in the engine sleeps, ticks, or waits on a
// channel; deferred callbacks are the only scheduling primitive.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for duration d, then calls f. Returns a Timer
	// whose Stop method cancels the pending call. If d <= 0, f runs
	// immediately: in a new goroutine for the real clock (matching
	// time.AfterFunc), synchronously for the fake.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a scheduled callback. The engine uses timers exclusively
// for grace windows, which are canceled the instant contradicting
// evidence arrives, so Stop is the operation that matters.
type Timer struct {
	stopFunc  func() bool
	resetFunc func(time.Duration) bool
}

// Stop prevents the timer from firing. Returns true if the call stops
// the timer, false if the timer already fired or was stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Reset changes the timer to fire after duration d. Returns true if
// the timer was active before the reset.
func (t *Timer) Reset(d time.Duration) bool { return t.resetFunc(d) }
