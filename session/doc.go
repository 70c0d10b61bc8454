// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package session tracks one recording attempt's lifecycle and
// classifies pipeline signature changes between attempts.
//
// The machine cycles idle → starting → active → finalizing → idle. A
// session begins on the earliest reliable intent-to-record evidence:
// capture-source acquisition, an explicit recorder start, or a first
// qualifying artifact when nothing structural preceded it. The
// starting phase exists for bookkeeping only; the machine moves to
// active in the same step. A session ends on explicit stop, which
// finalizes synchronously, or by artifact silence: a finalize grace
// window armed by each artifact, followed by a resume window in which
// a late artifact revives the session without a finalize report ever
// being emitted.
//
// Each session is classified exactly once against the previous
// session's final signature: any differing field is a hard reset,
// otherwise (or with no previous session) a soft reset.
// Classification is evaluated at the earliest of capture acquisition,
// the first structural evidence that the technology actually changed,
// or the first link into a destination, and is guarded so later
// triggers within the same session are no-ops.
//
// Session ordinals increase by one on every idle→starting transition
// and never repeat; downstream consumers order racing evidence by
// ordinal, not by timestamp.
package session
