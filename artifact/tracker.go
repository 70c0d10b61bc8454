// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"log/slog"
	"sync"
	"time"

	"github.com/thornografi/audioinspector/lib/schema"
)

// Defaults applied by NewTracker when the config leaves a field zero.
const (
	// DefaultGrowthFactor is the size ratio separating "another chunk
	// of the same stream" from "a new running total or a final export".
	DefaultGrowthFactor = 1.7

	// DefaultRecomputeInterval bounds how often the running bitrate
	// estimate is refreshed while a session is active.
	DefaultRecomputeInterval = 5 * time.Second

	// DefaultDigestHistory is how many payload digests the duplicate
	// window remembers.
	DefaultDigestHistory = 64
)

// Mode is the emission pattern a session's artifacts follow.
type Mode string

const (
	// ModeUnknown means too few artifacts have arrived to classify.
	ModeUnknown Mode = ""

	// ModeChunked means each artifact is a new slice of the stream;
	// sizes sum.
	ModeChunked Mode = "chunked"

	// ModeCumulative means each artifact replaces the running total;
	// the largest seen wins.
	ModeCumulative Mode = "cumulative"
)

// SessionState is the session machine's position at the moment an
// artifact arrives. The tracker's reading of an artifact depends on
// it: the same size growth means "cumulative emission" mid-session,
// "final export" while finalizing, and "stale export" once idle.
type SessionState string

const (
	SessionIdle       SessionState = "idle"
	SessionActive     SessionState = "active"
	SessionFinalizing SessionState = "finalizing"
)

// Disposition is the tracker's verdict on one artifact.
type Disposition string

const (
	// DispositionIgnored: the media type is not a known audio
	// encoding; the artifact is none of our business.
	DispositionIgnored Disposition = "ignored"

	// DispositionDuplicate: the payload digest was seen recently; the
	// same blob surfaced through a second hook.
	DispositionDuplicate Disposition = "duplicate"

	// DispositionStart: first qualifying artifact while no session is
	// running; this is intent-to-record evidence.
	DispositionStart Disposition = "start"

	// DispositionLiveness: an ordinary mid-session artifact. The
	// finalize grace window should be re-armed.
	DispositionLiveness Disposition = "liveness"

	// DispositionResume: an ordinary artifact arrived while the
	// session was finalizing; the recording is still going.
	DispositionResume Disposition = "resume"

	// DispositionExport: a grown artifact arrived while the session
	// was finalizing. The page is saving its finished file; finalize
	// immediately, bypassing the grace window.
	DispositionExport Disposition = "export"

	// DispositionLateExport: a grown artifact arrived after the
	// session already closed and reported. Too late to fold in;
	// dropped.
	DispositionLateExport Disposition = "lateExport"
)

// Measurement is the tracker's running estimate of session timing and
// throughput. EstimatedStart and EstimatedDuration are zero until two
// artifacts establish a cadence; Bitrate is zero until a duration
// exists.
type Measurement struct {
	ArtifactCount int
	TotalBytes    int64
	Mode          Mode

	// First and Last are the arrival times of the first and most
	// recent cadence-bearing artifacts.
	First time.Time
	Last  time.Time

	// EstimatedStart backdates the first artifact by the mean
	// inter-artifact gap: an artifact carries audio captured before
	// its emission.
	EstimatedStart    time.Time
	EstimatedDuration time.Duration

	// Bitrate in bits per second.
	Bitrate int
}

// TrackerConfig carries the Tracker's parameters. Zero fields fall
// back to the package defaults; a nil Logger falls back to
// slog.Default().
type TrackerConfig struct {
	GrowthFactor      float64
	RecomputeInterval time.Duration
	DigestHistory     int
	Logger            *slog.Logger
}

// Tracker accumulates artifact evidence for one session at a time.
// Its accumulators are cleared when a session starts (either by its
// own start disposition or by Begin when other evidence started the
// session), not when one ends, so a post-close artifact can still be
// compared against the closed session's last size.
type Tracker struct {
	mu                sync.Mutex
	logger            *slog.Logger
	growthFactor      float64
	recomputeInterval time.Duration
	digests           *digestRing

	mode       Mode
	count      int
	totalBytes int64
	lastSize   int64
	firstTime  time.Time
	lastTime   time.Time
	gapSum     time.Duration
	gaps       int
	mediaType  string
	bitrate    int
	bitrateAt  time.Time
}

// NewTracker returns a tracker with empty accumulators.
func NewTracker(config TrackerConfig) *Tracker {
	growth := config.GrowthFactor
	if growth <= 0 {
		growth = DefaultGrowthFactor
	}
	interval := config.RecomputeInterval
	if interval <= 0 {
		interval = DefaultRecomputeInterval
	}
	history := config.DigestHistory
	if history <= 0 {
		history = DefaultDigestHistory
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logger:            logger,
		growthFactor:      growth,
		recomputeInterval: interval,
		digests:           newDigestRing(history),
	}
}

// Observe classifies one artifact against the current session state
// and folds it into the accumulators when it belongs to the session.
// Ignored, duplicate, and late-export artifacts change nothing.
func (t *Tracker) Observe(info schema.ArtifactInfo, state SessionState) Disposition {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !schema.KnownAudioMediaType(info.MediaType) {
		return DispositionIgnored
	}
	if len(info.Payload) > 0 && t.digests.observe(DigestBlob(info.Payload)) {
		t.logger.Debug("duplicate artifact payload",
			"size", info.Size, "mediaType", info.MediaType)
		return DispositionDuplicate
	}

	grown := t.lastSize > 0 && float64(info.Size) > t.growthFactor*float64(t.lastSize)

	switch state {
	case SessionIdle:
		if grown && t.count > 0 {
			// The closed session's finalize report is already out; a
			// save-to-file artifact arriving now cannot be folded in.
			t.logger.Debug("late export artifact after session close",
				"size", info.Size, "lastSize", t.lastSize)
			return DispositionLateExport
		}
		t.beginLocked(info)
		return DispositionStart

	case SessionFinalizing:
		if grown {
			t.absorbExportLocked(info)
			return DispositionExport
		}
		t.recordLocked(info)
		return DispositionResume

	default:
		t.recordLocked(info)
		return DispositionLiveness
	}
}

// Begin clears the accumulators for a session that was started by
// non-artifact evidence (capture acquisition or a recorder start). A
// session started by an artifact clears itself.
func (t *Tracker) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

// Measurement returns the running estimate. The bitrate in it is the
// one last refreshed under the recompute interval, not a fresh value.
func (t *Tracker) Measurement() Measurement {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.measurementLocked()
}

// Finalize recomputes the bitrate unconditionally from total bytes and
// final estimated duration, and returns the fixed measurement. Called
// exactly once per session by the session machine.
func (t *Tracker) Finalize() Measurement {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recomputeBitrateLocked()
	return t.measurementLocked()
}

// MediaType returns the declared media type of the session's first
// qualifying artifact, or "" when none arrived.
func (t *Tracker) MediaType() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mediaType
}

func (t *Tracker) resetLocked() {
	t.mode = ModeUnknown
	t.count = 0
	t.totalBytes = 0
	t.lastSize = 0
	t.firstTime = time.Time{}
	t.lastTime = time.Time{}
	t.gapSum = 0
	t.gaps = 0
	t.mediaType = ""
	t.bitrate = 0
	t.bitrateAt = time.Time{}
}

// beginLocked starts a fresh accumulation with info as the first
// artifact.
func (t *Tracker) beginLocked(info schema.ArtifactInfo) {
	t.resetLocked()
	t.mode = ModeUnknown
	if info.Cumulative {
		t.mode = ModeCumulative
	}
	t.count = 1
	t.totalBytes = info.Size
	t.lastSize = info.Size
	t.firstTime = info.Time
	t.lastTime = info.Time
	t.mediaType = info.MediaType
	t.bitrateAt = info.Time
}

// recordLocked folds an in-session artifact into the accumulators.
func (t *Tracker) recordLocked(info schema.ArtifactInfo) {
	if t.count == 0 {
		t.beginLocked(info)
		return
	}

	if gap := info.Time.Sub(t.lastTime); gap > 0 {
		t.gapSum += gap
		t.gaps++
	}

	grown := t.lastSize > 0 && float64(info.Size) > t.growthFactor*float64(t.lastSize)
	switch {
	case info.Cumulative || grown:
		t.mode = ModeCumulative
	case t.mode == ModeUnknown:
		t.mode = ModeChunked
	}

	if t.mode == ModeCumulative {
		if info.Size > t.totalBytes {
			t.totalBytes = info.Size
		}
	} else {
		t.totalBytes += info.Size
	}

	t.count++
	t.lastSize = info.Size
	t.lastTime = info.Time

	if t.bitrateAt.IsZero() || info.Time.Sub(t.bitrateAt) >= t.recomputeInterval {
		t.recomputeBitrateLocked()
		t.bitrateAt = info.Time
	}
}

// absorbExportLocked folds a final export artifact in: its size is the
// authoritative total, but its arrival time says nothing about the
// audio's duration, so the cadence accumulators stay untouched.
func (t *Tracker) absorbExportLocked(info schema.ArtifactInfo) {
	if info.Size > t.totalBytes {
		t.totalBytes = info.Size
	}
	t.count++
	t.lastSize = info.Size
	t.mode = ModeCumulative
}

func (t *Tracker) measurementLocked() Measurement {
	measurement := Measurement{
		ArtifactCount: t.count,
		TotalBytes:    t.totalBytes,
		Mode:          t.mode,
		First:         t.firstTime,
		Last:          t.lastTime,
		Bitrate:       t.bitrate,
	}
	if t.gaps > 0 {
		meanGap := t.gapSum / time.Duration(t.gaps)
		measurement.EstimatedStart = t.firstTime.Add(-meanGap)
		measurement.EstimatedDuration = t.lastTime.Sub(measurement.EstimatedStart)
	}
	return measurement
}

func (t *Tracker) recomputeBitrateLocked() {
	if t.gaps == 0 {
		t.bitrate = 0
		return
	}
	meanGap := t.gapSum / time.Duration(t.gaps)
	duration := t.lastTime.Sub(t.firstTime) + meanGap
	if duration <= 0 {
		t.bitrate = 0
		return
	}
	t.bitrate = int(float64(t.totalBytes*8) / duration.Seconds())
}
