// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// audioinspector-replay feeds a captured evidence journal through a
// fresh engine and prints every record the engine emits as JSON
// lines on stdout.
//
// Replay is paced by default: frames are delivered on the journal's
// own timing against the real clock, so grace windows elapse exactly
// as they did during capture. With --paced=false the engine runs on
// a deterministic clock driven by the journal timestamps instead,
// and an hour of capture replays in milliseconds with the same
// conclusions in the same order.
//
// With --rewrite the frames are also re-journaled to a new file under
// the configured compression, which turns an uncompressed live
// capture into an archival copy.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/thornografi/audioinspector/engine"
	"github.com/thornografi/audioinspector/journal"
	"github.com/thornografi/audioinspector/lib/clock"
	"github.com/thornografi/audioinspector/lib/config"
	"github.com/thornografi/audioinspector/lib/schema"
	"github.com/thornografi/audioinspector/lib/version"
	"github.com/thornografi/audioinspector/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "audioinspector-replay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var journalPath string
	var configPath string
	var rewritePath string
	var wantSnapshot bool
	var verbose bool
	var paced bool

	flagSet := pflag.NewFlagSet("audioinspector-replay", pflag.ContinueOnError)
	flagSet.StringVar(&journalPath, "journal", "", "journal file to replay (required)")
	flagSet.StringVar(&configPath, "config", "", "engine configuration file (default: $AUDIOINSPECTOR_CONFIG, then built-ins)")
	flagSet.StringVar(&rewritePath, "rewrite", "", "also transcode the journal to this path under the configured compression")
	flagSet.BoolVar(&wantSnapshot, "snapshot", false, "print a final topology snapshot for each observed context")
	flagSet.BoolVar(&verbose, "verbose", false, "debug logging on stderr")
	flagSet.BoolVar(&paced, "paced", true, "deliver frames on the journal's own timing; --paced=false collapses all waits")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("audioinspector-replay")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if journalPath == "" {
		return errors.New("--journal is required")
	}
	if rewritePath != "" && rewritePath == journalPath {
		return errors.New("--rewrite target matches the --journal input")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	settings, err := loadSettings(configPath)
	if err != nil {
		return err
	}

	file, err := os.Open(journalPath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, err := journal.NewReader(file)
	if err != nil {
		return err
	}

	var rewriteFile *os.File
	var rewriter *journal.Writer
	if rewritePath != "" {
		rewriteFile, err = os.Create(rewritePath)
		if err != nil {
			return err
		}
		defer rewriteFile.Close()
		rewriter, err = journal.NewWriterFor(rewriteFile, settings)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := replayOptions{snapshot: wantSnapshot, paced: paced, rewriter: rewriter}
	if err := replay(ctx, reader, settings, logger, os.Stdout, opts); err != nil {
		return err
	}
	if rewriter != nil {
		if err := rewriteFile.Close(); err != nil {
			return fmt.Errorf("closing rewritten journal: %w", err)
		}
		logger.Info("journal transcoded",
			"path", rewritePath,
			"frames", rewriter.Frames(),
			"compression", settings.Journal.Compression,
		)
	}
	return nil
}

// loadSettings resolves the engine configuration: an explicit --config
// path wins, then $AUDIOINSPECTOR_CONFIG, then the built-in defaults.
func loadSettings(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	if os.Getenv("AUDIOINSPECTOR_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// replayOptions selects the delivery mode and side outputs of a
// replay run.
type replayOptions struct {
	snapshot bool
	paced    bool
	rewriter *journal.Writer
}

// replay drives the engine with the journal's frames. In paced mode
// delivery sleeps out the recorded gaps on the real clock; otherwise
// a deterministic clock is advanced to each frame's timestamp, which
// fires the same grace-window timers without the wait.
func replay(ctx context.Context, reader *journal.Reader, settings *config.Config, logger *slog.Logger, out io.Writer, opts replayOptions) error {
	first, err := reader.Next()
	if errors.Is(err, io.EOF) {
		logger.Warn("journal holds no frames")
		return nil
	}
	if err != nil {
		return err
	}

	surface := first.Surface
	if surface == "" {
		surface = "replay"
	}

	var fake *clock.FakeClock
	var engineClock clock.Clock
	if opts.paced {
		engineClock = clock.Real()
	} else {
		base := first.Time
		if base.IsZero() {
			base = time.Now()
		}
		fake = clock.Fake(base)
		engineClock = fake
	}

	emitter := newJSONEmitter(out)
	inspector := engine.New(engine.Config{
		Surface:  surface,
		Settings: settings,
		Emitter:  emitter,
		Clock:    engineClock,
		Logger:   logger,
	})

	var contexts []schema.ContextID
	seenContext := map[schema.ContextID]bool{}
	var lastDelivered time.Time

	report := first
	for {
		if !report.Time.IsZero() {
			if opts.paced {
				if !lastDelivered.IsZero() {
					if err := sleepUntil(ctx, report.Time.Sub(lastDelivered)); err != nil {
						logger.Warn("replay interrupted", "frames", reader.Frames())
						return nil
					}
				}
				lastDelivered = report.Time
			} else if report.Time.After(fake.Now()) {
				fake.Advance(report.Time.Sub(fake.Now()))
			}
		}

		if report.Op == schema.OpContextNew {
			id := schema.ContextID(report.Subject)
			if !seenContext[id] {
				seenContext[id] = true
				contexts = append(contexts, id)
			}
		}
		inspector.ObserveReport(report)
		if opts.rewriter != nil {
			if err := opts.rewriter.Append(report); err != nil {
				return fmt.Errorf("rewriting journal: %w", err)
			}
		}

		report, err = reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	if err := settle(ctx, inspector, fake, settings, logger, opts.paced); err != nil {
		return err
	}

	if opts.snapshot {
		for _, id := range contexts {
			emitter.line("topology-snapshot", inspector.Snapshot(id))
		}
	}

	diagnostics := inspector.Diagnostics()
	if diagnostics.SessionPhase != session.PhaseIdle {
		logger.Warn("journal ended mid-session",
			"phase", diagnostics.SessionPhase,
			"ordinal", diagnostics.SessionOrdinal,
		)
	}
	logger.Info("replay complete",
		"frames", reader.Frames(),
		"records", diagnostics.RecordsEmitted,
		"sessions", diagnostics.SessionOrdinal,
		"unknown_ops", diagnostics.UnknownOps,
	)
	return emitter.Err()
}

// settle lets a recording that stopped near the end of the journal
// reach its conclusion: the finalize grace and resume window still
// have to elapse after the last frame. A session that is mid-recording
// at journal end has no pending timers and stays unconcluded.
func settle(ctx context.Context, inspector *engine.Engine, fake *clock.FakeClock, settings *config.Config, logger *slog.Logger, paced bool) error {
	if !paced {
		fake.Advance(settings.FinalizeGrace())
		fake.Advance(settings.ResumeWindow())
		return nil
	}
	if inspector.Diagnostics().SessionPhase != session.PhaseFinalizing {
		return nil
	}
	wait := settings.FinalizeGrace() + settings.ResumeWindow()
	logger.Info("waiting out the finalize window", "wait", wait)
	if err := sleepUntil(ctx, wait); err != nil {
		logger.Warn("interrupted before the session concluded")
	}
	return nil
}

// sleepUntil waits for d or until the context is canceled.
func sleepUntil(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Replay a captured evidence journal through a fresh engine.

Every record the engine emits (signature changes, recording state
transitions, encoder detections) is printed as one JSON object per
line on stdout. Conclusions match what the live engine produced when
the journal was captured.

Usage:
  audioinspector-replay --journal <path> [flags]

Examples:
  # Replay on the journal's own timing
  audioinspector-replay --journal capture.aijrnl

  # Collapse all waits and dump the final topology
  audioinspector-replay --journal capture.aijrnl --paced=false --snapshot

  # Replay under a tuned configuration
  audioinspector-replay --journal capture.aijrnl --config inspector.yaml

  # Transcode a raw capture to the configured compression
  audioinspector-replay --journal capture.aijrnl --paced=false --rewrite archive.aijrnl

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

// jsonEmitter prints each engine record as one JSON object per line.
// The first write error latches and silences further output, so a
// closed downstream pipe surfaces once instead of per record.
type jsonEmitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	err     error
}

func newJSONEmitter(out io.Writer) *jsonEmitter {
	return &jsonEmitter{encoder: json.NewEncoder(out)}
}

// recordLine is the stdout envelope: a kind discriminator and the
// record itself.
type recordLine struct {
	Kind   string `json:"kind"`
	Record any    `json:"record"`
}

func (e *jsonEmitter) line(kind string, record any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return
	}
	if err := e.encoder.Encode(recordLine{Kind: kind, Record: record}); err != nil {
		e.err = err
	}
}

// Err returns the sticky write error, if any.
func (e *jsonEmitter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *jsonEmitter) SignatureChange(change schema.SignatureChange) {
	e.line("signature-change", change)
}

func (e *jsonEmitter) RecordingState(state schema.RecordingState) {
	e.line("recording-state", state)
}

func (e *jsonEmitter) DetectedEncoder(detected schema.DetectedEncoder) {
	e.line("detected-encoder", detected)
}
