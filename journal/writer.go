// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/thornografi/audioinspector/lib/codec"
	"github.com/thornografi/audioinspector/lib/config"
	"github.com/thornografi/audioinspector/lib/schema"
)

// Writer appends operation reports to a journal stream. The signature
// is written at construction, so even an empty journal identifies
// itself. The first error sticks: once a frame fails, later appends
// return the same error rather than writing frames after a gap. Not
// safe for concurrent use.
type Writer struct {
	out    io.Writer
	tag    CompressionTag
	frames int
	err    error
}

// NewWriter starts a journal on out with the given per-frame
// compression preference.
func NewWriter(out io.Writer, tag CompressionTag) (*Writer, error) {
	switch tag {
	case CompressionNone, CompressionLZ4, CompressionZstd:
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
	if _, err := out.Write(journalMagic[:]); err != nil {
		return nil, fmt.Errorf("writing journal signature: %w", err)
	}
	return &Writer{out: out, tag: tag}, nil
}

// NewWriterFor starts a journal on out using the compression tag named
// by the settings. Hosts that attach a journal to the interception
// layer go through here so the tag stays a config concern.
func NewWriterFor(out io.Writer, settings *config.Config) (*Writer, error) {
	tag, err := ParseCompressionTag(settings.Journal.Compression)
	if err != nil {
		return nil, err
	}
	return NewWriter(out, tag)
}

// Append journals one report. An incompressible report is stored
// uncompressed regardless of the writer's preference; each frame's
// header names what was actually done.
func (w *Writer) Append(report schema.Report) error {
	if w.err != nil {
		return w.err
	}
	raw, err := codec.Marshal(report)
	if err != nil {
		return w.fail(fmt.Errorf("encoding %s report: %w", report.Op, err))
	}
	if len(raw) > maxFrameSize {
		return w.fail(fmt.Errorf("%s report encodes to %d bytes, over the %d frame limit",
			report.Op, len(raw), maxFrameSize))
	}

	tag := w.tag
	payload, err := compress(raw, tag)
	if errors.Is(err, errIncompressible) {
		tag, payload = CompressionNone, raw
	} else if err != nil {
		return w.fail(err)
	}

	var header [frameHeaderSize]byte
	header[0] = byte(tag)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(payload)))
	binary.BigEndian.PutUint32(header[5:9], uint32(len(raw)))
	if _, err := w.out.Write(header[:]); err != nil {
		return w.fail(fmt.Errorf("writing frame header: %w", err))
	}
	if _, err := w.out.Write(payload); err != nil {
		return w.fail(fmt.Errorf("writing frame payload: %w", err))
	}
	w.frames++
	return nil
}

func (w *Writer) fail(err error) error {
	w.err = err
	return err
}

// Err returns the sticky error, if any append has failed.
func (w *Writer) Err() error { return w.err }

// Frames returns how many reports have been journaled.
func (w *Writer) Frames() int { return w.frames }

// ObserveReport implements intercept.Observer, so a Writer can hang
// off the interception layer and journal the raw feed. Errors latch;
// poll Err at teardown.
func (w *Writer) ObserveReport(report schema.Report) {
	_ = w.Append(report)
}
