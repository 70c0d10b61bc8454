// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/thornografi/audioinspector/intercept"
	"github.com/thornografi/audioinspector/lib/codec"
	"github.com/thornografi/audioinspector/lib/schema"
)

// Reader decodes a journal stream frame by frame. Not safe for
// concurrent use.
type Reader struct {
	in     io.Reader
	frames int
}

// NewReader validates the journal signature on in.
func NewReader(in io.Reader) (*Reader, error) {
	var signature [len(journalMagic)]byte
	if _, err := io.ReadFull(in, signature[:]); err != nil {
		return nil, fmt.Errorf("reading journal signature: %w", err)
	}
	if !bytes.Equal(signature[:6], journalMagic[:6]) {
		return nil, errors.New("not an audioinspector journal")
	}
	if signature[6] != journalVersion {
		return nil, fmt.Errorf("unsupported journal version %d", signature[6])
	}
	return &Reader{in: in}, nil
}

// Next returns the next journaled report. io.EOF marks a clean end at
// a frame boundary; a stream cut mid-frame surfaces as
// io.ErrUnexpectedEOF wrapped in context.
func (r *Reader) Next() (schema.Report, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r.in, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return schema.Report{}, io.EOF
		}
		return schema.Report{}, fmt.Errorf("reading frame %d header: %w", r.frames, err)
	}
	tag := CompressionTag(header[0])
	compressedSize := binary.BigEndian.Uint32(header[1:5])
	rawSize := binary.BigEndian.Uint32(header[5:9])
	if compressedSize > maxFrameSize || rawSize > maxFrameSize {
		return schema.Report{}, fmt.Errorf("frame %d: claimed size %d/%d exceeds %d byte limit",
			r.frames, compressedSize, rawSize, maxFrameSize)
	}

	payload := make([]byte, compressedSize)
	if _, err := io.ReadFull(r.in, payload); err != nil {
		return schema.Report{}, fmt.Errorf("reading frame %d payload: %w", r.frames, err)
	}
	raw, err := decompress(payload, tag, int(rawSize))
	if err != nil {
		return schema.Report{}, fmt.Errorf("frame %d: %w", r.frames, err)
	}

	var report schema.Report
	if err := codec.Unmarshal(raw, &report); err != nil {
		return schema.Report{}, fmt.Errorf("decoding frame %d: %w", r.frames, err)
	}
	r.frames++
	return report, nil
}

// Frames returns how many reports have been decoded so far.
func (r *Reader) Frames() int { return r.frames }

// Replay feeds every remaining journaled report to the observer in
// order and returns how many were delivered. A decode error stops the
// replay; everything before it has already been delivered.
func Replay(reader *Reader, observer intercept.Observer) (int, error) {
	delivered := 0
	for {
		report, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return delivered, nil
		}
		if err != nil {
			return delivered, err
		}
		observer.ObserveReport(report)
		delivered++
	}
}
