// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Format constants. These values are on disk; changing them breaks
// journal compatibility.
const (
	// journalVersion is the format version carried in the signature.
	journalVersion = 1

	// frameHeaderSize is the fixed frame header: 1-byte compression
	// tag, 4-byte compressed size, 4-byte uncompressed size.
	frameHeaderSize = 9

	// maxFrameSize bounds both sizes in a frame header. Reports are
	// small; a larger claim means a corrupt or hostile journal, and
	// rejecting it keeps allocations sane.
	maxFrameSize = 16 << 20
)

// journalMagic is the 8-byte journal file signature: name, version
// byte, reserved byte.
var journalMagic = [8]byte{'A', 'I', 'J', 'R', 'N', 'L', journalVersion, 0}

// CompressionTag identifies the per-frame compression algorithm.
type CompressionTag uint8

const (
	// CompressionNone stores the frame payload as-is.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is LZ4 block compression: modest ratios, very
	// cheap decode.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at the default level: the best ratio
	// for the text-heavy CBOR frames a journal holds.
	CompressionZstd CompressionTag = 2
)

// String returns the tag's configuration spelling.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseCompressionTag parses a configuration spelling.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// zstdEncoder and zstdDecoder are reused across frames; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("journal: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("journal: zstd decoder initialization failed: " + err.Error())
	}
}

// errIncompressible reports that compression would not shrink the
// payload; the writer falls back to CompressionNone for that frame.
var errIncompressible = fmt.Errorf("payload is incompressible")

func compress(data []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return data, nil

	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		destination := make([]byte, bound)
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock returns 0 for incompressible input.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil

	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

// decompress expands a frame payload and verifies the recovered size
// against the frame header's claim.
func decompress(payload []byte, tag CompressionTag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(payload) != uncompressedSize {
			return nil, fmt.Errorf("stored frame: size %d does not match header %d",
				len(payload), uncompressedSize)
		}
		return payload, nil

	case CompressionLZ4:
		destination := make([]byte, uncompressedSize)
		read, err := lz4.UncompressBlock(payload, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != uncompressedSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
		}
		return destination, nil

	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != uncompressedSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}
