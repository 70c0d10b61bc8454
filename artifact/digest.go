// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 digest of an artifact payload.
type Digest [32]byte

// blobDomainKey is the 32-byte key for BLAKE3 keyed hashing of
// artifact payloads. The byte values are the ASCII encoding of the
// domain name, zero-padded to 32 bytes, so the key is inspectable in
// hex dumps without sacrificing any cryptographic property.
var blobDomainKey = [32]byte{
	'a', 'u', 'd', 'i', 'o', 'i', 'n', 's', 'p', 'e', 'c', 't', 'o', 'r', '.', 'a',
	'r', 't', 'i', 'f', 'a', 'c', 't', '.', 'b', 'l', 'o', 'b', 0, 0, 0, 0,
}

// DigestBlob computes the payload-domain keyed digest of the given
// bytes. Identical payloads reported through different hooks produce
// identical digests, which is all deduplication needs; the bytes are
// never parsed or decoded.
func DigestBlob(data []byte) Digest {
	// NewKeyed only fails on wrong key length, which the fixed-size
	// key rules out.
	hasher, err := blake3.NewKeyed(blobDomainKey[:])
	if err != nil {
		panic("artifact: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// FormatDigest returns the hex encoding of a digest, the form used in
// logs.
func FormatDigest(digest Digest) string {
	return hex.EncodeToString(digest[:])
}

// digestRing remembers the most recent payload digests, evicting the
// oldest once capacity is reached. Recall is bounded deliberately: the
// duplicate window a page can produce is short (the same blob crossing
// two hooks back to back), and unbounded memory on an observed surface
// is not acceptable.
type digestRing struct {
	capacity int
	order    []Digest
	present  map[Digest]struct{}
}

func newDigestRing(capacity int) *digestRing {
	return &digestRing{
		capacity: capacity,
		present:  make(map[Digest]struct{}, capacity),
	}
}

// observe records the digest and reports whether it was already
// present.
func (r *digestRing) observe(digest Digest) bool {
	if _, ok := r.present[digest]; ok {
		return true
	}
	if len(r.order) >= r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.present, oldest)
	}
	r.order = append(r.order, digest)
	r.present[digest] = struct{}{}
	return false
}
