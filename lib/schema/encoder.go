// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "strings"

// Provenance names how an encoder conclusion was reached, strongest
// evidence first.
type Provenance string

const (
	// ProvenanceConfigMessage means the page posted an encoder
	// configuration to a worker and the message named the codec.
	ProvenanceConfigMessage Provenance = "configMessage"

	// ProvenanceMediaType means a recorder was constructed with an
	// explicit container/codec request.
	ProvenanceMediaType Provenance = "mediaType"

	// ProvenanceHeuristic means the conclusion came from pipeline
	// shape: worker and module names, graph topology, artifact
	// media types.
	ProvenanceHeuristic Provenance = "heuristic"
)

// Confidence grades how certain a conclusion is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// EncoderRecord is the engine's best current answer to "what encoder
// is this page using". Records are ordered by session ordinal; a
// record for an older session never displaces a newer one.
type EncoderRecord struct {
	// SessionOrdinal is the 1-based session the conclusion belongs
	// to.
	SessionOrdinal int `json:"sessionOrdinal"`

	// Container is the output container format ("webm", "ogg",
	// "wav"), or "" when unknown.
	Container string `json:"container,omitempty"`

	// Codec is the audio codec ("opus", "pcm", "mp3", "vorbis",
	// "aac", "flac"), or "" when unknown.
	Codec string `json:"codec,omitempty"`

	// Library is the identified third-party encoder library, or ""
	// when the encoder is browser-native or unidentified.
	Library string `json:"library,omitempty"`

	// Bitrate is the output rate in bits per second: explicit when a
	// configuration message named it, derived from artifact flow
	// otherwise. 0 when unknown.
	Bitrate int `json:"bitrate,omitempty"`

	// SampleRate is the input sample rate in Hz, 0 when unknown.
	SampleRate int `json:"sampleRate,omitempty"`

	// Channels is the input channel count, 0 when unknown.
	Channels int `json:"channels,omitempty"`

	// Encoding is where the encoding happens.
	Encoding EncodingType `json:"encoding"`

	// Provenance names the evidence class behind the record.
	Provenance Provenance `json:"provenance"`

	// Confidence grades the record.
	Confidence Confidence `json:"confidence"`
}

// provenanceRank orders provenance classes by evidence strength.
func provenanceRank(p Provenance) int {
	switch p {
	case ProvenanceConfigMessage:
		return 3
	case ProvenanceMediaType:
		return 2
	case ProvenanceHeuristic:
		return 1
	}
	return 0
}

// Supersedes reports whether the record should replace existing. A
// record for a newer session always wins. Within one session,
// stronger provenance wins, and equal provenance favors the newcomer
// so later evidence refreshes stale detail.
func (r EncoderRecord) Supersedes(existing EncoderRecord) bool {
	if r.SessionOrdinal != existing.SessionOrdinal {
		return r.SessionOrdinal > existing.SessionOrdinal
	}
	return provenanceRank(r.Provenance) >= provenanceRank(existing.Provenance)
}

// codecByContainer maps a container to its conventional default audio
// codec, used when a media type names the container but not the codec.
var codecByContainer = map[string]string{
	"webm": "opus",
	"ogg":  "vorbis",
	"mp4":  "aac",
	"wav":  "pcm",
	"mp3":  "mp3",
	"flac": "flac",
}

// ParseMediaType splits a container/codec request of the form
// "audio/webm;codecs=opus" into its parts. The codec falls back to
// the container's conventional default when the parameter is absent.
// ok is false when the input does not look like an audio media type.
func ParseMediaType(mediaType string) (container, codec string, ok bool) {
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	base, params, _ := strings.Cut(mediaType, ";")
	base = strings.TrimSpace(base)
	prefix, subtype, found := strings.Cut(base, "/")
	if !found || prefix != "audio" || subtype == "" {
		return "", "", false
	}
	if subtype == "x-wav" || subtype == "wave" {
		subtype = "wav"
	}
	if subtype == "mpeg" {
		subtype = "mp3"
	}
	container = subtype
	for _, param := range strings.Split(params, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found || strings.TrimSpace(key) != "codecs" {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if first, _, _ := strings.Cut(value, ","); first != "" {
			codec = first
		}
	}
	if codec == "" {
		codec = codecByContainer[container]
	}
	return container, codec, true
}

// KnownAudioMediaType reports whether the media type parses as audio.
func KnownAudioMediaType(mediaType string) bool {
	_, _, ok := ParseMediaType(mediaType)
	return ok
}
