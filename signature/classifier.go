// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"sort"
	"strings"
)

// Hint is what the classifier could read out of a resource name.
// Every field may be empty; a returned Hint only means "this resource
// is encoder-related".
type Hint struct {
	// Library is the recognized encoder library name.
	Library string

	// Codec is the codec the library implies.
	Codec string

	// Container is the container the library conventionally writes.
	Container string
}

// rule maps a normalized keyword to its hint. Rules are checked in
// order; specific library names come before bare codec terms.
type rule struct {
	keyword string
	hint    Hint
}

// builtinRules is the stock keyword table. Keywords are matched as
// substrings of the normalized resource name (lowercased, with
// separator punctuation removed), so "opus-recorder.min.js" matches
// "opusrecorder".
var builtinRules = []rule{
	{"opusmediarecorder", Hint{Library: "opus-media-recorder", Codec: "opus", Container: "webm"}},
	{"opusrecorder", Hint{Library: "opus-recorder", Codec: "opus", Container: "ogg"}},
	{"lamejs", Hint{Library: "lamejs", Codec: "mp3", Container: "mp3"}},
	{"vmsg", Hint{Library: "vmsg", Codec: "mp3", Container: "mp3"}},
	{"libflac", Hint{Library: "libflac.js", Codec: "flac", Container: "flac"}},
	{"recorderjs", Hint{Library: "recorder.js", Codec: "pcm", Container: "wav"}},
	{"speex", Hint{Library: "speex", Codec: "speex", Container: "ogg"}},
	{"vorbis", Hint{Codec: "vorbis", Container: "ogg"}},
	{"opus", Hint{Codec: "opus"}},
	{"lame", Hint{Library: "lame", Codec: "mp3", Container: "mp3"}},
	{"mp3", Hint{Codec: "mp3", Container: "mp3"}},
	{"flac", Hint{Codec: "flac", Container: "flac"}},
	{"wav", Hint{Codec: "pcm", Container: "wav"}},
	{"pcm", Hint{Codec: "pcm"}},
	{"encoder", Hint{}},
	{"encode", Hint{}},
	{"codec", Hint{}},
	{"recorder", Hint{}},
}

// Classifier keyword-matches worker and worklet-module resource names
// against the encoder library ecosystem. Immutable after
// construction; safe for concurrent use.
type Classifier struct {
	extra []rule
}

// NewClassifier returns a classifier extending the built-in table
// with configured keyword→library entries. Extra entries are checked
// first, so deployments can override built-ins.
func NewClassifier(extraKeywords map[string]string) *Classifier {
	classifier := &Classifier{}
	for keyword, library := range extraKeywords {
		classifier.extra = append(classifier.extra, rule{
			keyword: normalize(keyword),
			hint:    Hint{Library: library},
		})
	}
	// Longer keywords first so "opusrecorder" beats "opus" among the
	// configured entries, with a name tie break so the iteration
	// order of the configured map never matters. The builtin table is
	// already ordered.
	sort.Slice(classifier.extra, func(i, j int) bool {
		a, b := classifier.extra[i].keyword, classifier.extra[j].keyword
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return classifier
}

// Classify reports whether a resource name looks encoder-related and
// what it recognized. The zero hint with ok=true means "encoder of
// unknown shape".
func (c *Classifier) Classify(resourceName string) (Hint, bool) {
	normalized := normalize(resourceName)
	if normalized == "" {
		return Hint{}, false
	}
	for _, entry := range c.extra {
		if strings.Contains(normalized, entry.keyword) {
			return entry.hint, true
		}
	}
	for _, entry := range builtinRules {
		if strings.Contains(normalized, entry.keyword) {
			return entry.hint, true
		}
	}
	return Hint{}, false
}

// normalize lowercases a resource name and strips the separator
// punctuation that varies across bundlers, so keyword matching sees
// "opus-recorder", "opus_recorder", and "opusRecorder" identically.
func normalize(name string) string {
	lowered := strings.ToLower(name)
	var builder strings.Builder
	builder.Grow(len(lowered))
	for _, r := range lowered {
		switch r {
		case '-', '_', '.', '/', '\\':
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
