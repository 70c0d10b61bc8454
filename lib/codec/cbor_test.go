// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"io"
	"testing"
)

// sampleRecord stands in for an outbound engine record: json tags
// only, relying on fxamacker's json-tag fallback so one tag set serves
// both encodings.
type sampleRecord struct {
	Operation string            `json:"operation"`
	Subject   string            `json:"subject,omitempty"`
	Sequence  uint64            `json:"sequence"`
	Detail    map[string]string `json:"detail,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRecord{
		Operation: "node.connect",
		Subject:   "01J8ZX4N0000000000000000AA",
		Sequence:  17,
		Detail:    map[string]string{"output_slot": "0"},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Operation != original.Operation || decoded.Subject != original.Subject ||
		decoded.Sequence != original.Sequence || decoded.Detail["output_slot"] != "0" {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	record := sampleRecord{
		Operation: "artifact.emit",
		Sequence:  3,
		Detail: map[string]string{
			"media_type": "audio/webm",
			"size":       "4000",
			"cadence":    "1s",
		},
	}

	first, err := Marshal(record)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(record)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	// A newer writer may add fields; the decode target lacks them.
	extended := struct {
		Operation string `json:"operation"`
		Sequence  uint64 `json:"sequence"`
		Extra     string `json:"extra"`
	}{Operation: "context.new", Sequence: 1, Extra: "future"}

	data, err := Marshal(extended)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if decoded.Operation != "context.new" || decoded.Sequence != 1 {
		t.Errorf("decoded = %+v, want operation=context.new sequence=1", decoded)
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	records := []sampleRecord{
		{Operation: "context.new", Sequence: 1},
		{Operation: "source.new", Sequence: 2},
		{Operation: "node.connect", Sequence: 3},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range records {
		var got sampleRecord
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode record %d: %v", i, err)
		}
		if got.Operation != want.Operation || got.Sequence != want.Sequence {
			t.Errorf("record %d = %+v, want %+v", i, got, want)
		}
	}
	var extra sampleRecord
	if err := decoder.Decode(&extra); err != io.EOF {
		t.Fatalf("Decode past end = %v, want io.EOF", err)
	}
}

func TestAnyMapDecodesToStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"kind": "report", "seq": uint64(9)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	asMap, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if asMap["kind"] != "report" {
		t.Errorf("kind = %v, want report", asMap["kind"])
	}
}
