// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package intercept_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thornografi/audioinspector/intercept"
	"github.com/thornografi/audioinspector/lib/schema"
)

const manifestJSONC = `{
	// Interception set for a capture-only deployment.
	"version": 1,
	"targets": [
		{"op": "context.new", "kind": "construct", "role": "context"},
		{
			"op": "worklet.new",
			"kind": "construct",
			"role": "workletProcessor",
			"contextArg": 1,
			"argKeys": ["", "processorName"],
		},
		{"op": "recorder.stop", "kind": "method", "disabled": true},
	],
}`

func TestParseManifest(t *testing.T) {
	targets, err := intercept.ParseManifest([]byte(manifestJSONC))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("got %d targets, want 3", len(targets))
	}

	worklet := targets[1]
	if worklet.Op != schema.OpWorkletNew {
		t.Errorf("targets[1].Op = %q, want %q", worklet.Op, schema.OpWorkletNew)
	}
	if worklet.Kind != intercept.KindConstruct {
		t.Errorf("targets[1].Kind = %q, want construct", worklet.Kind)
	}
	if worklet.Role != schema.RoleWorkletProcessor {
		t.Errorf("targets[1].Role = %q, want workletProcessor", worklet.Role)
	}
	if worklet.ContextArg != 1 {
		t.Errorf("targets[1].ContextArg = %d, want 1", worklet.ContextArg)
	}
	if len(worklet.ArgKeys) != 2 || worklet.ArgKeys[1] != schema.DetailProcessorName {
		t.Errorf("targets[1].ArgKeys = %v, want [\"\" processorName]", worklet.ArgKeys)
	}
	if !targets[2].Disabled {
		t.Error("targets[2].Disabled = false, want true")
	}
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "wrong-version",
			input:   `{"version": 2, "targets": [{"op": "x", "kind": "method"}]}`,
			wantErr: "version",
		},
		{
			name:    "no-targets",
			input:   `{"version": 1, "targets": []}`,
			wantErr: "no targets",
		},
		{
			name:    "invalid-target",
			input:   `{"version": 1, "targets": [{"op": "x.new", "kind": "construct"}]}`,
			wantErr: "require a role",
		},
		{
			name: "duplicate-op",
			input: `{"version": 1, "targets": [
				{"op": "x", "kind": "method"},
				{"op": "x", "kind": "method"}
			]}`,
			wantErr: "duplicate op",
		},
		{
			name:    "malformed",
			input:   `{"version": 1, "targets": [`,
			wantErr: "parsing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := intercept.ParseManifest([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.jsonc")
	if err := os.WriteFile(path, []byte(manifestJSONC), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	targets, err := intercept.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("got %d targets, want 3", len(targets))
	}

	if _, err := intercept.LoadManifest(filepath.Join(t.TempDir(), "absent.jsonc")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
