// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.FinalizeGrace(); got != 2*time.Second {
		t.Errorf("FinalizeGrace() = %s, want 2s", got)
	}
	if got := cfg.ResumeWindow(); got != 2*time.Second {
		t.Errorf("ResumeWindow() = %s, want 2s", got)
	}
	if cfg.Artifact.ExportGrowthFactor != 1.7 {
		t.Errorf("export_growth_factor = %v, want 1.7", cfg.Artifact.ExportGrowthFactor)
	}
	if got := cfg.BitrateRecomputeInterval(); got != 5*time.Second {
		t.Errorf("BitrateRecomputeInterval() = %s, want 5s", got)
	}
	if cfg.Journal.Compression != "zstd" {
		t.Errorf("journal.compression = %q, want zstd", cfg.Journal.Compression)
	}
}

func TestLoadRequiresEnvironment(t *testing.T) {
	origConfig := os.Getenv("AUDIOINSPECTOR_CONFIG")
	defer os.Setenv("AUDIOINSPECTOR_CONFIG", origConfig)
	os.Unsetenv("AUDIOINSPECTOR_CONFIG")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when AUDIOINSPECTOR_CONFIG not set, got nil")
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "audioinspector.yaml")
	content := `
session:
  finalize_grace: 3s
artifact:
  export_growth_factor: 2.0
classifier:
  extra_keywords:
    customenc: custom-encoder
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if got := cfg.FinalizeGrace(); got != 3*time.Second {
		t.Errorf("FinalizeGrace() = %s, want 3s", got)
	}
	// Unmentioned fields keep their defaults.
	if got := cfg.ResumeWindow(); got != 2*time.Second {
		t.Errorf("ResumeWindow() = %s, want default 2s", got)
	}
	if cfg.Artifact.ExportGrowthFactor != 2.0 {
		t.Errorf("export_growth_factor = %v, want 2.0", cfg.Artifact.ExportGrowthFactor)
	}
	if cfg.Artifact.DigestHistory != 64 {
		t.Errorf("digest_history = %d, want default 64", cfg.Artifact.DigestHistory)
	}
	if got := cfg.Classifier.ExtraKeywords["customenc"]; got != "custom-encoder" {
		t.Errorf("extra_keywords[customenc] = %q, want custom-encoder", got)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad-duration", content: "session:\n  finalize_grace: never\n"},
		{name: "negative-duration", content: "session:\n  resume_window: -1s\n"},
		{name: "growth-factor-too-small", content: "artifact:\n  export_growth_factor: 0.9\n"},
		{name: "zero-digest-history", content: "artifact:\n  digest_history: 0\n"},
		{name: "unknown-compression", content: "journal:\n  compression: gzip\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "audioinspector.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("writing config: %v", err)
			}
			if _, err := LoadFile(configPath); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
