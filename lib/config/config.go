// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the observation engine.
type Config struct {
	// Session configures session lifecycle timing.
	Session SessionConfig `yaml:"session"`

	// Artifact configures artifact-stream interpretation.
	Artifact ArtifactConfig `yaml:"artifact"`

	// Classifier configures encoder-library classification.
	Classifier ClassifierConfig `yaml:"classifier"`

	// Journal configures report journaling.
	Journal JournalConfig `yaml:"journal"`
}

// SessionConfig configures session lifecycle timing.
type SessionConfig struct {
	// FinalizeGrace is how long artifact silence must last, after a
	// session's last artifact, before the session is finalized.
	// Go duration format. Default: 2s.
	FinalizeGrace string `yaml:"finalize_grace"`

	// ResumeWindow is how long after an artifact-silence finalize a
	// new artifact re-opens the same session instead of starting the
	// next one. Explicit recorder stops are never reopened.
	// Go duration format. Default: 2s.
	ResumeWindow string `yaml:"resume_window"`
}

// ArtifactConfig configures artifact-stream interpretation.
type ArtifactConfig struct {
	// ExportGrowthFactor is the minimum size ratio between an
	// artifact and its predecessor for the artifact to count as a
	// cumulative re-export rather than an incremental chunk.
	// Default: 1.7.
	ExportGrowthFactor float64 `yaml:"export_growth_factor"`

	// BitrateRecomputeInterval is the minimum spacing between
	// bitrate re-estimates while a session is active. Go duration
	// format. Default: 5s.
	BitrateRecomputeInterval string `yaml:"bitrate_recompute_interval"`

	// DigestHistory is how many recent artifact digests are kept
	// per session for duplicate suppression. Default: 64.
	DigestHistory int `yaml:"digest_history"`
}

// ClassifierConfig configures encoder-library classification.
type ClassifierConfig struct {
	// ExtraKeywords maps additional lowercase resource-name
	// substrings to library names, extending the built-in table.
	// Entries here win over built-ins on conflict.
	ExtraKeywords map[string]string `yaml:"extra_keywords,omitempty"`
}

// JournalConfig configures report journaling.
type JournalConfig struct {
	// Compression selects the frame compression for journal writes:
	// "zstd", "lz4", or "none". Default: zstd.
	Compression string `yaml:"compression"`
}

// Default returns the stock configuration. These values are the
// running defaults, not placeholders: the engine is fully usable with
// no configuration file at all.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			FinalizeGrace: "2s",
			ResumeWindow:  "2s",
		},
		Artifact: ArtifactConfig{
			ExportGrowthFactor:       1.7,
			BitrateRecomputeInterval: "5s",
			DigestHistory:            64,
		},
		Journal: JournalConfig{
			Compression: "zstd",
		},
	}
}

// Load loads configuration from the AUDIOINSPECTOR_CONFIG environment
// variable. If the variable is not set, Load fails; callers that want
// the defaults when no file is configured should call [Default]
// directly.
func Load() (*Config, error) {
	configPath := os.Getenv("AUDIOINSPECTOR_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("AUDIOINSPECTOR_CONFIG environment variable not set; " +
			"set it to the path of your audioinspector.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The file
// merges over [Default], so partial files are valid. Environment
// variables never override file values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that all fields are well-formed. Returns an error
// describing the first invalid field found, or nil.
func (c *Config) Validate() error {
	if _, err := parsePositiveDuration(c.Session.FinalizeGrace); err != nil {
		return fmt.Errorf("session.finalize_grace: %w", err)
	}
	if _, err := parsePositiveDuration(c.Session.ResumeWindow); err != nil {
		return fmt.Errorf("session.resume_window: %w", err)
	}
	if c.Artifact.ExportGrowthFactor <= 1 {
		return fmt.Errorf("artifact.export_growth_factor must be > 1, got %v", c.Artifact.ExportGrowthFactor)
	}
	if _, err := parsePositiveDuration(c.Artifact.BitrateRecomputeInterval); err != nil {
		return fmt.Errorf("artifact.bitrate_recompute_interval: %w", err)
	}
	if c.Artifact.DigestHistory < 1 {
		return fmt.Errorf("artifact.digest_history must be >= 1, got %d", c.Artifact.DigestHistory)
	}
	for keyword := range c.Classifier.ExtraKeywords {
		if keyword == "" {
			return fmt.Errorf("classifier.extra_keywords: empty keyword")
		}
	}
	switch c.Journal.Compression {
	case "zstd", "lz4", "none":
		// Valid.
	default:
		return fmt.Errorf("journal.compression must be \"zstd\", \"lz4\", or \"none\", got %q", c.Journal.Compression)
	}
	return nil
}

// FinalizeGrace returns the parsed session finalize grace. Call
// [Config.Validate] first; unparseable values fall back to the
// default.
func (c *Config) FinalizeGrace() time.Duration {
	return durationOrDefault(c.Session.FinalizeGrace, 2*time.Second)
}

// ResumeWindow returns the parsed session resume window.
func (c *Config) ResumeWindow() time.Duration {
	return durationOrDefault(c.Session.ResumeWindow, 2*time.Second)
}

// BitrateRecomputeInterval returns the parsed bitrate re-estimate
// spacing.
func (c *Config) BitrateRecomputeInterval() time.Duration {
	return durationOrDefault(c.Artifact.BitrateRecomputeInterval, 5*time.Second)
}

func parsePositiveDuration(s string) (time.Duration, error) {
	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return duration, nil
}

func durationOrDefault(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}
