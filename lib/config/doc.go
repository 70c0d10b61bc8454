// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the
// observation engine and its tools.
//
// Configuration is loaded from a single file specified by either the
// AUDIOINSPECTOR_CONFIG environment variable (via [Load]) or a
// --config flag (via [LoadFile]). There are no fallbacks, no
// ~/.config discovery, and no automatic file search. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// Every field has a working default, so an absent or partial file is
// fine: [Default] is always the base and the file merges over it.
// Durations are strings in Go time.ParseDuration format ("2s",
// "500ms"); [Config.Validate] rejects unparseable values before any
// component consumes them.
//
// Key exports:
//
//   - [Config] -- master struct with Session, Artifact, Classifier,
//     and Journal sections
//   - [Default] -- returns a Config with the stock timings
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other AudioInspector packages.
package config
