// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package intercept

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// manifestVersion is the only manifest format this code understands.
const manifestVersion = 1

// Manifest is the on-disk form of an interception set. Manifests are
// authored as JSONC (JSON extended with // line comments, /* block
// comments */, and trailing commas) and replace [DefaultTargets]
// wholesale: a manifest that omits an operation leaves that operation
// unobserved.
type Manifest struct {
	Version int      `json:"version"`
	Targets []Target `json:"targets"`
}

// ParseManifest strips JSONC extensions from data and unmarshals the
// result into a validated target set.
func ParseManifest(data []byte) ([]Target, error) {
	stripped := jsonc.ToJSON(data)

	var manifest Manifest
	if err := json.Unmarshal(stripped, &manifest); err != nil {
		return nil, fmt.Errorf("parsing target manifest: %w", err)
	}
	if manifest.Version != manifestVersion {
		return nil, fmt.Errorf("target manifest version %d not supported (want %d)", manifest.Version, manifestVersion)
	}
	if len(manifest.Targets) == 0 {
		return nil, fmt.Errorf("target manifest lists no targets")
	}

	seen := make(map[string]struct{}, len(manifest.Targets))
	for i, target := range manifest.Targets {
		if err := target.Validate(); err != nil {
			return nil, fmt.Errorf("target manifest entry %d: %w", i, err)
		}
		if _, duplicate := seen[target.Op]; duplicate {
			return nil, fmt.Errorf("target manifest entry %d: duplicate op %q", i, target.Op)
		}
		seen[target.Op] = struct{}{}
	}
	return manifest.Targets, nil
}

// LoadManifest reads a JSONC target manifest from disk.
func LoadManifest(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	targets, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return targets, nil
}
