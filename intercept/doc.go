// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package intercept wraps host multimedia capabilities in reporting
// decorators.
//
// The host harness owns the real constructors and methods; this
// package never calls into the host on its own. Wrapping a capability
// yields a drop-in replacement with one contract: perform the real
// operation with the original arguments, and if it succeeded, resolve
// identities, build a [schema.Report], notify observers, and then
// return the untouched result. The host page can never tell it is
// being observed: errors pass through unchanged, receivers are never
// rebound, and observer panics are contained at the delivery site.
//
// The set of interceptable operations is fixed and enumerable.
// [DefaultTargets] returns the production set; deployments can
// replace it with a JSONC manifest via [LoadManifest].
//
// While the layer is suspended the real operations still run, but no
// identity is cached and no report is produced, bounding memory
// growth on surfaces another instance holds exclusive rights to.
//
// Key exports:
//
//   - [Layer] -- observer registration, suspension, delivery stats
//   - [WrapConstruct], [WrapMethod], [WrapAccess] -- the decorators
//   - [Target] and [DefaultTargets] -- the interception set
//   - [LoadManifest] and [ParseManifest] -- JSONC target manifests
package intercept
