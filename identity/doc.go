// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity assigns stable opaque identifiers to observed host
// objects.
//
// The central constraint is non-retention: holding an identity for an
// object must never extend that object's lifetime. The [Registry]
// keys its table on weak references, so an object the host page has
// dropped stays collectable, and a runtime cleanup reclaims the table
// entry once collection happens. Downstream components hold only the
// minted [schema.NodeID] strings, never the objects.
//
// Identifiers are ULIDs: globally unique, never reused, and sortable
// by mint time, which gives every consumer a free creation-order tie
// break.
//
// Key exports:
//
//   - [Registry] -- the weak identity table
//   - [Resolve] and [ResolveContext] -- object-to-ID resolution
//   - [Registry.Mint] -- fresh IDs for operations with no retainable
//     object
package identity
