// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

// Package locate names the node most likely producing encoded output
// when no explicit encoder-configuration evidence exists.
//
// Resolution runs five strategies over the topology in fixed priority
// order and short-circuits on the first match, each tagged so callers
// and tests can tell which rule decided:
//
//  1. exactly one processor links directly into a capture-stream
//     destination: that processor, high confidence;
//  2. several do: the most recently created of them, high;
//  3. eliminate processors with a live downstream path to the
//     speakers (monitoring, not encoding); exactly one survivor,
//     medium;
//  4. exactly one processor exists at all, medium;
//  5. several survivors and no other signal: the most recently
//     created survivor, low.
//
// No strategy matching is a valid result: Resolve returns ok=false
// and the caller must treat the location as unknown, never substitute
// a guess.
package locate
