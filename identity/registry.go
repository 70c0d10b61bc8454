// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/rand"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"time"
	"weak"

	"github.com/oklog/ulid/v2"

	"github.com/thornografi/audioinspector/lib/schema"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newID returns a time-sortable ULID encoded as a 26-character string.
func newID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// tableKey locates an object without retaining it. The address alone
// is not enough: a pointer to an embedded first field shares the
// outer object's address, so the pointer type participates in the key.
type tableKey struct {
	address uintptr
	typ     reflect.Type
}

// tableEntry holds a minted ID plus weak-reference closures used to
// detect both collection and address reuse. The closures capture a
// weak pointer, never the object.
type tableEntry struct {
	id      schema.NodeID
	alive   func() bool
	matches func(candidate any) bool
}

// Registry maps live host objects to their minted identifiers.
//
// The table holds no strong references: resolving an object never
// keeps it alive, and entries for collected objects are reclaimed by
// a runtime cleanup. A Registry is safe for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries map[tableKey]tableEntry
	minted  uint64
}

// NewRegistry returns an empty registry. If logger is nil,
// slog.Default() is used.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		entries: make(map[tableKey]tableEntry),
	}
}

// Resolve returns the identifier for object, minting one on first
// sight. Repeated calls with the same object return the same ID for
// as long as the object stays reachable. A nil object resolves to the
// zero ID.
//
// Resolve is a free function because methods cannot introduce type
// parameters; minting requires the concrete type to take a weak
// reference.
func Resolve[T any](r *Registry, object *T) schema.NodeID {
	if object == nil {
		return ""
	}
	value := reflect.ValueOf(object)
	key := tableKey{address: value.Pointer(), typ: value.Type()}

	r.mu.Lock()
	if entry, ok := r.entries[key]; ok && entry.matches(object) {
		r.mu.Unlock()
		return entry.id
	}
	// First sight, or a collected predecessor's address was reused.
	pointer := weak.Make(object)
	id := schema.NodeID(newID())
	r.entries[key] = tableEntry{
		id:    id,
		alive: func() bool { return pointer.Value() != nil },
		matches: func(candidate any) bool {
			current := pointer.Value()
			return current != nil && any(current) == candidate
		},
	}
	r.minted++
	r.mu.Unlock()

	// Reclaim the table entry once the object is collected. The
	// cleanup argument is the key, not the object, so registration
	// does not pin anything.
	runtime.AddCleanup(object, r.release, key)
	return id
}

// ResolveContext resolves a pipeline-context object. Context objects
// share the registry's identity space with node objects; the distinct
// return type exists so call sites cannot mix the two up.
func ResolveContext[T any](r *Registry, object *T) schema.ContextID {
	return schema.ContextID(Resolve(r, object))
}

// Lookup returns the identifier already minted for object, without
// minting. It accepts untyped values, so interposition code can
// resolve call arguments and receivers it cannot name the type of.
// ok is false for nil, non-pointer values, and objects never seen by
// [Resolve].
func (r *Registry) Lookup(object any) (schema.NodeID, bool) {
	if object == nil {
		return "", false
	}
	value := reflect.ValueOf(object)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return "", false
	}
	key := tableKey{address: value.Pointer(), typ: value.Type()}

	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok || !entry.matches(object) {
		return "", false
	}
	return entry.id, true
}

// Mint returns a fresh identifier bound to no object, for operations
// whose subject cannot be retained (artifact blobs, replayed
// evidence).
func (r *Registry) Mint() schema.NodeID {
	r.mu.Lock()
	r.minted++
	r.mu.Unlock()
	return schema.NodeID(newID())
}

// release drops the table entry for a collected object. Runs on the
// runtime's cleanup goroutine. The liveness check keeps a reused
// address safe: if a new object was registered under the same key,
// its entry is alive and stays.
func (r *Registry) release(key tableKey) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok && !entry.alive() {
		delete(r.entries, key)
	} else {
		ok = false
	}
	r.mu.Unlock()
	if ok {
		r.logger.Debug("identity reclaimed", "id", entry.id)
	}
}

// Live returns the number of table entries whose objects have not
// been reclaimed yet.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Minted returns the total number of identifiers handed out,
// including reclaimed and unbound ones.
func (r *Registry) Minted() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minted
}
