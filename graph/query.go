// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"time"

	"github.com/thornografi/audioinspector/lib/schema"
)

// Node returns a copy of a node's record.
func (b *Builder) Node(id schema.NodeID) (schema.NodeInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.nodes[id]
	if !ok {
		return schema.NodeInfo{}, false
	}
	return *info, true
}

// Role returns a node's role. ok is false for unknown identities.
func (b *Builder) Role(id schema.NodeID) (schema.NodeRole, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.nodes[id]
	if !ok {
		return "", false
	}
	return info.Role, true
}

// NodesByRole returns the identities of a context's nodes with the
// given role, in creation order. A zero context matches every
// context.
func (b *Builder) NodesByRole(context schema.ContextID, role schema.NodeRole) []schema.NodeID {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []schema.NodeID
	for _, id := range b.order {
		info := b.nodes[id]
		if info.Role != role {
			continue
		}
		if !context.IsZero() && info.Context != context {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// CreationOrder returns a context's node identities in the order
// their constructions were observed. A zero context matches every
// context.
func (b *Builder) CreationOrder(context schema.ContextID) []schema.NodeID {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []schema.NodeID
	for _, id := range b.order {
		if !context.IsZero() && b.nodes[id].Context != context {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// DirectSources returns the nodes with a live connection into to, in
// link order, deduplicated.
func (b *Builder) DirectSources(to schema.NodeID) []schema.NodeID {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[schema.NodeID]struct{})
	var sources []schema.NodeID
	for _, connection := range b.incoming[to] {
		if connection.retired {
			continue
		}
		if _, duplicate := seen[connection.from]; duplicate {
			continue
		}
		seen[connection.from] = struct{}{}
		sources = append(sources, connection.from)
	}
	return sources
}

// LinkedIntoRole reports whether the history holds any link, live or
// retired, terminating at a node with the given role. Signature
// evidence survives teardowns, so retired links count.
func (b *Builder) LinkedIntoRole(context schema.ContextID, role schema.NodeRole) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, event := range b.events {
		if event.Kind != EventLink {
			continue
		}
		if !context.IsZero() && event.Context != context {
			continue
		}
		if info, ok := b.nodes[event.To]; ok && info.Role == role {
			return true
		}
	}
	return false
}

// ShortestPath returns the fewest-hop live path from one node to
// another, endpoints included. Ties break toward edges discovered
// earlier. ok is false when no live path exists.
func (b *Builder) ShortestPath(from, to schema.NodeID) ([]schema.NodeID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shortestPathLocked(from, to)
}

func (b *Builder) shortestPathLocked(from, to schema.NodeID) ([]schema.NodeID, bool) {
	if _, ok := b.nodes[from]; !ok {
		return nil, false
	}
	if _, ok := b.nodes[to]; !ok {
		return nil, false
	}
	if from == to {
		return []schema.NodeID{from}, true
	}
	parent := map[schema.NodeID]schema.NodeID{from: from}
	queue := []schema.NodeID{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, connection := range b.outgoing[current] {
			if connection.retired {
				continue
			}
			next := connection.to
			if _, visited := parent[next]; visited {
				continue
			}
			parent[next] = current
			if next == to {
				return assemblePath(parent, from, to), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func assemblePath(parent map[schema.NodeID]schema.NodeID, from, to schema.NodeID) []schema.NodeID {
	var reversed []schema.NodeID
	for current := to; ; current = parent[current] {
		reversed = append(reversed, current)
		if current == from {
			break
		}
	}
	path := make([]schema.NodeID, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

// HasLivePath reports whether any live path leads from one node to
// another.
func (b *Builder) HasLivePath(from, to schema.NodeID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.shortestPathLocked(from, to)
	return ok
}

// MainChain returns the current main processing chain of a context:
// the shortest live path from its first capture source to a
// destination, preferring the capture-stream destination over the
// speakers. ok is false when the context has no complete chain.
func (b *Builder) MainChain(context schema.ContextID) ([]schema.NodeID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var source schema.NodeID
	for _, id := range b.order {
		info := b.nodes[id]
		if info.Role == schema.RoleCaptureSource && (context.IsZero() || info.Context == context) {
			source = id
			break
		}
	}
	if source.IsZero() {
		return nil, false
	}
	for _, role := range []schema.NodeRole{schema.RoleCaptureStreamDestination, schema.RoleSpeakerDestination} {
		for _, id := range b.order {
			info := b.nodes[id]
			if info.Role != role {
				continue
			}
			if !context.IsZero() && info.Context != context {
				continue
			}
			if path, ok := b.shortestPathLocked(source, id); ok {
				return path, true
			}
		}
	}
	return nil, false
}

// Snapshot returns a point-in-time copy of the topology: nodes in
// creation order, live edges in link order. A zero context snapshots
// the whole surface.
func (b *Builder) Snapshot(context schema.ContextID, taken time.Time) schema.GraphSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := schema.GraphSnapshot{Context: context, Taken: taken}
	included := make(map[schema.NodeID]struct{})
	for _, id := range b.order {
		info := b.nodes[id]
		if !context.IsZero() && info.Context != context {
			continue
		}
		included[id] = struct{}{}
		snapshot.Nodes = append(snapshot.Nodes, *info)
	}
	for _, id := range b.order {
		if _, ok := included[id]; !ok {
			continue
		}
		for _, connection := range b.outgoing[id] {
			if connection.retired {
				continue
			}
			if _, ok := included[connection.to]; !ok {
				continue
			}
			snapshot.Edges = append(snapshot.Edges, schema.EdgeInfo{
				From:        connection.from,
				To:          connection.to,
				OutputIndex: connection.outputIndex,
				InputIndex:  connection.inputIndex,
				Linked:      connection.linked,
			})
		}
	}
	return snapshot
}

// Events returns a copy of the append-only wiring history.
func (b *Builder) Events() []LinkEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := make([]LinkEvent, len(b.events))
	copy(events, b.events)
	return events
}
