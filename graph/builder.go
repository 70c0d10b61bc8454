// Copyright 2026 The AudioInspector Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"log/slog"
	"sync"
	"time"

	"github.com/thornografi/audioinspector/lib/schema"
)

// EventKind distinguishes wiring from teardown in the history log.
type EventKind string

const (
	EventLink   EventKind = "link"
	EventUnlink EventKind = "unlink"
)

// LinkEvent is one entry in the append-only wiring history. Slot
// indexes are -1 when the page did not supply them.
type LinkEvent struct {
	Kind        EventKind        `json:"kind"`
	From        schema.NodeID    `json:"from"`
	To          schema.NodeID    `json:"to"`
	OutputIndex int              `json:"outputIndex"`
	InputIndex  int              `json:"inputIndex"`
	Context     schema.ContextID `json:"context,omitempty"`
	Time        time.Time        `json:"time"`
}

// edge is one live or retired connection in the multigraph.
type edge struct {
	from        schema.NodeID
	to          schema.NodeID
	outputIndex int
	inputIndex  int
	linked      time.Time
	retired     bool
}

// Builder accumulates topology evidence for one observed surface.
// Safe for concurrent use; every mutation is atomic under one lock.
type Builder struct {
	logger *slog.Logger

	mu       sync.Mutex
	nodes    map[schema.NodeID]*schema.NodeInfo
	order    []schema.NodeID
	events   []LinkEvent
	outgoing map[schema.NodeID][]*edge
	incoming map[schema.NodeID][]*edge
}

// NewBuilder returns an empty builder. If logger is nil,
// slog.Default() is used.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger:   logger,
		nodes:    make(map[schema.NodeID]*schema.NodeInfo),
		outgoing: make(map[schema.NodeID][]*edge),
		incoming: make(map[schema.NodeID][]*edge),
	}
}

// AddNode records a constructed node. Insert-if-absent: a duplicate
// identity (a destination observed on every access) leaves the first
// record untouched. Nodes with a zero identity are dropped.
func (b *Builder) AddNode(info schema.NodeInfo) {
	if info.ID.IsZero() {
		b.logger.Debug("node without identity dropped", "role", info.Role)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.nodes[info.ID]; exists {
		return
	}
	info.Live = true
	b.nodes[info.ID] = &info
	b.order = append(b.order, info.ID)
}

// Link records a directed connection. Both endpoints must have been
// constructed; a link naming a phantom endpoint is dropped with a
// debug log. Slot indexes are -1 when unknown.
func (b *Builder) Link(from, to schema.NodeID, outputIndex, inputIndex int, context schema.ContextID, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.nodes[from]; !ok {
		b.logger.Debug("link from unknown node dropped", "from", from, "to", to)
		return
	}
	if _, ok := b.nodes[to]; !ok {
		b.logger.Debug("link to unknown node dropped", "from", from, "to", to)
		return
	}
	b.events = append(b.events, LinkEvent{
		Kind: EventLink, From: from, To: to,
		OutputIndex: outputIndex, InputIndex: inputIndex,
		Context: context, Time: at,
	})
	connection := &edge{
		from: from, to: to,
		outputIndex: outputIndex, inputIndex: inputIndex,
		linked: at,
	}
	b.outgoing[from] = append(b.outgoing[from], connection)
	b.incoming[to] = append(b.incoming[to], connection)
}

// Unlink retires live connections from one node to another. With
// outputIndex >= 0 only connections from that slot retire; with -1
// every live from→to connection retires. Unlinks that match nothing
// are ignored.
func (b *Builder) Unlink(from, to schema.NodeID, outputIndex int, context schema.ContextID, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	retired := 0
	for _, connection := range b.outgoing[from] {
		if connection.retired || connection.to != to {
			continue
		}
		if outputIndex >= 0 && connection.outputIndex != outputIndex {
			continue
		}
		connection.retired = true
		retired++
	}
	if retired == 0 {
		return
	}
	b.events = append(b.events, LinkEvent{
		Kind: EventUnlink, From: from, To: to,
		OutputIndex: outputIndex, InputIndex: -1,
		Context: context, Time: at,
	})
}

// UnlinkAll retires every live connection leaving a node (a
// disconnect with no target argument). With outputIndex >= 0 only
// that slot's connections retire.
func (b *Builder) UnlinkAll(from schema.NodeID, outputIndex int, context schema.ContextID, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[schema.NodeID]struct{})
	var targets []schema.NodeID
	for _, connection := range b.outgoing[from] {
		if connection.retired {
			continue
		}
		if outputIndex >= 0 && connection.outputIndex != outputIndex {
			continue
		}
		connection.retired = true
		if _, duplicate := seen[connection.to]; !duplicate {
			seen[connection.to] = struct{}{}
			targets = append(targets, connection.to)
		}
	}
	for _, to := range targets {
		b.events = append(b.events, LinkEvent{
			Kind: EventUnlink, From: from, To: to,
			OutputIndex: outputIndex, InputIndex: -1,
			Context: context, Time: at,
		})
	}
}

// CloseContext marks every node owned by a closed pipeline-context
// dead and retires their connections in both directions. History is
// untouched.
func (b *Builder) CloseContext(context schema.ContextID, at time.Time) {
	if context.IsZero() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.order {
		info := b.nodes[id]
		if info.Context != context || !info.Live {
			continue
		}
		info.Live = false
		for _, connection := range b.outgoing[id] {
			connection.retired = true
		}
		for _, connection := range b.incoming[id] {
			connection.retired = true
		}
	}
}
