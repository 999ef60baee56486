// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package derived

import stdctx "context"

// InitSpec is the input to Init: the facts the Metadata Module writes for
// one newly declared derived node.
type InitSpec struct {
	NodeID   string
	AgentID  string
	AgentURL string
	Inputs   []string
	// Time is the initial numeric time-position. Nil means "use the
	// current wall-clock epoch seconds".
	Time *int64
}

// MetadataStore encodes derived-quantity graph facts in the triple store
// and reads back graph shape. Every write is a single atomic SPARQL
// update.
type MetadataStore interface {
	// Init atomically inserts node-is-a-Derived; node isDerivedUsing
	// agent-id; agent-id is-a Service with hasHttpUrl agent-url; node
	// hasTime a fresh time-position with the given (or current) numeric
	// position; and node isDerivedFrom each input. Fails with
	// apperr.Conflict if node-id is already initialised.
	Init(ctx stdctx.Context, spec InitSpec) error

	// GetAgentURL returns the hasHttpUrl literal for node-id's agent.
	GetAgentURL(ctx stdctx.Context, nodeID string) (string, error)

	// GetInputs returns the isDerivedFrom targets of node-id, in no
	// particular order.
	GetInputs(ctx stdctx.Context, nodeID string) ([]string, error)

	// GetTimestamp reads instance-id's numeric time-position. Returns
	// apperr.NotFound if instance-id has no hasTime fact.
	GetTimestamp(ctx stdctx.Context, instanceID string) (int64, error)

	// UpdateTimestamp atomically replaces instance-id's numeric
	// time-position with t, via a delete/insert over the existing
	// binding. Mints a fresh time-position and hasTime edge if
	// instance-id had none.
	UpdateTimestamp(ctx stdctx.Context, instanceID string, t int64) error

	// GetDerivedEntities returns the entities e with `e belongsTo
	// node-id` — node-id's current materialised outputs.
	GetDerivedEntities(ctx stdctx.Context, nodeID string) ([]string, error)

	// GetIsDerivedFromEntities returns, for each entity in entityIDs, the
	// downstream derived nodes that reference it via isDerivedFrom and
	// the entity's own rdf:type.
	GetIsDerivedFromEntities(ctx stdctx.Context, entityIDs []string) (map[string]DownstreamReference, error)

	// GetOwningDerived returns the derived node D with `entity-id
	// belongsTo D`, or "" if entity-id is not a materialised output of
	// any derived node (a plain leaf input).
	GetOwningDerived(ctx stdctx.Context, entityID string) (string, error)

	// GetInstanceClass returns id's rdf:type.
	GetInstanceClass(ctx stdctx.Context, id string) (string, error)

	// IsDerivedWithTimeSeries reports whether node-id is a time-series
	// derived node, whose output reconciliation step the engine skips.
	IsDerivedWithTimeSeries(ctx stdctx.Context, nodeID string) (bool, error)

	// ReconnectInput adds an isDerivedFrom edge from newEntity to
	// downstreamDerived, used only during output reconciliation.
	ReconnectInput(ctx stdctx.Context, newEntity, downstreamDerived string) error

	// DeleteInstances removes every triple mentioning each id, on either
	// side, for every id in ids.
	DeleteInstances(ctx stdctx.Context, ids []string) error
}
