// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package derived

import (
	stdctx "context"
	"log/slog"
	"time"

	"github.com/anchorgraph/corestack/internal/gateway/agent"
	"github.com/anchorgraph/corestack/internal/platform/apperr"
)

// Engine recomputes a derived node's value by walking its isDerivedFrom
// dependency graph, invoking the owning agent of every out-of-date node it
// passes through, and reconciling materialised outputs along the way.
//
// Two concurrent Update calls over an overlapping subgraph are unsafe — the
// caller is responsible for serialising updates per root.
type Engine struct {
	metadata    MetadataStore
	agentCaller agent.Caller
	logger      *slog.Logger
}

// NewEngine constructs an Engine over the given metadata store and agent caller.
func NewEngine(metadata MetadataStore, agentCaller agent.Caller, logger *slog.Logger) *Engine {
	return &Engine{metadata: metadata, agentCaller: agentCaller, logger: logger}
}

// Update recomputes nodeID and every out-of-date ancestor it depends on,
// depth-first. Agent-call failures abort the current update without
// rolling back earlier recursive successes — this is best-effort forward
// progress, not a transaction.
func (engine *Engine) Update(context stdctx.Context, nodeID string) error {
	return engine.updateNode(context, nodeID, map[string]bool{})
}

func (engine *Engine) updateNode(context stdctx.Context, nodeID string, visited map[string]bool) error {
	if visited[nodeID] {
		return apperr.CircularDependency(nodeID)
	}
	visited[nodeID] = true

	inputs, err := engine.metadata.GetInputs(context, nodeID)
	if err != nil {
		return err
	}

	for _, input := range inputs {
		owner, err := engine.metadata.GetOwningDerived(context, input)
		if err != nil {
			return err
		}
		if owner == "" {
			continue
		}
		if err := engine.updateNode(context, owner, visited); err != nil {
			return err
		}
	}

	if len(inputs) == 0 {
		return nil
	}

	outOfDate, err := engine.isOutOfDate(context, nodeID, inputs)
	if err != nil {
		return err
	}
	if !outOfDate {
		return nil
	}

	outputs, err := engine.invokeAgent(context, nodeID, inputs)
	if err != nil {
		return err
	}

	isTimeSeries, err := engine.metadata.IsDerivedWithTimeSeries(context, nodeID)
	if err != nil {
		return err
	}
	if !isTimeSeries {
		if err := engine.reconcileOutputs(context, nodeID, outputs); err != nil {
			return err
		}
	}

	return engine.metadata.UpdateTimestamp(context, nodeID, time.Now().Unix())
}

func (engine *Engine) isOutOfDate(context stdctx.Context, nodeID string, inputs []string) (bool, error) {
	nodeTimestamp, err := engine.metadata.GetTimestamp(context, nodeID)
	if err != nil {
		return false, err
	}

	for _, input := range inputs {
		inputTimestamp, err := engine.metadata.GetTimestamp(context, input)
		if err != nil {
			return false, err
		}
		if inputTimestamp > nodeTimestamp {
			return true, nil
		}
	}
	return false, nil
}

func (engine *Engine) invokeAgent(context stdctx.Context, nodeID string, inputs []string) ([]string, error) {
	agentURL, err := engine.metadata.GetAgentURL(context, nodeID)
	if err != nil {
		return nil, err
	}

	response, err := engine.agentCaller.Call(context, agentURL, agent.Request{DerivedAgentInput: inputs})
	if err != nil {
		return nil, apperr.Agent(err)
	}
	return response.DerivedAgentOutput, nil
}

// reconcileOutputs replaces nodeID's existing materialised outputs with
// newOutputs, reconnecting any downstream derived node that referenced an
// old output to the new output of matching rdf:type.
func (engine *Engine) reconcileOutputs(context stdctx.Context, nodeID string, newOutputs []string) error {
	oldOutputs, err := engine.metadata.GetDerivedEntities(context, nodeID)
	if err != nil {
		return err
	}
	if len(oldOutputs) == 0 {
		return nil
	}

	downstream, err := engine.metadata.GetIsDerivedFromEntities(context, oldOutputs)
	if err != nil {
		return err
	}

	hasDownstream := false
	for _, ref := range downstream {
		if len(ref.DownstreamNodes) > 0 {
			hasDownstream = true
			break
		}
	}

	if err := engine.metadata.DeleteInstances(context, oldOutputs); err != nil {
		return err
	}

	if !hasDownstream {
		return nil
	}

	newByType := make(map[string]string, len(newOutputs))
	for _, newEntity := range newOutputs {
		class, err := engine.metadata.GetInstanceClass(context, newEntity)
		if err != nil {
			return err
		}
		if _, duplicate := newByType[class]; duplicate {
			return apperr.Reconnection("multiple new entities share rdf:type " + class)
		}
		newByType[class] = newEntity
	}

	for _, ref := range downstream {
		for _, downstreamNode := range ref.DownstreamNodes {
			match, ok := newByType[ref.Type]
			if !ok {
				return apperr.Reconnection("no new entity matches rdf:type " + ref.Type)
			}
			if err := engine.metadata.ReconnectInput(context, match, downstreamNode); err != nil {
				return err
			}
		}
	}

	return nil
}

// Validate performs the same traversal and cycle detection as Update,
// additionally asserting that every visited derived node and every input
// has a readable timestamp. It makes no mutations.
func (engine *Engine) Validate(context stdctx.Context, nodeID string) (bool, error) {
	return engine.validateNode(context, nodeID, map[string]bool{})
}

func (engine *Engine) validateNode(context stdctx.Context, nodeID string, visited map[string]bool) (bool, error) {
	if visited[nodeID] {
		return false, apperr.CircularDependency(nodeID)
	}
	visited[nodeID] = true

	hasOwn, err := engine.hasTimestamp(context, nodeID)
	if err != nil {
		return false, err
	}
	if !hasOwn {
		return false, nil
	}

	inputs, err := engine.metadata.GetInputs(context, nodeID)
	if err != nil {
		return false, err
	}

	for _, input := range inputs {
		hasInput, err := engine.hasTimestamp(context, input)
		if err != nil {
			return false, err
		}
		if !hasInput {
			return false, nil
		}

		owner, err := engine.metadata.GetOwningDerived(context, input)
		if err != nil {
			return false, err
		}
		if owner == "" {
			continue
		}

		ok, err := engine.validateNode(context, owner, visited)
		if err != nil || !ok {
			return ok, err
		}
	}

	return true, nil
}

func (engine *Engine) hasTimestamp(context stdctx.Context, id string) (bool, error) {
	_, err := engine.metadata.GetTimestamp(context, id)
	if err == nil {
		return true, nil
	}
	if apperr.Is(err, "NOT_FOUND") {
		return false, nil
	}
	return false, err
}
