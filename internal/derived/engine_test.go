// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package derived_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorgraph/corestack/internal/derived"
	"github.com/anchorgraph/corestack/internal/gateway/agent"
	"github.com/anchorgraph/corestack/internal/platform/apperr"
)

type fakeMetadataStore struct {
	agentURLs    map[string]string
	inputs       map[string][]string
	timestamps   map[string]int64
	owners       map[string]string
	outputs      map[string][]string
	downstream   map[string]derived.DownstreamReference
	classes      map[string]string
	timeSeries   map[string]bool
	reconnected  []string
	deleted      []string
	updatedStamp map[string]int64
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		agentURLs:    map[string]string{},
		inputs:       map[string][]string{},
		timestamps:   map[string]int64{},
		owners:       map[string]string{},
		outputs:      map[string][]string{},
		downstream:   map[string]derived.DownstreamReference{},
		classes:      map[string]string{},
		timeSeries:   map[string]bool{},
		updatedStamp: map[string]int64{},
	}
}

func (f *fakeMetadataStore) Init(ctx context.Context, spec derived.InitSpec) error { return nil }

func (f *fakeMetadataStore) GetAgentURL(ctx context.Context, nodeID string) (string, error) {
	url, ok := f.agentURLs[nodeID]
	if !ok {
		return "", apperr.NotFound("agent url")
	}
	return url, nil
}

func (f *fakeMetadataStore) GetInputs(ctx context.Context, nodeID string) ([]string, error) {
	return f.inputs[nodeID], nil
}

func (f *fakeMetadataStore) GetTimestamp(ctx context.Context, instanceID string) (int64, error) {
	ts, ok := f.timestamps[instanceID]
	if !ok {
		return 0, apperr.NotFound("timestamp")
	}
	return ts, nil
}

func (f *fakeMetadataStore) UpdateTimestamp(ctx context.Context, instanceID string, t int64) error {
	f.timestamps[instanceID] = t
	f.updatedStamp[instanceID] = t
	return nil
}

func (f *fakeMetadataStore) GetDerivedEntities(ctx context.Context, nodeID string) ([]string, error) {
	return f.outputs[nodeID], nil
}

func (f *fakeMetadataStore) GetIsDerivedFromEntities(ctx context.Context, entityIDs []string) (map[string]derived.DownstreamReference, error) {
	result := make(map[string]derived.DownstreamReference, len(entityIDs))
	for _, id := range entityIDs {
		result[id] = f.downstream[id]
	}
	return result, nil
}

func (f *fakeMetadataStore) GetOwningDerived(ctx context.Context, entityID string) (string, error) {
	return f.owners[entityID], nil
}

func (f *fakeMetadataStore) GetInstanceClass(ctx context.Context, id string) (string, error) {
	class, ok := f.classes[id]
	if !ok {
		return "", apperr.NotFound("class")
	}
	return class, nil
}

func (f *fakeMetadataStore) IsDerivedWithTimeSeries(ctx context.Context, nodeID string) (bool, error) {
	return f.timeSeries[nodeID], nil
}

func (f *fakeMetadataStore) ReconnectInput(ctx context.Context, newEntity, downstreamDerived string) error {
	f.reconnected = append(f.reconnected, newEntity+"->"+downstreamDerived)
	return nil
}

func (f *fakeMetadataStore) DeleteInstances(ctx context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

var _ derived.MetadataStore = (*fakeMetadataStore)(nil)

type fakeAgentCaller struct {
	response *agent.Response
	err      error
	calls    int
}

func (f *fakeAgentCaller) Call(ctx context.Context, url string, body agent.Request) (*agent.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

var _ agent.Caller = (*fakeAgentCaller)(nil)

func TestEngine_Update_LeafNodeNoOp(t *testing.T) {
	store := newFakeMetadataStore()
	caller := &fakeAgentCaller{}
	engine := derived.NewEngine(store, caller, nil)

	err := engine.Update(context.Background(), "leaf-1")
	require.NoError(t, err)
	assert.Equal(t, 0, caller.calls)
}

func TestEngine_Update_SkipsFreshNode(t *testing.T) {
	store := newFakeMetadataStore()
	store.inputs["node-1"] = []string{"input-1"}
	store.timestamps["node-1"] = 100
	store.timestamps["input-1"] = 50

	caller := &fakeAgentCaller{}
	engine := derived.NewEngine(store, caller, nil)

	err := engine.Update(context.Background(), "node-1")
	require.NoError(t, err)
	assert.Equal(t, 0, caller.calls)
}

func TestEngine_Update_RecomputesOutOfDateNode(t *testing.T) {
	store := newFakeMetadataStore()
	store.inputs["node-1"] = []string{"input-1"}
	store.timestamps["node-1"] = 10
	store.timestamps["input-1"] = 50
	store.agentURLs["node-1"] = "http://agent.local/compute"
	store.timeSeries["node-1"] = true

	caller := &fakeAgentCaller{response: &agent.Response{DerivedAgentOutput: []string{"output-1"}}}
	engine := derived.NewEngine(store, caller, nil)

	err := engine.Update(context.Background(), "node-1")
	require.NoError(t, err)
	assert.Equal(t, 1, caller.calls)
	assert.NotZero(t, store.updatedStamp["node-1"])
}

func TestEngine_Update_DetectsCircularDependency(t *testing.T) {
	store := newFakeMetadataStore()
	store.inputs["node-a"] = []string{"output-b"}
	store.owners["output-b"] = "node-b"
	store.inputs["node-b"] = []string{"output-a"}
	store.owners["output-a"] = "node-a"

	engine := derived.NewEngine(store, &fakeAgentCaller{}, nil)

	err := engine.Update(context.Background(), "node-a")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "CIRCULAR_DEPENDENCY_ERROR"))
}

func TestEngine_Update_ReconciliationReconnectsDownstream(t *testing.T) {
	store := newFakeMetadataStore()
	store.inputs["node-1"] = []string{"input-1"}
	store.timestamps["node-1"] = 10
	store.timestamps["input-1"] = 50
	store.agentURLs["node-1"] = "http://agent.local/compute"
	store.outputs["node-1"] = []string{"old-output"}
	store.downstream["old-output"] = derived.DownstreamReference{
		DownstreamNodes: []string{"downstream-node"},
		Type:            "https://example.org/Temperature",
	}
	store.classes["new-output"] = "https://example.org/Temperature"

	caller := &fakeAgentCaller{response: &agent.Response{DerivedAgentOutput: []string{"new-output"}}}
	engine := derived.NewEngine(store, caller, nil)

	err := engine.Update(context.Background(), "node-1")
	require.NoError(t, err)
	assert.Contains(t, store.deleted, "old-output")
	assert.Contains(t, store.reconnected, "new-output->downstream-node")
}

func TestEngine_Update_ReconciliationMissingMatchFails(t *testing.T) {
	store := newFakeMetadataStore()
	store.inputs["node-1"] = []string{"input-1"}
	store.timestamps["node-1"] = 10
	store.timestamps["input-1"] = 50
	store.agentURLs["node-1"] = "http://agent.local/compute"
	store.outputs["node-1"] = []string{"old-output"}
	store.downstream["old-output"] = derived.DownstreamReference{
		DownstreamNodes: []string{"downstream-node"},
		Type:            "https://example.org/Temperature",
	}
	store.classes["new-output"] = "https://example.org/Pressure"

	caller := &fakeAgentCaller{response: &agent.Response{DerivedAgentOutput: []string{"new-output"}}}
	engine := derived.NewEngine(store, caller, nil)

	err := engine.Update(context.Background(), "node-1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "RECONNECTION_ERROR"))
}

func TestEngine_Validate_FailsOnMissingTimestamp(t *testing.T) {
	store := newFakeMetadataStore()
	store.inputs["node-1"] = []string{"input-1"}
	store.timestamps["node-1"] = 10

	engine := derived.NewEngine(store, &fakeAgentCaller{}, nil)

	valid, err := engine.Validate(context.Background(), "node-1")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestEngine_Validate_PassesWhenAllTimestampsPresent(t *testing.T) {
	store := newFakeMetadataStore()
	store.inputs["node-1"] = []string{"input-1"}
	store.timestamps["node-1"] = 10
	store.timestamps["input-1"] = 5

	engine := derived.NewEngine(store, &fakeAgentCaller{}, nil)

	valid, err := engine.Validate(context.Background(), "node-1")
	require.NoError(t, err)
	assert.True(t, valid)
}
