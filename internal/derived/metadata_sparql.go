// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package derived

import (
	stdctx "context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anchorgraph/corestack/internal/gateway/sparql"
	"github.com/anchorgraph/corestack/internal/ontology"
	"github.com/anchorgraph/corestack/internal/platform/apperr"
	"github.com/anchorgraph/corestack/internal/platform/sparqlerr"
	"github.com/anchorgraph/corestack/pkg/uuidv7"
)

// SparqlMetadataStore is the [MetadataStore] backed by the Triple-Store
// Gateway collaborator. Every query and update it issues names predicates
// and classes through the ontology package's constants rather than
// inlining bare URIs.
type SparqlMetadataStore struct {
	client sparql.Client
}

// NewSparqlMetadataStore constructs a [MetadataStore] over the given
// gateway client.
func NewSparqlMetadataStore(client sparql.Client) *SparqlMetadataStore {
	return &SparqlMetadataStore{client: client}
}

func iriTerm(iri string) string {
	return "<" + iri + ">"
}

func literalTerm(value string) string {
	escaped := strings.ReplaceAll(value, `"`, `\"`)
	return `"` + escaped + `"`
}

func intTerm(value int64) string {
	return fmt.Sprintf(`"%d"^^<http://www.w3.org/2001/XMLSchema#integer>`, value)
}

func rdfType(instance, class string) string {
	return fmt.Sprintf("%s %s %s .\n", iriTerm(instance), iriTerm(ontology.PredRDFType), iriTerm(class))
}

// Init implements [MetadataStore.Init].
func (s *SparqlMetadataStore) Init(ctx stdctx.Context, spec InitSpec) error {
	ask := fmt.Sprintf("ASK { %s %s %s }", iriTerm(spec.NodeID), iriTerm(ontology.PredRDFType), iriTerm(ontology.ClassDerived))
	already, err := s.client.Ask(ctx, ask)
	if err != nil {
		return sparqlerr.WrapRead(err, "check_derived_exists")
	}
	if already {
		return apperr.Conflict("derived node " + spec.NodeID + " is already initialised")
	}

	position := time.Now().Unix()
	if spec.Time != nil {
		position = *spec.Time
	}
	timePositionID := s.mintTimePositionID()

	var insert strings.Builder
	insert.WriteString(rdfType(spec.NodeID, ontology.ClassDerived))
	insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(spec.NodeID), iriTerm(ontology.PredIsDerivedUsing), iriTerm(spec.AgentID)))
	insert.WriteString(rdfType(spec.AgentID, ontology.ClassService))
	insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(spec.AgentID), iriTerm(ontology.PredHasHttpUrl), literalTerm(spec.AgentURL)))
	insert.WriteString(rdfType(timePositionID, ontology.ClassTimePosition))
	insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(timePositionID), iriTerm(ontology.PredNumericPosition), intTerm(position)))
	insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(spec.NodeID), iriTerm(ontology.PredHasTime), iriTerm(timePositionID)))
	for _, input := range spec.Inputs {
		insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(spec.NodeID), iriTerm(ontology.PredIsDerivedFrom), iriTerm(input)))
	}

	update := fmt.Sprintf("INSERT DATA {\n%s}", insert.String())
	if err := s.client.Update(ctx, update); err != nil {
		return sparqlerr.WrapWrite(err, "init_derived")
	}
	return nil
}

// mintTimePositionID mints a fresh time-position identifier using a
// time-ordered UUID. The source implementation counted existing
// time-positions and probed each candidate with ASK to avoid collisions —
// a count-then-probe race between concurrent callers. A UUIDv7 carries
// enough entropy to make collision practically impossible without any
// store round-trip, so every time-position identifier is unique by
// construction instead of by probing.
func (s *SparqlMetadataStore) mintTimePositionID() string {
	return ontology.NSDerived + "TimePosition_" + uuidv7.New()
}

// GetAgentURL implements [MetadataStore.GetAgentURL].
func (s *SparqlMetadataStore) GetAgentURL(ctx stdctx.Context, nodeID string) (string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { %s %s ?%s . ?%s %s ?%s }",
		ontology.VarAgentURL, iriTerm(nodeID), iriTerm(ontology.PredIsDerivedUsing), ontology.VarAgent,
		ontology.VarAgent, iriTerm(ontology.PredHasHttpUrl), ontology.VarAgentURL)
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return "", sparqlerr.WrapRead(err, "get_agent_url")
	}
	if len(bindings) == 0 {
		return "", apperr.NotFound("agent url for " + nodeID)
	}
	return bindings[0][ontology.VarAgentURL].Value, nil
}

// GetInputs implements [MetadataStore.GetInputs].
func (s *SparqlMetadataStore) GetInputs(ctx stdctx.Context, nodeID string) ([]string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { %s %s ?%s }",
		ontology.VarInput, iriTerm(nodeID), iriTerm(ontology.PredIsDerivedFrom), ontology.VarInput)
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, sparqlerr.WrapRead(err, "get_inputs")
	}

	inputs := make([]string, 0, len(bindings))
	for _, row := range bindings {
		if binding, ok := row[ontology.VarInput]; ok {
			inputs = append(inputs, binding.Value)
		}
	}
	return inputs, nil
}

// GetTimestamp implements [MetadataStore.GetTimestamp].
func (s *SparqlMetadataStore) GetTimestamp(ctx stdctx.Context, instanceID string) (int64, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { %s %s ?%s . ?%s %s ?%s }",
		ontology.VarTime, iriTerm(instanceID), iriTerm(ontology.PredHasTime), ontology.VarTimePos,
		ontology.VarTimePos, iriTerm(ontology.PredNumericPosition), ontology.VarTime)
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return 0, sparqlerr.WrapRead(err, "get_timestamp")
	}
	if len(bindings) == 0 {
		return 0, apperr.NotFound("timestamp for " + instanceID)
	}

	position, err := strconv.ParseInt(bindings[0][ontology.VarTime].Value, 10, 64)
	if err != nil {
		return 0, sparqlerr.WrapRead(fmt.Errorf("malformed numericPosition for %s: %w", instanceID, err), "get_timestamp")
	}
	return position, nil
}

// UpdateTimestamp implements [MetadataStore.UpdateTimestamp].
func (s *SparqlMetadataStore) UpdateTimestamp(ctx stdctx.Context, instanceID string, t int64) error {
	hasTime := fmt.Sprintf("ASK { %s %s ?%s }", iriTerm(instanceID), iriTerm(ontology.PredHasTime), ontology.VarTimePos)
	exists, err := s.client.Ask(ctx, hasTime)
	if err != nil {
		return sparqlerr.WrapRead(err, "check_has_time")
	}

	if !exists {
		timePositionID := s.mintTimePositionID()
		var insert strings.Builder
		insert.WriteString(rdfType(timePositionID, ontology.ClassTimePosition))
		insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(timePositionID), iriTerm(ontology.PredNumericPosition), intTerm(t)))
		insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(instanceID), iriTerm(ontology.PredHasTime), iriTerm(timePositionID)))
		update := fmt.Sprintf("INSERT DATA {\n%s}", insert.String())
		if err := s.client.Update(ctx, update); err != nil {
			return sparqlerr.WrapWrite(err, "insert_timestamp")
		}
		return nil
	}

	update := fmt.Sprintf(
		"DELETE { ?%s %s ?old }\nINSERT { ?%s %s %s }\nWHERE { %s %s ?%s . ?%s %s ?old }",
		ontology.VarTimePos, iriTerm(ontology.PredNumericPosition),
		ontology.VarTimePos, iriTerm(ontology.PredNumericPosition), intTerm(t),
		iriTerm(instanceID), iriTerm(ontology.PredHasTime), ontology.VarTimePos,
		ontology.VarTimePos, iriTerm(ontology.PredNumericPosition))
	if err := s.client.Update(ctx, update); err != nil {
		return sparqlerr.WrapWrite(err, "update_timestamp")
	}
	return nil
}

// GetDerivedEntities implements [MetadataStore.GetDerivedEntities].
func (s *SparqlMetadataStore) GetDerivedEntities(ctx stdctx.Context, nodeID string) ([]string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { ?%s %s %s }",
		ontology.VarEntity, ontology.VarEntity, iriTerm(ontology.PredBelongsTo), iriTerm(nodeID))
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, sparqlerr.WrapRead(err, "get_derived_entities")
	}

	entities := make([]string, 0, len(bindings))
	for _, row := range bindings {
		if binding, ok := row[ontology.VarEntity]; ok {
			entities = append(entities, binding.Value)
		}
	}
	return entities, nil
}

// GetIsDerivedFromEntities implements [MetadataStore.GetIsDerivedFromEntities].
func (s *SparqlMetadataStore) GetIsDerivedFromEntities(ctx stdctx.Context, entityIDs []string) (map[string]DownstreamReference, error) {
	result := make(map[string]DownstreamReference, len(entityIDs))
	for _, entityID := range entityIDs {
		class, err := s.GetInstanceClass(ctx, entityID)
		if err != nil {
			return nil, err
		}

		query := fmt.Sprintf("SELECT ?%s WHERE { ?%s %s %s }",
			ontology.VarDerived, ontology.VarDerived, iriTerm(ontology.PredIsDerivedFrom), iriTerm(entityID))
		bindings, err := s.client.Query(ctx, query)
		if err != nil {
			return nil, sparqlerr.WrapRead(err, "get_is_derived_from_entities")
		}

		downstream := make([]string, 0, len(bindings))
		for _, row := range bindings {
			if binding, ok := row[ontology.VarDerived]; ok {
				downstream = append(downstream, binding.Value)
			}
		}

		result[entityID] = DownstreamReference{DownstreamNodes: downstream, Type: class}
	}
	return result, nil
}

// GetOwningDerived implements [MetadataStore.GetOwningDerived].
func (s *SparqlMetadataStore) GetOwningDerived(ctx stdctx.Context, entityID string) (string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { %s %s ?%s }",
		ontology.VarDerived, iriTerm(entityID), iriTerm(ontology.PredBelongsTo), ontology.VarDerived)
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return "", sparqlerr.WrapRead(err, "get_owning_derived")
	}
	if len(bindings) == 0 {
		return "", nil
	}
	return bindings[0][ontology.VarDerived].Value, nil
}

// GetInstanceClass implements [MetadataStore.GetInstanceClass].
func (s *SparqlMetadataStore) GetInstanceClass(ctx stdctx.Context, id string) (string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { %s %s ?%s }",
		ontology.VarType, iriTerm(id), iriTerm(ontology.PredRDFType), ontology.VarType)
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return "", sparqlerr.WrapRead(err, "get_instance_class")
	}
	if len(bindings) == 0 {
		return "", apperr.NotFound("rdf:type for " + id)
	}
	return bindings[0][ontology.VarType].Value, nil
}

// IsDerivedWithTimeSeries implements [MetadataStore.IsDerivedWithTimeSeries].
func (s *SparqlMetadataStore) IsDerivedWithTimeSeries(ctx stdctx.Context, nodeID string) (bool, error) {
	ask := fmt.Sprintf("ASK { %s %s %s }", iriTerm(nodeID), iriTerm(ontology.PredRDFType), iriTerm(ontology.ClassDerivedWithTimeSeries))
	exists, err := s.client.Ask(ctx, ask)
	if err != nil {
		return false, sparqlerr.WrapRead(err, "is_derived_with_time_series")
	}
	return exists, nil
}

// ReconnectInput implements [MetadataStore.ReconnectInput].
func (s *SparqlMetadataStore) ReconnectInput(ctx stdctx.Context, newEntity, downstreamDerived string) error {
	update := fmt.Sprintf("INSERT DATA { %s %s %s }",
		iriTerm(downstreamDerived), iriTerm(ontology.PredIsDerivedFrom), iriTerm(newEntity))
	if err := s.client.Update(ctx, update); err != nil {
		return sparqlerr.WrapWrite(err, "reconnect_input")
	}
	return nil
}

// DeleteInstances implements [MetadataStore.DeleteInstances].
func (s *SparqlMetadataStore) DeleteInstances(ctx stdctx.Context, ids []string) error {
	var deletes strings.Builder
	for _, id := range ids {
		deletes.WriteString(fmt.Sprintf("DELETE WHERE { %s ?p ?o };\n", iriTerm(id)))
		deletes.WriteString(fmt.Sprintf("DELETE WHERE { ?s ?p %s };\n", iriTerm(id)))
	}
	if err := s.client.Update(ctx, deletes.String()); err != nil {
		return sparqlerr.WrapWrite(err, "delete_instances")
	}
	return nil
}

var _ MetadataStore = (*SparqlMetadataStore)(nil)
