// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package timeseries

import (
	stdctx "context"
	"fmt"
	"strings"

	"github.com/anchorgraph/corestack/internal/gateway/sparql"
	"github.com/anchorgraph/corestack/internal/ontology"
	"github.com/anchorgraph/corestack/internal/platform/sparqlerr"
)

// SparqlMetadataStore is the [MetadataStore] backed by the Triple-Store
// Gateway collaborator. Every query and update it issues names predicates
// and classes through the ontology package's constants rather than
// inlining bare URIs.
type SparqlMetadataStore struct {
	client sparql.Client
}

// NewSparqlMetadataStore constructs a [MetadataStore] over the given gateway client.
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

func rdfType(instance, class string) string {
	return fmt.Sprintf("%s %s %s .\n", iriTerm(instance), iriTerm(ontology.PredRDFType), iriTerm(class))
}

// Init implements [MetadataStore.Init].
func (s *SparqlMetadataStore) Init(ctx stdctx.Context, spec InitSpec) error {
	var insert strings.Builder
	insert.WriteString(rdfType(spec.SeriesID, ontology.ClassTimeSeries))
	insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(spec.SeriesID), iriTerm(ontology.PredHasRDB), literalTerm(spec.DBURL)))
	for _, dataID := range spec.DataIDs {
		insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(dataID), iriTerm(ontology.PredHasTimeSeries), iriTerm(spec.SeriesID)))
	}
	if spec.TimeUnit != "" {
		insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(spec.SeriesID), iriTerm(ontology.PredHasTimeUnit), iriTerm(spec.TimeUnit)))
	}

	update := fmt.Sprintf("INSERT DATA {\n%s}", insert.String())
	if err := s.client.Update(ctx, update); err != nil {
		return sparqlerr.WrapWrite(err, "init_time_series")
	}
	return nil
}

// BulkInit implements [MetadataStore.BulkInit].
func (s *SparqlMetadataStore) BulkInit(ctx stdctx.Context, specs []InitSpec) error {
	var insert strings.Builder
	for _, spec := range specs {
		insert.WriteString(rdfType(spec.SeriesID, ontology.ClassTimeSeries))
		insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(spec.SeriesID), iriTerm(ontology.PredHasRDB), literalTerm(spec.DBURL)))
		for _, dataID := range spec.DataIDs {
			insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(dataID), iriTerm(ontology.PredHasTimeSeries), iriTerm(spec.SeriesID)))
		}
		if spec.TimeUnit != "" {
			insert.WriteString(fmt.Sprintf("%s %s %s .\n", iriTerm(spec.SeriesID), iriTerm(ontology.PredHasTimeUnit), iriTerm(spec.TimeUnit)))
		}
	}

	update := fmt.Sprintf("INSERT DATA {\n%s}", insert.String())
	if err := s.client.Update(ctx, update); err != nil {
		return sparqlerr.WrapWrite(err, "bulk_init_time_series")
	}
	return nil
}

// Exists implements [MetadataStore.Exists].
func (s *SparqlMetadataStore) Exists(ctx stdctx.Context, seriesID string) (bool, error) {
	ask := fmt.Sprintf("ASK { %s %s %s }", iriTerm(seriesID), iriTerm(ontology.PredRDFType), iriTerm(ontology.ClassTimeSeries))
	ok, err := s.client.Ask(ctx, ask)
	if err != nil {
		return false, sparqlerr.WrapRead(err, "time_series_exists")
	}
	return ok, nil
}

// Remove implements [MetadataStore.Remove].
func (s *SparqlMetadataStore) Remove(ctx stdctx.Context, seriesID string) error {
	update := fmt.Sprintf(`DELETE WHERE { %s ?p ?o }; DELETE WHERE { ?s ?p %s }`,
		iriTerm(seriesID), iriTerm(seriesID))
	if err := s.client.Update(ctx, update); err != nil {
		return sparqlerr.WrapWrite(err, "remove_time_series")
	}
	return nil
}

// RemoveAssociation implements [MetadataStore.RemoveAssociation].
func (s *SparqlMetadataStore) RemoveAssociation(ctx stdctx.Context, dataID string) error {
	update := fmt.Sprintf("DELETE WHERE { %s %s ?%s }",
		iriTerm(dataID), iriTerm(ontology.PredHasTimeSeries), ontology.VarSeries)
	if err := s.client.Update(ctx, update); err != nil {
		return sparqlerr.WrapWrite(err, "remove_association")
	}
	return nil
}

// InsertAssociation implements [MetadataStore.InsertAssociation].
func (s *SparqlMetadataStore) InsertAssociation(ctx stdctx.Context, dataID, seriesID string) error {
	update := fmt.Sprintf("INSERT DATA { %s %s %s }",
		iriTerm(dataID), iriTerm(ontology.PredHasTimeSeries), iriTerm(seriesID))
	if err := s.client.Update(ctx, update); err != nil {
		return sparqlerr.WrapWrite(err, "insert_association")
	}
	return nil
}

// AssociatedData implements [MetadataStore.AssociatedData].
func (s *SparqlMetadataStore) AssociatedData(ctx stdctx.Context, seriesID string) ([]string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { ?%s %s %s }",
		ontology.VarDataID, ontology.VarDataID, iriTerm(ontology.PredHasTimeSeries), iriTerm(seriesID))
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, sparqlerr.WrapRead(err, "associated_data")
	}

	dataIDs := make([]string, 0, len(bindings))
	for _, row := range bindings {
		if binding, ok := row[ontology.VarDataID]; ok {
			dataIDs = append(dataIDs, binding.Value)
		}
	}
	return dataIDs, nil
}

// GetSeriesOf implements [MetadataStore.GetSeriesOf].
func (s *SparqlMetadataStore) GetSeriesOf(ctx stdctx.Context, dataID string) (string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { %s %s ?%s }",
		ontology.VarSeries, iriTerm(dataID), iriTerm(ontology.PredHasTimeSeries), ontology.VarSeries)
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return "", sparqlerr.WrapRead(err, "get_series_of")
	}
	if len(bindings) == 0 {
		return "", nil
	}
	return bindings[0][ontology.VarSeries].Value, nil
}

// GetDBURL implements [MetadataStore.GetDBURL].
func (s *SparqlMetadataStore) GetDBURL(ctx stdctx.Context, seriesID string) (string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { %s %s ?%s }",
		ontology.VarDB, iriTerm(seriesID), iriTerm(ontology.PredHasRDB), ontology.VarDB)
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return "", sparqlerr.WrapRead(err, "get_db_url")
	}
	if len(bindings) == 0 {
		return "", sparqlerr.WrapRead(fmt.Errorf("no hasRDB fact for %s", seriesID), "get_db_url")
	}
	return bindings[0][ontology.VarDB].Value, nil
}

// GetTimeUnit implements [MetadataStore.GetTimeUnit].
func (s *SparqlMetadataStore) GetTimeUnit(ctx stdctx.Context, seriesID string) (string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { %s %s ?%s }",
		ontology.VarUnit, iriTerm(seriesID), iriTerm(ontology.PredHasTimeUnit), ontology.VarUnit)
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return "", sparqlerr.WrapRead(err, "get_time_unit")
	}
	if len(bindings) == 0 {
		return "", nil
	}
	return bindings[0][ontology.VarUnit].Value, nil
}

// Count implements [MetadataStore.Count].
func (s *SparqlMetadataStore) Count(ctx stdctx.Context) (int, error) {
	ids, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ListAll implements [MetadataStore.ListAll].
func (s *SparqlMetadataStore) ListAll(ctx stdctx.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT ?%s WHERE { ?%s %s %s }",
		ontology.VarSeries, ontology.VarSeries, iriTerm(ontology.PredRDFType), iriTerm(ontology.ClassTimeSeries))
	bindings, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, sparqlerr.WrapRead(err, "list_all_time_series")
	}

	ids := make([]string, 0, len(bindings))
	for _, row := range bindings {
		if binding, ok := row[ontology.VarSeries]; ok {
			ids = append(ids, binding.Value)
		}
	}
	return ids, nil
}

var _ MetadataStore = (*SparqlMetadataStore)(nil)
