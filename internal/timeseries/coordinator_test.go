// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package timeseries_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorgraph/corestack/internal/platform/apperr"
	"github.com/anchorgraph/corestack/internal/timeseries"
)

type fakeMetadataStore struct {
	series     map[string]bool
	dataIDs    map[string][]string
	seriesOf   map[string]string
	dbURLs     map[string]string
	timeUnits  map[string]string
	removed    []string
	unassoc    []string
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		series:    map[string]bool{},
		dataIDs:   map[string][]string{},
		seriesOf:  map[string]string{},
		dbURLs:    map[string]string{},
		timeUnits: map[string]string{},
	}
}

func (f *fakeMetadataStore) Init(ctx context.Context, spec timeseries.InitSpec) error {
	f.series[spec.SeriesID] = true
	f.dataIDs[spec.SeriesID] = spec.DataIDs
	f.dbURLs[spec.SeriesID] = spec.DBURL
	f.timeUnits[spec.SeriesID] = spec.TimeUnit
	return nil
}

func (f *fakeMetadataStore) BulkInit(ctx context.Context, specs []timeseries.InitSpec) error {
	for _, s := range specs {
		if err := f.Init(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeMetadataStore) Exists(ctx context.Context, seriesID string) (bool, error) {
	return f.series[seriesID], nil
}

func (f *fakeMetadataStore) Remove(ctx context.Context, seriesID string) error {
	f.removed = append(f.removed, seriesID)
	delete(f.series, seriesID)
	return nil
}

func (f *fakeMetadataStore) RemoveAssociation(ctx context.Context, dataID string) error {
	f.unassoc = append(f.unassoc, dataID)
	return nil
}

func (f *fakeMetadataStore) InsertAssociation(ctx context.Context, dataID, seriesID string) error {
	return nil
}

func (f *fakeMetadataStore) AssociatedData(ctx context.Context, seriesID string) ([]string, error) {
	return f.dataIDs[seriesID], nil
}

func (f *fakeMetadataStore) GetSeriesOf(ctx context.Context, dataID string) (string, error) {
	return f.seriesOf[dataID], nil
}

func (f *fakeMetadataStore) GetDBURL(ctx context.Context, seriesID string) (string, error) {
	return f.dbURLs[seriesID], nil
}

func (f *fakeMetadataStore) GetTimeUnit(ctx context.Context, seriesID string) (string, error) {
	return f.timeUnits[seriesID], nil
}

func (f *fakeMetadataStore) Count(ctx context.Context) (int, error) {
	return len(f.series), nil
}

func (f *fakeMetadataStore) ListAll(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.series))
	for id := range f.series {
		ids = append(ids, id)
	}
	return ids, nil
}

var _ timeseries.MetadataStore = (*fakeMetadataStore)(nil)

func TestCoordinator_InitTimeSeries_PreconditionMismatch(t *testing.T) {
	metadata := newFakeMetadataStore()
	coordinator := timeseries.NewCoordinator(metadata, nil, nil, nil)

	spec := timeseries.InitSpec{SeriesID: "https://example.org/series-1", DataIDs: []string{"https://example.org/d1", "https://example.org/d2"}}
	classes := []timeseries.ColumnClass{timeseries.ColumnDouble}

	err := coordinator.InitTimeSeries(context.Background(), spec, classes)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "PRECONDITION_ERROR"))
}

func TestCoordinator_BulkInitTimeSeries_PreconditionMismatch(t *testing.T) {
	metadata := newFakeMetadataStore()
	coordinator := timeseries.NewCoordinator(metadata, nil, nil, nil)

	specs := []timeseries.InitSpec{{SeriesID: "https://example.org/series-1", DataIDs: []string{"https://example.org/d1"}}}
	classes := [][]timeseries.ColumnClass{}

	err := coordinator.BulkInitTimeSeries(context.Background(), specs, classes)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "PRECONDITION_ERROR"))
}

func TestCoordinator_DeleteTimeSeries_NotFound(t *testing.T) {
	metadata := newFakeMetadataStore()
	coordinator := timeseries.NewCoordinator(metadata, nil, nil, nil)

	err := coordinator.DeleteTimeSeries(context.Background(), "https://example.org/unknown-series")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "NOT_FOUND"))
}

func TestCoordinator_DeleteIndividual_NotFound(t *testing.T) {
	metadata := newFakeMetadataStore()
	coordinator := timeseries.NewCoordinator(metadata, nil, nil, nil)

	err := coordinator.DeleteIndividual(context.Background(), "https://example.org/unknown-data")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "NOT_FOUND"))
}

func TestCoordinator_GetSeries_NotFound(t *testing.T) {
	metadata := newFakeMetadataStore()
	coordinator := timeseries.NewCoordinator(metadata, nil, nil, nil)

	_, err := coordinator.GetSeries(context.Background(), "https://example.org/unknown-series")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "NOT_FOUND"))
}

func TestCoordinator_GetSeries_Success(t *testing.T) {
	metadata := newFakeMetadataStore()
	coordinator := timeseries.NewCoordinator(metadata, nil, nil, nil)

	spec := timeseries.InitSpec{
		SeriesID: "https://example.org/series-1",
		DataIDs:  []string{"https://example.org/d1", "https://example.org/d2"},
		DBURL:    "jdbc:postgresql://localhost/tsdb",
		TimeUnit: "https://example.org/second",
	}
	require.NoError(t, metadata.Init(context.Background(), spec))

	series, err := coordinator.GetSeries(context.Background(), spec.SeriesID)
	require.NoError(t, err)
	assert.Equal(t, spec.SeriesID, series.SeriesID)
	assert.Equal(t, spec.DBURL, series.DBURL)
	assert.ElementsMatch(t, spec.DataIDs, series.DataIDs)
}
