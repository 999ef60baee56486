// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package timeseries

import (
	stdctx "context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorgraph/corestack/internal/platform/apperr"
)

// fakeConn satisfies pooledConn without dialing a real database. None of
// its methods are ever invoked by the tests below — fakeStorage never
// touches the connection it's handed — so they only need to exist.
type fakeConn struct{}

func (fakeConn) Exec(stdctx.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (fakeConn) Query(stdctx.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (fakeConn) QueryRow(stdctx.Context, string, ...any) pgx.Row        { return nil }
func (fakeConn) SendBatch(stdctx.Context, *pgx.Batch) pgx.BatchResults  { return nil }
func (fakeConn) Release()                                              {}

// fakePool satisfies connPool, optionally failing acquisition.
type fakePool struct {
	acquireErr error
}

func (p fakePool) Acquire(stdctx.Context) (pooledConn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return fakeConn{}, nil
}

// fakeStorage is a [Storage] whose Delete* behavior tests configure
// directly, so the compensation paths in Coordinator can be exercised
// without a real connection.
type fakeStorage struct {
	deleteTableErr    error
	deleteSeriesErr   error
	deleteTableCalls  []string
	deleteSeriesCalls []string
}

func (f *fakeStorage) InitTable(stdctx.Context, DBConn, InitTableSpec) error { return nil }
func (f *fakeStorage) AddData(stdctx.Context, DBConn, Sample) error         { return nil }
func (f *fakeStorage) GetWithinBounds(stdctx.Context, DBConn, []string, Bounds) ([]Row, error) {
	return nil, nil
}
func (f *fakeStorage) DeleteRows(stdctx.Context, DBConn, string, time.Time, time.Time) error {
	return nil
}
func (f *fakeStorage) DeleteSeries(_ stdctx.Context, _ DBConn, dataID string) error {
	f.deleteSeriesCalls = append(f.deleteSeriesCalls, dataID)
	return f.deleteSeriesErr
}
func (f *fakeStorage) DeleteTable(_ stdctx.Context, _ DBConn, dataID string) error {
	f.deleteTableCalls = append(f.deleteTableCalls, dataID)
	return f.deleteTableErr
}
func (f *fakeStorage) DeleteAll(stdctx.Context, DBConn) error { return nil }
func (f *fakeStorage) Average(stdctx.Context, DBConn, string, Bounds) (float64, error) {
	return 0, nil
}
func (f *fakeStorage) Max(stdctx.Context, DBConn, string, Bounds) (float64, error) { return 0, nil }
func (f *fakeStorage) Min(stdctx.Context, DBConn, string, Bounds) (float64, error) { return 0, nil }
func (f *fakeStorage) MaxTime(stdctx.Context, DBConn, string) (time.Time, error) {
	return time.Time{}, nil
}
func (f *fakeStorage) MinTime(stdctx.Context, DBConn, string) (time.Time, error) {
	return time.Time{}, nil
}
func (f *fakeStorage) LatestRow(stdctx.Context, DBConn, []string) (Row, error) { return Row{}, nil }
func (f *fakeStorage) OldestRow(stdctx.Context, DBConn, []string) (Row, error) { return Row{}, nil }
func (f *fakeStorage) TableExists(stdctx.Context, DBConn, string) (bool, error) {
	return false, nil
}
func (f *fakeStorage) HasLookupRow(stdctx.Context, DBConn, string) (bool, error) {
	return false, nil
}

var _ Storage = (*fakeStorage)(nil)

// fakeCompensationMetadata is a [MetadataStore] whose re-insert primitives
// (Init, InsertAssociation) can be made to fail on demand, so the
// storage-failure-then-compensation-failure path can be tested.
type fakeCompensationMetadata struct {
	dataIDs   map[string][]string
	seriesOf  map[string]string
	dbURLs    map[string]string
	timeUnits map[string]string

	initErr              error
	insertAssociationErr error

	initCalls              []InitSpec
	removeCalls            []string
	removeAssocCalls       []string
	insertAssociationCalls []string
}

func newFakeCompensationMetadata() *fakeCompensationMetadata {
	return &fakeCompensationMetadata{
		dataIDs:   map[string][]string{},
		seriesOf:  map[string]string{},
		dbURLs:    map[string]string{},
		timeUnits: map[string]string{},
	}
}

func (f *fakeCompensationMetadata) Init(_ stdctx.Context, spec InitSpec) error {
	f.initCalls = append(f.initCalls, spec)
	if f.initErr != nil {
		return f.initErr
	}
	f.dataIDs[spec.SeriesID] = spec.DataIDs
	f.dbURLs[spec.SeriesID] = spec.DBURL
	f.timeUnits[spec.SeriesID] = spec.TimeUnit
	return nil
}
func (f *fakeCompensationMetadata) BulkInit(ctx stdctx.Context, specs []InitSpec) error {
	for _, s := range specs {
		if err := f.Init(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
func (f *fakeCompensationMetadata) Exists(_ stdctx.Context, seriesID string) (bool, error) {
	_, ok := f.dataIDs[seriesID]
	return ok, nil
}
func (f *fakeCompensationMetadata) Remove(_ stdctx.Context, seriesID string) error {
	f.removeCalls = append(f.removeCalls, seriesID)
	delete(f.dataIDs, seriesID)
	return nil
}
func (f *fakeCompensationMetadata) RemoveAssociation(_ stdctx.Context, dataID string) error {
	f.removeAssocCalls = append(f.removeAssocCalls, dataID)
	return nil
}
func (f *fakeCompensationMetadata) InsertAssociation(_ stdctx.Context, dataID, seriesID string) error {
	f.insertAssociationCalls = append(f.insertAssociationCalls, dataID)
	if f.insertAssociationErr != nil {
		return f.insertAssociationErr
	}
	return nil
}
func (f *fakeCompensationMetadata) AssociatedData(_ stdctx.Context, seriesID string) ([]string, error) {
	return f.dataIDs[seriesID], nil
}
func (f *fakeCompensationMetadata) GetSeriesOf(_ stdctx.Context, dataID string) (string, error) {
	return f.seriesOf[dataID], nil
}
func (f *fakeCompensationMetadata) GetDBURL(_ stdctx.Context, seriesID string) (string, error) {
	return f.dbURLs[seriesID], nil
}
func (f *fakeCompensationMetadata) GetTimeUnit(_ stdctx.Context, seriesID string) (string, error) {
	return f.timeUnits[seriesID], nil
}
func (f *fakeCompensationMetadata) Count(stdctx.Context) (int, error) { return len(f.dataIDs), nil }
func (f *fakeCompensationMetadata) ListAll(stdctx.Context) ([]string, error) {
	ids := make([]string, 0, len(f.dataIDs))
	for id := range f.dataIDs {
		ids = append(ids, id)
	}
	return ids, nil
}

var _ MetadataStore = (*fakeCompensationMetadata)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCoordinator_DeleteTimeSeries_Success(t *testing.T) {
	metadata := newFakeCompensationMetadata()
	metadata.dataIDs["s1"] = []string{"d1", "d2"}
	metadata.dbURLs["s1"] = "jdbc:postgresql://localhost/tsdb"
	storage := &fakeStorage{}
	coordinator := newCoordinator(metadata, storage, fakePool{}, discardLogger())

	err := coordinator.DeleteTimeSeries(stdctx.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, metadata.removeCalls)
	assert.Equal(t, []string{"d1"}, storage.deleteTableCalls)
	assert.Empty(t, metadata.initCalls)
}

func TestCoordinator_DeleteTimeSeries_StorageFailsCompensationSucceeds(t *testing.T) {
	metadata := newFakeCompensationMetadata()
	metadata.dataIDs["s1"] = []string{"d1", "d2"}
	metadata.dbURLs["s1"] = "jdbc:postgresql://localhost/tsdb"
	storage := &fakeStorage{deleteTableErr: errors.New("drop table failed")}
	coordinator := newCoordinator(metadata, storage, fakePool{}, discardLogger())

	err := coordinator.DeleteTimeSeries(stdctx.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, "drop table failed", err.Error())
	assert.False(t, apperr.Is(err, "INCONSISTENT_STATE_ERROR"))
	require.Len(t, metadata.initCalls, 1)
	assert.Equal(t, "s1", metadata.initCalls[0].SeriesID)
	assert.ElementsMatch(t, []string{"d1", "d2"}, metadata.dataIDs["s1"])
}

func TestCoordinator_DeleteTimeSeries_StorageFailsAndCompensationFails(t *testing.T) {
	metadata := newFakeCompensationMetadata()
	metadata.dataIDs["s1"] = []string{"d1"}
	metadata.dbURLs["s1"] = "jdbc:postgresql://localhost/tsdb"
	metadata.initErr = errors.New("triple store unreachable")
	storage := &fakeStorage{deleteTableErr: errors.New("drop table failed")}
	coordinator := newCoordinator(metadata, storage, fakePool{}, discardLogger())

	err := coordinator.DeleteTimeSeries(stdctx.Background(), "s1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "INCONSISTENT_STATE_ERROR"))
}

func TestCoordinator_DeleteIndividual_DelegatesWhenOnlyDataID(t *testing.T) {
	metadata := newFakeCompensationMetadata()
	metadata.dataIDs["s1"] = []string{"d1"}
	metadata.dbURLs["s1"] = "jdbc:postgresql://localhost/tsdb"
	metadata.seriesOf["d1"] = "s1"
	storage := &fakeStorage{}
	coordinator := newCoordinator(metadata, storage, fakePool{}, discardLogger())

	err := coordinator.DeleteIndividual(stdctx.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, metadata.removeCalls)
	assert.Equal(t, []string{"d1"}, storage.deleteTableCalls)
	assert.Empty(t, storage.deleteSeriesCalls)
}

func TestCoordinator_DeleteIndividual_Success(t *testing.T) {
	metadata := newFakeCompensationMetadata()
	metadata.dataIDs["s1"] = []string{"d1", "d2"}
	metadata.seriesOf["d1"] = "s1"
	storage := &fakeStorage{}
	coordinator := newCoordinator(metadata, storage, fakePool{}, discardLogger())

	err := coordinator.DeleteIndividual(stdctx.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, metadata.removeAssocCalls)
	assert.Equal(t, []string{"d1"}, storage.deleteSeriesCalls)
}

func TestCoordinator_DeleteIndividual_StorageFailsCompensationSucceeds(t *testing.T) {
	metadata := newFakeCompensationMetadata()
	metadata.dataIDs["s1"] = []string{"d1", "d2"}
	metadata.seriesOf["d1"] = "s1"
	storage := &fakeStorage{deleteSeriesErr: errors.New("drop column failed")}
	coordinator := newCoordinator(metadata, storage, fakePool{}, discardLogger())

	err := coordinator.DeleteIndividual(stdctx.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, "drop column failed", err.Error())
	assert.False(t, apperr.Is(err, "INCONSISTENT_STATE_ERROR"))
	assert.Equal(t, []string{"d1"}, metadata.insertAssociationCalls)
}

func TestCoordinator_DeleteIndividual_StorageFailsAndCompensationFails(t *testing.T) {
	metadata := newFakeCompensationMetadata()
	metadata.dataIDs["s1"] = []string{"d1", "d2"}
	metadata.seriesOf["d1"] = "s1"
	metadata.insertAssociationErr = errors.New("triple store unreachable")
	storage := &fakeStorage{deleteSeriesErr: errors.New("drop column failed")}
	coordinator := newCoordinator(metadata, storage, fakePool{}, discardLogger())

	err := coordinator.DeleteIndividual(stdctx.Background(), "d1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, "INCONSISTENT_STATE_ERROR"))
}
