// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package timeseries

import (
	stdctx "context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anchorgraph/corestack/internal/platform/apperr"
)

// pooledConn is the connection handle Coordinator borrows for a single
// Storage call: the query surface Storage needs, plus Release so the
// connection goes back to the pool. *pgxpool.Conn satisfies this already.
type pooledConn interface {
	DBConn
	Release()
}

// connPool is the minimal surface Coordinator needs to borrow a pooledConn.
// *pgxpool.Pool satisfies this through pgxPoolAdapter; tests substitute a
// fake that never dials a real database.
type connPool interface {
	Acquire(ctx stdctx.Context) (pooledConn, error)
}

// pgxPoolAdapter adapts a *pgxpool.Pool to [connPool].
type pgxPoolAdapter struct {
	pool *pgxpool.Pool
}

func (a pgxPoolAdapter) Acquire(ctx stdctx.Context) (pooledConn, error) {
	return a.pool.Acquire(ctx)
}

// Coordinator composes a [MetadataStore] and a [Storage] behind the
// snapshot-mutate-compensate discipline: every operation that touches both
// stores mutates the triple store first, then the relational store, and on
// relational failure undoes the triple-store write. If the undo itself
// fails the caller gets apperr.InconsistentState naming the orphaned
// identifier instead of a generic error.
type Coordinator struct {
	metadata MetadataStore
	storage  Storage
	pool     connPool
	logger   *slog.Logger
}

// NewCoordinator constructs a Coordinator over the given metadata store,
// relational storage, and connection pool.
func NewCoordinator(metadata MetadataStore, storage Storage, pool *pgxpool.Pool, logger *slog.Logger) *Coordinator {
	return newCoordinator(metadata, storage, pgxPoolAdapter{pool: pool}, logger)
}

func newCoordinator(metadata MetadataStore, storage Storage, pool connPool, logger *slog.Logger) *Coordinator {
	return &Coordinator{metadata: metadata, storage: storage, pool: pool, logger: logger}
}

// InitTimeSeries creates one new time-series: metadata facts first, then the
// relational table. If the relational step fails, the metadata facts are
// removed before the error is returned; if that removal also fails, the
// caller gets apperr.InconsistentState naming the series.
func (coordinator *Coordinator) InitTimeSeries(context stdctx.Context, spec InitSpec, dataClasses []ColumnClass) error {
	if len(spec.DataIDs) != len(dataClasses) {
		return apperr.Precondition("data-ids and data-classes must have equal length")
	}

	if err := coordinator.metadata.Init(context, spec); err != nil {
		return err
	}

	conn, err := coordinator.pool.Acquire(context)
	if err != nil {
		if compErr := coordinator.compensateMetadataInit(context, spec.SeriesID); compErr != nil {
			return compErr
		}
		return apperr.Storage(err)
	}
	defer conn.Release()

	tableSpec := InitTableSpec{DataIDs: spec.DataIDs, DataClasses: dataClasses, SeriesID: spec.SeriesID}
	if err := coordinator.storage.InitTable(context, conn, tableSpec); err != nil {
		if compErr := coordinator.compensateMetadataInit(context, spec.SeriesID); compErr != nil {
			return compErr
		}
		return err
	}

	return nil
}

// compensateMetadataInit removes seriesID's metadata after a failed storage
// step. It returns nil if the removal succeeded, or apperr.InconsistentState
// if the metadata facts are left behind in the triple store.
func (coordinator *Coordinator) compensateMetadataInit(context stdctx.Context, seriesID string) error {
	if err := coordinator.metadata.Remove(context, seriesID); err != nil {
		coordinator.logger.Error("compensation failed after init-time-series",
			slog.String("series_id", seriesID), slog.String("error", err.Error()))
		return apperr.InconsistentState(seriesID, "triple store", err)
	}
	return nil
}

// BulkInitTimeSeries creates many time-series in one batch. Metadata for the
// whole batch is written first, then the relational tables one by one. If a
// series' table fails to create, the metadata of that series and of every
// later series (whose tables were never attempted) is removed; series whose
// tables were already created keep their metadata. If a removal fails, the
// caller gets apperr.InconsistentState naming the first such series.
func (coordinator *Coordinator) BulkInitTimeSeries(context stdctx.Context, specs []InitSpec, dataClasses [][]ColumnClass) error {
	if len(specs) != len(dataClasses) {
		return apperr.Precondition("specs and data-classes must have equal length")
	}
	for i, spec := range specs {
		if len(spec.DataIDs) != len(dataClasses[i]) {
			return apperr.Precondition("data-ids and data-classes must have equal length for every series")
		}
	}

	if err := coordinator.metadata.BulkInit(context, specs); err != nil {
		return err
	}

	conn, err := coordinator.pool.Acquire(context)
	if err != nil {
		if compErr := coordinator.compensateBulkInit(context, specs); compErr != nil {
			return compErr
		}
		return apperr.Storage(err)
	}
	defer conn.Release()

	for i, spec := range specs {
		tableSpec := InitTableSpec{DataIDs: spec.DataIDs, DataClasses: dataClasses[i], SeriesID: spec.SeriesID}
		if err := coordinator.storage.InitTable(context, conn, tableSpec); err != nil {
			if compErr := coordinator.compensateBulkInit(context, specs[i:]); compErr != nil {
				return compErr
			}
			return err
		}
	}

	return nil
}

func (coordinator *Coordinator) compensateBulkInit(context stdctx.Context, specs []InitSpec) error {
	var firstErr error
	for _, spec := range specs {
		if err := coordinator.metadata.Remove(context, spec.SeriesID); err != nil {
			coordinator.logger.Error("compensation failed after bulk-init-time-series",
				slog.String("series_id", spec.SeriesID), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = apperr.InconsistentState(spec.SeriesID, "triple store", err)
			}
		}
	}
	return firstErr
}

// DeleteTimeSeries removes an entire time-series: its metadata facts first,
// then its relational table. If the table drop fails, the metadata facts
// are re-inserted from a snapshot taken before removal. If that re-insert
// also fails, the caller gets apperr.InconsistentState naming the series as
// requiring manual reconciliation against the surviving relational table.
func (coordinator *Coordinator) DeleteTimeSeries(context stdctx.Context, seriesID string) error {
	dataIDs, err := coordinator.metadata.AssociatedData(context, seriesID)
	if err != nil {
		return err
	}
	if len(dataIDs) == 0 {
		return apperr.NotFound("time-series " + seriesID)
	}

	dbURL, err := coordinator.metadata.GetDBURL(context, seriesID)
	if err != nil {
		return err
	}
	timeUnit, err := coordinator.metadata.GetTimeUnit(context, seriesID)
	if err != nil {
		return err
	}
	snapshot := InitSpec{SeriesID: seriesID, DataIDs: dataIDs, DBURL: dbURL, TimeUnit: timeUnit}

	if err := coordinator.metadata.Remove(context, seriesID); err != nil {
		return err
	}

	conn, err := coordinator.pool.Acquire(context)
	if err != nil {
		if compErr := coordinator.compensateMetadataRemove(context, snapshot, seriesID); compErr != nil {
			return compErr
		}
		return apperr.Storage(err)
	}
	defer conn.Release()

	if err := coordinator.storage.DeleteTable(context, conn, dataIDs[0]); err != nil {
		if compErr := coordinator.compensateMetadataRemove(context, snapshot, seriesID); compErr != nil {
			return compErr
		}
		return err
	}

	return nil
}

// compensateMetadataRemove re-inserts snapshot after a failed storage step
// that followed a successful metadata removal. It returns nil if the
// metadata facts were restored, or apperr.InconsistentState if they could
// not be — leaving seriesID as an orphan the caller must name to the
// operator.
func (coordinator *Coordinator) compensateMetadataRemove(context stdctx.Context, snapshot InitSpec, seriesID string) error {
	if err := coordinator.metadata.Init(context, snapshot); err != nil {
		coordinator.logger.Error("compensation failed after delete-time-series",
			slog.String("series_id", seriesID), slog.String("error", err.Error()))
		return apperr.InconsistentState(seriesID, "relational store", err)
	}
	return nil
}

// DeleteIndividual removes a single data-id's association and column. If
// seriesID only owns this one data-id, the whole time-series is removed
// instead — dropping the column alone would leave a dangling empty table.
// Otherwise the metadata association is removed first, then the relational
// column; if the column drop fails, the association is re-inserted, and if
// that re-insert also fails the caller gets apperr.InconsistentState naming
// the data-id as requiring manual reconciliation.
func (coordinator *Coordinator) DeleteIndividual(context stdctx.Context, dataID string) error {
	seriesID, err := coordinator.metadata.GetSeriesOf(context, dataID)
	if err != nil {
		return err
	}
	if seriesID == "" {
		return apperr.NotFound("data-id " + dataID)
	}

	siblings, err := coordinator.metadata.AssociatedData(context, seriesID)
	if err != nil {
		return err
	}
	if len(siblings) <= 1 {
		return coordinator.DeleteTimeSeries(context, seriesID)
	}

	if err := coordinator.metadata.RemoveAssociation(context, dataID); err != nil {
		return err
	}

	conn, err := coordinator.pool.Acquire(context)
	if err != nil {
		if compErr := coordinator.compensateAssociationRemove(context, dataID, seriesID); compErr != nil {
			return compErr
		}
		return apperr.Storage(err)
	}
	defer conn.Release()

	if err := coordinator.storage.DeleteSeries(context, conn, dataID); err != nil {
		if compErr := coordinator.compensateAssociationRemove(context, dataID, seriesID); compErr != nil {
			return compErr
		}
		return err
	}

	return nil
}

// compensateAssociationRemove re-inserts the dataID-to-seriesID association
// after a failed storage step that followed a successful removal. It
// returns nil if the association was restored, or
// apperr.InconsistentState if it could not be — leaving dataID as an orphan
// the caller must name to the operator.
func (coordinator *Coordinator) compensateAssociationRemove(context stdctx.Context, dataID, seriesID string) error {
	if err := coordinator.metadata.InsertAssociation(context, dataID, seriesID); err != nil {
		coordinator.logger.Error("compensation failed after delete-individual",
			slog.String("data_id", dataID), slog.String("error", err.Error()))
		return apperr.InconsistentState(dataID, "relational store", err)
	}
	return nil
}

// AddData appends a sample to an already-initialised time-series. No
// metadata mutation is involved, so no compensation is needed on failure.
func (coordinator *Coordinator) AddData(context stdctx.Context, sample Sample) error {
	conn, err := coordinator.pool.Acquire(context)
	if err != nil {
		return apperr.Storage(err)
	}
	defer conn.Release()

	return coordinator.storage.AddData(context, conn, sample)
}

// GetWithinBounds reads rows for dataIDs within bounds. Read-only, no
// compensation needed.
func (coordinator *Coordinator) GetWithinBounds(context stdctx.Context, dataIDs []string, bounds Bounds) ([]Row, error) {
	conn, err := coordinator.pool.Acquire(context)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer conn.Release()

	return coordinator.storage.GetWithinBounds(context, conn, dataIDs, bounds)
}

// DeleteRows deletes rows for dataID within [lower, upper]. No metadata
// mutation is involved.
func (coordinator *Coordinator) DeleteRows(context stdctx.Context, dataID string, lower, upper time.Time) error {
	conn, err := coordinator.pool.Acquire(context)
	if err != nil {
		return apperr.Storage(err)
	}
	defer conn.Release()

	return coordinator.storage.DeleteRows(context, conn, dataID, lower, upper)
}

// GetSeries assembles a Series view from the metadata store for seriesID.
func (coordinator *Coordinator) GetSeries(context stdctx.Context, seriesID string) (Series, error) {
	exists, err := coordinator.metadata.Exists(context, seriesID)
	if err != nil {
		return Series{}, err
	}
	if !exists {
		return Series{}, apperr.NotFound("time-series " + seriesID)
	}

	dataIDs, err := coordinator.metadata.AssociatedData(context, seriesID)
	if err != nil {
		return Series{}, err
	}
	dbURL, err := coordinator.metadata.GetDBURL(context, seriesID)
	if err != nil {
		return Series{}, err
	}
	timeUnit, err := coordinator.metadata.GetTimeUnit(context, seriesID)
	if err != nil {
		return Series{}, err
	}

	return Series{SeriesID: seriesID, DBURL: dbURL, TimeUnit: timeUnit, DataIDs: dataIDs}, nil
}

// ListSeries returns every registered series-id and the total count,
// honoring an optional offset/limit page.
func (coordinator *Coordinator) ListSeries(context stdctx.Context, offset, limit int) ([]string, int, error) {
	ids, err := coordinator.metadata.ListAll(context)
	if err != nil {
		return nil, 0, err
	}
	total := len(ids)

	if offset >= total {
		return []string{}, total, nil
	}
	end := offset + limit
	if end > total || limit <= 0 {
		end = total
	}
	return ids[offset:end], total, nil
}
