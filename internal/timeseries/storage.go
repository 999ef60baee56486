// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package timeseries

import (
	stdctx "context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBConn is the minimal pgx surface [Storage] needs from a borrowed
// connection or transaction: enough to run statements and batches, nothing
// that would let it retain, release, or close what it's given. *pgxpool.Conn
// satisfies this already; tests substitute a fake that never dials a real
// database.
type DBConn interface {
	Exec(ctx stdctx.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx stdctx.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx stdctx.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx stdctx.Context, b *pgx.Batch) pgx.BatchResults
}

// TimeEncoding is the SQL column type used for every data table's "time"
// column. It is chosen once when a [Storage] is constructed and every data
// table it subsequently creates uses that same encoding — the
// "parameterised once at construction, thereafter monomorphic" design from
// the source's deep time-value class hierarchy.
type TimeEncoding int

const (
	// TimeTimestamptz stores time as PostgreSQL TIMESTAMPTZ (the default).
	TimeTimestamptz TimeEncoding = iota
	// TimeBigintEpochSeconds stores time as a BIGINT of Unix epoch seconds.
	TimeBigintEpochSeconds
)

// SQL renders the column type used for the generated "time" column.
func (e TimeEncoding) SQL() string {
	switch e {
	case TimeBigintEpochSeconds:
		return "BIGINT"
	default:
		return "TIMESTAMPTZ"
	}
}

// InitTableSpec is the input to Storage.InitTable.
type InitTableSpec struct {
	DataIDs     []string
	DataClasses []ColumnClass
	SeriesID    string
}

// Storage maintains the central lookup table plus one data table per
// time-series, using a caller-supplied connection. It never retains or
// closes the connection passed to it.
type Storage interface {
	// InitTable creates the lookup table if missing, mints a fresh opaque
	// table name and one fresh opaque column name per data-id, creates the
	// data table, and inserts one lookup row per data-id.
	//
	// Preconditions: len(spec.DataIDs) == len(spec.DataClasses); no
	// data-id in spec.DataIDs already appears in the lookup table.
	InitTable(ctx stdctx.Context, conn DBConn, spec InitTableSpec) error

	// AddData appends rows for the given sample. All of sample.DataIDs
	// must resolve to the same table via the lookup table.
	AddData(ctx stdctx.Context, conn DBConn, sample Sample) error

	// GetWithinBounds returns rows for dataIDs sorted ascending by time,
	// honoring inclusive lower/upper bounds when bounds fields are non-nil.
	GetWithinBounds(ctx stdctx.Context, conn DBConn, dataIDs []string, bounds Bounds) ([]Row, error)

	// DeleteRows deletes rows for dataID's table where lower <= time <= upper.
	DeleteRows(ctx stdctx.Context, conn DBConn, dataID string, lower, upper time.Time) error

	// DeleteSeries drops dataID's column and removes its lookup row. The
	// column is dropped even when it is the table's last data column; the
	// table itself is not dropped.
	DeleteSeries(ctx stdctx.Context, conn DBConn, dataID string) error

	// DeleteTable drops the whole data table associated with dataID and
	// removes every lookup row pointing to it.
	DeleteTable(ctx stdctx.Context, conn DBConn, dataID string) error

	// DeleteAll drops every data table and the lookup table itself.
	DeleteAll(ctx stdctx.Context, conn DBConn) error

	// Average returns the arithmetic mean of dataID's column within bounds.
	Average(ctx stdctx.Context, conn DBConn, dataID string, bounds Bounds) (float64, error)
	// Max returns the maximum value of dataID's column within bounds.
	Max(ctx stdctx.Context, conn DBConn, dataID string, bounds Bounds) (float64, error)
	// Min returns the minimum value of dataID's column within bounds.
	Min(ctx stdctx.Context, conn DBConn, dataID string, bounds Bounds) (float64, error)
	// MaxTime returns the latest timestamp recorded for dataID.
	MaxTime(ctx stdctx.Context, conn DBConn, dataID string) (time.Time, error)
	// MinTime returns the earliest timestamp recorded for dataID.
	MinTime(ctx stdctx.Context, conn DBConn, dataID string) (time.Time, error)
	// LatestRow returns the most recent row across dataIDs' shared table.
	LatestRow(ctx stdctx.Context, conn DBConn, dataIDs []string) (Row, error)
	// OldestRow returns the earliest row across dataIDs' shared table.
	OldestRow(ctx stdctx.Context, conn DBConn, dataIDs []string) (Row, error)

	// TableExists reports whether the lookup table holds any row for
	// seriesID; it does not query the data table itself.
	TableExists(ctx stdctx.Context, conn DBConn, seriesID string) (bool, error)
	// HasLookupRow reports whether dataID already appears in the lookup table.
	HasLookupRow(ctx stdctx.Context, conn DBConn, dataID string) (bool, error)
}
