// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package timeseries

import stdctx "context"

// InitSpec is the input to Init and one element of a BulkInit batch: the
// facts the Metadata Module writes for a single new time-series.
type InitSpec struct {
	SeriesID string
	DataIDs  []string
	DBURL    string
	TimeUnit string // optional, empty means unset
}

// MetadataStore encodes time-series facts in the triple store and reads
// them back. Every write is a single atomic SPARQL update; no operation
// here issues a two-step write.
type MetadataStore interface {
	// Init atomically inserts series-id is-a TimeSeries, series-id hasRDB
	// db-url, each data-id hasTimeSeries series-id, and (if set) series-id
	// hasTimeUnit time-unit. Returns apperr.MetadataWrite on rejection.
	Init(ctx stdctx.Context, spec InitSpec) error

	// BulkInit applies Init's facts for every spec in one update.
	BulkInit(ctx stdctx.Context, specs []InitSpec) error

	// Exists reports whether series-id is a known time-series (ASK query).
	Exists(ctx stdctx.Context, seriesID string) (bool, error)

	// Remove deletes every triple in which series-id appears as subject or
	// object. Idempotent if the series is already absent.
	Remove(ctx stdctx.Context, seriesID string) error

	// RemoveAssociation deletes the single `data-id hasTimeSeries ?x` triple.
	RemoveAssociation(ctx stdctx.Context, dataID string) error

	// InsertAssociation is the inverse of RemoveAssociation, used only for
	// compensation.
	InsertAssociation(ctx stdctx.Context, dataID, seriesID string) error

	// AssociatedData returns the data-ids belonging to series-id, or an
	// empty list if the series is absent.
	AssociatedData(ctx stdctx.Context, seriesID string) ([]string, error)

	// GetSeriesOf returns the series-id owning data-id, or "" if unassociated.
	GetSeriesOf(ctx stdctx.Context, dataID string) (string, error)

	// GetDBURL returns the backing database URL recorded for series-id.
	GetDBURL(ctx stdctx.Context, seriesID string) (string, error)

	// GetTimeUnit returns the recorded time-unit for series-id, or "" if unset.
	GetTimeUnit(ctx stdctx.Context, seriesID string) (string, error)

	// Count returns the number of known time-series.
	Count(ctx stdctx.Context) (int, error)

	// ListAll returns every known series-id.
	ListAll(ctx stdctx.Context) ([]string, error)
}
