// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package timeseries

import (
	stdctx "context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anchorgraph/corestack/internal/platform/apperr"
	"github.com/anchorgraph/corestack/internal/platform/dberr"
	"github.com/anchorgraph/corestack/pkg/uuid"
)

// PostgresStorage is the [Storage] implementation backed by the Relational
// Gateway collaborator. It is parameterised once at construction over the
// time column's SQL encoding and the lookup table's name; it never stashes
// a connection across calls.
type PostgresStorage struct {
	lookupTable  string
	timeEncoding TimeEncoding
}

// NewPostgresStorage constructs a [Storage] using lookupTable as the
// central lookup table name and encoding for every generated data table's
// "time" column.
func NewPostgresStorage(lookupTable string, encoding TimeEncoding) *PostgresStorage {
	return &PostgresStorage{lookupTable: lookupTable, timeEncoding: encoding}
}

// quoteIdent double-quotes a Postgres identifier, escaping embedded quotes.
// Every identifier this package generates is a pkg/uuid value, so this is
// defense in depth rather than the primary safety mechanism.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *PostgresStorage) lookupTableIdent() string {
	return quoteIdent(s.lookupTable)
}

func columnSQLType(class ColumnClass) string {
	switch class {
	case ColumnInteger:
		return "BIGINT"
	case ColumnString:
		return "TEXT"
	case ColumnBoolean:
		return "BOOLEAN"
	case ColumnDateTime:
		return "TIMESTAMPTZ"
	default:
		return "DOUBLE PRECISION"
	}
}

func (s *PostgresStorage) ensureLookupTable(ctx stdctx.Context, conn DBConn) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		"dataIRI" TEXT PRIMARY KEY,
		"timeseriesIRI" TEXT NOT NULL,
		"tableName" TEXT NOT NULL,
		"columnName" TEXT NOT NULL
	)`, s.lookupTableIdent())
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return dberr.Wrap(err, "ensure_lookup_table")
	}
	return nil
}

// InitTable implements [Storage.InitTable].
func (s *PostgresStorage) InitTable(ctx stdctx.Context, conn DBConn, spec InitTableSpec) error {
	if len(spec.DataIDs) != len(spec.DataClasses) {
		return apperr.Precondition(fmt.Sprintf(
			"data-ids and data-classes must have equal length (%d != %d)", len(spec.DataIDs), len(spec.DataClasses)))
	}
	if len(spec.DataIDs) == 0 {
		return apperr.Precondition("at least one data-id is required")
	}

	if err := s.ensureLookupTable(ctx, conn); err != nil {
		return err
	}

	for _, dataID := range spec.DataIDs {
		exists, err := s.HasLookupRow(ctx, conn, dataID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Precondition(fmt.Sprintf("data-id %q is already registered", dataID))
		}
	}

	tableName := uuid.New()
	columnNames := make(map[string]string, len(spec.DataIDs))
	for _, dataID := range spec.DataIDs {
		columnNames[dataID] = "c_" + strings.ReplaceAll(uuid.New(), "-", "")
	}

	var columnDefs strings.Builder
	for i, dataID := range spec.DataIDs {
		columnDefs.WriteString(fmt.Sprintf(", %s %s", quoteIdent(columnNames[dataID]), columnSQLType(spec.DataClasses[i])))
	}

	createTable := fmt.Sprintf(`CREATE TABLE %s ("time" %s%s)`,
		quoteIdent(tableName), s.timeEncoding.SQL(), columnDefs.String())
	if _, err := conn.Exec(ctx, createTable); err != nil {
		return dberr.Wrap(err, "create_data_table")
	}

	batch := &pgx.Batch{}
	insertLookup := fmt.Sprintf(`INSERT INTO %s ("dataIRI", "timeseriesIRI", "tableName", "columnName") VALUES ($1, $2, $3, $4)`,
		s.lookupTableIdent())
	for _, dataID := range spec.DataIDs {
		batch.Queue(insertLookup, dataID, spec.SeriesID, tableName, columnNames[dataID])
	}

	results := conn.SendBatch(ctx, batch)
	defer results.Close()
	for range spec.DataIDs {
		if _, err := results.Exec(); err != nil {
			return dberr.Wrap(err, "insert_lookup_rows")
		}
	}

	return nil
}

// lookupEntry is one row of the central lookup table relevant to a call.
type lookupEntry struct {
	dataID     string
	tableName  string
	columnName string
}

// resolveDataIDs looks up every dataID and verifies they all share the same
// table-name, returning that table name and each data-id's column.
func (s *PostgresStorage) resolveDataIDs(ctx stdctx.Context, conn DBConn, dataIDs []string) (string, map[string]string, error) {
	if len(dataIDs) == 0 {
		return "", nil, apperr.Precondition("at least one data-id is required")
	}

	query := fmt.Sprintf(`SELECT "dataIRI", "tableName", "columnName" FROM %s WHERE "dataIRI" = ANY($1)`, s.lookupTableIdent())
	rows, err := conn.Query(ctx, query, dataIDs)
	if err != nil {
		return "", nil, dberr.Wrap(err, "resolve_data_ids")
	}
	defer rows.Close()

	entries := make(map[string]lookupEntry, len(dataIDs))
	for rows.Next() {
		var e lookupEntry
		if err := rows.Scan(&e.dataID, &e.tableName, &e.columnName); err != nil {
			return "", nil, dberr.Wrap(err, "scan_lookup_row")
		}
		entries[e.dataID] = e
	}
	if err := rows.Err(); err != nil {
		return "", nil, dberr.Wrap(err, "resolve_data_ids")
	}

	var tableName string
	columns := make(map[string]string, len(dataIDs))
	for _, dataID := range dataIDs {
		entry, ok := entries[dataID]
		if !ok {
			return "", nil, apperr.Precondition(fmt.Sprintf("data-id %q is not registered", dataID))
		}
		if tableName == "" {
			tableName = entry.tableName
		} else if tableName != entry.tableName {
			return "", nil, apperr.Precondition("data-ids span multiple tables")
		}
		columns[dataID] = entry.columnName
	}

	return tableName, columns, nil
}

// AddData implements [Storage.AddData].
func (s *PostgresStorage) AddData(ctx stdctx.Context, conn DBConn, sample Sample) error {
	tableName, columns, err := s.resolveDataIDs(ctx, conn, sample.DataIDs)
	if err != nil {
		return err
	}

	colNames := make([]string, 0, len(sample.DataIDs)+1)
	colNames = append(colNames, `"time"`)
	for _, dataID := range sample.DataIDs {
		colNames = append(colNames, quoteIdent(columns[dataID]))
	}

	batch := &pgx.Batch{}
	placeholders := make([]string, len(colNames))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(tableName), strings.Join(colNames, ", "), strings.Join(placeholders, ", "))

	for i, t := range sample.Times {
		args := make([]any, 0, len(colNames))
		args = append(args, t)
		for _, dataID := range sample.DataIDs {
			values := sample.Values[dataID]
			if i >= len(values) {
				return apperr.Precondition(fmt.Sprintf("data-id %q has fewer values than timestamps", dataID))
			}
			args = append(args, values[i])
		}
		batch.Queue(insert, args...)
	}

	results := conn.SendBatch(ctx, batch)
	defer results.Close()
	for range sample.Times {
		if _, err := results.Exec(); err != nil {
			return dberr.Wrap(err, "add_data")
		}
	}

	return nil
}

// GetWithinBounds implements [Storage.GetWithinBounds].
func (s *PostgresStorage) GetWithinBounds(ctx stdctx.Context, conn DBConn, dataIDs []string, bounds Bounds) ([]Row, error) {
	tableName, columns, err := s.resolveDataIDs(ctx, conn, dataIDs)
	if err != nil {
		return nil, err
	}

	selectCols := []string{`"time"`}
	for _, dataID := range dataIDs {
		selectCols = append(selectCols, quoteIdent(columns[dataID]))
	}

	var where []string
	var args []any
	if bounds.Lower != nil {
		args = append(args, *bounds.Lower)
		where = append(where, fmt.Sprintf(`"time" >= $%d`, len(args)))
	}
	if bounds.Upper != nil {
		args = append(args, *bounds.Upper)
		where = append(where, fmt.Sprintf(`"time" <= $%d`, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(selectCols, ", "), quoteIdent(tableName))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY "time" ASC`

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "get_within_bounds")
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		scanTargets := make([]any, len(selectCols))
		var ts time.Time
		scanTargets[0] = &ts
		values := make([]any, len(dataIDs))
		for i := range dataIDs {
			scanTargets[i+1] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, dberr.Wrap(err, "scan_row")
		}

		rowValues := make(map[string]any, len(dataIDs))
		for i, dataID := range dataIDs {
			rowValues[dataID] = values[i]
		}
		result = append(result, Row{Time: ts, Values: rowValues})
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "get_within_bounds")
	}

	return result, nil
}

// DeleteRows implements [Storage.DeleteRows].
func (s *PostgresStorage) DeleteRows(ctx stdctx.Context, conn DBConn, dataID string, lower, upper time.Time) error {
	tableName, _, err := s.resolveDataIDs(ctx, conn, []string{dataID})
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE "time" >= $1 AND "time" <= $2`, quoteIdent(tableName))
	if _, err := conn.Exec(ctx, query, lower, upper); err != nil {
		return dberr.Wrap(err, "delete_rows")
	}
	return nil
}

// DeleteSeries implements [Storage.DeleteSeries].
func (s *PostgresStorage) DeleteSeries(ctx stdctx.Context, conn DBConn, dataID string) error {
	tableName, columns, err := s.resolveDataIDs(ctx, conn, []string{dataID})
	if err != nil {
		return err
	}

	dropColumn := fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s`, quoteIdent(tableName), quoteIdent(columns[dataID]))
	if _, err := conn.Exec(ctx, dropColumn); err != nil {
		return dberr.Wrap(err, "drop_column")
	}

	deleteLookup := fmt.Sprintf(`DELETE FROM %s WHERE "dataIRI" = $1`, s.lookupTableIdent())
	if _, err := conn.Exec(ctx, deleteLookup, dataID); err != nil {
		return dberr.Wrap(err, "delete_lookup_row")
	}

	return nil
}

// DeleteTable implements [Storage.DeleteTable].
func (s *PostgresStorage) DeleteTable(ctx stdctx.Context, conn DBConn, dataID string) error {
	tableName, _, err := s.resolveDataIDs(ctx, conn, []string{dataID})
	if err != nil {
		return err
	}

	dropTable := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(tableName))
	if _, err := conn.Exec(ctx, dropTable); err != nil {
		return dberr.Wrap(err, "drop_table")
	}

	deleteLookup := fmt.Sprintf(`DELETE FROM %s WHERE "tableName" = $1`, s.lookupTableIdent())
	if _, err := conn.Exec(ctx, deleteLookup, tableName); err != nil {
		return dberr.Wrap(err, "delete_lookup_rows")
	}

	return nil
}

// DeleteAll implements [Storage.DeleteAll].
func (s *PostgresStorage) DeleteAll(ctx stdctx.Context, conn DBConn) error {
	query := fmt.Sprintf(`SELECT DISTINCT "tableName" FROM %s`, s.lookupTableIdent())
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return dberr.Wrap(err, "list_data_tables")
	}

	var tableNames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return dberr.Wrap(err, "scan_table_name")
		}
		tableNames = append(tableNames, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return dberr.Wrap(err, "list_data_tables")
	}

	for _, name := range tableNames {
		if _, err := conn.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(name))); err != nil {
			return dberr.Wrap(err, "drop_data_table")
		}
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.lookupTableIdent())); err != nil {
		return dberr.Wrap(err, "drop_lookup_table")
	}

	return nil
}

func (s *PostgresStorage) aggregate(ctx stdctx.Context, conn DBConn, fn, dataID string, bounds Bounds) (float64, error) {
	tableName, columns, err := s.resolveDataIDs(ctx, conn, []string{dataID})
	if err != nil {
		return 0, err
	}

	var where []string
	var args []any
	if bounds.Lower != nil {
		args = append(args, *bounds.Lower)
		where = append(where, fmt.Sprintf(`"time" >= $%d`, len(args)))
	}
	if bounds.Upper != nil {
		args = append(args, *bounds.Upper)
		where = append(where, fmt.Sprintf(`"time" <= $%d`, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s(%s) FROM %s`, fn, quoteIdent(columns[dataID]), quoteIdent(tableName))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	var result float64
	if err := conn.QueryRow(ctx, query, args...).Scan(&result); err != nil {
		return 0, dberr.Wrap(err, "aggregate_"+fn)
	}
	return result, nil
}

// Average implements [Storage.Average].
func (s *PostgresStorage) Average(ctx stdctx.Context, conn DBConn, dataID string, bounds Bounds) (float64, error) {
	return s.aggregate(ctx, conn, "AVG", dataID, bounds)
}

// Max implements [Storage.Max].
func (s *PostgresStorage) Max(ctx stdctx.Context, conn DBConn, dataID string, bounds Bounds) (float64, error) {
	return s.aggregate(ctx, conn, "MAX", dataID, bounds)
}

// Min implements [Storage.Min].
func (s *PostgresStorage) Min(ctx stdctx.Context, conn DBConn, dataID string, bounds Bounds) (float64, error) {
	return s.aggregate(ctx, conn, "MIN", dataID, bounds)
}

// MaxTime implements [Storage.MaxTime].
func (s *PostgresStorage) MaxTime(ctx stdctx.Context, conn DBConn, dataID string) (time.Time, error) {
	tableName, _, err := s.resolveDataIDs(ctx, conn, []string{dataID})
	if err != nil {
		return time.Time{}, err
	}

	var result time.Time
	query := fmt.Sprintf(`SELECT MAX("time") FROM %s`, quoteIdent(tableName))
	if err := conn.QueryRow(ctx, query).Scan(&result); err != nil {
		return time.Time{}, dberr.Wrap(err, "max_time")
	}
	return result, nil
}

// MinTime implements [Storage.MinTime].
func (s *PostgresStorage) MinTime(ctx stdctx.Context, conn DBConn, dataID string) (time.Time, error) {
	tableName, _, err := s.resolveDataIDs(ctx, conn, []string{dataID})
	if err != nil {
		return time.Time{}, err
	}

	var result time.Time
	query := fmt.Sprintf(`SELECT MIN("time") FROM %s`, quoteIdent(tableName))
	if err := conn.QueryRow(ctx, query).Scan(&result); err != nil {
		return time.Time{}, dberr.Wrap(err, "min_time")
	}
	return result, nil
}

func (s *PostgresStorage) edgeRow(ctx stdctx.Context, conn DBConn, dataIDs []string, order string) (Row, error) {
	tableName, columns, err := s.resolveDataIDs(ctx, conn, dataIDs)
	if err != nil {
		return Row{}, err
	}

	selectCols := []string{`"time"`}
	for _, dataID := range dataIDs {
		selectCols = append(selectCols, quoteIdent(columns[dataID]))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY "time" %s LIMIT 1`,
		strings.Join(selectCols, ", "), quoteIdent(tableName), order)

	scanTargets := make([]any, len(selectCols))
	var ts time.Time
	scanTargets[0] = &ts
	values := make([]any, len(dataIDs))
	for i := range dataIDs {
		scanTargets[i+1] = &values[i]
	}

	if err := conn.QueryRow(ctx, query).Scan(scanTargets...); err != nil {
		return Row{}, dberr.Wrap(err, "edge_row")
	}

	rowValues := make(map[string]any, len(dataIDs))
	for i, dataID := range dataIDs {
		rowValues[dataID] = values[i]
	}
	return Row{Time: ts, Values: rowValues}, nil
}

// LatestRow implements [Storage.LatestRow].
func (s *PostgresStorage) LatestRow(ctx stdctx.Context, conn DBConn, dataIDs []string) (Row, error) {
	return s.edgeRow(ctx, conn, dataIDs, "DESC")
}

// OldestRow implements [Storage.OldestRow].
func (s *PostgresStorage) OldestRow(ctx stdctx.Context, conn DBConn, dataIDs []string) (Row, error) {
	return s.edgeRow(ctx, conn, dataIDs, "ASC")
}

// TableExists implements [Storage.TableExists].
func (s *PostgresStorage) TableExists(ctx stdctx.Context, conn DBConn, seriesID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE "timeseriesIRI" = $1)`, s.lookupTableIdent())
	var exists bool
	if err := conn.QueryRow(ctx, query, seriesID).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "table_exists")
	}
	return exists, nil
}

// HasLookupRow implements [Storage.HasLookupRow].
func (s *PostgresStorage) HasLookupRow(ctx stdctx.Context, conn DBConn, dataID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE "dataIRI" = $1)`, s.lookupTableIdent())
	var exists bool
	if err := conn.QueryRow(ctx, query, dataID).Scan(&exists); err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return false, nil
		}
		return false, dberr.Wrap(err, "has_lookup_row")
	}
	return exists, nil
}

var _ Storage = (*PostgresStorage)(nil)
