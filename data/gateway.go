package data

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/kova98/redditlookup/enums"
)

// MaxParams is the postgres limit of bind parameters in a single statement.
const MaxParams = 65535

var (
	ErrTooManyParams = errors.New("too many bind parameters")
	// ErrConnection marks failures to reach the database, as opposed to a
	// failed statement.
	ErrConnection = errors.New("database connection failed")
)

type Row map[string]any

// String returns the column value as a string. ok is false when the column is
// missing or NULL.
func (r Row) String(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

type Rows []Row

// IsEmpty treats a nil result and a result without rows the same way.
func IsEmpty(rows Rows) bool {
	return len(rows) == 0
}

// Gateway owns a single database connection, opened on first use. A failed
// statement closes the connection and the next call opens a new one.
// Gateway is not safe for concurrent use.
type Gateway struct {
	logger *slog.Logger
	driver string
	dsn    string
	db     *sqlx.DB
}

func NewGateway(logger *slog.Logger, driver, dsn string) *Gateway {
	return &Gateway{
		logger: logger,
		driver: driver,
		dsn:    dsn,
	}
}

func (g *Gateway) Driver() string {
	return g.driver
}

// DB returns the underlying connection, connecting first if needed.
func (g *Gateway) DB() (*sqlx.DB, error) {
	return g.connect()
}

func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}

func (g *Gateway) connect() (*sqlx.DB, error) {
	if g.db != nil {
		return g.db, nil
	}

	db, err := sqlx.Connect(g.driver, g.dsn)
	if err != nil {
		g.logger.Error("connection to database not successful", "driver", g.driver, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	g.db = db
	g.logger.Debug("connected to database", "driver", g.driver)
	return db, nil
}

func (g *Gateway) fail(query string, err error) error {
	g.logger.Error("query execution error", "query", query, "error", err)
	if cerr := g.Close(); cerr != nil {
		g.logger.Warn("failed to close database connection", "error", cerr)
	}
	return fmt.Errorf("execute query: %w", err)
}

// ColumnsOf returns the column names of a table in table order.
func (g *Gateway) ColumnsOf(table string) ([]string, error) {
	schema, err := SchemaFor(table)
	if err != nil {
		return nil, err
	}

	db, err := g.connect()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT 0;", schema.Name)
	rows, err := db.Queryx(query)
	if err != nil {
		return nil, g.fail(query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, g.fail(query, err)
	}

	return columns, nil
}

// Execute runs a query written with ? placeholders. With enums.FetchNone the
// statement is executed and only the affected row count is returned. With
// FetchOne or FetchAll the result rows are read; the count is the number of
// rows the statement produced, and FetchOne keeps only the first of them.
// A statement that produces no rows returns nil rows.
func (g *Gateway) Execute(query string, mode enums.FetchMode, args ...any) (Rows, int64, error) {
	db, err := g.connect()
	if err != nil {
		return nil, 0, err
	}
	query = db.Rebind(query)

	if mode == enums.FetchNone {
		res, err := db.Exec(query, args...)
		if err != nil {
			return nil, 0, g.fail(query, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			g.logger.Debug("rows affected unavailable", "error", err)
			affected = 0
		}
		return nil, affected, nil
	}

	rows, err := db.Queryx(query, args...)
	if err != nil {
		return nil, 0, g.fail(query, err)
	}
	defer rows.Close()

	var result Rows
	var count int64
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, 0, g.fail(query, err)
		}
		count++
		if mode == enums.FetchOne && len(result) > 0 {
			continue
		}
		result = append(result, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, g.fail(query, err)
	}

	return result, count, nil
}

// InsertBatch writes every row of records in one INSERT statement. Rows whose
// conflictKey value already exists are skipped by the database. When fetch is
// not enums.FetchNone the statement returns the conflict key of the rows that
// were actually inserted. An empty record set does nothing.
func (g *Gateway) InsertBatch(table string, records *Table, conflictKey string, fetch enums.FetchMode) (Rows, error) {
	if records.Empty() {
		return nil, nil
	}

	schema, err := SchemaFor(table)
	if err != nil {
		return nil, err
	}
	query, args, err := buildInsert(schema, records, conflictKey, fetch != enums.FetchNone)
	if err != nil {
		return nil, err
	}

	rows, _, err := g.Execute(query, fetch, args...)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", schema.Name, err)
	}

	return rows, nil
}

// Lookup fetches rows where every filter column equals the matching value.
func (g *Gateway) Lookup(table string, fetchColumns, filterColumns []string, filterValues []any, mode enums.FetchMode) (Rows, error) {
	schema, err := SchemaFor(table)
	if err != nil {
		return nil, err
	}
	query, err := buildLookup(schema, fetchColumns, filterColumns, filterValues)
	if err != nil {
		return nil, err
	}

	if mode == enums.FetchNone {
		mode = enums.FetchAll
	}
	rows, _, err := g.Execute(query, mode, filterValues...)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", schema.Name, err)
	}

	return rows, nil
}

// LookupIn fetches rows whose filter column holds one of the given values.
// No values means no rows, without a round trip.
func (g *Gateway) LookupIn(table string, fetchColumns []string, filterColumn string, filterValues []any) (Rows, error) {
	schema, err := SchemaFor(table)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(fetchColumns...); err != nil {
		return nil, err
	}
	if filterColumn == "*" || !schema.HasColumn(filterColumn) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, schema.Name, filterColumn)
	}
	if len(filterValues) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s IN (?);",
		strings.Join(fetchColumns, ", "), schema.Name, filterColumn,
	), filterValues)
	if err != nil {
		return nil, fmt.Errorf("build lookup in %s: %w", schema.Name, err)
	}

	rows, _, err := g.Execute(query, enums.FetchAll, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup in %s: %w", schema.Name, err)
	}

	return rows, nil
}

func buildInsert(schema Schema, records *Table, conflictKey string, returning bool) (string, []any, error) {
	if err := schema.Validate(records.Columns...); err != nil {
		return "", nil, err
	}
	if !schema.HasColumn(conflictKey) {
		return "", nil, fmt.Errorf("%w: conflict key %s.%s", ErrUnknownColumn, schema.Name, conflictKey)
	}
	for _, c := range records.Columns {
		if c == "*" {
			return "", nil, fmt.Errorf("%w: * is not insertable", ErrUnknownColumn)
		}
	}
	if n := len(records.Columns) * records.Len(); n > MaxParams {
		return "", nil, fmt.Errorf("%w: %d rows x %d columns", ErrTooManyParams, records.Len(), len(records.Columns))
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(records.Columns)), ", ") + ")"
	values := make([]string, 0, records.Len())
	args := make([]any, 0, len(records.Columns)*records.Len())
	for _, row := range records.Rows {
		if len(row) != len(records.Columns) {
			return "", nil, fmt.Errorf("insert into %s: row has %d values for %d columns", schema.Name, len(row), len(records.Columns))
		}
		values = append(values, placeholder)
		args = append(args, row...)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO NOTHING",
		schema.Name, strings.Join(records.Columns, ", "), strings.Join(values, ", "), conflictKey)
	if returning {
		fmt.Fprintf(&sb, " RETURNING %s", conflictKey)
	}
	sb.WriteString(";")

	return sb.String(), args, nil
}

func buildLookup(schema Schema, fetchColumns, filterColumns []string, filterValues []any) (string, error) {
	if len(filterColumns) == 0 {
		return "", fmt.Errorf("lookup %s: no filter columns", schema.Name)
	}
	if len(filterColumns) != len(filterValues) {
		return "", fmt.Errorf("lookup %s: %d filter columns but %d values", schema.Name, len(filterColumns), len(filterValues))
	}
	if err := schema.Validate(fetchColumns...); err != nil {
		return "", err
	}
	if err := schema.Validate(filterColumns...); err != nil {
		return "", err
	}

	conditions := make([]string, len(filterColumns))
	for i, c := range filterColumns {
		if c == "*" {
			return "", fmt.Errorf("%w: * is not a filter column", ErrUnknownColumn)
		}
		conditions[i] = c + " = ?"
	}

	return fmt.Sprintf("SELECT %s FROM %s WHERE %s;",
		strings.Join(fetchColumns, ", "), schema.Name, strings.Join(conditions, " AND ")), nil
}

func normalizeRow(row map[string]any) Row {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
