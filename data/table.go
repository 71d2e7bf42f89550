package data

import "fmt"

// Table is an ordered record set. Every row holds exactly one value per
// column, in column order; a nil value is written as NULL.
type Table struct {
	Columns []string
	Rows    [][]any
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Empty() bool {
	return t.Len() == 0
}

// AppendRow adds a row. The number of values must match the number of columns.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("append row: got %d values for %d columns", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of a column top to bottom, or nil if the column
// does not exist.
func (t *Table) Column(name string) []any {
	idx := t.ColumnIndex(name)
	if idx == -1 {
		return nil
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values
}

// SetColumn replaces the values of a column, appending the column when it does
// not exist yet. Values are matched to rows by position, so there must be
// exactly one value per row.
func (t *Table) SetColumn(name string, values []any) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("set column %s: got %d values for %d rows", name, len(values), len(t.Rows))
	}

	idx := t.ColumnIndex(name)
	if idx == -1 {
		t.Columns = append(t.Columns, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], values[i])
		}
		return nil
	}

	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// Fill sets a column to the same value on every row.
func (t *Table) Fill(name string, value any) {
	values := make([]any, len(t.Rows))
	for i := range values {
		values[i] = value
	}
	_ = t.SetColumn(name, values)
}

// Slice returns a table holding only row i. The row values are shared.
func (t *Table) Slice(i int) *Table {
	return &Table{Columns: t.Columns, Rows: [][]any{t.Rows[i]}}
}

// Record returns row i keyed by column name, for logging.
func (t *Table) Record(i int) map[string]any {
	record := make(map[string]any, len(t.Columns))
	for j, c := range t.Columns {
		record[c] = t.Rows[i][j]
	}
	return record
}
