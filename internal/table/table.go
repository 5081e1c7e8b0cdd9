// Package table provides a small in-memory tabular frame used by the
// preprocess pipeline: CSV loading, column checks, row filtering, and an
// inner join keyed on a shared column.
package table

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Row holds one record's cells keyed by column name.
type Row map[string]string

// Get returns the cell value for a column, or the empty string when the
// column is absent.
func (r Row) Get(col string) string {
	return r[col]
}

// Table is a fully materialized tabular frame. Columns preserves the
// header order of the source file; every Row carries a value (possibly
// empty) for every column.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// HasColumns reports whether the table carries all of the named columns.
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if !t.HasColumn(n) {
			return false
		}
	}
	return true
}

// Append adds a row. Cells for columns the row does not carry default to
// the empty string on access.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Filter returns a new table with the same columns containing only the
// rows for which keep returns true. Row order is preserved.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			out.Append(r)
		}
	}
	return out
}

// ReadCSV loads a CSV file fully into memory. The first record is the
// header and defines the column order; all data records must have the
// same field count as the header.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file, expected a header row", path)
	}

	t := New(records[0]...)
	for _, rec := range records[1:] {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			row[col] = rec[i]
		}
		t.Append(row)
	}
	return t, nil
}
