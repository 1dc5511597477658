package model

import (
	"errors"
	"fmt"
	"time"
)

// Canonical column names shared across the pipeline.
const (
	DatetimeColumn = "DATETIME"
	PostedColumn   = "PostedDatetime"
	DateColumn     = "Date"
)

// ErrMissingColumn is returned when an operation needs a column the table does not have.
var ErrMissingColumn = errors.New("missing column")

// Row is one record keyed by column name. Values keep the type they were
// decoded with (string, float64, bool, time.Time or nil).
type Row map[string]any

// Table is an ordered set of named columns over a sequence of rows.
// Column order follows the upstream field order; row order is response order.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable builds a table from positional records, the shape the ERCOT API
// returns. Short records leave trailing columns nil.
func NewTable(columns []string, records [][]any) Table {
	t := Table{Columns: append([]string(nil), columns...), Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		row := make(Row, len(columns))
		for i, name := range columns {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = nil
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (t Table) Len() int { return len(t.Rows) }

func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Index returns the position of name in Columns, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t Table) HasColumn(name string) bool { return t.Index(name) >= 0 }

// Require returns ErrMissingColumn naming the first absent column.
func (t Table) Require(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, n)
		}
	}
	return nil
}

// Clone copies the column list and every row map. Cell values are shared.
func (t Table) Clone() Table {
	out := Table{Columns: append([]string(nil), t.Columns...), Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Select keeps only the named columns, in the order given. Unknown names are ignored.
func (t Table) Select(names ...string) Table {
	cols := make([]string, 0, len(names))
	for _, n := range names {
		if t.HasColumn(n) {
			cols = append(cols, n)
		}
	}
	out := Table{Columns: cols, Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		row := make(Row, len(cols))
		for _, c := range cols {
			row[c] = r[c]
		}
		out.Rows[i] = row
	}
	return out
}

// Drop removes the named columns if present.
func (t Table) Drop(names ...string) Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return t.Select(keep...)
}

// AddColumn appends name to Columns if it is not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Values returns the cells of one column in row order.
func (t Table) Values(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Time returns the cell as a time when it already holds one.
func (r Row) Time(name string) (time.Time, bool) {
	t, ok := r[name].(time.Time)
	return t, ok
}

// Float returns the cell as a float64 when it holds a numeric value.
func (r Row) Float(name string) (float64, bool) {
	return Float(r[name])
}
