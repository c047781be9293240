// Package table holds the tabular form of scraped records: accumulation
// during a run, CSV round-trips and the merge of batch files.
package table

import "fmt"

// Table is an ordered set of rows under named columns. Every row has
// exactly len(Columns) cells; an empty cell means the value is absent.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given columns
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every cell of the named column in row order
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found (have %v)", name, t.Columns)
	}
	cells := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[idx]
	}
	return cells, nil
}
