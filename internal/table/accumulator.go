package table

import (
	"sync"

	"github.com/movie-ratings/reelscrape/internal/model"
)

// Accumulator collects the records of one batch in append order.
// It does not deduplicate; that happens on Merge.
type Accumulator struct {
	mu       sync.Mutex
	idColumn string
	target   model.Target
	records  []model.Record
}

// NewAccumulator creates an accumulator for records of target
func NewAccumulator(idColumn string, target model.Target) *Accumulator {
	if idColumn == "" {
		idColumn = "imdbId"
	}
	return &Accumulator{idColumn: idColumn, target: target}
}

// Append adds a record. Safe for concurrent use.
func (a *Accumulator) Append(rec model.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
}

// Len returns the number of records appended so far
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Serialize renders the records as a table: the identifier column followed by
// one column per target field, one row per record in insertion order.
func (a *Accumulator) Serialize() *Table {
	a.mu.Lock()
	defer a.mu.Unlock()

	fields := a.target.FieldNames()
	t := New(append([]string{a.idColumn}, fields...)...)
	t.Rows = make([][]string, 0, len(a.records))

	for _, rec := range a.records {
		row := make([]string, 0, len(fields)+1)
		row = append(row, rec.ID().Number())
		for _, f := range fields {
			if v, ok := rec.Get(f); ok {
				row = append(row, v.String())
			} else {
				row = append(row, "")
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
