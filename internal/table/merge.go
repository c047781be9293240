package table

import (
	"fmt"
	"regexp"

	"github.com/movie-ratings/reelscrape/internal/model"
)

// unnamedColumn matches the header pandas gives an unlabelled index column
var unnamedColumn = regexp.MustCompile(`^Unnamed: \d+$`)

// IsBookkeepingColumn reports whether a column is a serialization artifact
// (a written row index) rather than data
func IsBookkeepingColumn(name string) bool {
	return name == "" || unnamedColumn.MatchString(name)
}

// MergeStats describes what a merge kept and dropped
type MergeStats struct {
	Inputs     int
	RowsIn     int
	Duplicates int
	Invalid    int
}

// Merge concatenates tables in order into one consolidated table.
// Bookkeeping columns are dropped, columns are unioned in first-seen order and
// rows are deduplicated by normalized identifier, keeping the first occurrence.
// Rows whose identifier does not normalize are dropped.
func Merge(idColumn string, tables ...*Table) (*Table, MergeStats, error) {
	stats := MergeStats{Inputs: len(tables)}

	var columns []string
	seenColumn := make(map[string]bool)
	for i, t := range tables {
		if t.ColumnIndex(idColumn) < 0 {
			return nil, stats, fmt.Errorf("table %d: missing identifier column %q", i, idColumn)
		}
		for _, c := range t.Columns {
			if IsBookkeepingColumn(c) || seenColumn[c] {
				continue
			}
			seenColumn[c] = true
			columns = append(columns, c)
		}
	}

	out := New(columns...)
	outIndex := make(map[string]int, len(columns))
	for i, c := range columns {
		outIndex[c] = i
	}
	idOut := outIndex[idColumn]

	seenID := make(map[model.Identifier]bool)
	for _, t := range tables {
		idIn := t.ColumnIndex(idColumn)
		for _, row := range t.Rows {
			stats.RowsIn++

			id, err := model.NormalizeIdentifier(row[idIn])
			if err != nil {
				stats.Invalid++
				continue
			}
			if seenID[id] {
				stats.Duplicates++
				continue
			}
			seenID[id] = true

			merged := make([]string, len(columns))
			for j, c := range t.Columns {
				if pos, ok := outIndex[c]; ok && !IsBookkeepingColumn(c) {
					merged[pos] = row[j]
				}
			}
			merged[idOut] = id.Number()
			out.Rows = append(out.Rows, merged)
		}
	}

	return out, stats, nil
}
