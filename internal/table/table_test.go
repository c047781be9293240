package table

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/movie-ratings/reelscrape/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var boxOfficeTarget = model.Target{
	Kind: model.KindBoxOffice,
	Fields: []model.FieldSpec{
		{Name: "Domestic", Shape: model.ShapeCurrency},
		{Name: "International", Shape: model.ShapeCurrency},
		{Name: "WorldWide", Shape: model.ShapeCurrency},
	},
}

func TestAccumulator_SerializeKeepsInsertionOrder(t *testing.T) {
	acc := NewAccumulator("imdbId", boxOfficeTarget)
	acc.Append(model.NewRecord(model.MustIdentifier("114709"), map[string]model.Value{
		"Domestic":  model.CurrencyValue(1234567),
		"WorldWide": model.CurrencyValue(9000000),
	}))
	acc.Append(model.AbsentRecord(model.MustIdentifier("1"), model.OutcomeFetchFailed))
	acc.Append(model.NewRecord(model.MustIdentifier("114709"), nil))

	tbl := acc.Serialize()

	assert.Equal(t, []string{"imdbId", "Domestic", "International", "WorldWide"}, tbl.Columns)
	assert.Equal(t, [][]string{
		{"114709", "1234567", "", "9000000"},
		{"1", "", "", ""},
		{"114709", "", "", ""},
	}, tbl.Rows, "no dedup before merge")
	assert.Equal(t, 3, acc.Len())
}

func TestAccumulator_ConcurrentAppend(t *testing.T) {
	acc := NewAccumulator("", boxOfficeTarget)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			acc.Append(model.AbsentRecord(model.MustIdentifier(strings.Repeat("1", n%6+1)), model.OutcomeOK))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, acc.Len())
	assert.Equal(t, "imdbId", acc.Serialize().Columns[0])
}

func TestMerge_ConcatenatesInOrder(t *testing.T) {
	a := &Table{Columns: []string{"imdbId", "Actor1"}, Rows: [][]string{{"1", "Ann"}}}
	b := &Table{Columns: []string{"imdbId", "Actor1"}, Rows: [][]string{{"2", "Bob"}}}

	merged, stats, err := Merge("imdbId", a, b)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "Ann"}, {"2", "Bob"}}, merged.Rows)
	assert.Equal(t, 2, stats.RowsIn)
	assert.Zero(t, stats.Duplicates)
}

func TestMerge_KeepsFirstOccurrence(t *testing.T) {
	a := &Table{Columns: []string{"imdbId", "Actor1"}, Rows: [][]string{{"1", "a"}}}
	b := &Table{Columns: []string{"imdbId", "Actor1"}, Rows: [][]string{{"0000001", "b"}}}

	merged, stats, err := Merge("imdbId", a, b)
	require.NoError(t, err)

	require.Equal(t, 1, merged.Len())
	assert.Equal(t, []string{"1", "a"}, merged.Rows[0])
	assert.Equal(t, 1, stats.Duplicates)
}

func TestMerge_DropsBookkeepingColumns(t *testing.T) {
	a := &Table{Columns: []string{"", "imdbId", "Domestic"}, Rows: [][]string{{"0", "10", "5"}}}
	b := &Table{Columns: []string{"Unnamed: 0", "imdbId", "Domestic"}, Rows: [][]string{{"0", "11", "6"}}}

	merged, _, err := Merge("imdbId", a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"imdbId", "Domestic"}, merged.Columns)
	assert.Equal(t, [][]string{{"10", "5"}, {"11", "6"}}, merged.Rows)
}

func TestMerge_UnionsColumnsAndDropsInvalidIDs(t *testing.T) {
	a := &Table{Columns: []string{"imdbId", "Actor1"}, Rows: [][]string{{"1", "Ann"}, {"", "Nobody"}}}
	b := &Table{Columns: []string{"imdbId", "Actor1", "Actor2"}, Rows: [][]string{{"2.0", "Bob", "Cy"}}}

	merged, stats, err := Merge("imdbId", a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"imdbId", "Actor1", "Actor2"}, merged.Columns)
	assert.Equal(t, [][]string{{"1", "Ann", ""}, {"2", "Bob", "Cy"}}, merged.Rows)
	assert.Equal(t, 1, stats.Invalid)
}

func TestMerge_MissingIdentifierColumn(t *testing.T) {
	_, _, err := Merge("imdbId", &Table{Columns: []string{"id"}})
	assert.Error(t, err)
}

func TestCSV_RoundTripWithIndex(t *testing.T) {
	tbl := &Table{
		Columns: []string{"imdbId", "Actor1"},
		Rows:    [][]string{{"114709", "Tom Hanks"}, {"113497", "Robin Williams, Jr."}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, true))
	assert.True(t, strings.HasPrefix(buf.String(), ",imdbId,Actor1\n0,114709,Tom Hanks\n"))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "imdbId", "Actor1"}, back.Columns)

	merged, _, err := Merge("imdbId", back)
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, merged.Rows)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cast.csv")
	tbl := &Table{Columns: []string{"imdbId", "Actor1"}, Rows: [][]string{{"1", "Ann"}}}

	require.NoError(t, SaveFile(path, tbl, false))

	back, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tbl, back)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "cast_0_to_999.csv", BatchFileName("cast", 0, 1000))
	assert.Equal(t, "boxoffice_1000_to_1999.csv", BatchFileName("boxoffice", 1000, 2000))
	assert.Equal(t, "cast.csv", ConsolidatedFileName("cast"))

	bf, ok := ParseBatchFileName("dir/cast_1000_to_1999.csv")
	require.True(t, ok)
	assert.Equal(t, "cast", bf.Kind)
	assert.Equal(t, 1000, bf.Start)
	assert.Equal(t, 1999, bf.Last)

	_, ok = ParseBatchFileName("cast.csv")
	assert.False(t, ok)
	_, ok = ParseBatchFileName("cast_10_to_2.csv")
	assert.False(t, ok)
}

func TestDiscoverBatches_OrdersByStart(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"cast_10000_to_10999.csv",
		"cast_2000_to_2999.csv",
		"cast_0_to_999.csv",
		"boxoffice_0_to_999.csv",
		"cast.csv",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("imdbId\n"), 0o644))
	}

	batches, err := DiscoverBatches(dir, "cast")
	require.NoError(t, err)

	var starts []int
	for _, b := range batches {
		starts = append(starts, b.Start)
	}
	assert.Equal(t, []int{0, 2000, 10000}, starts)
	assert.Equal(t, filepath.Join(dir, "cast_0_to_999.csv"), batches[0].Path)
}
