package table

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Extension of every table file
const Extension = ".csv"

var batchFilePattern = regexp.MustCompile(`^([A-Za-z0-9]+)_(\d+)_to_(\d+)\.csv$`)

// BatchFileName names the output of a partitioned run over rows [start, end).
// The name carries the last row inclusively: cast_0_to_999.csv covers 1000 rows.
func BatchFileName(kind string, start, end int) string {
	return fmt.Sprintf("%s_%d_to_%d%s", kind, start, end-1, Extension)
}

// ConsolidatedFileName names the output of a full or merged run
func ConsolidatedFileName(kind string) string {
	return kind + Extension
}

// BatchFile is a discovered batch output file
type BatchFile struct {
	Path  string
	Kind  string
	Start int
	Last  int
}

// ParseBatchFileName extracts kind and row range from a batch file name
func ParseBatchFileName(name string) (BatchFile, bool) {
	m := batchFilePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return BatchFile{}, false
	}
	start, err := strconv.Atoi(m[2])
	if err != nil {
		return BatchFile{}, false
	}
	last, err := strconv.Atoi(m[3])
	if err != nil || last < start {
		return BatchFile{}, false
	}
	return BatchFile{Path: name, Kind: m[1], Start: start, Last: last}, true
}

// DiscoverBatches lists the batch files of kind in dir, ordered by start row
func DiscoverBatches(dir, kind string) ([]BatchFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var batches []BatchFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		bf, ok := ParseBatchFileName(e.Name())
		if !ok || bf.Kind != kind {
			continue
		}
		bf.Path = filepath.Join(dir, e.Name())
		batches = append(batches, bf)
	}

	sort.Slice(batches, func(i, j int) bool {
		if batches[i].Start != batches[j].Start {
			return batches[i].Start < batches[j].Start
		}
		return batches[i].Last < batches[j].Last
	})
	return batches, nil
}
