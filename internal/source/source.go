// Package source reads raw title identifiers from an input file
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/movie-ratings/reelscrape/internal/table"
)

// ReadIdentifiers returns the raw identifier cells of path in file order.
// A .csv file is read as a table and the named column is returned; any other
// file is read as one identifier per line with blank lines and # comments skipped.
// Values are not validated here; normalization happens per identifier in the batch.
func ReadIdentifiers(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), table.Extension) {
		return readColumn(f, column)
	}
	return readLines(f)
}

func readColumn(r io.Reader, column string) ([]string, error) {
	t, err := table.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read input table: %w", err)
	}
	return t.Column(column)
}

func readLines(r io.Reader) ([]string, error) {
	var ids []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ids = append(ids, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return ids, nil
}

// Slice returns ids[start:end] with end clamped to len(ids). A non-positive
// end means "to the end".
func Slice(ids []string, start, end int) ([]string, int, error) {
	if start < 0 {
		return nil, 0, fmt.Errorf("start %d is negative", start)
	}
	if end <= 0 || end > len(ids) {
		end = len(ids)
	}
	if start > end {
		return nil, 0, fmt.Errorf("start %d is past the last row %d", start, end)
	}
	return ids[start:end], end, nil
}
