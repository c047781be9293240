package cli

import (
	"fmt"
	"path/filepath"

	"github.com/movie-ratings/reelscrape/internal/logging"
	"github.com/movie-ratings/reelscrape/internal/model"
	"github.com/movie-ratings/reelscrape/internal/store"
	"github.com/movie-ratings/reelscrape/internal/table"
	"github.com/spf13/cobra"
)

var (
	mergeDir         string
	mergeOutput      string
	mergeSQLite      string
	mergeSQLiteTable string
	mergeWriteIndex  bool
)

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge <kind> [files...]",
	Short: "Merge batch tables into one deduplicated table",
	Long: `Merge concatenates batch tables in order, drops row-index columns and
keeps the first row seen for each identifier.

Without explicit files, <kind>_<start>_to_<end>.csv files in --dir are merged
in order of their start row.

Example:
  reelscrape merge cast --dir ./data
  reelscrape merge boxoffice a.csv b.csv -o boxoffice.csv
  reelscrape merge cast --dir ./data --sqlite movies.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().StringVar(&mergeDir, "dir", "", "directory to discover batch files in (default: output.dir)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "merged table path (default: <dir>/<kind>.csv)")
	mergeCmd.Flags().StringVar(&mergeSQLite, "sqlite", "", "also export the merged table to this SQLite database")
	mergeCmd.Flags().StringVar(&mergeSQLiteTable, "sqlite-table", "", "SQLite table name (default: <kind>)")
	mergeCmd.Flags().BoolVar(&mergeWriteIndex, "write-index", false, "write a leading row-index column")
}

func runMerge(cmd *cobra.Command, args []string) error {
	kind := args[0]
	if kind != model.KindCast && kind != model.KindBoxOffice {
		return fmt.Errorf("unknown record kind: %q", kind)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("write-index") {
		cfg.Output.WriteIndex = mergeWriteIndex
	}

	logger, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	dir := mergeDir
	if dir == "" {
		dir = cfg.Output.Dir
	}

	paths := args[1:]
	if len(paths) == 0 {
		batches, err := table.DiscoverBatches(dir, kind)
		if err != nil {
			return err
		}
		for _, b := range batches {
			paths = append(paths, b.Path)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s batch files found in %s", kind, dir)
	}

	tables := make([]*table.Table, 0, len(paths))
	inputs := make([]mergeInput, 0, len(paths))
	for _, path := range paths {
		t, err := table.LoadFile(path)
		if err != nil {
			return err
		}
		tables = append(tables, t)
		inputs = append(inputs, mergeInput{Path: path, Rows: t.Len()})
		logger.DebugContext(cmd.Context(), "loaded batch", "path", path, "rows", t.Len())
	}

	merged, stats, err := table.Merge(cfg.Output.IdentifierColumn, tables...)
	if err != nil {
		return err
	}

	out := mergeOutput
	if out == "" {
		out = filepath.Join(dir, table.ConsolidatedFileName(kind))
	}
	if err := table.SaveFile(out, merged, cfg.Output.WriteIndex); err != nil {
		return fmt.Errorf("write merged table: %w", err)
	}

	if mergeSQLite != "" {
		tableName := mergeSQLiteTable
		if tableName == "" {
			tableName = kind
		}
		if err := store.ExportFile(cmd.Context(), mergeSQLite, tableName, cfg.Output.IdentifierColumn, merged); err != nil {
			return fmt.Errorf("export sqlite: %w", err)
		}
		logger.InfoContext(cmd.Context(), "exported to sqlite", "db", mergeSQLite, "table", tableName, "rows", merged.Len())
	}

	logger.InfoContext(cmd.Context(), "merge complete",
		"inputs", stats.Inputs, "rows_in", stats.RowsIn, "rows_out", merged.Len(),
		"duplicates", stats.Duplicates, "invalid", stats.Invalid)

	renderMergeSummary(cmd.OutOrStdout(), inputs, out, merged.Len(), stats)
	return nil
}
