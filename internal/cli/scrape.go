package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/movie-ratings/reelscrape/internal/cache"
	"github.com/movie-ratings/reelscrape/internal/logging"
	"github.com/movie-ratings/reelscrape/internal/model"
	"github.com/movie-ratings/reelscrape/internal/pipeline"
	"github.com/movie-ratings/reelscrape/internal/source"
	"github.com/movie-ratings/reelscrape/internal/table"
	"github.com/movie-ratings/reelscrape/internal/worker"
	"github.com/spf13/cobra"
)

var (
	inputPath    string
	inputColumn  string
	startRow     int
	endRow       int
	outputDir    string
	workers      int
	runTimeout   time.Duration
	fetchTimeout time.Duration
	noCache      bool
	cacheDir     string
	ignoreRobots bool
	writeIndex   bool
	userAgent    string
	httpProxy    string
	httpsProxy   string
	requestsPS   float64
	maxRetries   int
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <kind>",
	Short: "Scrape one record per identifier into a table",
	Long: `Scrape reads identifiers from the input file, fetches each title page
and writes one row per identifier. Pages that cannot be fetched or parsed
still produce a row, with every field empty.

With --start/--end only rows [start, end) of the input are processed and the
output is named <kind>_<start>_to_<end-1>.csv; otherwise <kind>.csv.

Example:
  reelscrape scrape cast --input links.csv
  reelscrape scrape boxoffice --input links.csv --start 0 --end 1000
  reelscrape scrape cast --input ids.txt --workers 4 --output-dir ./data`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{model.KindCast, model.KindBoxOffice},
	RunE:      runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	f := scrapeCmd.Flags()

	// Input/output flags
	f.StringVarP(&inputPath, "input", "i", "", "identifier file (.csv with header, or one id per line)")
	f.StringVar(&inputColumn, "column", "imdbId", "identifier column of a .csv input")
	f.IntVar(&startRow, "start", 0, "first input row to process (0-based)")
	f.IntVar(&endRow, "end", 0, "stop before this input row (0 = end of input)")
	f.StringVarP(&outputDir, "output-dir", "o", ".", "directory for the output table")
	f.BoolVar(&writeIndex, "write-index", false, "write a leading row-index column")

	// Run flags
	f.IntVarP(&workers, "workers", "w", 1, "number of concurrent fetch workers")
	f.DurationVar(&runTimeout, "timeout", 0, "total run timeout (0 = none)")
	f.DurationVar(&fetchTimeout, "fetch-timeout", 30*time.Second, "timeout for a single page fetch")
	f.Float64Var(&requestsPS, "rps", 2, "requests per second per host (0 = unlimited)")
	f.IntVar(&maxRetries, "max-retries", 2, "retries for 5xx, 429 and network errors")

	// HTTP flags
	f.StringVar(&userAgent, "ua", "", "HTTP User-Agent")
	f.BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	f.StringVar(&cacheDir, "cache-dir", "", "persist fetched pages in this directory")
	f.BoolVar(&ignoreRobots, "ignore-robots", false, "do not consult robots.txt")
	f.StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyScrapeFlags overlays flags the user set explicitly
func applyScrapeFlags(cmd *cobra.Command, cfg *model.Config) {
	changed := cmd.Flags().Changed

	if changed("input") {
		cfg.Input.Path = inputPath
	}
	if changed("column") {
		cfg.Input.Column = inputColumn
	}
	if changed("output-dir") {
		cfg.Output.Dir = outputDir
	}
	if changed("write-index") {
		cfg.Output.WriteIndex = writeIndex
	}
	if changed("workers") {
		cfg.Concurrency.Workers = workers
	}
	if changed("fetch-timeout") {
		cfg.HTTP.FetchTimeout = fetchTimeout
	}
	if changed("rps") {
		cfg.RateLimiting.RequestsPerSecond = requestsPS
	}
	if changed("max-retries") {
		cfg.HTTP.MaxRetries = maxRetries
	}
	if changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if changed("cache-dir") {
		cfg.Cache.Dir = cacheDir
	}
	if changed("ignore-robots") {
		cfg.HTTP.RespectRobots = !ignoreRobots
	}
	if changed("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
}

func runScrape(cmd *cobra.Command, args []string) error {
	kind := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScrapeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Input.Path == "" {
		return fmt.Errorf("no input: pass --input or set input.path")
	}

	logger, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	// Read and slice identifiers
	rawIDs, err := source.ReadIdentifiers(cfg.Input.Path, cfg.Input.Column)
	if err != nil {
		return err
	}
	partitioned := cmd.Flags().Changed("start") || cmd.Flags().Changed("end")
	batch, end, err := source.Slice(rawIDs, startRow, endRow)
	if err != nil {
		return err
	}

	outName := table.ConsolidatedFileName(kind)
	if partitioned {
		if end <= startRow {
			return fmt.Errorf("empty row range [%d, %d)", startRow, end)
		}
		outName = table.BatchFileName(kind, startRow, end)
	}
	outPath := filepath.Join(cfg.Output.Dir, outName)

	// Wire fetcher, pipeline and batch processor
	fetcher, err := pipeline.NewFetcher(pipeline.FetcherOptions{
		UserAgent:  cfg.HTTP.UserAgent,
		MaxBytes:   cfg.HTTP.MaxBodyBytes,
		MaxRetries: cfg.HTTP.MaxRetries,
		Timeout:    cfg.HTTP.FetchTimeout,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		Robots:     cfg.HTTP.RespectRobots,
		Cache:      cache.New(cfg.Cache),
		Limiter:    worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		Logger:     logger.Logger,
	})
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	p, err := pipeline.NewFromConfig(cfg, kind, fetcher, logger.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	logger.InfoContext(ctx, "starting batch",
		"kind", kind, "input", cfg.Input.Path, "rows", len(batch),
		"start", startRow, "end", end, "workers", cfg.Concurrency.Workers, "output", outPath)

	acc := table.NewAccumulator(cfg.Output.IdentifierColumn, p.Target())
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, logger.Logger)

	stats, runErr := processor.Run(ctx, batch, acc)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			return fmt.Errorf("run interrupted after %d of %d identifiers, no output written: %w",
				acc.Len(), len(batch)-stats.Skipped, runErr)
		}
		return runErr
	}

	if err := table.SaveFile(outPath, acc.Serialize(), cfg.Output.WriteIndex); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	renderScrapeSummary(cmd.OutOrStdout(), kind, outPath, stats)
	return nil
}
