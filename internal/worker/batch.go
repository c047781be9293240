package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/movie-ratings/reelscrape/internal/model"
)

// Scraper produces the record for one identifier. It never fails: fetch and
// parse problems come back as an absent record tagged with its outcome.
type Scraper interface {
	Scrape(ctx context.Context, id model.Identifier) model.Record
}

// Appender receives records in input order
type Appender interface {
	Append(rec model.Record)
}

// ScrapeJob scrapes a single identifier
type ScrapeJob struct {
	ID      model.Identifier
	Scraper Scraper
}

// Execute executes the scrape job
func (j *ScrapeJob) Execute(ctx context.Context) Result {
	return &ScrapeResult{Record: j.Scraper.Scrape(ctx, j.ID)}
}

// ScrapeResult carries the record produced by a ScrapeJob
type ScrapeResult struct {
	Record model.Record
}

// GetError is always nil; failures are recorded in the record outcome
func (r *ScrapeResult) GetError() error {
	return nil
}

// Stats summarises a batch run
type Stats struct {
	Total       int
	Skipped     int
	OK          int
	FetchFailed int
	ParseFailed int
	Elapsed     time.Duration
}

// Emitted is the number of records handed to the appender
func (s Stats) Emitted() int {
	return s.OK + s.FetchFailed + s.ParseFailed
}

func (s *Stats) count(rec model.Record) {
	switch rec.Outcome() {
	case model.OutcomeFetchFailed:
		s.FetchFailed++
	case model.OutcomeParseFailed:
		s.ParseFailed++
	default:
		s.OK++
	}
}

// BatchProcessor scrapes a batch of identifiers on a worker pool
type BatchProcessor struct {
	scraper     Scraper
	concurrency int
	logger      *slog.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(scraper Scraper, concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		scraper:     scraper,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run normalizes rawIDs, scrapes every valid identifier and appends the
// records to acc in input order. Identifiers that do not normalize are skipped.
// When ctx is cancelled the run stops handing out work, appends what finished
// in order up to the first gap, and always returns the context error.
func (b *BatchProcessor) Run(ctx context.Context, rawIDs []string, acc Appender) (Stats, error) {
	start := time.Now()
	stats := Stats{Total: len(rawIDs)}

	ids := make([]model.Identifier, 0, len(rawIDs))
	for i, raw := range rawIDs {
		id, err := model.NormalizeIdentifier(raw)
		if err != nil {
			if errors.Is(err, model.ErrSchemaMismatch) {
				b.logger.WarnContext(ctx, "skipping identifier", "row", i, "value", raw, "err", err)
				stats.Skipped++
				continue
			}
			return stats, err
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		stats.Elapsed = time.Since(start)
		return stats, nil
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, id := range ids {
			if err := pool.Submit(i, &ScrapeJob{ID: id, Scraper: b.scraper}); err != nil {
				return
			}
		}
	}()

	// Single writer: hold early finishers until every earlier index has been appended
	pending := make(map[int]model.Record)
	next := 0
	for res := range pool.Results() {
		pending[res.Index] = res.Result.(*ScrapeResult).Record
		for {
			rec, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			acc.Append(rec)
			stats.count(rec)
			next++
		}
	}

	stats.Elapsed = time.Since(start)

	// A cancelled run is incomplete even when every result arrived: the last
	// records may be cancellations reported as fetch failures
	if err := ctx.Err(); err != nil {
		b.logger.WarnContext(ctx, "batch interrupted", "completed", next, "planned", len(ids), "err", err)
		return stats, err
	}
	if next < len(ids) {
		b.logger.WarnContext(ctx, "batch interrupted", "completed", next, "planned", len(ids))
		return stats, context.Canceled
	}

	b.logger.InfoContext(ctx, "batch complete",
		"total", stats.Total, "skipped", stats.Skipped, "ok", stats.OK,
		"fetch_failed", stats.FetchFailed, "parse_failed", stats.ParseFailed,
		"elapsed", stats.Elapsed.Round(time.Millisecond))

	return stats, nil
}
