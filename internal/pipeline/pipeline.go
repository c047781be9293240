package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/movie-ratings/reelscrape/internal/extract"
	"github.com/movie-ratings/reelscrape/internal/model"
)

// PageFetcher retrieves raw page content for a URL
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// Pipeline turns one identifier into one record: build URL, fetch, extract
type Pipeline struct {
	fetcher    PageFetcher
	strategy   extract.Strategy
	baseURL    string
	pathSuffix string
	logger     *slog.Logger
}

// Options configures a Pipeline
type Options struct {
	BaseURL    string
	PathSuffix string
	Logger     *slog.Logger
}

// New creates a pipeline for one record kind
func New(fetcher PageFetcher, strategy extract.Strategy, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:    fetcher,
		strategy:   strategy,
		baseURL:    opts.BaseURL,
		pathSuffix: opts.PathSuffix,
		logger:     logger.With("kind", strategy.Kind()),
	}
}

// NewFromConfig wires the fetcher, strategy and site settings for kind
func NewFromConfig(cfg *model.Config, kind string, fetcher PageFetcher, logger *slog.Logger) (*Pipeline, error) {
	strategy, err := extract.NewRegistry(cfg).Lookup(kind)
	if err != nil {
		return nil, err
	}
	baseURL, suffix, err := cfg.SiteFor(kind)
	if err != nil {
		return nil, err
	}
	return New(fetcher, strategy, Options{
		BaseURL:    baseURL,
		PathSuffix: suffix,
		Logger:     logger,
	}), nil
}

// Target returns the fields records from this pipeline carry
func (p *Pipeline) Target() model.Target {
	return p.strategy.Target()
}

// TitleURL builds the page URL for id: base + "tt" + 7-digit id (+ "/" + suffix)
func (p *Pipeline) TitleURL(id model.Identifier) string {
	return TitleURL(p.baseURL, p.pathSuffix, id)
}

// TitleURL joins a site base URL, the title code and an optional suffix
func TitleURL(baseURL, suffix string, id model.Identifier) string {
	u := strings.TrimRight(baseURL, "/") + "/" + id.TitleCode()
	if suffix = strings.Trim(suffix, "/"); suffix != "" {
		u += "/" + suffix
	}
	return u
}

// Scrape produces the record for id. Fetch and parse failures do not abort
// anything: they yield a record with every field absent.
func (p *Pipeline) Scrape(ctx context.Context, id model.Identifier) model.Record {
	url := p.TitleURL(id)

	page, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		p.logger.WarnContext(ctx, "fetch failed, recording absent fields", "id", id, "url", url, "err", err)
		return model.AbsentRecord(id, model.OutcomeFetchFailed)
	}

	values, err := p.strategy.Extract(page.HTML)
	if err != nil {
		var perr *extract.ParseError
		if !errors.As(err, &perr) {
			err = fmt.Errorf("extract: %w", err)
		}
		p.logger.WarnContext(ctx, "parse failed, recording absent fields", "id", id, "url", url, "err", err)
		return model.AbsentRecord(id, model.OutcomeParseFailed)
	}

	p.logger.DebugContext(ctx, "scraped title", "id", id, "url", url, "fields", len(values), "cached", page.FromCache)
	return model.NewRecord(id, values)
}
