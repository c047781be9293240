package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/movie-ratings/reelscrape/internal/cache"
	"github.com/movie-ratings/reelscrape/internal/util"
)

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = func(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// RateLimiter gates outbound requests per host
type RateLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// FetchError describes a page that could not be retrieved. StatusCode is zero
// for transport failures, timeouts and robots.txt refusals.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrDisallowed is wrapped by FetchError when robots.txt forbids the page
var ErrDisallowed = errors.New("disallowed by robots.txt")

// FetcherOptions configures a Fetcher
type FetcherOptions struct {
	UserAgent  string
	MaxBytes   int64
	MaxRetries int
	Timeout    time.Duration // Per attempt, excluding the limiter wait
	HTTPProxy  string
	HTTPSProxy string
	Robots     bool
	Cache      cache.Cache // Optional
	Limiter    RateLimiter // Optional
	Logger     *slog.Logger
}

// Fetcher retrieves title pages over plain HTTP GET
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	timeout    time.Duration
	robots     *util.RobotsChecker
	cache      cache.Cache
	limiter    RateLimiter
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher. The caller's context bounds the whole fetch;
// opts.Timeout bounds each HTTP exchange once the limiter has admitted it.
func NewFetcher(opts FetcherOptions) (*Fetcher, error) {
	proxy, err := util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy
	transport.MaxIdleConnsPerHost = 10

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  opts.UserAgent,
		maxBytes:   maxBytes,
		maxRetries: opts.MaxRetries,
		timeout:    opts.Timeout,
		cache:      opts.Cache,
		limiter:    opts.Limiter,
		logger:     logger,
	}
	if opts.Robots {
		f.robots = util.NewRobotsChecker(client, opts.UserAgent)
	}
	return f, nil
}

// FetchResult contains a fetched page
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	FromCache  bool
}

// Fetch retrieves rawURL, serving from the page cache when possible and
// retrying transient failures (5xx, 429, transport errors)
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.KeyFor(rawURL)
	if f.cache != nil {
		if page, found := f.cache.Get(key); found {
			return &FetchResult{HTML: string(page), StatusCode: http.StatusOK, FinalURL: rawURL, FromCache: true}, nil
		}
	}

	if f.robots != nil {
		rctx, cancel := f.withTimeout(ctx)
		allowed, err := f.robots.Allowed(rctx, rawURL)
		cancel()
		if err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}
		if !allowed {
			return nil, &FetchError{URL: rawURL, Err: ErrDisallowed}
		}
	}

	result, err := f.fetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(key, []byte(result.HTML), 0); err != nil {
			f.logger.WarnContext(ctx, "failed to cache page", "url", rawURL, "err", err)
		}
	}
	return result, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			f.logger.DebugContext(ctx, "retrying fetch", "url", rawURL, "attempt", attempt+1, "backoff", backoff, "err", lastErr)
			fetchSleepFunc(ctx, backoff)
		}

		result, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (f *Fetcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*FetchResult, error) {
	// Queueing behind the limiter does not count against the fetch timeout
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return &FetchResult{
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// isRetryableFetchError reports whether another attempt could succeed
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}

	if fe.StatusCode != 0 {
		return fe.StatusCode >= 500 || fe.StatusCode == http.StatusTooManyRequests
	}

	if errors.Is(err, ErrDisallowed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	var opErr *net.OpError
	return errors.As(err, &netErr) || errors.As(err, &opErr) || errors.Is(err, io.ErrUnexpectedEOF)
}
