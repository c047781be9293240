package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/movie-ratings/reelscrape/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	pages map[string]string
	err   error
	urls  []string
}

func (s *stubFetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	s.urls = append(s.urls, rawURL)
	if s.err != nil {
		return nil, s.err
	}
	page, ok := s.pages[rawURL]
	if !ok {
		return nil, &FetchError{URL: rawURL, StatusCode: http.StatusNotFound}
	}
	return &FetchResult{HTML: page, StatusCode: http.StatusOK, FinalURL: rawURL}, nil
}

const castFixture = `<html><body>
<h4 class="dataHeaderWithBorder">Cast (in credits order)</h4>
<table class="cast_list">
<tr><td colspan="4">Cast overview</td></tr>
<tr><td><a href="/name/nm1"><img alt="x"></a></td><td><a href="/name/nm1">Tom Hanks</a></td></tr>
<tr><td><a href="/name/nm2"><img alt="y"></a></td><td><a href="/name/nm2">Tim Allen</a></td></tr>
</table>
</body></html>`

func newCastPipeline(t *testing.T, fetcher PageFetcher) *Pipeline {
	t.Helper()
	p, err := NewFromConfig(model.DefaultConfig(), model.KindCast, fetcher, nil)
	require.NoError(t, err)
	return p
}

func TestTitleURL(t *testing.T) {
	id := model.MustIdentifier("114709")

	assert.Equal(t, "https://www.imdb.com/title/tt0114709/fullcredits",
		TitleURL("https://www.imdb.com/title/", "fullcredits", id))
	assert.Equal(t, "https://www.imdb.com/title/tt0114709/fullcredits",
		TitleURL("https://www.imdb.com/title", "/fullcredits/", id))
	assert.Equal(t, "https://www.boxofficemojo.com/title/tt0114709",
		TitleURL("https://www.boxofficemojo.com/title/", "", id))
}

func TestScrape_Success(t *testing.T) {
	id := model.MustIdentifier("114709")
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.imdb.com/title/tt0114709/fullcredits": castFixture,
	}}

	rec := newCastPipeline(t, fetcher).Scrape(context.Background(), id)

	assert.Equal(t, id, rec.ID())
	assert.Equal(t, model.OutcomeOK, rec.Outcome())
	assert.Equal(t, 2, rec.Len())

	v, ok := rec.Get("Actor1")
	require.True(t, ok)
	assert.Equal(t, "Tom Hanks", v.Text)
	v, ok = rec.Get("Actor2")
	require.True(t, ok)
	assert.Equal(t, "Tim Allen", v.Text)
	_, ok = rec.Get("Actor3")
	assert.False(t, ok)
}

func TestScrape_FetchFailureYieldsAbsentRecord(t *testing.T) {
	id := model.MustIdentifier("1")
	fetcher := &stubFetcher{err: &FetchError{URL: "x", StatusCode: http.StatusServiceUnavailable}}

	rec := newCastPipeline(t, fetcher).Scrape(context.Background(), id)

	assert.Equal(t, id, rec.ID())
	assert.Equal(t, model.OutcomeFetchFailed, rec.Outcome())
	assert.True(t, rec.IsEmpty())
	assert.Equal(t, []string{"https://www.imdb.com/title/tt0000001/fullcredits"}, fetcher.urls)
}

func TestScrape_ParseFailureYieldsAbsentRecord(t *testing.T) {
	id := model.MustIdentifier("1")
	png := string([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0})
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.imdb.com/title/tt0000001/fullcredits": png,
	}}

	rec := newCastPipeline(t, fetcher).Scrape(context.Background(), id)

	assert.Equal(t, model.OutcomeParseFailed, rec.Outcome())
	assert.True(t, rec.IsEmpty())
}

func TestScrape_PageWithoutCastIsEmptyButOK(t *testing.T) {
	id := model.MustIdentifier("2")
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.imdb.com/title/tt0000002/fullcredits": "<html><body><p>nothing here</p></body></html>",
	}}

	rec := newCastPipeline(t, fetcher).Scrape(context.Background(), id)

	assert.Equal(t, model.OutcomeOK, rec.Outcome())
	assert.True(t, rec.IsEmpty())
}

func TestScrape_TimeoutYieldsAbsentRecord(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := model.DefaultConfig()
	cfg.Cast.BaseURL = server.URL + "/title/"

	fetcher, err := NewFetcher(FetcherOptions{UserAgent: "test-agent", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	p, err := NewFromConfig(cfg, model.KindCast, fetcher, nil)
	require.NoError(t, err)

	start := time.Now()
	rec := p.Scrape(context.Background(), model.MustIdentifier("114709"))

	assert.Equal(t, model.OutcomeFetchFailed, rec.Outcome())
	assert.True(t, rec.IsEmpty())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestScrape_BoxOfficeAgainstServer(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = fmt.Fprint(w, `<html><body>
<span class="a-size-medium a-text-bold">$100,000</span>
<span class="a-size-medium a-text-bold">-</span>
<span class="a-size-medium a-text-bold">$250,000</span>
</body></html>`)
	}))
	defer server.Close()

	cfg := model.DefaultConfig()
	cfg.BoxOffice.BaseURL = server.URL + "/title"

	fetcher, err := NewFetcher(FetcherOptions{UserAgent: "test-agent"})
	require.NoError(t, err)
	p, err := NewFromConfig(cfg, model.KindBoxOffice, fetcher, nil)
	require.NoError(t, err)

	rec := p.Scrape(context.Background(), model.MustIdentifier("114709"))

	assert.Equal(t, "/title/tt0114709", gotPath)
	assert.Equal(t, model.OutcomeOK, rec.Outcome())

	v, ok := rec.Get("Domestic")
	require.True(t, ok)
	assert.Equal(t, int64(100000), v.Amount)
	_, ok = rec.Get("International")
	assert.False(t, ok)
	v, ok = rec.Get("WorldWide")
	require.True(t, ok)
	assert.Equal(t, int64(250000), v.Amount)
}

func TestNewFromConfig_UnknownKind(t *testing.T) {
	_, err := NewFromConfig(model.DefaultConfig(), "trivia", &stubFetcher{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trivia")
}
