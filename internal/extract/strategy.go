package extract

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/movie-ratings/reelscrape/internal/model"
	"golang.org/x/net/html"
)

// Strategy extracts one kind of record from a fetched page
type Strategy interface {
	// Kind returns the record kind this strategy produces (cast, boxoffice)
	Kind() string

	// Target describes the fields the strategy looks for
	Target() model.Target

	// Extract pulls the target fields out of the page. Fields that are not on
	// the page are left out of the result; only unparsable content is an error.
	Extract(page string) (map[string]model.Value, error)
}

// ParseError reports page content that cannot be read as markup at all
type ParseError struct {
	ContentType string
	Err         error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse page (%s): %v", e.ContentType, e.Err)
	}
	return fmt.Sprintf("parse page: content type %s is not markup", e.ContentType)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Registry resolves strategies by record kind
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates a registry with the built-in strategies configured from cfg
func NewRegistry(cfg *model.Config) *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(NewCastTable(cfg.Cast))
	r.Register(NewBoxOffice(cfg.BoxOffice))
	return r
}

// Register adds or replaces a strategy
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Kind()] = s
}

// Lookup returns the strategy for kind
func (r *Registry) Lookup(kind string) (Strategy, error) {
	s, ok := r.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("no extraction strategy for kind %q (known: %s)", kind, strings.Join(r.Kinds(), ", "))
	}
	return s, nil
}

// Kinds lists registered kinds in sorted order
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// parseDocument turns page content into a goquery document.
// Binary payloads (images, PDFs, archives) are rejected before parsing.
func parseDocument(page string) (*goquery.Document, error) {
	sniff := page
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	contentType := http.DetectContentType([]byte(sniff))
	if !strings.HasPrefix(contentType, "text/") {
		return nil, &ParseError{ContentType: contentType}
	}

	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, &ParseError{ContentType: contentType, Err: err}
	}

	return goquery.NewDocumentFromNode(root), nil
}

// visibleText returns the trimmed text of a selection with line breaks removed
func visibleText(s *goquery.Selection) string {
	text := strings.ReplaceAll(s.Text(), "\n", "")
	return strings.TrimSpace(text)
}
