package extract

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/movie-ratings/reelscrape/internal/model"
)

// boxOfficeFields are the summary figures in the order the site lists them
var boxOfficeFields = []string{"Domestic", "International", "WorldWide"}

// BoxOffice reads the revenue summary figures (Box Office Mojo title layout)
type BoxOffice struct {
	selector string
}

// NewBoxOffice creates a box-office-figures strategy
func NewBoxOffice(cfg model.BoxOfficeConfig) *BoxOffice {
	selector := cfg.Selector
	if selector == "" {
		selector = "span.a-size-medium.a-text-bold"
	}
	return &BoxOffice{selector: selector}
}

// Kind returns the record kind
func (b *BoxOffice) Kind() string {
	return model.KindBoxOffice
}

// Target declares Domestic, International and WorldWide
func (b *BoxOffice) Target() model.Target {
	fields := make([]model.FieldSpec, len(boxOfficeFields))
	for i, name := range boxOfficeFields {
		fields[i] = model.FieldSpec{
			Name:    name,
			Locator: b.selector + ":nth(" + strconv.Itoa(i+1) + ")",
			Shape:   model.ShapeCurrency,
		}
	}
	return model.Target{Kind: b.Kind(), Fields: fields}
}

// Extract maps the first three matching elements to the summary figures
func (b *BoxOffice) Extract(page string) (map[string]model.Value, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	values := make(map[string]model.Value, len(boxOfficeFields))
	doc.Find(b.selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= len(boxOfficeFields) {
			return false
		}
		if amount, ok := parseCurrency(strings.TrimSpace(s.Text())); ok {
			values[boxOfficeFields[i]] = model.CurrencyValue(amount)
		}
		return true
	})

	return values, nil
}

// parseCurrency parses "$1,234,567" into 1234567. A single-character text is
// the site's placeholder dash and counts as absent, as does anything that is
// not a non-negative whole amount.
func parseCurrency(text string) (int64, bool) {
	if utf8.RuneCountInString(text) <= 1 {
		return 0, false
	}

	cleaned := strings.NewReplacer("$", "", ",", "").Replace(text)
	cleaned = strings.TrimSpace(cleaned)

	amount, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return amount, true
}
