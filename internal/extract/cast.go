package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/movie-ratings/reelscrape/internal/model"
)

// CastTable reads person names from the first table following a heading that
// starts with the configured marker (IMDb full credits layout)
type CastTable struct {
	headingSelector string
	marker          string
	maxNames        int
}

// NewCastTable creates a cast-table strategy
func NewCastTable(cfg model.CastConfig) *CastTable {
	maxNames := cfg.MaxNames
	if maxNames <= 0 {
		maxNames = 10
	}
	heading := cfg.HeadingSelector
	if heading == "" {
		heading = "h4"
	}
	return &CastTable{
		headingSelector: heading,
		marker:          cfg.Marker,
		maxNames:        maxNames,
	}
}

// Kind returns the record kind
func (c *CastTable) Kind() string {
	return model.KindCast
}

// Target declares Actor1..ActorN
func (c *CastTable) Target() model.Target {
	fields := make([]model.FieldSpec, c.maxNames)
	for i := range fields {
		fields[i] = model.FieldSpec{
			Name:    fmt.Sprintf("Actor%d", i+1),
			Locator: fmt.Sprintf("%s starting %q > next table > data row %d > second link", c.headingSelector, c.marker, i+1),
			Shape:   model.ShapeName,
		}
	}
	return model.Target{Kind: c.Kind(), Fields: fields}
}

// Extract returns up to maxNames names in row order
func (c *CastTable) Extract(page string) (map[string]model.Value, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	names := c.names(doc)

	values := make(map[string]model.Value, len(names))
	for i, name := range names {
		values[fmt.Sprintf("Actor%d", i+1)] = model.NameValue(name)
	}
	return values, nil
}

func (c *CastTable) names(doc *goquery.Document) []string {
	var names []string

	doc.Find(c.headingSelector).EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		if !strings.HasPrefix(visibleText(heading), c.marker) {
			return true
		}

		table := heading.NextAllFiltered("table").First()
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 || len(names) >= c.maxNames {
				return // header row, or cap reached
			}
			anchors := row.Find("a")
			if anchors.Length() < 2 {
				return
			}
			// An empty link still takes its slot so later names keep their position
			names = append(names, visibleText(anchors.Eq(1)))
		})

		// Only the first matching section counts
		return false
	})

	return names
}
