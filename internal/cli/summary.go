package cli

import (
	"io"
	"time"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/movie-ratings/reelscrape/internal/table"
	"github.com/movie-ratings/reelscrape/internal/worker"
)

type mergeInput struct {
	Path string
	Rows int
}

func renderScrapeSummary(w io.Writer, kind, output string, stats worker.Stats) {
	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("scrape " + kind)
	t.AppendHeader(prettytable.Row{"Identifiers", "Skipped", "OK", "Fetch failed", "Parse failed", "Elapsed"})
	t.AppendRow(prettytable.Row{
		stats.Total, stats.Skipped, stats.OK, stats.FetchFailed, stats.ParseFailed,
		stats.Elapsed.Round(time.Millisecond),
	})
	t.AppendFooter(prettytable.Row{"Output", output})
	t.SetStyle(prettytable.StyleRounded)
	t.Render()
}

func renderMergeSummary(w io.Writer, inputs []mergeInput, output string, rowsOut int, stats table.MergeStats) {
	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(prettytable.Row{"#", "Batch", "Rows"})
	for i, in := range inputs {
		t.AppendRow(prettytable.Row{i + 1, in.Path, in.Rows})
	}
	t.AppendSeparator()
	t.AppendRow(prettytable.Row{"", "duplicates dropped", stats.Duplicates})
	t.AppendRow(prettytable.Row{"", "invalid identifiers dropped", stats.Invalid})
	t.AppendFooter(prettytable.Row{"", output, rowsOut})
	t.SetStyle(prettytable.StyleRounded)
	t.Render()
}
