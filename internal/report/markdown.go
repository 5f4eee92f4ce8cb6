package report

import (
	"io"
	"strconv"

	"github.com/nao1215/liststat/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown for sharing in issues and docs.
// Active months per year are drawn as a mermaid pie chart.
type MarkdownWriter struct {
	baseWriter

	// months holds the per-month data of the last Write.
	months []model.MonthStat
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownTopSenders sets how many senders are listed.
func WithMarkdownTopSenders(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if n > 0 {
			w.topN = n
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary of one list, followed by a per-month table.
func (w *MarkdownWriter) Write(listName string, out *model.AggregateOutput) (int, error) {
	if out == nil {
		out = model.NewAggregateOutput(nil, nil)
	}
	w.months = out.Months
	defer func() { w.months = nil }()

	return w.WriteSummary(w.summarize(listName, out))
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeYears(md, summary)
	w.writeSenders(md, summary)
	w.writeMonths(md)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the totals table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Summary) {
	md.H1("Archive Stats: " + s.ListName)
	md.PlainText("")

	busiest := "-"
	if s.BusiestMonth != "" {
		busiest = s.BusiestMonth + " (" + strconv.Itoa(s.BusiestMonthEmails) + " emails)"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Mailing List", "`" + s.ListName + "`"},
			{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Months", strconv.Itoa(s.MonthCount)},
			{"Indexed Months", strconv.Itoa(s.IndexedMonths)},
			{"Total Emails", strconv.Itoa(s.TotalEmails)},
			{"Unique Senders", strconv.Itoa(s.UniqueSenders)},
			{"Busiest Month", busiest},
		},
	})
	md.PlainText("")

	if !s.HasMonths() {
		md.Note("No archive months were found for this list.")
		md.PlainText("")
	}
}

// writeYears writes active months per year as a table and a pie chart.
func (w *MarkdownWriter) writeYears(md *markdown.Markdown, s *model.Summary) {
	if len(s.Years) == 0 {
		return
	}

	md.H2("Active Months per Year")
	md.PlainText("")

	rows := make([][]string, 0, len(s.Years))
	for _, y := range s.Years {
		rows = append(rows, []string{y.Year, strconv.Itoa(y.ActiveMonths)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Year", "Active Months"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, s)
}

// writePieChart writes a mermaid pie chart of active months per year.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Active Months per Year"),
		piechart.WithShowData(true),
	)

	for _, y := range s.Years {
		if y.ActiveMonths > 0 {
			chart.LabelAndIntValue(y.Year, uint64(y.ActiveMonths)) //nolint:gosec // counts are never negative
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeSenders writes the most active senders.
func (w *MarkdownWriter) writeSenders(md *markdown.Markdown, s *model.Summary) {
	md.H2("Top Senders")
	md.PlainText("")

	if len(s.TopSenders) == 0 {
		md.PlainText("No senders found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(s.TopSenders))
	for i, st := range s.TopSenders {
		rows = append(rows, []string{strconv.Itoa(i + 1), st.Sender, strconv.Itoa(st.Threads)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Sender", "Threads"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeMonths writes one row per fetched month in calendar order.
func (w *MarkdownWriter) writeMonths(md *markdown.Markdown) {
	if len(w.months) == 0 {
		return
	}

	md.H2("Months")
	md.PlainText("")

	rows := make([][]string, 0, len(w.months))
	for _, m := range sortedMonths(w.months) {
		rows = append(rows, []string{m.Month, strconv.Itoa(m.TotalEmails), strconv.Itoa(len(m.Senders))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Month", "Emails", "Senders"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by [liststat](https://github.com/nao1215/liststat)*")
}
