package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/liststat/internal/model"
)

// ruleWidth is the width of section rules in plain text output.
const ruleWidth = 70

// SimpleWriter outputs human-readable text summaries for the terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no data are shown.
	showEmpty bool

	// verbose adds the per-month breakdown.
	verbose bool

	// months holds the per-month data of the last Write for verbose output.
	months []model.MonthStat
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose adds a per-month table to the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithTopSenders sets how many senders are listed.
func WithTopSenders(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if n > 0 {
			w.topN = n
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary of one list in plain text.
func (w *SimpleWriter) Write(listName string, out *model.AggregateOutput) (int, error) {
	if out == nil {
		out = model.NewAggregateOutput(nil, nil)
	}
	w.months = out.Months
	defer func() { w.months = nil }()

	return w.WriteSummary(w.summarize(listName, out))
}

// WriteSummary outputs the summary in plain text.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeYears(&sb, summary)
	w.writeMonths(&sb)
	w.writeSenders(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeRule writes a section title between two rules.
func writeRule(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeHeader writes the list name and totals.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                      MAILING LIST ARCHIVE STATS\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "List:           %s\n", s.ListName)
	fmt.Fprintf(sb, "Generated:      %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Months:         %d\n", s.MonthCount)
	fmt.Fprintf(sb, "Indexed Months: %d\n", s.IndexedMonths)
	fmt.Fprintf(sb, "Total Emails:   %d\n", s.TotalEmails)
	fmt.Fprintf(sb, "Unique Senders: %d\n", s.UniqueSenders)
	if s.BusiestMonth != "" {
		fmt.Fprintf(sb, "Busiest Month:  %s (%d emails)\n", s.BusiestMonth, s.BusiestMonthEmails)
	}
	sb.WriteString("\n")
}

// writeYears writes active months per year.
func (w *SimpleWriter) writeYears(sb *strings.Builder, s *model.Summary) {
	if len(s.Years) == 0 && !w.showEmpty {
		return
	}

	writeRule(sb, "ACTIVE MONTHS PER YEAR")

	if len(s.Years) == 0 {
		sb.WriteString("  No archive months found\n\n")
		return
	}
	for _, y := range s.Years {
		fmt.Fprintf(sb, "  %-8s %3d %s\n", y.Year, y.ActiveMonths, strings.Repeat("#", y.ActiveMonths))
	}
	sb.WriteString("\n")
}

// writeMonths writes the per-month breakdown in verbose mode.
func (w *SimpleWriter) writeMonths(sb *strings.Builder) {
	if !w.verbose || (len(w.months) == 0 && !w.showEmpty) {
		return
	}

	writeRule(sb, "MONTHS")

	if len(w.months) == 0 {
		sb.WriteString("  No months fetched\n\n")
		return
	}
	for _, m := range sortedMonths(w.months) {
		fmt.Fprintf(sb, "  %-16s %5d emails  %4d senders\n", m.Month, m.TotalEmails, len(m.Senders))
	}
	sb.WriteString("\n")
}

// writeSenders writes the most active senders.
func (w *SimpleWriter) writeSenders(sb *strings.Builder, s *model.Summary) {
	if len(s.TopSenders) == 0 && !w.showEmpty {
		return
	}

	writeRule(sb, "TOP SENDERS")

	if len(s.TopSenders) == 0 {
		sb.WriteString("  No senders found\n\n")
		return
	}
	for i, st := range s.TopSenders {
		fmt.Fprintf(sb, "  %2d. %-40s %5d\n", i+1, st.Sender, st.Threads)
	}
	sb.WriteString("\n")
}

// writeFooter writes the closing rule.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Generated by liststat\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
