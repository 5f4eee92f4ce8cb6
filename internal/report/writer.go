package report

import (
	"io"
	"sort"
	"time"

	"github.com/nao1215/liststat/internal/model"
)

// Writer outputs archive statistics in one format.
type Writer interface {
	// Write outputs the statistics of one list.
	Write(listName string, out *model.AggregateOutput) (int, error)

	// WriteSummary outputs derived figures only.
	WriteSummary(summary *model.Summary) (int, error)
}

// MultiWriter writes to multiple Writers in turn and stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the statistics to all configured Writers.
func (m *MultiWriter) Write(listName string, out *model.AggregateOutput) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(listName, out)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary *model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
	topN   int
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output, topN: model.DefaultTopSenders}
}

// summarize derives the summary written by the human-readable writers.
func (b baseWriter) summarize(listName string, out *model.AggregateOutput) *model.Summary {
	return model.NewSummary(listName, out, b.topN)
}

// monthLayout is the label format of freelists.org month pages.
const monthLayout = "January-2006"

// sortedMonths returns a copy of months in calendar order.
// Labels that are not in "Month-Year" form sort after the others by label.
func sortedMonths(months []model.MonthStat) []model.MonthStat {
	out := make([]model.MonthStat, len(months))
	copy(out, months)

	sort.SliceStable(out, func(i, j int) bool {
		ti, erri := time.Parse(monthLayout, out[i].Month)
		tj, errj := time.Parse(monthLayout, out[j].Month)
		switch {
		case erri == nil && errj == nil:
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return out[i].Month < out[j].Month
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return out[i].Month < out[j].Month
		}
	})
	return out
}
