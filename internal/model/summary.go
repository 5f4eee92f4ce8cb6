package model

import (
	"sort"
	"time"
)

// DefaultTopSenders is the number of senders listed in a Summary.
const DefaultTopSenders = 10

// SenderTotal is a sender with the number of threads across all months.
type SenderTotal struct {
	Sender  string `json:"sender"`
	Threads int    `json:"threads"`
}

// YearTotal is a year with its number of active months.
type YearTotal struct {
	Year         string `json:"year"`
	ActiveMonths int    `json:"active_months"`
}

// Summary contains derived figures for human-readable reports.
// The JSON archive document never contains these values.
type Summary struct {
	// ListName is the mailing list the figures belong to.
	ListName string `json:"list_name"`

	// GeneratedAt is when the summary was built.
	GeneratedAt time.Time `json:"generated_at"`

	// TotalEmails is the sum of total_emails over all months.
	TotalEmails int `json:"total_emails"`

	// MonthCount is the number of month pages fetched.
	MonthCount int `json:"month_count"`

	// IndexedMonths is the number of month links on the archive index.
	IndexedMonths int `json:"indexed_months"`

	// Years lists active months per year, sorted by year.
	Years []YearTotal `json:"years"`

	// BusiestMonth is the month with the most emails.
	// Ties are broken by label so the result is stable.
	BusiestMonth string `json:"busiest_month,omitempty"`

	// BusiestMonthEmails is the email count of BusiestMonth.
	BusiestMonthEmails int `json:"busiest_month_emails"`

	// UniqueSenders is the number of distinct sender keys.
	UniqueSenders int `json:"unique_senders"`

	// TopSenders are the most active senders, most threads first.
	TopSenders []SenderTotal `json:"top_senders"`
}

// NewSummary derives a Summary from an aggregate output.
// topN limits the number of senders listed; zero or negative means DefaultTopSenders.
func NewSummary(listName string, out *AggregateOutput, topN int) *Summary {
	if topN <= 0 {
		topN = DefaultTopSenders
	}

	s := &Summary{
		ListName:      listName,
		GeneratedAt:   time.Now(),
		IndexedMonths: out.Years.Total(),
		Years:         make([]YearTotal, 0, len(out.Years)),
		TopSenders:    make([]SenderTotal, 0),
	}

	for year, n := range out.Years {
		s.Years = append(s.Years, YearTotal{Year: year, ActiveMonths: n})
	}
	sort.Slice(s.Years, func(i, j int) bool {
		return s.Years[i].Year < s.Years[j].Year
	})

	senders := make(map[string]int)
	for _, m := range out.Months {
		s.MonthCount++
		s.TotalEmails += m.TotalEmails

		if m.TotalEmails > s.BusiestMonthEmails ||
			(m.TotalEmails == s.BusiestMonthEmails && (s.BusiestMonth == "" || m.Month < s.BusiestMonth)) {
			s.BusiestMonth = m.Month
			s.BusiestMonthEmails = m.TotalEmails
		}

		for sender, n := range m.Senders {
			senders[sender] += n
		}
	}
	s.UniqueSenders = len(senders)

	for sender, n := range senders {
		s.TopSenders = append(s.TopSenders, SenderTotal{Sender: sender, Threads: n})
	}
	sort.Slice(s.TopSenders, func(i, j int) bool {
		if s.TopSenders[i].Threads != s.TopSenders[j].Threads {
			return s.TopSenders[i].Threads > s.TopSenders[j].Threads
		}
		return s.TopSenders[i].Sender < s.TopSenders[j].Sender
	})
	if len(s.TopSenders) > topN {
		s.TopSenders = s.TopSenders[:topN]
	}

	return s
}

// HasMonths reports whether any month was collected.
func (s *Summary) HasMonths() bool {
	return s.MonthCount > 0
}
