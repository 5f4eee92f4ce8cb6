package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ArchiveLink is one month page discovered on the archive index.
type ArchiveLink struct {
	// Label is the raw anchor text, e.g. "January-2020".
	// It is used both as the display key and as the URL path segment.
	Label string `json:"label"`

	// Href is the absolute URL of the month page.
	// It is assigned by the driver once the index URL is known.
	Href string `json:"href,omitempty"`
}

// YearSummary maps a year key (e.g. "2020") to the number of month links
// found for that year.
type YearSummary map[string]int

// Add increments the count for the given year key.
func (y YearSummary) Add(year string) {
	y[year]++
}

// Total returns the number of month links across all years.
func (y YearSummary) Total() int {
	total := 0
	for _, n := range y {
		total += n
	}
	return total
}

// SenderCount maps a sender key to the number of threads attributed to
// that sender within one month.
type SenderCount map[string]int

// Add increments the thread count for the given sender.
func (s SenderCount) Add(sender string) {
	s[sender]++
}

// Total returns the sum of all sender counts.
func (s SenderCount) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// ArchiveIndex is the parsed content of the archive landing page.
type ArchiveIndex struct {
	// Links are all anchors of the index table, in document order.
	// Anchors with empty text are kept here but never fetched.
	Links []ArchiveLink

	// Years counts the non-empty links per year key.
	Years YearSummary
}

// MonthStat holds the counts extracted from one month page.
//
// In JSON a MonthStat is a single-key object keyed by the month label:
//
//	{"March-2019": {"total_emails": 12, "senders": {"Jane Doe": 4}}}
type MonthStat struct {
	// Month is the label taken from the page heading.
	Month string

	// TotalEmails is the number of thread entries listed on the page,
	// including entries with empty text.
	TotalEmails int

	// Senders counts threads per sender for entries with non-empty text.
	Senders SenderCount
}

// monthBody is the JSON value stored under the month label.
type monthBody struct {
	TotalEmails int         `json:"total_emails"`
	Senders     SenderCount `json:"senders"`
}

// errMonthStatShape is returned when a month entry is not a single-key object.
var errMonthStatShape = errors.New("month entry must be an object with exactly one key")

// MarshalJSON encodes the stat as {"<month>": {"total_emails": n, "senders": {...}}}.
func (m MonthStat) MarshalJSON() ([]byte, error) {
	senders := m.Senders
	if senders == nil {
		senders = SenderCount{}
	}

	// encoding/json escapes <, > and & by default; sender names often
	// contain them, so encode with HTML escaping disabled.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]monthBody{
		m.Month: {TotalEmails: m.TotalEmails, Senders: senders},
	}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes the single-key representation produced by MarshalJSON.
func (m *MonthStat) UnmarshalJSON(data []byte) error {
	var raw map[string]monthBody
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("%w: got %d keys", errMonthStatShape, len(raw))
	}
	for month, body := range raw {
		m.Month = month
		m.TotalEmails = body.TotalEmails
		m.Senders = body.Senders
		if m.Senders == nil {
			m.Senders = SenderCount{}
		}
	}
	return nil
}

// AggregateOutput is the document written to {list_name}.json.
type AggregateOutput struct {
	// Years counts active months per year.
	Years YearSummary `json:"years"`

	// Months holds one entry per fetched month page in completion order.
	Months []MonthStat `json:"months"`
}

// NewAggregateOutput returns an output with non-nil collections so that it
// always serializes as {"years": {}, "months": []}.
func NewAggregateOutput(years YearSummary, months []MonthStat) *AggregateOutput {
	if years == nil {
		years = YearSummary{}
	}
	if months == nil {
		months = []MonthStat{}
	}
	return &AggregateOutput{Years: years, Months: months}
}

// TotalEmails returns the number of emails across all months.
func (o *AggregateOutput) TotalEmails() int {
	total := 0
	for _, m := range o.Months {
		total += m.TotalEmails
	}
	return total
}

// Month returns the stat for the given month label.
// The second return value is false if the month is not present.
func (o *AggregateOutput) Month(label string) (MonthStat, bool) {
	for _, m := range o.Months {
		if m.Month == label {
			return m, true
		}
	}
	return MonthStat{}, false
}
