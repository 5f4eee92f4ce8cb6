package model

import (
	"sync"
	"time"
)

// Run is the state of one archive run for a single mailing list.
// It is created by the caller, filled by the pipeline steps and turned into
// an AggregateOutput once every step succeeded.
type Run struct {
	// ListName is the mailing list name as given by the user.
	ListName string `json:"list_name"`

	// IndexURL is the archive landing page URL built from the base template.
	IndexURL string `json:"index_url"`

	// Links are the month links discovered on the index page.
	Links []ArchiveLink `json:"links,omitempty"`

	// Years counts active months per year.
	Years YearSummary `json:"years,omitempty"`

	// Months holds the parsed month pages in fetch completion order.
	Months []MonthStat `json:"months,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step returned.
	FinishedAt time.Time `json:"finished_at"`

	// PerformedSteps lists the names of the steps that completed.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Err is the error that ended the run, if any.
	// It is not serialized; ErrorMessage carries the text.
	Err error `json:"-"`

	// ErrorMessage is the string form of Err.
	ErrorMessage string `json:"error,omitempty"`

	// mu guards Months while month pages are collected concurrently.
	mu sync.Mutex
}

// NewRun creates an empty run for the given list.
func NewRun(listName string) *Run {
	return &Run{
		ListName:  listName,
		Years:     YearSummary{},
		Months:    make([]MonthStat, 0),
		StartedAt: time.Now(),
	}
}

// AddMonth appends a month stat. It is safe for concurrent use.
func (r *Run) AddMonth(stat MonthStat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Months = append(r.Months, stat)
}

// MonthCount returns the number of collected months.
func (r *Run) MonthCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Months)
}

// Fail records the error that ended the run.
func (r *Run) Fail(err error) {
	r.Err = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Failed reports whether the run ended with an error.
func (r *Run) Failed() bool {
	return r.Err != nil || r.ErrorMessage != ""
}

// Duration returns how long the run took.
// It returns zero while the run has not finished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Output assembles the aggregate document from the collected data.
func (r *Run) Output() *AggregateOutput {
	r.mu.Lock()
	defer r.mu.Unlock()

	months := make([]MonthStat, len(r.Months))
	copy(months, r.Months)
	return NewAggregateOutput(r.Years, months)
}
