package model

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// TestRun tests run state handling.
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("new run is empty", func(t *testing.T) {
		t.Parallel()

		run := NewRun("testlist")

		if run.ListName != "testlist" {
			t.Errorf("expected list name testlist, got %q", run.ListName)
		}
		if run.MonthCount() != 0 {
			t.Errorf("expected no months, got %d", run.MonthCount())
		}
		if run.Failed() {
			t.Error("expected new run not to be failed")
		}
		if run.StartedAt.IsZero() {
			t.Error("expected StartedAt to be set")
		}
	})

	t.Run("AddMonth is safe for concurrent use", func(t *testing.T) {
		t.Parallel()

		run := NewRun("testlist")

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				run.AddMonth(MonthStat{Month: "x", TotalEmails: 1})
			}()
		}
		wg.Wait()

		if run.MonthCount() != 50 {
			t.Errorf("expected 50 months, got %d", run.MonthCount())
		}
	})

	t.Run("Fail records error message", func(t *testing.T) {
		t.Parallel()

		run := NewRun("testlist")
		run.Fail(errors.New("boom"))

		if !run.Failed() {
			t.Error("expected run to be failed")
		}
		if run.ErrorMessage != "boom" {
			t.Errorf("expected message boom, got %q", run.ErrorMessage)
		}
	})

	t.Run("Output copies collected data", func(t *testing.T) {
		t.Parallel()

		run := NewRun("testlist")
		run.Years["2020"] = 1
		run.AddMonth(MonthStat{Month: "January-2020", TotalEmails: 3})

		out := run.Output()
		run.AddMonth(MonthStat{Month: "February-2020", TotalEmails: 5})

		if len(out.Months) != 1 {
			t.Errorf("expected output to hold 1 month, got %d", len(out.Months))
		}
		if out.Years["2020"] != 1 {
			t.Errorf("expected year 2020 count 1, got %d", out.Years["2020"])
		}
	})

	t.Run("Duration is zero until finished", func(t *testing.T) {
		t.Parallel()

		run := NewRun("testlist")
		if run.Duration() != 0 {
			t.Errorf("expected zero duration, got %v", run.Duration())
		}

		run.FinishedAt = run.StartedAt.Add(2 * time.Second)
		if run.Duration() != 2*time.Second {
			t.Errorf("expected 2s, got %v", run.Duration())
		}
	})
}

// TestNewSummary tests derived report figures.
func TestNewSummary(t *testing.T) {
	t.Parallel()

	out := NewAggregateOutput(
		YearSummary{"2021": 1, "2020": 2},
		[]MonthStat{
			{Month: "January-2020", TotalEmails: 3, Senders: SenderCount{"Jane": 2, "John": 1}},
			{Month: "February-2020", TotalEmails: 5, Senders: SenderCount{"Jane": 1, "Ann": 4}},
			{Month: "March-2021", TotalEmails: 5, Senders: SenderCount{"Bob": 5}},
		},
	)

	s := NewSummary("testlist", out, 2)

	if s.TotalEmails != 13 {
		t.Errorf("expected 13 emails, got %d", s.TotalEmails)
	}
	if s.MonthCount != 3 {
		t.Errorf("expected 3 months, got %d", s.MonthCount)
	}
	if s.IndexedMonths != 3 {
		t.Errorf("expected 3 indexed months, got %d", s.IndexedMonths)
	}
	if len(s.Years) != 2 || s.Years[0].Year != "2020" || s.Years[1].Year != "2021" {
		t.Errorf("expected years sorted ascending, got %v", s.Years)
	}
	// February-2020 and March-2021 tie on 5; the smaller label wins.
	if s.BusiestMonth != "February-2020" {
		t.Errorf("expected busiest month February-2020, got %q", s.BusiestMonth)
	}
	if s.UniqueSenders != 4 {
		t.Errorf("expected 4 unique senders, got %d", s.UniqueSenders)
	}
	if len(s.TopSenders) != 2 {
		t.Fatalf("expected 2 top senders, got %d", len(s.TopSenders))
	}
	if s.TopSenders[0].Sender != "Bob" || s.TopSenders[0].Threads != 5 {
		t.Errorf("expected Bob with 5 threads first, got %+v", s.TopSenders[0])
	}
	if s.TopSenders[1].Sender != "Ann" {
		t.Errorf("expected Ann second, got %+v", s.TopSenders[1])
	}
	if !s.HasMonths() {
		t.Error("expected HasMonths to be true")
	}
}
