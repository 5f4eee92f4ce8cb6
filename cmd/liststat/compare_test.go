package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/liststat/internal/database"
	"github.com/nao1215/liststat/internal/model"
)

// seedHistory stores runs of testlist and returns the database directory.
// The first run is the oldest.
func seedHistory(t *testing.T, outputs ...*model.AggregateOutput) (string, []int64) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]int64, 0, len(outputs))
	for i, out := range outputs {
		run := model.NewRun("testlist")
		run.IndexURL = "https://www.freelists.org/archive/testlist"
		run.StartedAt = base.AddDate(0, 0, i)
		run.FinishedAt = run.StartedAt.Add(time.Second)
		run.Years = out.Years
		for _, m := range out.Months {
			run.AddMonth(m)
		}

		id, err := db.SaveRun(t.Context(), run)
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		ids = append(ids, id)
	}
	return dir, ids
}

// executeCompare runs "liststat compare" with args.
func executeCompare(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"compare"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

// olderOutput and newerOutput are two snapshots of the same archive.
var (
	olderOutput = model.NewAggregateOutput(
		model.YearSummary{"2020": 2},
		[]model.MonthStat{
			{Month: "January-2020", TotalEmails: 3, Senders: model.SenderCount{"Jane": 3}},
			{Month: "February-2020", TotalEmails: 5, Senders: model.SenderCount{"Ann": 5}},
		},
	)
	newerOutput = model.NewAggregateOutput(
		model.YearSummary{"2020": 2, "2021": 1},
		[]model.MonthStat{
			{Month: "January-2020", TotalEmails: 3, Senders: model.SenderCount{"Jane": 3}},
			{Month: "February-2020", TotalEmails: 7, Senders: model.SenderCount{"Ann": 5, "Bob": 2}},
			{Month: "March-2021", TotalEmails: 1, Senders: model.SenderCount{"Cy": 1}},
		},
	)
)

// TestCompareRuns tests the month-level comparison.
func TestCompareRuns(t *testing.T) {
	t.Parallel()

	previous := &database.StoredRun{ID: 1, ListName: "testlist", Output: olderOutput}
	current := &database.StoredRun{ID: 2, ListName: "testlist", Output: newerOutput}

	result := compareRuns(previous, current)

	if len(result.NewMonths) != 1 || result.NewMonths[0].Month != "March-2021" {
		t.Errorf("expected March-2021 as new month, got %+v", result.NewMonths)
	}
	if len(result.ChangedMonths) != 1 || result.ChangedMonths[0].EmailDelta != 2 {
		t.Errorf("expected February-2020 to change by 2, got %+v", result.ChangedMonths)
	}
	if len(result.RemovedMonths) != 0 {
		t.Errorf("expected no removed months, got %+v", result.RemovedMonths)
	}
	if result.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged month, got %d", result.UnchangedCount)
	}
	if result.Trend.Direction != trendGrew || result.Trend.EmailDelta != 3 {
		t.Errorf("unexpected trend %+v", result.Trend)
	}

	reverse := compareRuns(current, previous)
	if len(reverse.RemovedMonths) != 1 || reverse.Trend.Direction != trendShrank {
		t.Errorf("expected removed month and shrinking trend, got %+v", reverse)
	}
}

// TestFormatDelta tests signed delta formatting.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := map[int]string{3: "+3", 0: "0", -2: "-2"}
	for delta, want := range tests {
		if got := formatDelta(delta); got != want {
			t.Errorf("formatDelta(%d) = %q, want %q", delta, got, want)
		}
	}
}

// TestRunCompareCmd tests the compare command against a seeded database.
func TestRunCompareCmd(t *testing.T) {
	t.Parallel()

	dbDir, ids := seedHistory(t, olderOutput, newerOutput)

	t.Run("text comparison of latest runs", func(t *testing.T) {
		t.Parallel()

		out, err := executeCompare(t, "--db-dir", dbDir, "testlist")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Archive Comparison: testlist", "GREW", "[+] March-2021", "[*] February-2020", "Unchanged: 1 months"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("json comparison", func(t *testing.T) {
		t.Parallel()

		out, err := executeCompare(t, "--db-dir", dbDir, "--json", "testlist")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result.PreviousRun.ID != ids[0] || result.CurrentRun.ID != ids[1] {
			t.Errorf("unexpected runs compared: %+v", result)
		}
	})

	t.Run("markdown comparison", func(t *testing.T) {
		t.Parallel()

		out, err := executeCompare(t, "--db-dir", dbDir, "--markdown", "testlist")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "# Archive Comparison: testlist") || !strings.Contains(out, "## New Months (1)") {
			t.Errorf("unexpected markdown:\n%s", out)
		}
	})

	t.Run("lists history and lists", func(t *testing.T) {
		t.Parallel()

		out, err := executeCompare(t, "--db-dir", dbDir, "--list", "testlist")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Run history for testlist (2 runs)") {
			t.Errorf("unexpected history output:\n%s", out)
		}

		out, err = executeCompare(t, "--db-dir", dbDir, "--list-lists")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "testlist") {
			t.Errorf("unexpected list output:\n%s", out)
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		t.Parallel()

		if _, err := executeCompare(t, "--db-dir", dbDir, "--with-run-id", "999", "testlist"); err == nil {
			t.Error("expected error for unknown run")
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		if _, err := executeCompare(t, "--db-dir", dbDir, "-j", "-m", "testlist"); err == nil {
			t.Error("expected error for --json with --markdown")
		}
	})
}

// TestCompareErrors tests argument and history errors.
func TestCompareErrors(t *testing.T) {
	t.Parallel()

	t.Run("requires list name", func(t *testing.T) {
		t.Parallel()

		if _, err := executeCompare(t, "--db-dir", t.TempDir()); err == nil {
			t.Error("expected error without list name")
		}
	})

	t.Run("missing database", func(t *testing.T) {
		t.Parallel()

		if _, err := executeCompare(t, "--db-dir", t.TempDir(), "testlist"); err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("single run", func(t *testing.T) {
		t.Parallel()

		dbDir, _ := seedHistory(t, olderOutput)
		_, err := executeCompare(t, "--db-dir", dbDir, "testlist")
		if err == nil || !strings.Contains(err.Error(), "at least 2 runs") {
			t.Errorf("expected at least 2 runs error, got %v", err)
		}
	})
}
