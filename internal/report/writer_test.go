package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/liststat/internal/model"
)

// createTestOutput creates an aggregate output with sample data for testing.
func createTestOutput() *model.AggregateOutput {
	return model.NewAggregateOutput(
		model.YearSummary{"2020": 2, "2021": 1},
		[]model.MonthStat{
			{Month: "February-2020", TotalEmails: 5, Senders: model.SenderCount{"Ann": 4, "Jane <jane@example.com>": 1}},
			{Month: "January-2020", TotalEmails: 3, Senders: model.SenderCount{"Jane <jane@example.com>": 2, "John": 1}},
			{Month: "March-2021", TotalEmails: 2, Senders: model.SenderCount{"Bob": 2}},
		},
	)
}

// TestJSONWriter tests the archive document and summary JSON output.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes archive document", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write("testlist", createTestOutput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.AggregateOutput
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Years["2020"] != 2 || decoded.Years["2021"] != 1 {
			t.Errorf("unexpected years: %v", decoded.Years)
		}
		if len(decoded.Months) != 3 {
			t.Fatalf("expected 3 months, got %d", len(decoded.Months))
		}
		if decoded.Months[0].Month != "February-2020" {
			t.Errorf("expected month order to be kept, got %q first", decoded.Months[0].Month)
		}
		if strings.Contains(buf.String(), "testlist") {
			t.Error("expected list name not to be part of the document")
		}
	})

	t.Run("does not escape html characters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write("testlist", createTestOutput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "Jane <jane@example.com>") {
			t.Errorf("expected sender to be written verbatim, got %s", buf.String())
		}
		if strings.Contains(buf.String(), `\u003c`) || strings.Contains(buf.String(), `\u003e`) {
			t.Error("expected no escaped angle brackets")
		}
	})

	t.Run("nil output writes empty document", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write("testlist", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := `{"years":{},"months":[]}` + "\n"
		if buf.String() != want {
			t.Errorf("expected %q, got %q", want, buf.String())
		}
	})

	t.Run("writes summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := model.NewSummary("testlist", createTestOutput(), 0)
		if _, err := NewJSONWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.Summary
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.ListName != "testlist" {
			t.Errorf("expected list name testlist, got %q", decoded.ListName)
		}
		if decoded.TotalEmails != 10 {
			t.Errorf("expected 10 emails, got %d", decoded.TotalEmails)
		}
		if decoded.BusiestMonth != "February-2020" {
			t.Errorf("expected busiest month February-2020, got %q", decoded.BusiestMonth)
		}
	})
}

// TestWithIndent tests pretty-printed JSON output.
func TestWithIndent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opts   []JSONWriterOption
		indent string
	}{
		{name: "compact", opts: nil, indent: ""},
		{name: "pretty print", opts: []JSONWriterOption{WithPrettyPrint()}, indent: "\n  \"years\""},
		{name: "tabs", opts: []JSONWriterOption{WithIndent("", "\t")}, indent: "\n\t\"years\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := NewJSONWriter(&buf, tt.opts...).Write("testlist", createTestOutput()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.indent == "" {
				if strings.Count(buf.String(), "\n") != 1 {
					t.Errorf("expected single line output, got %q", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), tt.indent) {
				t.Errorf("expected indentation %q in %q", tt.indent, buf.String())
			}
		})
	}
}

// TestSimpleWriter tests the human-readable text writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write("testlist", createTestOutput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"MAILING LIST ARCHIVE STATS",
			"List:           testlist",
			"Months:         3",
			"Indexed Months: 3",
			"Total Emails:   10",
			"Unique Senders: 4",
			"Busiest Month:  February-2020 (5 emails)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes years and senders", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write("testlist", createTestOutput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "ACTIVE MONTHS PER YEAR") {
			t.Error("expected years section")
		}
		if !strings.Contains(output, "TOP SENDERS") {
			t.Error("expected senders section")
		}
		if strings.Index(output, "2020") > strings.Index(output, "2021") {
			t.Error("expected years in ascending order")
		}
		if strings.Index(output, "Ann") > strings.Index(output, "Bob") {
			t.Error("expected most active sender first")
		}
		if strings.Contains(output, "MONTHS\n") {
			t.Error("expected no month breakdown without verbose")
		}
	})

	t.Run("verbose writes months in calendar order", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write("testlist", createTestOutput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		start := strings.Index(output, "MONTHS\n")
		if start < 0 {
			t.Fatalf("expected a MONTHS section, got:\n%s", output)
		}
		section := output[start:]
		jan := strings.Index(section, "\n  January-2020 ")
		feb := strings.Index(section, "\n  February-2020 ")
		mar := strings.Index(section, "\n  March-2021 ")
		if jan < 0 || feb < 0 || mar < 0 {
			t.Fatalf("expected month rows, got:\n%s", output)
		}
		if jan > feb || feb > mar {
			t.Errorf("expected calendar order, got:\n%s", section)
		}
	})

	t.Run("top senders limit", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithTopSenders(1)).Write("testlist", createTestOutput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Ann") {
			t.Error("expected top sender")
		}
		if strings.Contains(output, " 2. ") {
			t.Error("expected a single sender row")
		}
	})

	t.Run("empty output hides sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write("emptylist", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "TOP SENDERS") {
			t.Error("expected senders section to be hidden")
		}
		if strings.Contains(output, "Busiest Month") {
			t.Error("expected no busiest month")
		}
	})

	t.Run("show empty sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write("emptylist", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "No archive months found") {
			t.Error("expected empty years message")
		}
		if !strings.Contains(output, "No senders found") {
			t.Error("expected empty senders message")
		}
	})
}

// TestMarkdownWriter tests the Markdown writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write("testlist", createTestOutput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Archive Stats: testlist",
			"## Active Months per Year",
			"```mermaid",
			"pie",
			"## Top Senders",
			"## Months",
			"February-2020 (5 emails)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("empty output adds note", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write("emptylist", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "No archive months were found") {
			t.Error("expected note for empty archive")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart without years")
		}
	})

	t.Run("summary only has no month table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := model.NewSummary("testlist", createTestOutput(), 0)
		if _, err := NewMarkdownWriter(&buf, WithMarkdownTopSenders(2)).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(buf.String(), "## Months") {
			t.Error("expected no month table")
		}
	})
}

// errWriter fails every write.
type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write("testlist", createTestOutput())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		t.Parallel()

		var js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(errWriter{}), NewJSONWriter(&js))

		if _, err := mw.WriteSummary(model.NewSummary("testlist", createTestOutput(), 0)); err == nil {
			t.Fatal("expected error")
		}
		if js.Len() != 0 {
			t.Error("expected second writer not to be called")
		}
	})
}

// TestWriteFile tests writing the archive document to disk.
func TestWriteFile(t *testing.T) {
	t.Parallel()

	t.Run("writes list document", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path, err := WriteFile(dir, "testlist", createTestOutput())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if path != filepath.Join(dir, "testlist.json") {
			t.Errorf("unexpected path %q", path)
		}

		data, err := os.ReadFile(path) //nolint:gosec // test path
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		var decoded model.AggregateOutput
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("file is not valid JSON: %v", err)
		}
		if len(decoded.Months) != 3 {
			t.Errorf("expected 3 months, got %d", len(decoded.Months))
		}
	})

	t.Run("replaces existing file and leaves no temp files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "testlist.json")
		if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, err := WriteFile(dir, "testlist", nil, WithPrettyPrint()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path) //nolint:gosec // test path
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"months": []`) {
			t.Errorf("expected pretty empty document, got %s", data)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("expected only the document, got %d entries", len(entries))
		}
	})

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "out")
		if _, err := WriteFile(dir, "testlist", createTestOutput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "testlist.json")); err != nil {
			t.Errorf("expected file to exist: %v", err)
		}
	})
}

// TestSortedMonths tests calendar ordering of month labels.
func TestSortedMonths(t *testing.T) {
	t.Parallel()

	months := []model.MonthStat{
		{Month: "odd-label"},
		{Month: "March-2019"},
		{Month: "December-2018"},
		{Month: "January-2019"},
	}

	got := sortedMonths(months)
	want := []string{"December-2018", "January-2019", "March-2019", "odd-label"}
	for i, m := range got {
		if m.Month != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], m.Month)
		}
	}
	if months[0].Month != "odd-label" {
		t.Error("expected input slice to be unchanged")
	}
}
