package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/liststat/internal/config"
	"github.com/nao1215/liststat/internal/database"
	"github.com/nao1215/liststat/internal/model"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// Constants for activity direction.
const (
	trendGrew      = "grew"
	trendShrank    = "shrank"
	trendUnchanged = "unchanged"
)

// errNoListName is returned when compare needs a list name but got none.
var errNoListName = errors.New("list name is required (use --list-lists to see stored lists)")

// NewCompareCmd creates the compare command.
// This command compares stored runs of a mailing list.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [list-name]",
		Short: "Compare archive statistics with earlier runs",
		Long: `Compare shows how the archive of a mailing list changed between two
runs stored by 'liststat stat':
- months that appeared or disappeared
- months whose email or sender counts changed
- the overall change in emails

By default the two latest runs are compared.

Examples:
  # Compare the latest two runs of a list
  liststat compare golang-dev

  # List stored runs of a list
  liststat compare --list golang-dev

  # Compare the latest run with a specific run by ID
  liststat compare --with-run-id 5 golang-dev

  # Compare with the first run since a date
  liststat compare --since 2025-01-01 golang-dev

  # Output comparison in JSON format
  liststat compare --json golang-dev

  # List all lists in the database
  liststat compare --list-lists`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List stored runs of the specified mailing list")
	cmd.Flags().BoolP("list-lists", "L", false,
		"List all mailing lists in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run at or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// compareOptions holds the parsed compare flags.
type compareOptions struct {
	listName  string
	withRunID int64
	since     string
	json      bool
	markdown  bool
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listLists, err := cmd.Flags().GetBool("list-lists")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var opts compareOptions
	if !listLists {
		if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
			return errNoListName
		}
		opts.listName = strings.TrimSpace(args[0])
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listLists {
		return listArchivedLists(ctx, db, out)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, db, out, opts.listName)
	}

	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if opts.json && opts.markdown {
		return errors.New("--json and --markdown cannot be used together")
	}
	if opts.withRunID, err = cmd.Flags().GetInt64("with-run-id"); err != nil {
		return err
	}
	if opts.since, err = cmd.Flags().GetString("since"); err != nil {
		return err
	}

	return runComparison(ctx, db, out, opts)
}

// listArchivedLists lists all mailing lists that have stored runs.
func listArchivedLists(ctx context.Context, db *database.HistoryDB, out io.Writer) error {
	lists, err := db.ListArchivedLists(ctx)
	if err != nil {
		return err
	}

	if len(lists) == 0 {
		fmt.Fprintln(out, "No mailing lists found in the database.")
		fmt.Fprintln(out, "\nUse 'liststat stat <list-name>' to collect statistics.")
		return nil
	}

	fmt.Fprintf(out, "Mailing lists (%d):\n\n", len(lists))
	for _, name := range lists {
		fmt.Fprintf(out, "  • %s\n", name)
	}
	fmt.Fprintln(out, "\nUse 'liststat compare --list <list-name>' to see the runs of a list.")

	return nil
}

// listRunHistory lists all stored runs of a mailing list.
func listRunHistory(ctx context.Context, db *database.HistoryDB, out io.Writer, listName string) error {
	runs, err := db.GetRunHistoryWithMetadata(ctx, listName)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No run history found for %s\n", listName)
		fmt.Fprintln(out, "\nUse 'liststat stat' to collect statistics for this list.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", listName, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %s\n", "ID", "Date", "Months", "Emails")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 50))

	for _, meta := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-8d  %d\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.MonthCount,
			meta.TotalEmails,
		)
	}

	fmt.Fprintln(out, "\nUse 'liststat compare <list-name>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'liststat compare --with-run-id <id> <list-name>' to compare with a specific run.")

	return nil
}

// runComparison selects the two runs and prints their differences.
func runComparison(ctx context.Context, db *database.HistoryDB, out io.Writer, opts compareOptions) error {
	history, err := db.GetRunHistoryWithMetadata(ctx, opts.listName)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		return fmt.Errorf("no run history found for %s", opts.listName)
	}
	if len(history) < 2 && opts.withRunID == 0 && opts.since == "" {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(history))
	}

	latest, err := db.GetLatestRuns(ctx, opts.listName, 1)
	if err != nil {
		return err
	}
	current := latest[0]

	var previousID int64
	switch {
	case opts.withRunID > 0:
		previousID = opts.withRunID
	case opts.since != "":
		since, err := time.ParseInLocation("2006-01-02", opts.since, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// History is newest first; the oldest run at or after since wins.
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].Timestamp.Before(since) {
				previousID = history[i].ID
				break
			}
		}
		if previousID == 0 {
			return fmt.Errorf("no runs found since %s", opts.since)
		}
		if previousID == current.ID {
			return fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", opts.since)
		}
	default:
		previousID = history[1].ID
	}

	previous, err := db.GetRunByID(ctx, previousID)
	if err != nil {
		return err
	}
	if previous == nil {
		return fmt.Errorf("run with ID %d not found", previousID)
	}
	if previous.ListName != opts.listName {
		return fmt.Errorf("run ID %d belongs to %s, not %s", previousID, previous.ListName, opts.listName)
	}

	comparison := compareRuns(previous, current)

	switch {
	case opts.json:
		return outputComparisonJSON(out, comparison)
	case opts.markdown:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// ComparisonResult holds the result of comparing two runs of a list.
type ComparisonResult struct {
	// ListName is the compared mailing list.
	ListName string `json:"list_name"`

	// PreviousRun contains metadata about the older run.
	PreviousRun RunSnapshot `json:"previous_run"`

	// CurrentRun contains metadata about the newer run.
	CurrentRun RunSnapshot `json:"current_run"`

	// NewMonths are months only present in the current run.
	NewMonths []MonthDelta `json:"new_months,omitempty"`

	// RemovedMonths are months only present in the previous run.
	RemovedMonths []MonthDelta `json:"removed_months,omitempty"`

	// ChangedMonths are months whose email or sender counts differ.
	ChangedMonths []MonthDelta `json:"changed_months,omitempty"`

	// UnchangedCount is the number of months present and equal in both runs.
	UnchangedCount int `json:"unchanged_count"`

	// Trend describes the overall change in activity.
	Trend Trend `json:"trend"`
}

// RunSnapshot contains the figures of one run for comparison display.
type RunSnapshot struct {
	// ID is the database ID of the run.
	ID int64 `json:"id"`

	// StartedAt is when the run was performed.
	StartedAt time.Time `json:"started_at"`

	// TotalEmails is the sum of total_emails over all months.
	TotalEmails int `json:"total_emails"`

	// MonthCount is the number of months fetched.
	MonthCount int `json:"month_count"`

	// UniqueSenders is the number of distinct senders.
	UniqueSenders int `json:"unique_senders"`
}

// MonthDelta is the change of one month between two runs.
type MonthDelta struct {
	Month           string `json:"month"`
	PreviousEmails  int    `json:"previous_emails"`
	CurrentEmails   int    `json:"current_emails"`
	EmailDelta      int    `json:"email_delta"`
	PreviousSenders int    `json:"previous_senders"`
	CurrentSenders  int    `json:"current_senders"`
}

// Trend describes the change in activity between two runs.
type Trend struct {
	// Direction is "grew", "shrank", or "unchanged".
	Direction string `json:"direction"`

	// EmailDelta is the change in total emails.
	EmailDelta int `json:"email_delta"`

	// MonthDelta is the change in the number of months.
	MonthDelta int `json:"month_delta"`

	// SenderDelta is the change in distinct senders.
	SenderDelta int `json:"sender_delta"`
}

// snapshot summarizes a stored run.
func snapshot(run *database.StoredRun) RunSnapshot {
	summary := model.NewSummary(run.ListName, run.Output, 0)
	return RunSnapshot{
		ID:            run.ID,
		StartedAt:     run.StartedAt,
		TotalEmails:   summary.TotalEmails,
		MonthCount:    summary.MonthCount,
		UniqueSenders: summary.UniqueSenders,
	}
}

// compareRuns compares two runs of the same list.
func compareRuns(previous, current *database.StoredRun) *ComparisonResult {
	result := &ComparisonResult{
		ListName:    current.ListName,
		PreviousRun: snapshot(previous),
		CurrentRun:  snapshot(current),
	}

	previousMonths := monthsByLabel(previous.Output)
	currentMonths := monthsByLabel(current.Output)

	for label, cur := range currentMonths {
		prev, exists := previousMonths[label]
		if !exists {
			result.NewMonths = append(result.NewMonths, newMonthDelta(label, model.MonthStat{}, cur))
			continue
		}
		if prev.TotalEmails != cur.TotalEmails || len(prev.Senders) != len(cur.Senders) {
			result.ChangedMonths = append(result.ChangedMonths, newMonthDelta(label, prev, cur))
			continue
		}
		result.UnchangedCount++
	}

	for label, prev := range previousMonths {
		if _, exists := currentMonths[label]; !exists {
			result.RemovedMonths = append(result.RemovedMonths, newMonthDelta(label, prev, model.MonthStat{}))
		}
	}

	sortDeltas(result.NewMonths)
	sortDeltas(result.RemovedMonths)
	sortDeltas(result.ChangedMonths)

	result.Trend = calculateTrend(result.PreviousRun, result.CurrentRun)

	return result
}

// monthsByLabel indexes the months of an output by label.
func monthsByLabel(out *model.AggregateOutput) map[string]model.MonthStat {
	months := make(map[string]model.MonthStat)
	if out == nil {
		return months
	}
	for _, m := range out.Months {
		months[m.Month] = m
	}
	return months
}

// newMonthDelta builds the delta of one month.
func newMonthDelta(label string, prev, cur model.MonthStat) MonthDelta {
	return MonthDelta{
		Month:           label,
		PreviousEmails:  prev.TotalEmails,
		CurrentEmails:   cur.TotalEmails,
		EmailDelta:      cur.TotalEmails - prev.TotalEmails,
		PreviousSenders: len(prev.Senders),
		CurrentSenders:  len(cur.Senders),
	}
}

// sortDeltas orders deltas by calendar month, unparseable labels last.
func sortDeltas(deltas []MonthDelta) {
	sort.SliceStable(deltas, func(i, j int) bool {
		ti, erri := time.Parse("January-2006", deltas[i].Month)
		tj, errj := time.Parse("January-2006", deltas[j].Month)
		if erri == nil && errj == nil && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		if (erri == nil) != (errj == nil) {
			return erri == nil
		}
		return deltas[i].Month < deltas[j].Month
	})
}

// calculateTrend calculates the change in activity between two runs.
func calculateTrend(previous, current RunSnapshot) Trend {
	trend := Trend{
		EmailDelta:  current.TotalEmails - previous.TotalEmails,
		MonthDelta:  current.MonthCount - previous.MonthCount,
		SenderDelta: current.UniqueSenders - previous.UniqueSenders,
	}

	switch {
	case trend.EmailDelta > 0:
		trend.Direction = trendGrew
	case trend.EmailDelta < 0:
		trend.Direction = trendShrank
	default:
		trend.Direction = trendUnchanged
	}

	return trend
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Archive Comparison: " + result.ListName)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainText("**Activity:** " + formatTrend(result.Trend.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", "#" + strconv.FormatInt(result.PreviousRun.ID, 10), "#" + strconv.FormatInt(result.CurrentRun.ID, 10), "-"},
			{"Date", result.PreviousRun.StartedAt.Local().Format("2006-01-02 15:04"), result.CurrentRun.StartedAt.Local().Format("2006-01-02 15:04"), "-"},
			{"Months", strconv.Itoa(result.PreviousRun.MonthCount), strconv.Itoa(result.CurrentRun.MonthCount), formatDelta(result.Trend.MonthDelta)},
			{"Senders", strconv.Itoa(result.PreviousRun.UniqueSenders), strconv.Itoa(result.CurrentRun.UniqueSenders), formatDelta(result.Trend.SenderDelta)},
			{"**Emails**", "**" + strconv.Itoa(result.PreviousRun.TotalEmails) + "**", "**" + strconv.Itoa(result.CurrentRun.TotalEmails) + "**", "**" + formatDelta(result.Trend.EmailDelta) + "**"},
		},
	})
	md.PlainText("")

	writeDeltaTable := func(title string, deltas []MonthDelta) {
		if len(deltas) == 0 {
			return
		}
		md.H2(fmt.Sprintf("%s (%d)", title, len(deltas)))
		md.PlainText("")

		rows := make([][]string, 0, len(deltas))
		for _, d := range deltas {
			rows = append(rows, []string{
				d.Month,
				strconv.Itoa(d.PreviousEmails),
				strconv.Itoa(d.CurrentEmails),
				formatDelta(d.EmailDelta),
				strconv.Itoa(d.CurrentSenders),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Month", "Previous", "Current", "Change", "Senders"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	writeDeltaTable("New Months", result.NewMonths)
	writeDeltaTable("Changed Months", result.ChangedMonths)
	writeDeltaTable("Removed Months", result.RemovedMonths)

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d months unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Archive Comparison: %s\n", result.ListName)
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "\nActivity: %s\n", formatTrend(result.Trend.Direction))

	fmt.Fprintf(&sb, "\nPrevious run: #%d %s\n", result.PreviousRun.ID, result.PreviousRun.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Current run:  #%d %s\n", result.CurrentRun.ID, result.CurrentRun.StartedAt.Local().Format("2006-01-02 15:04:05"))

	sb.WriteString("\nSummary:\n")
	fmt.Fprintf(&sb, "  %-10s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", "Months",
		result.PreviousRun.MonthCount, result.CurrentRun.MonthCount, formatDelta(result.Trend.MonthDelta))
	fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", "Senders",
		result.PreviousRun.UniqueSenders, result.CurrentRun.UniqueSenders, formatDelta(result.Trend.SenderDelta))
	fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", "Emails",
		result.PreviousRun.TotalEmails, result.CurrentRun.TotalEmails, formatDelta(result.Trend.EmailDelta))

	if len(result.NewMonths) > 0 {
		fmt.Fprintf(&sb, "\nNew Months (%d):\n", len(result.NewMonths))
		for _, d := range result.NewMonths {
			fmt.Fprintf(&sb, "  [+] %-16s %d emails, %d senders\n", d.Month, d.CurrentEmails, d.CurrentSenders)
		}
	}

	if len(result.ChangedMonths) > 0 {
		fmt.Fprintf(&sb, "\nChanged Months (%d):\n", len(result.ChangedMonths))
		for _, d := range result.ChangedMonths {
			fmt.Fprintf(&sb, "  [*] %-16s %d -> %d emails (%s)\n", d.Month, d.PreviousEmails, d.CurrentEmails, formatDelta(d.EmailDelta))
		}
	}

	if len(result.RemovedMonths) > 0 {
		fmt.Fprintf(&sb, "\nRemoved Months (%d):\n", len(result.RemovedMonths))
		for _, d := range result.RemovedMonths {
			fmt.Fprintf(&sb, "  [-] %-16s %d emails\n", d.Month, d.PreviousEmails)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d months\n", result.UnchangedCount)
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

// formatTrend formats the activity direction for display.
func formatTrend(direction string) string {
	switch direction {
	case trendGrew:
		return "GREW (more emails)"
	case trendShrank:
		return "SHRANK (fewer emails)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
