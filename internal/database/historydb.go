package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/liststat/internal/model"
)

// FileName is the name of the history database file inside its directory.
const FileName = "liststat.db"

// HistoryDB stores completed list runs in SQLite so later runs can be
// compared against earlier ones.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, ErrNotFound is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per successful run of a list
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		list_name TEXT NOT NULL,
		index_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		total_emails INTEGER NOT NULL DEFAULT 0,
		month_count INTEGER NOT NULL DEFAULT 0,
		output_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_list ON runs(list_name);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Month rows duplicate the document for per-month queries
	CREATE TABLE IF NOT EXISTS months (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		month TEXT NOT NULL,
		total_emails INTEGER NOT NULL,
		sender_count INTEGER NOT NULL,
		UNIQUE(run_id, month)
	);

	CREATE INDEX IF NOT EXISTS idx_months_month ON months(month);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// StoredRun is a run loaded from the database.
type StoredRun struct {
	ID         int64
	ListName   string
	IndexURL   string
	StartedAt  time.Time
	FinishedAt time.Time
	Output     *model.AggregateOutput
}

// RunMetadata contains summary information about a stored run.
// It is used for listing history without decoding the documents.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// ListName is the mailing list of the run.
	ListName string

	// Timestamp is when the run started.
	Timestamp time.Time

	// TotalEmails is the sum of total_emails over all months.
	TotalEmails int

	// MonthCount is the number of months fetched.
	MonthCount int
}

// MonthRecord is one month of a stored run.
type MonthRecord struct {
	RunID       int64
	Timestamp   time.Time
	Month       string
	TotalEmails int
	SenderCount int
}

// SaveRun stores a finished run and returns its ID.
// Failed runs are rejected with ErrFailedRun because their data is incomplete.
func (hdb *HistoryDB) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	if run == nil {
		return 0, ErrNilRun
	}
	if run.Failed() {
		return 0, fmt.Errorf("%w: %s", ErrFailedRun, run.ErrorMessage)
	}

	out := run.Output()
	outputJSON, err := json.Marshal(out)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run output: %w", err)
	}

	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op after Commit.
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (list_name, index_url, started_at, finished_at, total_emails, month_count, output_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ListName,
		run.IndexURL,
		formatTimestamp(run.StartedAt),
		formatTimestamp(finished),
		out.TotalEmails(),
		len(out.Months),
		string(outputJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, m := range out.Months {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO months (run_id, month, total_emails, sender_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, month) DO UPDATE SET
			total_emails = excluded.total_emails,
			sender_count = excluded.sender_count
		`, id, m.Month, m.TotalEmails, len(m.Senders))
		if err != nil {
			return 0, fmt.Errorf("failed to save month %s: %w", m.Month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return id, nil
}

// GetRunByID retrieves a run by its database ID.
// It returns nil without error when no run has that ID.
func (hdb *HistoryDB) GetRunByID(ctx context.Context, id int64) (*StoredRun, error) {
	row := hdb.db.QueryRowContext(ctx, `
	SELECT id, list_name, index_url, started_at, finished_at, output_json
	FROM runs
	WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetLatestRuns retrieves up to limit runs of a list, newest first.
func (hdb *HistoryDB) GetLatestRuns(ctx context.Context, listName string, limit int) ([]*StoredRun, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := hdb.db.QueryContext(ctx, `
	SELECT id, list_name, index_url, started_at, finished_at, output_json
	FROM runs
	WHERE list_name = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`, listName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}
	defer rows.Close()

	var runs []*StoredRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRunHistoryWithMetadata retrieves run metadata for a list, newest first.
func (hdb *HistoryDB) GetRunHistoryWithMetadata(ctx context.Context, listName string) ([]RunMetadata, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT id, list_name, started_at, total_emails, month_count
	FROM runs
	WHERE list_name = ?
	ORDER BY started_at DESC, id DESC
	`, listName)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string

		if err := rows.Scan(&meta.ID, &meta.ListName, &timestamp, &meta.TotalEmails, &meta.MonthCount); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetMonthHistory retrieves one month of a list across all stored runs, newest first.
func (hdb *HistoryDB) GetMonthHistory(ctx context.Context, listName, month string) ([]MonthRecord, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT r.id, r.started_at, m.month, m.total_emails, m.sender_count
	FROM months m
	JOIN runs r ON r.id = m.run_id
	WHERE r.list_name = ? AND m.month = ?
	ORDER BY r.started_at DESC, r.id DESC
	`, listName, month)
	if err != nil {
		return nil, fmt.Errorf("failed to get month history: %w", err)
	}
	defer rows.Close()

	var results []MonthRecord
	for rows.Next() {
		var rec MonthRecord
		var timestamp string

		if err := rows.Scan(&rec.RunID, &timestamp, &rec.Month, &rec.TotalEmails, &rec.SenderCount); err != nil {
			return nil, fmt.Errorf("failed to scan month: %w", err)
		}
		rec.Timestamp = parseTimestamp(timestamp)

		results = append(results, rec)
	}

	return results, rows.Err()
}

// ListArchivedLists returns the names of all lists with stored runs.
func (hdb *HistoryDB) ListArchivedLists(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT DISTINCT list_name FROM runs
	ORDER BY list_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailing lists: %w", err)
	}
	defer rows.Close()

	var lists []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan list name: %w", err)
		}
		lists = append(lists, name)
	}

	return lists, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one runs row.
func scanRun(row rowScanner) (*StoredRun, error) {
	var run StoredRun
	var started, finished, outputJSON string

	if err := row.Scan(&run.ID, &run.ListName, &run.IndexURL, &started, &finished, &outputJSON); err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)

	var out model.AggregateOutput
	if err := json.Unmarshal([]byte(outputJSON), &out); err != nil {
		return nil, fmt.Errorf("failed to parse run output: %w", err)
	}
	if out.Years == nil {
		out.Years = model.YearSummary{}
	}
	if out.Months == nil {
		out.Months = []model.MonthStat{}
	}
	run.Output = &out

	return &run, nil
}

// timestampLayout has a fixed width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// formatTimestamp formats t in UTC for storage.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
