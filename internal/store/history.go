// Package store keeps a local SQLite history of scan reports.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ppiankov/slant/internal/model"
)

// FileName is the database file created inside the history directory
const FileName = "slant.db"

// timeLayout is fixed-width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when a report ID is not in the history
var ErrNotFound = errors.New("report not found")

// History stores report summaries and their full JSON
type History struct {
	db     *sql.DB
	dbPath string
}

// Entry is one row of the history listing
type Entry struct {
	ID             string
	Subject        string
	SourceKind     model.SourceKind
	Location       string
	AnalyzedAt     time.Time
	LexiconVersion string
	HasBias        bool
	Severity       model.Severity
	OverallScore   float64
	Categories     []model.Category
}

// Open opens or creates the history database in dir
func Open(dir string) (*History, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	dbPath := filepath.Join(dir, FileName)

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	h := &History{db: db, dbPath: dbPath}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path
func (h *History) Path() string {
	return h.dbPath
}

// Close closes the database
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		source_kind TEXT NOT NULL,
		location TEXT,
		analyzed_at TEXT NOT NULL,
		lexicon_version TEXT NOT NULL,
		has_bias INTEGER NOT NULL,
		severity TEXT NOT NULL,
		overall_score REAL NOT NULL,
		categories TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_analyzed ON reports(analyzed_at);
	CREATE INDEX IF NOT EXISTS idx_reports_severity ON reports(severity);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Record stores a report. The analysed text is never persisted. Recording
// the same report ID again replaces the earlier row.
func (h *History) Record(ctx context.Context, report *model.Report) error {
	stored := *report
	stored.Text = ""
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("serialize report: %w", err)
	}

	names := make([]string, 0, len(report.Result.Categories))
	for _, c := range report.Result.Categories {
		names = append(names, c.String())
	}

	_, err = h.db.ExecContext(ctx, `
	INSERT INTO reports (id, subject, source_kind, location, analyzed_at, lexicon_version,
		has_bias, severity, overall_score, categories, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		subject = excluded.subject,
		source_kind = excluded.source_kind,
		location = excluded.location,
		analyzed_at = excluded.analyzed_at,
		lexicon_version = excluded.lexicon_version,
		has_bias = excluded.has_bias,
		severity = excluded.severity,
		overall_score = excluded.overall_score,
		categories = excluded.categories,
		report_json = excluded.report_json`,
		report.ID,
		report.Subject,
		string(report.Source.Kind),
		report.Source.Location,
		report.AnalyzedAt.UTC().Format(timeLayout),
		report.LexiconVersion,
		report.Result.HasBias,
		string(report.Result.Severity),
		report.Result.OverallScore,
		strings.Join(names, ","),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Recent lists up to limit entries, newest first. A non-positive limit lists all.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
	SELECT id, subject, source_kind, location, analyzed_at, lexicon_version,
		has_bias, severity, overall_score, categories
	FROM reports
	ORDER BY analyzed_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			kind       string
			location   sql.NullString
			analyzedAt string
			severity   string
			categories string
		)
		if err := rows.Scan(&e.ID, &e.Subject, &kind, &location, &analyzedAt, &e.LexiconVersion,
			&e.HasBias, &severity, &e.OverallScore, &categories); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.SourceKind = model.SourceKind(kind)
		e.Location = location.String
		e.Severity = model.Severity(severity)
		if t, err := time.Parse(timeLayout, analyzedAt); err == nil {
			e.AnalyzedAt = t
		}
		if categories != "" {
			e.Categories, _ = model.ParseCategories(strings.Split(categories, ","))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Get loads a stored report by ID
func (h *History) Get(ctx context.Context, id string) (*model.Report, error) {
	var data string
	err := h.db.QueryRowContext(ctx, "SELECT report_json FROM reports WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// Count returns the number of stored reports
func (h *History) Count(ctx context.Context) (int, error) {
	var n int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}
