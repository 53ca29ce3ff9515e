package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store manages the run journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timestampLayout         = time.RFC3339Nano
)

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	// modernc.org/sqlite applies _pragma parameters to every pooled connection.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a running row and returns its id. An empty ID is filled
// with a fresh UUID.
func (s *Store) BeginRun(ctx context.Context, run Run) (string, error) {
	id := strings.TrimSpace(run.ID)
	if id == "" {
		id = uuid.NewString()
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO runs (
            id, started_at, status, source_language, target_language, model, input_dir, output_dir
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		started.UTC().Format(timestampLayout),
		RunRunning,
		run.SourceLanguage,
		run.TargetLanguage,
		run.Model,
		nullableString(run.InputDir),
		nullableString(run.OutputDir),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordFile appends one file outcome to a run.
func (s *Store) RecordFile(ctx context.Context, runID string, rec FileRecord) error {
	recorded := rec.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO run_files (
            run_id, name, output_path, status, reason, error_kind,
            entries, chunks, fallbacks, attempts, warnings, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		rec.Name,
		nullableString(rec.OutputPath),
		rec.Status,
		nullableString(rec.Reason),
		nullableString(rec.Kind),
		rec.Entries,
		rec.Chunks,
		rec.Fallbacks,
		rec.Attempts,
		rec.Warnings,
		rec.Duration.Milliseconds(),
		recorded.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// FinishRun marks a run terminal.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, errMsg string) error {
	return s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE id = ?`,
		status,
		time.Now().UTC().Format(timestampLayout),
		nullableString(errMsg),
		runID,
	)
}

const runSelect = `SELECT r.id, r.started_at, r.finished_at, r.status, r.source_language, r.target_language,
        r.model, r.input_dir, r.output_dir, r.error_message,
        COUNT(f.id),
        COALESCE(SUM(CASE WHEN f.status != 'failed' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN f.status = 'failed' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(f.fallbacks), 0)
   FROM runs r
   LEFT JOIN run_files f ON f.run_id = r.id`

// ListRuns returns the most recent runs, newest first, with per-run aggregates.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		runSelect+` GROUP BY r.id ORDER BY r.started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id equals or starts with runID, or nil when
// nothing matches. An ambiguous prefix is an error.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	rows, err := s.db.QueryContext(ctx,
		runSelect+` WHERE r.id = ? OR r.id LIKE ? GROUP BY r.id ORDER BY (r.id = ?) DESC, r.started_at DESC LIMIT 2`,
		runID, runID+"%", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == runID {
			return &run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", runID)
	}
}

// Files returns the file outcomes of a run in recording order.
func (s *Store) Files(ctx context.Context, runID string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, output_path, status, reason, error_kind, entries, chunks,
                fallbacks, attempts, warnings, duration_ms, recorded_at
           FROM run_files
          WHERE run_id = ?
          ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var (
			rec                      FileRecord
			outputPath, reason, kind sql.NullString
			durationMS               int64
			recordedAt               string
		)
		if err := rows.Scan(&rec.Name, &outputPath, &rec.Status, &reason, &kind, &rec.Entries,
			&rec.Chunks, &rec.Fallbacks, &rec.Attempts, &rec.Warnings, &durationMS, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		rec.OutputPath = outputPath.String
		rec.Reason = reason.String
		rec.Kind = kind.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.RecordedAt = parseTime(recordedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                                     Run
		startedAt, status                       string
		finishedAt, inputDir, outputDir, errMsg sql.NullString
	)
	if err := row.Scan(&run.ID, &startedAt, &finishedAt, &status, &run.SourceLanguage,
		&run.TargetLanguage, &run.Model, &inputDir, &outputDir, &errMsg,
		&run.Files, &run.Written, &run.Failed, &run.Fallbacks); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}
	run.InputDir = inputDir.String
	run.OutputDir = outputDir.String
	run.ErrorMessage = errMsg.String
	return run, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
