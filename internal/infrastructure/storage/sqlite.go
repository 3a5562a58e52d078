package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for runs and resolutions.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	// Foreign keys are per connection in SQLite, so enable them in the DSN
	// for every pooled connection
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartRun records the start of a run
func (s *Storage) StartRun(ctx context.Context, params RunParams) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO reconcile_runs (id, mode, started_at, start_date, end_date, lookback_days, lookahead_days, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		id,
		params.Mode,
		time.Now().UTC(),
		params.StartDate,
		params.EndDate,
		params.LookbackDays,
		params.LookaheadDays,
		RunStatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// CompleteRun records the completion of a run
func (s *Storage) CompleteRun(ctx context.Context, runID string, stats RunStats, errMsg string) error {
	status := RunStatusCompleted
	if errMsg != "" {
		status = RunStatusFailed
	}

	query := `
		UPDATE reconcile_runs
		SET completed_at = ?,
		    status = ?,
		    error_message = ?,
		    records_total = ?,
		    targets = ?,
		    prompts = ?,
		    duplicates = ?,
		    not_duplicates = ?,
		    matches = ?,
		    investigate = ?,
		    kept = ?,
		    unmapped = ?,
		    pending = ?,
		    split_parents = ?,
		    ignored = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		time.Now().UTC(),
		status,
		errMsg,
		stats.RecordsTotal,
		stats.Targets,
		stats.Prompts,
		stats.Duplicates,
		stats.NotDuplicates,
		stats.Matches,
		stats.Investigate,
		stats.Kept,
		stats.Unmapped,
		stats.Pending,
		stats.SplitParents,
		stats.Ignored,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `
	id, mode, started_at, completed_at, start_date, end_date, lookback_days, lookahead_days,
	status, error_message, records_total, targets, prompts, duplicates, not_duplicates,
	matches, investigate, kept, unmapped, pending, split_parents, ignored`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.Mode,
		&run.StartedAt,
		&completedAt,
		&run.StartDate,
		&run.EndDate,
		&run.LookbackDays,
		&run.LookaheadDays,
		&run.Status,
		&run.ErrorMessage,
		&run.Stats.RecordsTotal,
		&run.Stats.Targets,
		&run.Stats.Prompts,
		&run.Stats.Duplicates,
		&run.Stats.NotDuplicates,
		&run.Stats.Matches,
		&run.Stats.Investigate,
		&run.Stats.Kept,
		&run.Stats.Unmapped,
		&run.Stats.Pending,
		&run.Stats.SplitParents,
		&run.Stats.Ignored,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}

// GetRun retrieves a run by id
func (s *Storage) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM reconcile_runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM reconcile_runs ORDER BY started_at DESC, id LIMIT ?`,
		normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveResolution appends a decision to the log
func (s *Storage) SaveResolution(ctx context.Context, r *Resolution) error {
	if r.DecidedAt.IsZero() {
		r.DecidedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO resolutions
		(run_id, source, record_id, account, amount, txn_date, payee, notes, state, related_id, edited, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		r.RunID,
		r.Source,
		r.RecordID,
		r.Account,
		r.Amount,
		r.Date,
		r.Payee,
		r.Notes,
		r.State,
		r.RelatedID,
		r.Edited,
		r.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save resolution for %s:%s: %w", r.Source, r.RecordID, err)
	}
	r.ID, _ = result.LastInsertId()
	return nil
}

const resolutionColumns = `
	id, run_id, source, record_id, account, amount, txn_date, payee, notes, state, related_id, edited, decided_at`

func scanResolution(row scanner) (*Resolution, error) {
	r := &Resolution{}
	err := row.Scan(
		&r.ID,
		&r.RunID,
		&r.Source,
		&r.RecordID,
		&r.Account,
		&r.Amount,
		&r.Date,
		&r.Payee,
		&r.Notes,
		&r.State,
		&r.RelatedID,
		&r.Edited,
		&r.DecidedAt,
	)
	return r, err
}

// LatestResolutions returns the newest decision per record id for a source.
// Self and cross runs label the same primary rows differently, so only runs
// of mode are considered.
func (s *Storage) LatestResolutions(ctx context.Context, mode, source string) (map[string]*Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions r
		WHERE source = ?
		  AND run_id IN (SELECT id FROM reconcile_runs WHERE mode = ?)
		  AND id = (
			SELECT MAX(x.id) FROM resolutions x
			WHERE x.source = r.source
			  AND x.record_id = r.record_id
			  AND x.run_id IN (SELECT id FROM reconcile_runs WHERE mode = ?)
		  )`

	rows, err := s.db.QueryContext(ctx, query, source, mode, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to load resolutions: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]*Resolution)
	for rows.Next() {
		r, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		latest[r.RecordID] = r
	}
	return latest, rows.Err()
}

// ListResolutions returns decisions matching the filter with pagination
func (s *Storage) ListResolutions(ctx context.Context, filter ResolutionFilter) (*ResolutionListResult, error) {
	var where []string
	var args []any
	if filter.State != "" {
		where = append(where, "state = ?")
		args = append(args, filter.State)
	}
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	limit := normalizeLimit(filter.Limit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	result := &ResolutionListResult{
		Resolutions: make([]*Resolution, 0),
		Limit:       limit,
		Offset:      offset,
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resolutions`+clause, args...).Scan(&result.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to count resolutions: %w", err)
	}

	query := `SELECT ` + resolutionColumns + ` FROM resolutions` + clause + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		result.Resolutions = append(result.Resolutions, r)
	}
	return result, rows.Err()
}
