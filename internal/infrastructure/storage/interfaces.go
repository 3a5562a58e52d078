package storage

import "context"

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
type Repository interface {
	RunRepository
	ResolutionRepository
	Close() error
}

// RunRepository handles reconcile run tracking
type RunRepository interface {
	// StartRun records the start of a run and returns its id
	StartRun(ctx context.Context, params RunParams) (string, error)

	// CompleteRun records the outcome of a run. A non-empty errMsg marks it failed.
	CompleteRun(ctx context.Context, runID string, stats RunStats, errMsg string) error

	// GetRun retrieves a run by id. Returns ErrNotFound if it does not exist.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns the most recent runs first
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
}

// ResolutionRepository handles the decision log
type ResolutionRepository interface {
	// SaveResolution appends one decision
	SaveResolution(ctx context.Context, r *Resolution) error

	// LatestResolutions returns the most recent decision per record id for a
	// source, considering only runs of the given mode
	LatestResolutions(ctx context.Context, mode, source string) (map[string]*Resolution, error)

	// ListResolutions returns decisions matching the filter, newest first
	ListResolutions(ctx context.Context, filter ResolutionFilter) (*ResolutionListResult, error)
}
