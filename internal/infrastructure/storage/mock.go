package storage

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	runs        map[string]*Run
	runOrder    []string
	resolutions []*Resolution
	nextRunSeq  int
	nextResID   int64

	// Hooks for test assertions
	StartRunCalled       bool
	CompleteRunCalled    bool
	SaveResolutionCalled bool
	LastSavedResolution  *Resolution

	// Error injection for testing error paths
	StartRunErr          error
	CompleteRunErr       error
	SaveResolutionErr    error
	LatestResolutionsErr error
	ListRunsErr          error
	ListResolutionsErr   error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:      make(map[string]*Run),
		nextResID: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// StartRun records a run with a predictable id (run-1, run-2, ...)
func (m *MockRepository) StartRun(ctx context.Context, params RunParams) (string, error) {
	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return "", m.StartRunErr
	}
	m.nextRunSeq++
	id := fmt.Sprintf("run-%d", m.nextRunSeq)
	m.runs[id] = &Run{
		ID:        id,
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
		RunParams: params,
	}
	m.runOrder = append(m.runOrder, id)
	return id, nil
}

// CompleteRun marks a run finished
func (m *MockRepository) CompleteRun(ctx context.Context, runID string, stats RunStats, errMsg string) error {
	m.CompleteRunCalled = true
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Stats = stats
	run.ErrorMessage = errMsg
	run.Status = RunStatusCompleted
	if errMsg != "" {
		run.Status = RunStatusFailed
	}
	return nil
}

// GetRun retrieves a run by id
func (m *MockRepository) GetRun(ctx context.Context, runID string) (*Run, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *run
	return &copied, nil
}

// ListRuns returns runs newest first
func (m *MockRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if m.ListRunsErr != nil {
		return nil, m.ListRunsErr
	}
	limit = normalizeLimit(limit)
	runs := make([]*Run, 0, len(m.runOrder))
	for i := len(m.runOrder) - 1; i >= 0 && len(runs) < limit; i-- {
		copied := *m.runs[m.runOrder[i]]
		runs = append(runs, &copied)
	}
	return runs, nil
}

// SaveResolution appends a decision
func (m *MockRepository) SaveResolution(ctx context.Context, r *Resolution) error {
	m.SaveResolutionCalled = true
	m.LastSavedResolution = r
	if m.SaveResolutionErr != nil {
		return m.SaveResolutionErr
	}
	// Deep copy to avoid test mutations
	copied := *r
	copied.ID = m.nextResID
	if copied.DecidedAt.IsZero() {
		copied.DecidedAt = time.Now().UTC()
	}
	r.ID = copied.ID
	m.nextResID++
	m.resolutions = append(m.resolutions, &copied)
	return nil
}

// LatestResolutions returns the newest decision per record id for a source
// among runs of mode
func (m *MockRepository) LatestResolutions(ctx context.Context, mode, source string) (map[string]*Resolution, error) {
	if m.LatestResolutionsErr != nil {
		return nil, m.LatestResolutionsErr
	}
	latest := make(map[string]*Resolution)
	for _, r := range m.resolutions {
		run, ok := m.runs[r.RunID]
		if !ok || run.Mode != mode {
			continue
		}
		if r.Source == source {
			latest[r.RecordID] = r
		}
	}
	return latest, nil
}

// ListResolutions filters decisions newest first
func (m *MockRepository) ListResolutions(ctx context.Context, filter ResolutionFilter) (*ResolutionListResult, error) {
	if m.ListResolutionsErr != nil {
		return nil, m.ListResolutionsErr
	}
	var matched []*Resolution
	for _, r := range m.resolutions {
		if filter.State != "" && r.State != filter.State {
			continue
		}
		if filter.Source != "" && r.Source != filter.Source {
			continue
		}
		if filter.RunID != "" && r.RunID != filter.RunID {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	limit := normalizeLimit(filter.Limit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	result := &ResolutionListResult{
		Resolutions: make([]*Resolution, 0),
		TotalCount:  len(matched),
		Limit:       limit,
		Offset:      offset,
	}
	for i := offset; i < len(matched) && len(result.Resolutions) < limit; i++ {
		result.Resolutions = append(result.Resolutions, matched[i])
	}
	return result, nil
}

// Resolutions returns every saved decision in insertion order
func (m *MockRepository) Resolutions() []*Resolution {
	return m.resolutions
}
