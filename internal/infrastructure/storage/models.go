package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunParams describes a run at start
type RunParams struct {
	Mode          string `json:"mode"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
	LookbackDays  int    `json:"lookback_days"`
	LookaheadDays int    `json:"lookahead_days"`
}

// RunStats holds the counters recorded when a run completes
type RunStats struct {
	RecordsTotal  int `json:"records_total"`
	Targets       int `json:"targets"`
	Prompts       int `json:"prompts"`
	Duplicates    int `json:"duplicates"`
	NotDuplicates int `json:"not_duplicates"`
	Matches       int `json:"matches"`
	Investigate   int `json:"investigate"`
	Kept          int `json:"kept"`
	Unmapped      int `json:"unmapped"`
	Pending       int `json:"pending"`
	SplitParents  int `json:"split_parents"`
	Ignored       int `json:"ignored"`
}

// Run represents a reconcile run record
type Run struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RunParams
	Stats RunStats `json:"stats"`
}

// Resolution is one persisted decision about a record
type Resolution struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	RecordID  string    `json:"record_id"`
	Account   string    `json:"account"`
	Amount    string    `json:"amount"`
	Date      string    `json:"date"`
	Payee     string    `json:"payee"`
	Notes     string    `json:"notes"`
	State     string    `json:"state"`
	RelatedID string    `json:"related_id,omitempty"`
	Edited    bool      `json:"edited"`
	DecidedAt time.Time `json:"decided_at"`
}

// ResolutionFilter defines filters for listing resolutions
type ResolutionFilter struct {
	State  string // Filter by state (empty = all)
	Source string // Filter by source (empty = all)
	RunID  string // Filter by run (empty = all)
	Limit  int    // Max results (0 = default 50)
	Offset int    // Pagination offset
}

// ResolutionListResult contains paginated resolution results
type ResolutionListResult struct {
	Resolutions []*Resolution `json:"resolutions"`
	TotalCount  int           `json:"total_count"`
	Limit       int           `json:"limit"`
	Offset      int           `json:"offset"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
