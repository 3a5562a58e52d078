package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	SchemaVersion int64  `json:"schema_version,omitempty"`
}

// NewHealthResponse creates a healthy response stamped with the current time.
func NewHealthResponse(schemaVersion int64) HealthResponse {
	return HealthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		SchemaVersion: schemaVersion,
	}
}

// RunStatsResponse holds the outcome counters of a run.
type RunStatsResponse struct {
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

// RunResponse represents a reconcile run in API responses.
type RunResponse struct {
	ID            string           `json:"id"`
	Mode          string           `json:"mode"`
	Status        string           `json:"status"`
	StartedAt     string           `json:"started_at"`
	CompletedAt   string           `json:"completed_at,omitempty"`
	StartDate     string           `json:"start_date,omitempty"`
	EndDate       string           `json:"end_date,omitempty"`
	LookbackDays  int              `json:"lookback_days"`
	LookaheadDays int              `json:"lookahead_days"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	Stats         RunStatsResponse `json:"stats"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// ResolutionResponse represents one recorded decision.
type ResolutionResponse struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	Source    string `json:"source"`
	RecordID  string `json:"record_id"`
	Account   string `json:"account"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Payee     string `json:"payee,omitempty"`
	Notes     string `json:"notes,omitempty"`
	State     string `json:"state"`
	RelatedID string `json:"related_id,omitempty"`
	Edited    bool   `json:"edited"`
	DecidedAt string `json:"decided_at"`
}

// ResolutionListResponse is returned when listing resolutions.
type ResolutionListResponse struct {
	Resolutions []ResolutionResponse `json:"resolutions"`
	TotalCount  int                  `json:"total_count"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}
