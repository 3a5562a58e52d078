package dto

// RunListParams represents query parameters for listing runs.
type RunListParams struct {
	Limit int `form:"limit"`
}

// ResolutionListParams represents query parameters for listing resolutions.
type ResolutionListParams struct {
	State  string `form:"state"`
	Source string `form:"source"`
	RunID  string `form:"run_id"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// DefaultRunListParams returns default values for run list params.
func DefaultRunListParams() RunListParams {
	return RunListParams{Limit: 20}
}

// DefaultResolutionListParams returns default values for resolution list params.
func DefaultResolutionListParams() ResolutionListParams {
	return ResolutionListParams{Limit: 50}
}
