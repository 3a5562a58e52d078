package reconcile

import (
	"log/slog"
	"time"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/adapters/sources"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/accounts"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/disambiguate"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/grouping"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/resolution"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
)

// DefaultPrimaryOrigin is the import channel compared in cross mode
const DefaultPrimaryOrigin = "plaid"

// Options holds run configuration
type Options struct {
	StartDate time.Time // Zero means unbounded
	EndDate   time.Time // Zero means unbounded
	DryRun    bool      // Skip run tracking and decision persistence

	// Self mode
	WindowDays      int
	AskEditOnReject bool

	// Cross mode
	LookbackDays      int
	LookaheadDays     int
	AutoConfirmSingle bool
	PrimaryOrigin     string // Defaults to DefaultPrimaryOrigin
}

// Dependencies are the collaborators a Runner drives
type Dependencies struct {
	Primary   sources.Loader
	Reference sources.Loader // Required for cross mode only
	Mapper    accounts.Mapper
	Operator  disambiguate.Operator
	Store     storage.Repository // Optional
	Logger    *slog.Logger
}

// StateCounts counts records per resolution state
type StateCounts map[transaction.State]int

// Summary holds the outcome counters of one run
type Summary struct {
	Mode         matcher.Mode
	Targets      int // Targets handed to the controller
	Prompts      int // Operator prompts, including re-prompts
	AutoResolved int // Targets decided without asking
	PreResolved  int // Records that took a stable state from the store
	Decisions    int

	Primary   StateCounts
	Reference StateCounts
}

// Total returns the count of a state across both collections
func (s Summary) Total(state transaction.State) int {
	return s.Primary[state] + s.Reference[state]
}

// Result holds run results. On an aborted run the partial result is returned
// together with the error; unvisited records remain unresolved.
type Result struct {
	RunID   string // Empty for dry runs
	Output  resolution.Output
	Ignored []*transaction.Record // Primary records outside PrimaryOrigin

	Report          grouping.Report // Primary set
	ReferenceReport grouping.Report
	Summary         Summary
}
