// Package transaction defines the normalized in-memory transaction record
// shared by every reconciliation component.
//
// A Record is built by a source loader, annotated in place during a
// reconciliation run (resolution state, related id and descriptive edits)
// and handed back to the caller in an output collection.
package transaction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source tags which side of a two-source comparison a record came from
type Source string

const (
	SourcePrimary   Source = "primary"
	SourceReference Source = "reference"
)

// State is the resolution state assigned during reconciliation
type State string

const (
	StateUnresolved   State = "unresolved"
	StateDuplicate    State = "duplicate"
	StateNotDuplicate State = "not_duplicate"
	StateKeep         State = "keep"
	StateMatch        State = "match"
	StateInvestigate  State = "investigate"
)

// ParseState parses a persisted state. Empty input is unresolved.
// Accepts the title-case labels older spreadsheets use ("Duplicate").
func ParseState(s string) (State, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch State(normalized) {
	case "", StateUnresolved:
		return StateUnresolved, nil
	case StateDuplicate, StateNotDuplicate, StateKeep, StateMatch, StateInvestigate:
		return State(normalized), nil
	case "delete":
		return StateDuplicate, nil
	}
	return StateUnresolved, fmt.Errorf("unknown resolution state %q", s)
}

// IsStable reports whether the state survives across runs. Stable records
// are never offered as targets or candidates again.
func (s State) IsStable() bool {
	switch s {
	case StateDuplicate, StateNotDuplicate, StateMatch, StateInvestigate:
		return true
	}
	return false
}

// ErrMissingField marks an input data error on a record
var ErrMissingField = errors.New("missing required field")

// Record is one financial transaction from any source
type Record struct {
	ID     string
	Source Source
	Seq    int // Position in the loaded set

	AccountName string
	Amount      decimal.NullDecimal
	Date        time.Time

	Payee  string
	Notes  string
	Origin string // Import channel, e.g. "plaid", "csv"
	Tags   []string

	IsPending     bool
	IsSplitParent bool
	ParentID      string // Set on split children

	State     State
	RelatedID string

	// Fields carries source columns the engine does not interpret so they can
	// be written back unchanged.
	Fields map[string]string
}

// Key returns the identity used by sets and maps across the engine
func (r *Record) Key() string {
	return string(r.Source) + ":" + r.ID
}

// Validate checks the mandatory attributes
func (r *Record) Validate() error {
	var missing []string
	if strings.TrimSpace(r.AccountName) == "" {
		missing = append(missing, "account_name")
	}
	if !r.Amount.Valid {
		missing = append(missing, "amount")
	}
	if r.Date.IsZero() {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("record %s: %w: %s", r.Key(), ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

// NotDuplicateTags mark a record the operator already judged distinct in the
// originating system. Two tagged records are never paired.
var NotDuplicateTags = []string{"Not-Duplicate", "SkipDupCheck"}

// HasAnyTag reports whether the record carries any of tags, ignoring case
func (r *Record) HasAnyTag(tags ...string) bool {
	for _, have := range r.Tags {
		for _, want := range tags {
			if strings.EqualFold(strings.TrimSpace(have), want) {
				return true
			}
		}
	}
	return false
}

// IsResolved reports whether the record carries a stable state
func (r *Record) IsResolved() bool {
	return r.State.IsStable()
}

// AmountString formats the amount at currency precision
func (r *Record) AmountString() string {
	if !r.Amount.Valid {
		return ""
	}
	return r.Amount.Decimal.StringFixed(2)
}

// DateString formats the date as YYYY-MM-DD
func (r *Record) DateString() string {
	if r.Date.IsZero() {
		return ""
	}
	return r.Date.Format(DateLayout)
}

// DateLayout is the calendar date format used for display and CSV output
const DateLayout = "2006-01-02"

// Day truncates t to a UTC calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// CompareIDs orders ids numerically when both are integers, lexically otherwise
func CompareIDs(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
