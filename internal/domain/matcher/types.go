package matcher

import (
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// Mode selects how the candidate pool relates to the target
type Mode string

const (
	// ModeSelf compares a set against itself with a symmetric window
	ModeSelf Mode = "self"
	// ModeCross compares primary targets against a reference pool
	ModeCross Mode = "cross"
)

// Config holds matcher configuration
type Config struct {
	Mode          Mode
	LookbackDays  int // Days before the target date (inclusive)
	LookaheadDays int // Days after the target date (inclusive)
}

// DefaultSelfConfig returns the symmetric 7-day window used for self comparison
func DefaultSelfConfig() Config {
	return SelfConfig(7)
}

// SelfConfig returns a symmetric window of windowDays on each side
func SelfConfig(windowDays int) Config {
	return Config{
		Mode:          ModeSelf,
		LookbackDays:  windowDays,
		LookaheadDays: windowDays,
	}
}

// DefaultCrossConfig returns sensible defaults for cross-source comparison.
// Settlement dates in older exports usually trail the authorization date.
func DefaultCrossConfig() Config {
	return Config{
		Mode:          ModeCross,
		LookbackDays:  1,
		LookaheadDays: 7,
	}
}

// Candidate is one record inside the target's window
type Candidate struct {
	Record          *transaction.Record
	DateDiffDays    int     // Signed: candidate date minus target date
	PayeeSimilarity float64 // 0-1, display only
}

// Distance returns the absolute day distance from the target
func (c Candidate) Distance() int {
	if c.DateDiffDays < 0 {
		return -c.DateDiffDays
	}
	return c.DateDiffDays
}
