// Package matcher finds same-account transactions that could be duplicates
// of a target transaction.
//
// The matcher uses strict matching criteria:
//   - Amount must match exactly at fixed decimal precision
//   - Date must fall inside [target-lookback, target+lookahead]
//   - Candidate must not be already resolved or consumed in this run
//   - In self mode, a record never matches itself
//   - Two records both tagged Not-Duplicate are never paired
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultSelfConfig())
//	candidates := m.FindCandidates(target, group, consumed)
//	if len(candidates) == 1 {
//		// One suggestion to confirm
//	}
package matcher

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// Matcher matches a target against a same-account candidate pool
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	if config.LookbackDays < 0 {
		config.LookbackDays = 0
	}
	if config.LookaheadDays < 0 {
		config.LookaheadDays = 0
	}
	return &Matcher{
		config: config,
	}
}

// Config returns the matcher configuration
func (m *Matcher) Config() Config {
	return m.config
}

// FindCandidates returns every pool record inside the target's window, ordered
// by absolute date distance, then date, then id. The consumed set holds record
// keys already used as a counterpart in this run.
func (m *Matcher) FindCandidates(
	target *transaction.Record,
	pool []*transaction.Record,
	consumed map[string]bool,
) []Candidate {
	if target == nil || !target.Amount.Valid {
		return nil
	}

	targetTagged := target.HasAnyTag(transaction.NotDuplicateTags...)

	var candidates []Candidate
	for _, r := range pool {
		if m.config.Mode == ModeSelf && r.Key() == target.Key() {
			continue
		}

		// Skip if already used
		if consumed[r.Key()] || r.IsResolved() {
			continue
		}

		if targetTagged && r.HasAnyTag(transaction.NotDuplicateTags...) {
			continue
		}

		if !r.Amount.Valid || !r.Amount.Decimal.Equal(target.Amount.Decimal) {
			continue
		}

		diff := transaction.DaysBetween(target.Date, r.Date)
		if diff < -m.config.LookbackDays || diff > m.config.LookaheadDays {
			continue
		}

		candidates = append(candidates, Candidate{
			Record:          r,
			DateDiffDays:    diff,
			PayeeSimilarity: PayeeSimilarity(target.Payee, r.Payee),
		})
	}

	SortCandidates(candidates)
	return candidates
}

// SortCandidates applies the presentation order
func SortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Distance() != b.Distance() {
			return a.Distance() < b.Distance()
		}
		if !a.Record.Date.Equal(b.Record.Date) {
			return a.Record.Date.Before(b.Record.Date)
		}
		return transaction.CompareIDs(a.Record.ID, b.Record.ID) < 0
	})
}

// PayeeSimilarity scores two payee strings from 0 (unrelated) to 1 (equal),
// ignoring case. Two empty payees score 0.
func PayeeSimilarity(a, b string) float64 {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}
