// Package validator checks split transactions before they are reconciled.
//
// A split parent is replaced by its children in the originating system, so
// the children should sum to the parent amount. A mismatch usually means a
// child was deleted or edited after the split.
package validator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// Tolerance allows for per-child rounding
var Tolerance = decimal.RequireFromString("0.02")

// SplitValidation contains the result of validating one split parent
type SplitValidation struct {
	ParentID string
	Valid    bool

	// ChildrenSum is the sum of the children present in the set
	ChildrenSum decimal.Decimal

	// Expected is the parent amount
	Expected decimal.Decimal

	// Difference is ChildrenSum minus Expected
	Difference decimal.Decimal

	// Reason explains why validation failed (empty if valid)
	Reason string
}

// ValidateSplit checks that children sum to the parent amount within Tolerance
func ValidateSplit(parent *transaction.Record, children []*transaction.Record) *SplitValidation {
	sum := decimal.Zero
	for _, c := range children {
		if c.Amount.Valid {
			sum = sum.Add(c.Amount.Decimal)
		}
	}

	v := &SplitValidation{
		ParentID:    parent.ID,
		ChildrenSum: sum,
		Expected:    parent.Amount.Decimal,
		Difference:  sum.Sub(parent.Amount.Decimal),
	}

	switch {
	case !parent.Amount.Valid:
		v.Reason = "split parent has no amount"
	case v.Difference.Abs().LessThanOrEqual(Tolerance):
		v.Valid = true
	case v.Difference.IsNegative():
		v.Reason = fmt.Sprintf("children (%s) are less than parent (%s): missing %s",
			sum.StringFixed(2), v.Expected.StringFixed(2), v.Difference.Neg().StringFixed(2))
	default:
		v.Reason = fmt.Sprintf("children (%s) exceed parent (%s) by %s",
			sum.StringFixed(2), v.Expected.StringFixed(2), v.Difference.StringFixed(2))
	}
	return v
}

// CheckSplits validates every split parent that has children in records and
// returns the failures ordered by parent id. Parents with no children are
// reported by grouping as orphans and are skipped here.
func CheckSplits(records []*transaction.Record) []*SplitValidation {
	children := make(map[string][]*transaction.Record)
	for _, r := range records {
		if r.ParentID != "" {
			children[r.ParentID] = append(children[r.ParentID], r)
		}
	}

	var failures []*SplitValidation
	for _, r := range records {
		if !r.IsSplitParent || len(children[r.ID]) == 0 {
			continue
		}
		if v := ValidateSplit(r, children[r.ID]); !v.Valid {
			failures = append(failures, v)
		}
	}

	sort.Slice(failures, func(i, j int) bool {
		return transaction.CompareIDs(failures[i].ParentID, failures[j].ParentID) < 0
	})
	return failures
}
