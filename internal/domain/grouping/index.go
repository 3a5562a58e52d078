// Package grouping partitions a transaction set by canonical account so the
// matcher only ever searches within one account.
package grouping

import (
	"sort"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/accounts"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// Report counts every record the index saw and why it was excluded
type Report struct {
	Total              int
	Indexed            int
	Pending            int
	SplitParents       int
	OrphanSplitParents int // Split parents with no child in the set
	Unmapped           int
}

// Add accumulates another report into r
func (r *Report) Add(other Report) {
	r.Total += other.Total
	r.Indexed += other.Indexed
	r.Pending += other.Pending
	r.SplitParents += other.SplitParents
	r.OrphanSplitParents += other.OrphanSplitParents
	r.Unmapped += other.Unmapped
}

// Index maps canonical account to its date-ordered records
type Index struct {
	Groups   map[string][]*transaction.Record
	Unmapped []*transaction.Record // Catch-all group, never matched
	Excluded []*transaction.Record // Pending and split parents
	Report   Report

	accountOf map[string]string // record key -> canonical account
}

// Build partitions records using mapper. A nil mapper means identity mapping.
// Records are not modified.
func Build(records []*transaction.Record, mapper accounts.Mapper) *Index {
	if mapper == nil {
		mapper = accounts.Identity
	}

	idx := &Index{
		Groups:    make(map[string][]*transaction.Record),
		accountOf: make(map[string]string, len(records)),
	}

	children := make(map[string]bool)
	for _, r := range records {
		if r.ParentID != "" {
			children[r.ParentID] = true
		}
	}

	for _, r := range records {
		idx.Report.Total++

		switch {
		case r.IsPending:
			idx.Report.Pending++
			idx.Excluded = append(idx.Excluded, r)
			idx.accountOf[r.Key()], _ = mapper.Canonical(r.AccountName)
			continue
		case r.IsSplitParent:
			idx.Report.SplitParents++
			if !children[r.ID] {
				idx.Report.OrphanSplitParents++
			}
			idx.Excluded = append(idx.Excluded, r)
			idx.accountOf[r.Key()], _ = mapper.Canonical(r.AccountName)
			continue
		}

		account, ok := mapper.Canonical(r.AccountName)
		if !ok || r.Validate() != nil {
			idx.Report.Unmapped++
			idx.Unmapped = append(idx.Unmapped, r)
			idx.accountOf[r.Key()] = account
			continue
		}

		idx.Report.Indexed++
		idx.Groups[account] = append(idx.Groups[account], r)
		idx.accountOf[r.Key()] = account
	}

	for _, group := range idx.Groups {
		SortByDate(group)
	}

	return idx
}

// Accounts returns the canonical account keys in ascending order
func (idx *Index) Accounts() []string {
	keys := make([]string, 0, len(idx.Groups))
	for k := range idx.Groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AccountOf returns the canonical account recorded for a record key.
// Unmapped records return an empty string.
func (idx *Index) AccountOf(key string) string {
	return idx.accountOf[key]
}

// SortByDate orders records by date ascending, then load order, then id
func SortByDate(records []*transaction.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return lessByDate(records[i], records[j])
	})
}

func lessByDate(a, b *transaction.Record) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return transaction.CompareIDs(a.ID, b.ID) < 0
}

// SortByAccountDate orders records by canonical account, then date. Records
// without an account sort last.
func SortByAccountDate(records []*transaction.Record, accountOf func(key string) string) {
	sort.SliceStable(records, func(i, j int) bool {
		ai, aj := accountOf(records[i].Key()), accountOf(records[j].Key())
		if ai != aj {
			if ai == "" || aj == "" {
				return aj == ""
			}
			return ai < aj
		}
		return lessByDate(records[i], records[j])
	})
}
