package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/resolution"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
)

// Recording functions for the runner.
// These persist decisions and reuse earlier ones as pre-resolved state.

// storeSink persists each decision under the current run
type storeSink struct {
	store storage.ResolutionRepository
	runID string
}

var _ resolution.Sink = (*storeSink)(nil)

// SaveDecision appends the decision to the resolution log
func (s *storeSink) SaveDecision(ctx context.Context, d resolution.Decision) error {
	return s.store.SaveResolution(ctx, &storage.Resolution{
		RunID:     s.runID,
		Source:    string(d.Source),
		RecordID:  d.RecordID,
		Account:   d.Account,
		Amount:    d.Amount,
		Date:      d.Date,
		Payee:     d.Payee,
		Notes:     d.Notes,
		State:     string(d.State),
		RelatedID: d.RelatedID,
		Edited:    d.Edited,
	})
}

// applyPrior gives unresolved records the stable state last stored for them.
// A stored decision only applies while the record's amount and date still
// agree with it, since some sources number rows by position.
// Only decisions made in runs of the same mode are considered.
func (r *Runner) applyPrior(ctx context.Context, mode matcher.Mode, source transaction.Source, records []*transaction.Record) (int, error) {
	if r.store == nil || len(records) == 0 {
		return 0, nil
	}

	latest, err := r.store.LatestResolutions(ctx, string(mode), string(source))
	if err != nil {
		return 0, fmt.Errorf("failed to load earlier resolutions: %w", err)
	}

	applied := 0
	for _, rec := range records {
		prior, ok := latest[rec.ID]
		if !ok || rec.IsResolved() {
			continue
		}
		state, err := transaction.ParseState(prior.State)
		if err != nil || !state.IsStable() {
			continue
		}
		if !priorAgrees(prior, rec) {
			r.logger.Warn("Stored resolution no longer matches record, ignoring",
				"record", rec.Key(),
				"stored_amount", prior.Amount,
				"stored_date", prior.Date,
			)
			continue
		}
		rec.State = state
		rec.RelatedID = prior.RelatedID
		applied++
	}

	if applied > 0 {
		r.logger.Info("Applied earlier resolutions", "source", source, "count", applied)
	}
	return applied, nil
}

func priorAgrees(prior *storage.Resolution, rec *transaction.Record) bool {
	if prior.Amount != "" && prior.Amount != rec.AmountString() {
		return false
	}
	if prior.Date != "" && prior.Date != rec.DateString() {
		return false
	}
	return true
}

// runStats flattens a result into the stored run counters
func runStats(result *Result) storage.RunStats {
	s := result.Summary
	return storage.RunStats{
		RecordsTotal:  result.Report.Total + result.ReferenceReport.Total + len(result.Ignored),
		Targets:       s.Targets,
		Prompts:       s.Prompts,
		Duplicates:    s.Total(transaction.StateDuplicate),
		NotDuplicates: s.Total(transaction.StateNotDuplicate),
		Matches:       s.Total(transaction.StateMatch),
		Investigate:   s.Total(transaction.StateInvestigate),
		Kept:          s.Total(transaction.StateKeep),
		Unmapped:      result.Report.Unmapped + result.ReferenceReport.Unmapped,
		Pending:       result.Report.Pending + result.ReferenceReport.Pending,
		SplitParents:  result.Report.SplitParents + result.ReferenceReport.SplitParents,
		Ignored:       len(result.Ignored),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(transaction.DateLayout)
}
