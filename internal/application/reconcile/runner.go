// Package reconcile drives one reconciliation run end to end: load, group,
// match, disambiguate, record.
//
// Example usage:
//
//	runner := reconcile.NewRunner(reconcile.Dependencies{
//		Primary:  csvfile.NewLoader(path, csvfile.FormatLunchMoney, transaction.SourcePrimary, logger),
//		Operator: terminal.New(os.Stdin, os.Stdout),
//		Store:    store,
//		Logger:   logger,
//	})
//	result, err := runner.RunSelf(ctx, reconcile.Options{WindowDays: 7})
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/adapters/sources"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/accounts"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/disambiguate"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/grouping"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/resolution"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/validator"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
)

// Runner runs the reconciliation process
type Runner struct {
	primary   sources.Loader
	reference sources.Loader
	mapper    accounts.Mapper
	operator  disambiguate.Operator
	store     storage.Repository
	logger    *slog.Logger
}

// NewRunner creates a new runner
func NewRunner(deps Dependencies) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mapper := deps.Mapper
	if mapper == nil {
		mapper = accounts.Identity
	}
	return &Runner{
		primary:   deps.Primary,
		reference: deps.Reference,
		mapper:    mapper,
		operator:  deps.Operator,
		store:     deps.Store,
		logger:    logger,
	}
}

// session is the per-run state shared by both modes
type session struct {
	runID    string
	matcher  *matcher.Matcher
	recorder *resolution.Recorder
	control  *disambiguate.Controller
	summary  Summary
}

// RunSelf compares the primary set against itself per account
func (r *Runner) RunSelf(ctx context.Context, opts Options) (*Result, error) {
	if r.primary == nil || r.operator == nil {
		return nil, errors.New("self run needs a primary loader and an operator")
	}

	r.logger.Debug("Starting self comparison",
		"source", r.primary.Name(),
		"window_days", opts.WindowDays,
		"dry_run", opts.DryRun,
	)

	records, err := r.load(ctx, r.primary, transaction.SourcePrimary, opts)
	if err != nil {
		return nil, err
	}
	preResolved, err := r.applyPrior(ctx, matcher.ModeSelf, transaction.SourcePrimary, records)
	if err != nil {
		return nil, err
	}

	idx := grouping.Build(records, r.mapper)
	r.logReport("primary", idx.Report)
	r.checkSplits("primary", records)

	s, err := r.begin(ctx, matcher.SelfConfig(opts.WindowDays), disambiguate.Config{
		Mode:            matcher.ModeSelf,
		AskEditOnReject: opts.AskEditOnReject,
	}, opts, idx.AccountOf)
	if err != nil {
		return nil, err
	}
	s.summary.PreResolved = preResolved

	var runErr error
	for _, account := range idx.Accounts() {
		group := idx.Groups[account]
		if runErr = r.visit(ctx, s, account, group, group); runErr != nil {
			break
		}
	}

	result := &Result{
		RunID:  s.runID,
		Output: s.recorder.Finish(records),
		Report: idx.Report,
	}
	r.finish(ctx, s, result, runErr)
	return result, runErr
}

// RunCross compares primary records from one import channel against the
// reference set per account
func (r *Runner) RunCross(ctx context.Context, opts Options) (*Result, error) {
	if r.primary == nil || r.reference == nil || r.operator == nil {
		return nil, errors.New("cross run needs primary and reference loaders and an operator")
	}
	origin := opts.PrimaryOrigin
	if origin == "" {
		origin = DefaultPrimaryOrigin
	}

	r.logger.Debug("Starting cross comparison",
		"primary", r.primary.Name(),
		"reference", r.reference.Name(),
		"lookback_days", opts.LookbackDays,
		"lookahead_days", opts.LookaheadDays,
		"primary_origin", origin,
		"dry_run", opts.DryRun,
	)

	loaded, err := r.load(ctx, r.primary, transaction.SourcePrimary, opts)
	if err != nil {
		return nil, err
	}
	primary, ignored := splitByOrigin(loaded, origin)
	if len(ignored) > 0 {
		r.logger.Info("Ignoring primary records from other origins",
			"count", len(ignored), "origin", origin)
	}

	reference, err := r.load(ctx, r.reference, transaction.SourceReference, opts)
	if err != nil {
		return nil, err
	}

	preResolved, err := r.applyPrior(ctx, matcher.ModeCross, transaction.SourcePrimary, primary)
	if err != nil {
		return nil, err
	}
	n, err := r.applyPrior(ctx, matcher.ModeCross, transaction.SourceReference, reference)
	if err != nil {
		return nil, err
	}
	preResolved += n

	primaryIdx := grouping.Build(primary, r.mapper)
	referenceIdx := grouping.Build(reference, r.mapper)
	r.logReport("primary", primaryIdx.Report)
	r.logReport("reference", referenceIdx.Report)
	r.checkSplits("primary", primary)
	r.checkSplits("reference", reference)

	accountOf := func(key string) string {
		if a := primaryIdx.AccountOf(key); a != "" {
			return a
		}
		return referenceIdx.AccountOf(key)
	}

	s, err := r.begin(ctx, matcher.Config{
		Mode:          matcher.ModeCross,
		LookbackDays:  opts.LookbackDays,
		LookaheadDays: opts.LookaheadDays,
	}, disambiguate.Config{
		Mode:              matcher.ModeCross,
		AutoConfirmSingle: opts.AutoConfirmSingle,
	}, opts, accountOf)
	if err != nil {
		return nil, err
	}
	s.summary.PreResolved = preResolved

	var runErr error
	for _, account := range primaryIdx.Accounts() {
		if runErr = r.visit(ctx, s, account, primaryIdx.Groups[account], referenceIdx.Groups[account]); runErr != nil {
			break
		}
	}

	result := &Result{
		RunID:           s.runID,
		Output:          s.recorder.Finish(primary, reference),
		Ignored:         ignored,
		Report:          primaryIdx.Report,
		ReferenceReport: referenceIdx.Report,
	}
	r.finish(ctx, s, result, runErr)
	return result, runErr
}

// begin starts run tracking and builds the per-run engine
func (r *Runner) begin(
	ctx context.Context,
	matchConfig matcher.Config,
	controlConfig disambiguate.Config,
	opts Options,
	accountOf func(key string) string,
) (*session, error) {
	s := &session{
		matcher: matcher.NewMatcher(matchConfig),
		summary: Summary{Mode: matchConfig.Mode},
	}

	var sink resolution.Sink
	if r.store != nil && !opts.DryRun {
		runID, err := r.store.StartRun(ctx, storage.RunParams{
			Mode:          string(matchConfig.Mode),
			StartDate:     formatDate(opts.StartDate),
			EndDate:       formatDate(opts.EndDate),
			LookbackDays:  s.matcher.Config().LookbackDays,
			LookaheadDays: s.matcher.Config().LookaheadDays,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start run tracking: %w", err)
		}
		s.runID = runID
		sink = &storeSink{store: r.store, runID: runID}
		r.logger.Debug("Started run", "run_id", runID)
	}

	s.recorder = resolution.NewRecorder(accountOf, sink)
	s.control = disambiguate.NewController(controlConfig, r.operator, s.recorder)
	return s, nil
}

// visit resolves every open target of one account group against pool
func (r *Runner) visit(ctx context.Context, s *session, account string, targets, pool []*transaction.Record) error {
	consumed := s.control.Consumed()
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if target.IsResolved() || consumed[target.Key()] {
			continue
		}

		candidates := s.matcher.FindCandidates(target, pool, consumed)
		outcome, err := s.control.Resolve(ctx, target, candidates)
		s.summary.Targets++
		if err != nil {
			return fmt.Errorf("resolving %s in %q: %w", target.Key(), account, err)
		}
		if outcome.Auto {
			s.summary.AutoResolved++
		}

		r.logger.Debug("Resolved target",
			"account", account,
			"record", target.Key(),
			"candidates", len(candidates),
			"state", outcome.State,
			"auto", outcome.Auto,
		)
	}
	return nil
}

// finish fills the summary and closes run tracking
func (r *Runner) finish(ctx context.Context, s *session, result *Result, runErr error) {
	s.summary.Prompts = s.control.Prompts()
	s.summary.Decisions = s.recorder.Decisions()
	s.summary.Primary = countStates(result.Output.Primary)
	s.summary.Reference = countStates(result.Output.Reference)
	result.Summary = s.summary

	if runErr != nil {
		r.logger.Error("Run aborted", "error", runErr, "targets", s.summary.Targets)
	}
	if s.runID == "" {
		return
	}

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	// Use a fresh context so a cancelled run is still closed out
	if err := r.store.CompleteRun(context.WithoutCancel(ctx), s.runID, runStats(result), errMsg); err != nil {
		r.logger.Warn("Failed to complete run tracking", "run_id", s.runID, "error", err)
	}
}

func (r *Runner) load(ctx context.Context, loader sources.Loader, source transaction.Source, opts Options) ([]*transaction.Record, error) {
	records, err := loader.Load(ctx, sources.LoadOptions{StartDate: opts.StartDate, EndDate: opts.EndDate})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s records from %s: %w", source, loader.Name(), err)
	}
	for _, rec := range records {
		rec.Source = source
		if rec.State == "" {
			rec.State = transaction.StateUnresolved
		}
	}
	r.logger.Debug("Loaded records", "source", source, "loader", loader.Name(), "count", len(records))
	return records, nil
}

func (r *Runner) logReport(set string, report grouping.Report) {
	r.logger.Info("Indexed records",
		"set", set,
		"total", report.Total,
		"indexed", report.Indexed,
		"pending", report.Pending,
		"split_parents", report.SplitParents,
		"unmapped", report.Unmapped,
	)
	if report.OrphanSplitParents > 0 {
		r.logger.Warn("Split parents without children in the set",
			"set", set, "count", report.OrphanSplitParents)
	}
	if report.Unmapped > 0 {
		r.logger.Warn("Records with missing fields or unmappable accounts were not matched",
			"set", set, "count", report.Unmapped)
	}
}

// checkSplits warns about split parents whose children no longer add up
func (r *Runner) checkSplits(set string, records []*transaction.Record) {
	for _, v := range validator.CheckSplits(records) {
		r.logger.Warn("Split children do not sum to parent",
			"set", set,
			"parent", v.ParentID,
			"reason", v.Reason,
		)
	}
}

// splitByOrigin separates records from origin from everything else
func splitByOrigin(records []*transaction.Record, origin string) (kept, ignored []*transaction.Record) {
	for _, rec := range records {
		if strings.EqualFold(strings.TrimSpace(rec.Origin), origin) {
			kept = append(kept, rec)
		} else {
			ignored = append(ignored, rec)
		}
	}
	return kept, ignored
}

func countStates(records []*transaction.Record) StateCounts {
	counts := make(StateCounts)
	for _, rec := range records {
		counts[rec.State]++
	}
	return counts
}
