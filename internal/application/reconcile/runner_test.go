package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/adapters/sources"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/accounts"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/disambiguate"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/operator/scripted"
)

// staticLoader hands out fresh copies of its records on every load, the way
// re-reading a file would
type staticLoader struct {
	name    string
	records []*transaction.Record
	err     error
}

func (l *staticLoader) Name() string { return l.name }

func (l *staticLoader) Load(ctx context.Context, opts sources.LoadOptions) ([]*transaction.Record, error) {
	if l.err != nil {
		return nil, l.err
	}
	out := make([]*transaction.Record, 0, len(l.records))
	for _, r := range l.records {
		if !opts.Contains(r.Date) {
			continue
		}
		c := *r
		c.Tags = append([]string(nil), r.Tags...)
		out = append(out, &c)
	}
	return out, nil
}

func makeRecord(id, account, amount, date string) *transaction.Record {
	d, err := time.Parse(transaction.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return &transaction.Record{
		ID:          id,
		AccountName: account,
		Amount:      decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Date:        d,
		Payee:       "payee " + id,
		Origin:      "plaid",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func byID(records []*transaction.Record) map[string]*transaction.Record {
	m := make(map[string]*transaction.Record, len(records))
	for _, r := range records {
		m[r.ID] = r
	}
	return m
}

// selfFixture: one duplicate pair, one lone record, plus a pending and a
// split-parent record carrying the same amount as the pair
func selfFixture() *staticLoader {
	pending := makeRecord("4", "Checking", "-42.50", "2023-01-11")
	pending.IsPending = true
	parent := makeRecord("5", "Checking", "-42.50", "2023-01-10")
	parent.IsSplitParent = true

	return &staticLoader{name: "lunchmoney", records: []*transaction.Record{
		makeRecord("1", "Checking", "-42.50", "2023-01-10"),
		makeRecord("2", "Checking", "-42.50", "2023-01-12"),
		makeRecord("3", "Checking", "-5.00", "2023-01-11"),
		pending,
		parent,
	}}
}

func TestRunner_RunSelf(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := storage.NewMockRepository()
	operator := scripted.New(disambiguate.Confirm())
	runner := NewRunner(Dependencies{
		Primary:  selfFixture(),
		Operator: operator,
		Store:    store,
		Logger:   discardLogger(),
	})

	// Act
	result, err := runner.RunSelf(ctx, Options{WindowDays: 7})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "run-1", result.RunID)

	require.Len(t, operator.Prompts, 1)
	prompt := operator.Prompts[0]
	assert.Equal(t, disambiguate.PromptSingle, prompt.Kind)
	assert.Equal(t, "1", prompt.Target.ID)
	require.Len(t, prompt.Candidates, 1, "pending and split parent are never candidates")
	assert.Equal(t, "2", prompt.Candidates[0].Record.ID)

	records := byID(result.Output.Primary)
	require.Len(t, records, 5, "every input record is written once")
	assert.Equal(t, transaction.StateMatch, records["1"].State)
	assert.Equal(t, "2", records["1"].RelatedID)
	assert.Equal(t, transaction.StateDuplicate, records["2"].State)
	assert.Equal(t, "1", records["2"].RelatedID)
	assert.Equal(t, transaction.StateKeep, records["3"].State)
	assert.Equal(t, transaction.StateUnresolved, records["4"].State)
	assert.Equal(t, transaction.StateUnresolved, records["5"].State)

	assert.Equal(t, 1, result.Report.Pending)
	assert.Equal(t, 1, result.Report.SplitParents)
	assert.Equal(t, 2, result.Summary.Targets)
	assert.Equal(t, 1, result.Summary.Prompts)
	assert.Equal(t, 1, result.Summary.AutoResolved)

	assert.Len(t, store.Resolutions(), 3)
	run, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusCompleted, run.Status)
	assert.Equal(t, "self", run.Mode)
	assert.Equal(t, 7, run.LookbackDays)
	assert.Equal(t, 1, run.Stats.Duplicates)
	assert.Equal(t, 1, run.Stats.Matches)
	assert.Equal(t, 1, run.Stats.Kept)
	assert.Equal(t, 5, run.Stats.RecordsTotal)
}

func TestRunner_RunSelf_SecondRunIsIdempotent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := storage.NewMockRepository()
	loader := selfFixture()

	first := NewRunner(Dependencies{Primary: loader, Operator: scripted.New(disambiguate.Confirm()), Store: store, Logger: discardLogger()})
	_, err := first.RunSelf(ctx, Options{WindowDays: 7})
	require.NoError(t, err)

	// No scripted answers: any prompt fails the run
	silent := scripted.New()
	second := NewRunner(Dependencies{Primary: loader, Operator: silent, Store: store, Logger: discardLogger()})

	// Act
	result, err := second.RunSelf(ctx, Options{WindowDays: 7})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, silent.Prompts)
	assert.Equal(t, 2, result.Summary.PreResolved)

	records := byID(result.Output.Primary)
	assert.Equal(t, transaction.StateMatch, records["1"].State)
	assert.Equal(t, transaction.StateDuplicate, records["2"].State)
	assert.Equal(t, "1", records["2"].RelatedID)
	assert.Equal(t, transaction.StateKeep, records["3"].State)
}

func TestRunner_RunSelf_StoredResolutionMustStillAgree(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockRepository()
	runID, err := store.StartRun(ctx, storage.RunParams{Mode: "self"})
	require.NoError(t, err)
	require.NoError(t, store.SaveResolution(ctx, &storage.Resolution{
		RunID: runID, Source: "primary", RecordID: "1", State: "match", RelatedID: "2",
		Amount: "-99.00", Date: "2023-01-10",
	}))

	operator := scripted.New(disambiguate.Reject())
	runner := NewRunner(Dependencies{Primary: selfFixture(), Operator: operator, Store: store, Logger: discardLogger()})

	result, err := runner.RunSelf(ctx, Options{WindowDays: 7})

	require.NoError(t, err)
	assert.Zero(t, result.Summary.PreResolved)
	assert.Len(t, operator.Prompts, 1)
	assert.Equal(t, transaction.StateNotDuplicate, byID(result.Output.Primary)["1"].State)
}

func TestRunner_RunSelf_DryRunSkipsTracking(t *testing.T) {
	store := storage.NewMockRepository()
	runner := NewRunner(Dependencies{Primary: selfFixture(), Operator: scripted.New(disambiguate.Confirm()), Store: store, Logger: discardLogger()})

	result, err := runner.RunSelf(context.Background(), Options{WindowDays: 7, DryRun: true})

	require.NoError(t, err)
	assert.Empty(t, result.RunID)
	assert.False(t, store.StartRunCalled)
	assert.False(t, store.SaveResolutionCalled)
	assert.Equal(t, 3, result.Summary.Decisions)
}

func TestRunner_RunSelf_OperatorErrorAborts(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := storage.NewMockRepository()
	runner := NewRunner(Dependencies{Primary: selfFixture(), Operator: scripted.New(), Store: store, Logger: discardLogger()})

	// Act
	result, err := runner.RunSelf(ctx, Options{WindowDays: 7})

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, scripted.ErrExhausted)
	require.NotNil(t, result, "partial result is returned")
	for _, rec := range result.Output.Primary {
		assert.Equal(t, transaction.StateUnresolved, rec.State, rec.Key())
	}

	run, getErr := store.GetRun(ctx, result.RunID)
	require.NoError(t, getErr)
	assert.Equal(t, storage.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "script exhausted")
}

func TestRunner_RunSelf_CollaboratorErrors(t *testing.T) {
	t.Run("loader", func(t *testing.T) {
		store := storage.NewMockRepository()
		loader := &staticLoader{name: "broken", err: errors.New("disk gone")}
		runner := NewRunner(Dependencies{Primary: loader, Operator: scripted.New(), Store: store, Logger: discardLogger()})

		_, err := runner.RunSelf(context.Background(), Options{})

		assert.ErrorContains(t, err, "disk gone")
		assert.False(t, store.StartRunCalled)
	})

	t.Run("start run", func(t *testing.T) {
		store := storage.NewMockRepository()
		store.StartRunErr = errors.New("locked")
		runner := NewRunner(Dependencies{Primary: selfFixture(), Operator: scripted.New(), Store: store, Logger: discardLogger()})

		_, err := runner.RunSelf(context.Background(), Options{})

		assert.ErrorContains(t, err, "locked")
	})

	t.Run("earlier resolutions", func(t *testing.T) {
		store := storage.NewMockRepository()
		store.LatestResolutionsErr = errors.New("corrupt")
		runner := NewRunner(Dependencies{Primary: selfFixture(), Operator: scripted.New(), Store: store, Logger: discardLogger()})

		_, err := runner.RunSelf(context.Background(), Options{})

		assert.ErrorContains(t, err, "corrupt")
	})

	t.Run("missing operator", func(t *testing.T) {
		runner := NewRunner(Dependencies{Primary: selfFixture()})

		_, err := runner.RunSelf(context.Background(), Options{})

		assert.Error(t, err)
	})
}

func TestRunner_RunCross(t *testing.T) {
	// Arrange
	ctx := context.Background()

	other := makeRecord("102", "Checking", "10.00", "2024-01-10")
	other.Origin = "csv"
	primary := &staticLoader{name: "lunchmoney", records: []*transaction.Record{
		makeRecord("101", "Checking", "10.00", "2024-01-10"),
		other,
		makeRecord("103", "Checking", "20.00", "2024-01-15"),
	}}
	reference := &staticLoader{name: "mint", records: []*transaction.Record{
		makeRecord("1", "CHASE CHECKING", "10.00", "2024-01-12"),
		makeRecord("2", "CHASE CHECKING", "20.00", "2024-01-16"),
		makeRecord("3", "CHASE CHECKING", "20.00", "2024-01-17"),
	}}
	mapper := accounts.NewMap(map[string][]string{"Checking": {"CHASE CHECKING"}})
	operator := scripted.New(disambiguate.Confirm(), disambiguate.Select(1))
	store := storage.NewMockRepository()

	runner := NewRunner(Dependencies{
		Primary:   primary,
		Reference: reference,
		Mapper:    mapper,
		Operator:  operator,
		Store:     store,
		Logger:    discardLogger(),
	})

	// Act
	result, err := runner.RunCross(ctx, Options{LookbackDays: 1, LookaheadDays: 7})

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Ignored, 1)
	assert.Equal(t, "102", result.Ignored[0].ID)

	require.Len(t, operator.Prompts, 2)
	assert.Equal(t, disambiguate.PromptMultiple, operator.Prompts[1].Kind)
	assert.True(t, operator.Prompts[1].AllowInvestigate)

	prim := byID(result.Output.Primary)
	ref := byID(result.Output.Reference)
	require.Len(t, prim, 2, "ignored records are not part of the annotated output")
	require.Len(t, ref, 3)

	assert.Equal(t, transaction.StateDuplicate, prim["101"].State)
	assert.Equal(t, "1", prim["101"].RelatedID)
	assert.Equal(t, transaction.StateMatch, ref["1"].State)
	assert.Equal(t, "101", ref["1"].RelatedID)

	assert.Equal(t, transaction.StateDuplicate, prim["103"].State)
	assert.Equal(t, "3", prim["103"].RelatedID)
	assert.Equal(t, transaction.StateMatch, ref["3"].State)
	assert.Equal(t, transaction.StateUnresolved, ref["2"].State)

	assert.Equal(t, 2, result.Summary.Total(transaction.StateMatch))
	run, err := store.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, "cross", run.Mode)
	assert.Equal(t, 1, run.Stats.Ignored)
	assert.Equal(t, 6, run.Stats.RecordsTotal)
}

func TestRunner_SelfDecisionsDoNotPreResolveCross(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := storage.NewMockRepository()
	primary := &staticLoader{name: "lunchmoney", records: []*transaction.Record{
		makeRecord("1", "Checking", "-42.50", "2024-01-10"),
		makeRecord("2", "Checking", "-42.50", "2024-01-12"),
	}}
	self := NewRunner(Dependencies{Primary: primary, Operator: scripted.New(disambiguate.Confirm()), Store: store, Logger: discardLogger()})
	_, err := self.RunSelf(ctx, Options{WindowDays: 7})
	require.NoError(t, err)

	reference := &staticLoader{name: "mint", records: []*transaction.Record{
		makeRecord("1", "Checking", "-42.50", "2024-01-11"),
	}}
	operator := scripted.New(disambiguate.Confirm())
	cross := NewRunner(Dependencies{Primary: primary, Reference: reference, Operator: operator, Store: store, Logger: discardLogger()})

	// Act
	result, err := cross.RunCross(ctx, Options{LookbackDays: 1, LookaheadDays: 7})

	// Assert
	require.NoError(t, err)
	assert.Zero(t, result.Summary.PreResolved)
	require.Len(t, operator.Prompts, 1, "the reference record is offered")
	assert.Equal(t, transaction.StateDuplicate, byID(result.Output.Primary)["1"].State)
	assert.Equal(t, transaction.StateMatch, byID(result.Output.Reference)["1"].State)

	t.Run("cross decisions pre-resolve the next cross run", func(t *testing.T) {
		again := NewRunner(Dependencies{Primary: primary, Reference: reference, Operator: scripted.New(), Store: store, Logger: discardLogger()})

		result, err := again.RunCross(ctx, Options{LookbackDays: 1, LookaheadDays: 7})

		require.NoError(t, err)
		assert.Equal(t, 2, result.Summary.PreResolved)
		assert.Equal(t, transaction.StateDuplicate, byID(result.Output.Primary)["1"].State)
	})
}

func TestRunner_RunCross_Investigate(t *testing.T) {
	primary := &staticLoader{name: "lunchmoney", records: []*transaction.Record{
		makeRecord("101", "Checking", "20.00", "2024-01-15"),
	}}
	reference := &staticLoader{name: "mint", records: []*transaction.Record{
		makeRecord("1", "Checking", "20.00", "2024-01-16"),
		makeRecord("2", "Checking", "20.00", "2024-01-17"),
	}}
	runner := NewRunner(Dependencies{
		Primary:   primary,
		Reference: reference,
		Operator:  scripted.New(disambiguate.Investigate()),
		Logger:    discardLogger(),
	})

	result, err := runner.RunCross(context.Background(), Options{LookbackDays: 1, LookaheadDays: 7})

	require.NoError(t, err)
	assert.Equal(t, transaction.StateInvestigate, result.Output.Primary[0].State)
	for _, rec := range result.Output.Reference {
		assert.Equal(t, transaction.StateUnresolved, rec.State)
	}
}

func TestRunner_RunCross_NeedsReference(t *testing.T) {
	runner := NewRunner(Dependencies{Primary: selfFixture(), Operator: scripted.New()})

	_, err := runner.RunCross(context.Background(), Options{})

	assert.Error(t, err)
}

func TestRunner_CancelledBetweenTargets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	operator := disambiguate.OperatorFunc(func(ctx context.Context, p disambiguate.Prompt) (disambiguate.Response, error) {
		cancel()
		return disambiguate.Confirm(), nil
	})
	loader := &staticLoader{name: "lunchmoney", records: []*transaction.Record{
		makeRecord("1", "Checking", "-42.50", "2023-01-10"),
		makeRecord("2", "Checking", "-42.50", "2023-01-12"),
		makeRecord("3", "Checking", "-5.00", "2023-01-20"),
	}}
	runner := NewRunner(Dependencies{Primary: loader, Operator: operator, Logger: discardLogger()})

	result, err := runner.RunSelf(ctx, Options{WindowDays: 7})

	assert.ErrorIs(t, err, context.Canceled)
	records := byID(result.Output.Primary)
	assert.Equal(t, transaction.StateMatch, records["1"].State, "the open target finishes")
	assert.Equal(t, transaction.StateUnresolved, records["3"].State)
}
