// Package resolution applies reconciliation decisions to records and collects
// the annotated output sets.
//
// The Recorder is the only component that writes a record's State, RelatedID,
// Payee or Notes. Every write is reported as a Decision to an optional Sink.
package resolution

import (
	"context"
	"errors"
	"fmt"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/grouping"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// ErrAlreadyResolved is returned when a change would overwrite a stable state
var ErrAlreadyResolved = errors.New("record already resolved")

// Change describes one state transition. When Counterpart is set its state
// becomes CounterpartState and its RelatedID points back at Target.
type Change struct {
	Target    *transaction.Record
	State     transaction.State
	RelatedID string

	Counterpart      *transaction.Record
	CounterpartState transaction.State
}

// Edit holds descriptive field edits. Nil fields are left unchanged.
type Edit struct {
	Payee *string
	Notes *string
}

// IsEmpty reports whether the edit changes nothing
func (e Edit) IsEmpty() bool {
	return e.Payee == nil && e.Notes == nil
}

// Decision is the record of one mutation, suitable for persistence
type Decision struct {
	Source    transaction.Source
	RecordID  string
	Account   string
	Amount    string
	Date      string
	Payee     string
	Notes     string
	State     transaction.State
	RelatedID string
	Edited    bool
}

// Sink receives decisions as they are made
type Sink interface {
	SaveDecision(ctx context.Context, d Decision) error
}

// Output holds the annotated collections, one per source
type Output struct {
	Primary   []*transaction.Record
	Reference []*transaction.Record
}

// For returns the collection for a source
func (o Output) For(source transaction.Source) []*transaction.Record {
	if source == transaction.SourceReference {
		return o.Reference
	}
	return o.Primary
}

// Recorder mutates records and accumulates output membership
type Recorder struct {
	sink      Sink
	accountOf func(key string) string

	appended  map[string]bool
	output    Output
	decisions int
}

// NewRecorder creates a recorder. accountOf maps a record key to its
// canonical account for output ordering; sink may be nil.
func NewRecorder(accountOf func(key string) string, sink Sink) *Recorder {
	if accountOf == nil {
		accountOf = func(string) string { return "" }
	}
	return &Recorder{
		sink:      sink,
		accountOf: accountOf,
		appended:  make(map[string]bool),
	}
}

// Apply performs a state change on the target and optional counterpart.
// Nothing is mutated if either record already holds a stable state.
func (r *Recorder) Apply(ctx context.Context, change Change) error {
	if change.Target == nil {
		return errors.New("change has no target")
	}
	if err := checkWritable(change.Target); err != nil {
		return err
	}
	if change.Counterpart != nil {
		if change.CounterpartState == "" {
			return fmt.Errorf("change for %s: counterpart without state", change.Target.Key())
		}
		if err := checkWritable(change.Counterpart); err != nil {
			return err
		}
	}

	// Both records change before anything is emitted so a failed save
	// never leaves one side of a pair updated.
	undo := []func(){r.set(change.Target, change.State, change.RelatedID)}
	if change.Counterpart != nil {
		undo = append(undo, r.set(change.Counterpart, change.CounterpartState, change.Target.ID))
	}

	records := []*transaction.Record{change.Target}
	if change.Counterpart != nil {
		records = append(records, change.Counterpart)
	}
	for _, rec := range records {
		if err := r.emit(ctx, rec, false); err != nil {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
			return err
		}
	}
	return nil
}

// set writes state and related id and returns a func restoring the previous
// values and output membership
func (r *Recorder) set(rec *transaction.Record, state transaction.State, relatedID string) func() {
	prevState, prevRelated := rec.State, rec.RelatedID
	rec.State = state
	rec.RelatedID = relatedID
	added := r.append(rec)
	return func() {
		rec.State = prevState
		rec.RelatedID = prevRelated
		if added {
			r.remove(rec)
		}
	}
}

// Edit updates the descriptive fields of a record. It never touches state,
// so a freshly rejected record can still be annotated.
func (r *Recorder) Edit(ctx context.Context, record *transaction.Record, edit Edit) error {
	if record == nil || edit.IsEmpty() {
		return nil
	}
	if edit.Payee != nil {
		record.Payee = *edit.Payee
	}
	if edit.Notes != nil {
		record.Notes = *edit.Notes
	}
	r.append(record)
	return r.emit(ctx, record, true)
}

// Decisions returns how many decisions were emitted
func (r *Recorder) Decisions() int {
	return r.decisions
}

// Finish appends every record not yet in an output collection and sorts both
// collections by canonical account then date. Each record appears once.
func (r *Recorder) Finish(all ...[]*transaction.Record) Output {
	for _, set := range all {
		for _, rec := range set {
			r.append(rec)
		}
	}
	grouping.SortByAccountDate(r.output.Primary, r.accountOf)
	grouping.SortByAccountDate(r.output.Reference, r.accountOf)
	return r.output
}

func (r *Recorder) append(rec *transaction.Record) bool {
	key := rec.Key()
	if r.appended[key] {
		return false
	}
	r.appended[key] = true
	if rec.Source == transaction.SourceReference {
		r.output.Reference = append(r.output.Reference, rec)
	} else {
		r.output.Primary = append(r.output.Primary, rec)
	}
	return true
}

func (r *Recorder) remove(rec *transaction.Record) {
	delete(r.appended, rec.Key())
	list := &r.output.Primary
	if rec.Source == transaction.SourceReference {
		list = &r.output.Reference
	}
	for i, cur := range *list {
		if cur == rec {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func (r *Recorder) emit(ctx context.Context, rec *transaction.Record, edited bool) error {
	if r.sink == nil {
		r.decisions++
		return nil
	}
	d := Decision{
		Source:    rec.Source,
		RecordID:  rec.ID,
		Account:   r.accountOf(rec.Key()),
		Amount:    rec.AmountString(),
		Date:      rec.DateString(),
		Payee:     rec.Payee,
		Notes:     rec.Notes,
		State:     rec.State,
		RelatedID: rec.RelatedID,
		Edited:    edited,
	}
	if err := r.sink.SaveDecision(ctx, d); err != nil {
		return fmt.Errorf("failed to save decision for %s: %w", rec.Key(), err)
	}
	r.decisions++
	return nil
}

func checkWritable(rec *transaction.Record) error {
	if rec.IsResolved() {
		return fmt.Errorf("%s is %s: %w", rec.Key(), rec.State, ErrAlreadyResolved)
	}
	return nil
}
