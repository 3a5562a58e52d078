// Package disambiguate turns a target's candidate list into exactly one
// outcome, asking the operator only when a decision is needed.
//
// Per target:
//   - no candidates: keep, no prompt
//   - one candidate: confirm or reject the suggested pairing
//   - several candidates: select one, reject all, or investigate (cross mode)
//
// In self mode the target row can itself be chosen as the copy, and a group
// keeps being presented after each pick so several copies can be marked.
//
// Invalid answers are re-prompted and never change state.
package disambiguate

import (
	"context"
	"fmt"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/resolution"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// Config holds controller configuration
type Config struct {
	Mode matcher.Mode

	// AskEditOnReject prompts for payee/notes on each rejected record
	AskEditOnReject bool

	// AutoConfirmSingle records a lone cross-mode candidate without asking
	AutoConfirmSingle bool
}

// Recorder applies decisions. Satisfied by *resolution.Recorder.
type Recorder interface {
	Apply(ctx context.Context, change resolution.Change) error
	Edit(ctx context.Context, record *transaction.Record, edit resolution.Edit) error
}

// Outcome summarizes how a target was resolved
type Outcome struct {
	Target      *transaction.Record
	State       transaction.State
	Counterpart *transaction.Record
	Prompts     int  // Operator prompts shown, including re-prompts
	Auto        bool // Resolved without asking
}

// Controller runs the per-target state machine
type Controller struct {
	config   Config
	operator Operator
	recorder Recorder

	consumed map[string]bool
	prompts  int
}

// NewController creates a controller
func NewController(config Config, operator Operator, recorder Recorder) *Controller {
	if config.Mode == "" {
		config.Mode = matcher.ModeSelf
	}
	return &Controller{
		config:   config,
		operator: operator,
		recorder: recorder,
		consumed: make(map[string]bool),
	}
}

// Consumed returns the keys of records already used as a counterpart. The
// map is live; pass it to the matcher so consumed records are skipped.
func (c *Controller) Consumed() map[string]bool {
	return c.consumed
}

// Prompts returns the total number of prompts shown so far
func (c *Controller) Prompts() int {
	return c.prompts
}

// Resolve decides the outcome for target given its ordered candidates and
// records it before returning.
func (c *Controller) Resolve(ctx context.Context, target *transaction.Record, candidates []matcher.Candidate) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	before := c.prompts
	outcome, err := c.resolve(ctx, target, candidates)
	outcome.Target = target
	outcome.State = target.State
	outcome.Prompts = c.prompts - before
	return outcome, err
}

func (c *Controller) resolve(ctx context.Context, target *transaction.Record, candidates []matcher.Candidate) (Outcome, error) {
	if len(candidates) == 0 {
		err := c.recorder.Apply(ctx, resolution.Change{Target: target, State: transaction.StateKeep})
		return Outcome{Auto: true}, err
	}
	if c.config.Mode == matcher.ModeSelf {
		return c.resolveGroup(ctx, target, candidates)
	}

	if len(candidates) == 1 && c.config.AutoConfirmSingle {
		counterpart := candidates[0].Record
		return Outcome{Counterpart: counterpart, Auto: true}, c.pair(ctx, target, counterpart)
	}

	resp, err := c.choose(ctx, target, candidates, false)
	if err != nil {
		return Outcome{}, err
	}
	switch resp.Action {
	case ActionSelect:
		counterpart := candidates[resp.Index].Record
		return Outcome{Counterpart: counterpart}, c.pair(ctx, target, counterpart)
	case ActionInvestigate:
		return Outcome{}, c.investigate(ctx, target)
	}
	return Outcome{}, c.reject(ctx, target, candidates, len(candidates) == 1)
}

// resolveGroup handles a self-mode group: the target and its candidates.
// The first pick pairs the kept record with a copy; later picks mark further
// copies of the kept record until the operator rejects or nothing is left.
func (c *Controller) resolveGroup(ctx context.Context, target *transaction.Record, candidates []matcher.Candidate) (Outcome, error) {
	var outcome Outcome
	kept := target
	remaining := candidates

	for len(remaining) > 0 {
		first := outcome.Counterpart == nil
		resp, err := c.choose(ctx, kept, remaining, first)
		if err != nil {
			return outcome, err
		}

		if resp.Action == ActionReject {
			if first {
				return outcome, c.reject(ctx, target, candidates, len(candidates) == 1)
			}
			return outcome, c.rejectRest(ctx, kept, remaining)
		}

		if resp.Index == TargetIndex {
			// The target is the copy; the nearest candidate is kept
			kept = remaining[0].Record
			remaining = remaining[1:]
			if err := c.pair(ctx, kept, target); err != nil {
				return outcome, err
			}
			outcome.Counterpart = kept
			continue
		}

		dup := remaining[resp.Index].Record
		remaining = without(remaining, resp.Index)
		if first {
			if err := c.pair(ctx, kept, dup); err != nil {
				return outcome, err
			}
			outcome.Counterpart = dup
			continue
		}
		if err := c.markCopy(ctx, kept, dup); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// choose presents target against candidates until the operator gives a valid
// answer. Confirm on a single candidate comes back as Select(0).
func (c *Controller) choose(ctx context.Context, target *transaction.Record, candidates []matcher.Candidate, allowTarget bool) (Response, error) {
	prompt := Prompt{
		Kind:             PromptMultiple,
		Mode:             c.config.Mode,
		Target:           target,
		Candidates:       candidates,
		AllowInvestigate: c.config.Mode == matcher.ModeCross,
		AllowTarget:      allowTarget && c.config.Mode == matcher.ModeSelf,
	}
	if len(candidates) == 1 {
		prompt.Kind = PromptSingle
	}

	resp, err := c.ask(ctx, prompt, func(r Response) string {
		switch r.Action {
		case ActionReject:
			return ""
		case ActionConfirm:
			if prompt.Kind == PromptSingle {
				return ""
			}
		case ActionSelect:
			if r.Index >= 0 && r.Index < len(candidates) {
				return ""
			}
			if r.Index == TargetIndex && prompt.AllowTarget {
				return ""
			}
			if prompt.Kind == PromptSingle {
				return fmt.Sprintf("only candidate 1 is available, got %d", r.Index+1)
			}
			return fmt.Sprintf("choose a candidate between 1 and %d", len(candidates))
		case ActionInvestigate:
			if prompt.AllowInvestigate {
				return ""
			}
		}
		return fmt.Sprintf("%q is not a valid answer here", r.Action)
	})
	if err != nil {
		return Response{}, err
	}
	if resp.Action == ActionConfirm {
		return Select(0), nil
	}
	return resp, nil
}

func without(candidates []matcher.Candidate, i int) []matcher.Candidate {
	out := make([]matcher.Candidate, 0, len(candidates)-1)
	out = append(out, candidates[:i]...)
	return append(out, candidates[i+1:]...)
}

// ask presents prompt until valid accepts the response
func (c *Controller) ask(ctx context.Context, prompt Prompt, valid func(Response) string) (Response, error) {
	for {
		c.prompts++
		resp, err := c.operator.Present(ctx, prompt)
		if err != nil {
			return Response{}, fmt.Errorf("operator: %w", err)
		}
		reason := valid(resp)
		if reason == "" {
			return resp, nil
		}
		prompt.Invalid = reason
	}
}

// pair records target and counterpart as the same transaction and consumes
// the counterpart
func (c *Controller) pair(ctx context.Context, target, counterpart *transaction.Record) error {
	change := resolution.Change{
		Target:      target,
		RelatedID:   counterpart.ID,
		Counterpart: counterpart,
	}
	if c.config.Mode == matcher.ModeCross {
		change.State = transaction.StateDuplicate
		change.CounterpartState = transaction.StateMatch
	} else {
		change.State = transaction.StateMatch
		change.CounterpartState = transaction.StateDuplicate
	}

	if err := c.recorder.Apply(ctx, change); err != nil {
		return err
	}
	c.consumed[target.Key()] = true
	c.consumed[counterpart.Key()] = true
	return nil
}

// markCopy records dup as a further copy of kept, which is already paired
func (c *Controller) markCopy(ctx context.Context, kept, dup *transaction.Record) error {
	if err := c.recorder.Apply(ctx, resolution.Change{
		Target:    dup,
		State:     transaction.StateDuplicate,
		RelatedID: kept.ID,
	}); err != nil {
		return err
	}
	c.consumed[dup.Key()] = true
	return nil
}

// rejectRest marks the candidates left after a pick as distinct from kept
func (c *Controller) rejectRest(ctx context.Context, kept *transaction.Record, remaining []matcher.Candidate) error {
	for _, cand := range remaining {
		if err := c.recorder.Apply(ctx, resolution.Change{
			Target:    cand.Record,
			State:     transaction.StateNotDuplicate,
			RelatedID: kept.ID,
		}); err != nil {
			return err
		}
	}
	if !c.config.AskEditOnReject {
		return nil
	}
	for _, cand := range remaining {
		if err := c.askEdit(ctx, kept, remaining, cand.Record); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) investigate(ctx context.Context, target *transaction.Record) error {
	return c.recorder.Apply(ctx, resolution.Change{Target: target, State: transaction.StateInvestigate})
}

// reject marks the target distinct from every presented candidate. In self
// mode the candidates are marked too; reference records keep their state.
func (c *Controller) reject(ctx context.Context, target *transaction.Record, candidates []matcher.Candidate, single bool) error {
	first := candidates[0].Record

	if c.config.Mode == matcher.ModeCross {
		change := resolution.Change{Target: target, State: transaction.StateNotDuplicate}
		if single {
			change.RelatedID = first.ID
		}
		if err := c.recorder.Apply(ctx, change); err != nil {
			return err
		}
	} else {
		if err := c.recorder.Apply(ctx, resolution.Change{
			Target:           target,
			State:            transaction.StateNotDuplicate,
			RelatedID:        first.ID,
			Counterpart:      first,
			CounterpartState: transaction.StateNotDuplicate,
		}); err != nil {
			return err
		}
		for _, cand := range candidates[1:] {
			if err := c.recorder.Apply(ctx, resolution.Change{
				Target:    cand.Record,
				State:     transaction.StateNotDuplicate,
				RelatedID: target.ID,
			}); err != nil {
				return err
			}
		}
	}

	if !c.config.AskEditOnReject {
		return nil
	}

	edit := []*transaction.Record{target}
	for _, cand := range candidates {
		edit = append(edit, cand.Record)
	}
	for _, rec := range edit {
		if err := c.askEdit(ctx, target, candidates, rec); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) askEdit(ctx context.Context, target *transaction.Record, candidates []matcher.Candidate, rec *transaction.Record) error {
	prompt := Prompt{
		Kind:       PromptEdit,
		Mode:       c.config.Mode,
		Target:     target,
		Candidates: candidates,
		Record:     rec,
	}
	resp, err := c.ask(ctx, prompt, func(r Response) string {
		if r.Action == ActionEdit {
			return ""
		}
		return "enter new payee/notes or leave them blank"
	})
	if err != nil {
		return err
	}
	return c.recorder.Edit(ctx, rec, resolution.Edit{Payee: resp.Payee, Notes: resp.Notes})
}
