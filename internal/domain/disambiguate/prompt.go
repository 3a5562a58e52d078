package disambiguate

import (
	"context"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// PromptKind identifies what the operator is being asked
type PromptKind string

const (
	// PromptSingle offers one suggested pairing to confirm or reject
	PromptSingle PromptKind = "single"
	// PromptMultiple lists every candidate with a selectable index
	PromptMultiple PromptKind = "multiple"
	// PromptEdit asks for new payee/notes on a rejected record
	PromptEdit PromptKind = "edit"
)

// Prompt is one question put to the operator
type Prompt struct {
	Kind       PromptKind
	Mode       matcher.Mode
	Target     *transaction.Record
	Candidates []matcher.Candidate

	// Record is the record being edited (PromptEdit only)
	Record *transaction.Record

	// AllowInvestigate is set when Investigate is a valid answer
	AllowInvestigate bool

	// AllowTarget is set when the target row itself may be selected as the
	// duplicate (Select(TargetIndex))
	AllowTarget bool

	// Invalid explains why the previous answer to this prompt was refused
	Invalid string
}

// Action is the operator's answer type
type Action string

const (
	ActionConfirm     Action = "confirm"
	ActionSelect      Action = "select"
	ActionReject      Action = "reject"
	ActionInvestigate Action = "investigate"
	ActionEdit        Action = "edit"
)

// TargetIndex is the Select index naming the target row
const TargetIndex = -1

// Response is the operator's answer to a Prompt
type Response struct {
	Action Action
	Index  int // ActionSelect: zero-based candidate index, or TargetIndex

	// ActionEdit: nil means unchanged
	Payee *string
	Notes *string
}

// Confirm accepts the suggested pairing
func Confirm() Response { return Response{Action: ActionConfirm} }

// Select picks candidate i as the counterpart
func Select(i int) Response { return Response{Action: ActionSelect, Index: i} }

// SelectTarget names the target row itself as the duplicate
func SelectTarget() Response { return Select(TargetIndex) }

// Reject marks the target as distinct from every candidate shown
func Reject() Response { return Response{Action: ActionReject} }

// Investigate flags the target for manual follow-up
func Investigate() Response { return Response{Action: ActionInvestigate} }

// Edit answers an edit prompt. Empty strings leave a field unchanged.
func Edit(payee, notes string) Response {
	r := Response{Action: ActionEdit}
	if payee != "" {
		r.Payee = &payee
	}
	if notes != "" {
		r.Notes = &notes
	}
	return r
}

// KeepFields answers an edit prompt without changing anything
func KeepFields() Response { return Response{Action: ActionEdit} }

// Operator is the interactive channel. Present blocks until the operator
// answers; an error aborts the run.
type Operator interface {
	Present(ctx context.Context, prompt Prompt) (Response, error)
}

// OperatorFunc adapts a function to the Operator interface
type OperatorFunc func(ctx context.Context, prompt Prompt) (Response, error)

// Present calls f
func (f OperatorFunc) Present(ctx context.Context, prompt Prompt) (Response, error) {
	return f(ctx, prompt)
}
