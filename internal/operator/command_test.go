package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/disambiguate"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name   string
		kind   disambiguate.PromptKind
		line   string
		want   disambiguate.Response
		errors bool
	}{
		{"confirm", disambiguate.PromptSingle, "y", disambiguate.Confirm(), false},
		{"confirm uppercase", disambiguate.PromptSingle, " YES ", disambiguate.Confirm(), false},
		{"reject", disambiguate.PromptSingle, "n", disambiguate.Reject(), false},
		{"none", disambiguate.PromptMultiple, "none", disambiguate.Reject(), false},
		{"investigate", disambiguate.PromptMultiple, "i", disambiguate.Investigate(), false},
		{"one-based index", disambiguate.PromptMultiple, "2", disambiguate.Select(1), false},
		{"garbage", disambiguate.PromptMultiple, "maybe", disambiguate.Response{}, true},
		{"zero names the target", disambiguate.PromptMultiple, "0", disambiguate.SelectTarget(), false},
		{"empty", disambiguate.PromptSingle, "   ", disambiguate.Response{}, true},
		{"skip edit", disambiguate.PromptEdit, "s", disambiguate.KeepFields(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(disambiguate.Prompt{Kind: tt.kind, Mode: matcher.ModeCross}, tt.line)
			if tt.errors {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_BlankLine(t *testing.T) {
	tests := []struct {
		name   string
		prompt disambiguate.Prompt
		want   disambiguate.Response
		err    error
	}{
		{"self single rejects", disambiguate.Prompt{Kind: disambiguate.PromptSingle, Mode: matcher.ModeSelf}, disambiguate.Reject(), nil},
		{"self multiple rejects", disambiguate.Prompt{Kind: disambiguate.PromptMultiple, Mode: matcher.ModeSelf}, disambiguate.Reject(), nil},
		{"cross has no default", disambiguate.Prompt{Kind: disambiguate.PromptMultiple, Mode: matcher.ModeCross}, disambiguate.Response{}, ErrEmptyInput},
		{"edit has no default", disambiguate.Prompt{Kind: disambiguate.PromptEdit, Mode: matcher.ModeSelf}, disambiguate.Response{}, ErrEmptyInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.prompt, "\n")
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Edit(t *testing.T) {
	edit := disambiguate.Prompt{Kind: disambiguate.PromptEdit}
	resp, err := ParseCommand(edit, "STARBUCKS | second coffee")
	require.NoError(t, err)
	require.NotNil(t, resp.Payee)
	require.NotNil(t, resp.Notes)
	assert.Equal(t, "STARBUCKS", *resp.Payee)
	assert.Equal(t, "second coffee", *resp.Notes)

	resp, err = ParseCommand(edit, "|notes only")
	require.NoError(t, err)
	assert.Nil(t, resp.Payee)
	assert.Equal(t, "notes only", *resp.Notes)
}

func TestHelp(t *testing.T) {
	prompt := disambiguate.Prompt{
		Kind:             disambiguate.PromptMultiple,
		Mode:             matcher.ModeCross,
		Candidates:       make([]matcher.Candidate, 3),
		AllowInvestigate: true,
	}
	assert.Equal(t, "1-3 = pick duplicate, n = none are duplicates, i = investigate", Help(prompt))

	self := disambiguate.Prompt{
		Kind:        disambiguate.PromptSingle,
		Mode:        matcher.ModeSelf,
		Candidates:  make([]matcher.Candidate, 1),
		AllowTarget: true,
	}
	assert.Equal(t, "y = duplicate, n/enter = not a duplicate, 0 = target is the duplicate", Help(self))
}
