package transaction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseState(t *testing.T) {
	tests := []struct {
		input string
		want  State
	}{
		{"", StateUnresolved},
		{"Duplicate", StateDuplicate},
		{"Not-Duplicate", StateNotDuplicate},
		{"match", StateMatch},
		{"Investigate", StateInvestigate},
		{"Delete", StateDuplicate},
		{" keep ", StateKeep},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseState(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseState("maybe")
	assert.Error(t, err)
}

func TestState_IsStable(t *testing.T) {
	assert.True(t, StateDuplicate.IsStable())
	assert.True(t, StateNotDuplicate.IsStable())
	assert.True(t, StateMatch.IsStable())
	assert.True(t, StateInvestigate.IsStable())
	assert.False(t, StateKeep.IsStable())
	assert.False(t, StateUnresolved.IsStable())
}

func TestRecord_Validate(t *testing.T) {
	good := &Record{
		ID:          "1",
		Source:      SourcePrimary,
		AccountName: "Checking",
		Amount:      decimal.NewNullDecimal(decimal.RequireFromString("-42.50")),
		Date:        time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, good.Validate())

	bad := &Record{ID: "2", Source: SourcePrimary}
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "account_name, amount, date")
}

func TestRecord_Formatting(t *testing.T) {
	r := &Record{
		ID:     "7",
		Source: SourceReference,
		Amount: decimal.NewNullDecimal(decimal.RequireFromString("-10")),
		Date:   time.Date(2023, 2, 1, 15, 4, 0, 0, time.UTC),
	}
	assert.Equal(t, "reference:7", r.Key())
	assert.Equal(t, "-10.00", r.AmountString())
	assert.Equal(t, "2023-02-01", r.DateString())
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2023, 1, 10, 23, 0, 0, 0, time.UTC)
	b := time.Date(2023, 1, 12, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, DaysBetween(a, b))
	assert.Equal(t, -2, DaysBetween(b, a))
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, CompareIDs("9", "10"), "numeric ids compare as numbers")
	assert.Equal(t, 1, CompareIDs("b", "a"))
	assert.Equal(t, 0, CompareIDs("42", "42"))
}

func TestRecord_HasAnyTag(t *testing.T) {
	r := &Record{Tags: []string{"Groceries", " not-duplicate "}}
	assert.True(t, r.HasAnyTag(NotDuplicateTags...))
	assert.False(t, r.HasAnyTag("Travel"))
	assert.False(t, (&Record{}).HasAnyTag(NotDuplicateTags...))
}
