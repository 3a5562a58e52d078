package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadOptions_Contains(t *testing.T) {
	opts := LoadOptions{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, opts.Contains(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, opts.Contains(time.Date(2024, 4, 25, 23, 0, 0, 0, time.UTC)), "end date is inclusive")
	assert.False(t, opts.Contains(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, opts.Contains(time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)))
	assert.True(t, opts.Contains(time.Time{}))
	assert.True(t, LoadOptions{}.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
}
