package accounts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_Canonical(t *testing.T) {
	m := NewMap(map[string][]string{
		"Chase Checking": {"CHASE CHECKING", " Chase Checking (1234) "},
	})

	t.Run("synonym folds to canonical", func(t *testing.T) {
		key, ok := m.Canonical("chase checking (1234)")
		assert.True(t, ok)
		assert.Equal(t, "chase checking", key)
	})

	t.Run("canonical maps to itself", func(t *testing.T) {
		key, ok := m.Canonical("Chase Checking")
		assert.True(t, ok)
		assert.Equal(t, "chase checking", key)
	})

	t.Run("unknown name uses identity", func(t *testing.T) {
		key, ok := m.Canonical("  Amex Gold ")
		assert.True(t, ok)
		assert.Equal(t, "amex gold", key)
	})

	t.Run("empty name is unmappable", func(t *testing.T) {
		_, ok := m.Canonical("   ")
		assert.False(t, ok)
	})
}

func TestNewMap_SharedSynonymIsStable(t *testing.T) {
	sets := map[string][]string{
		"Savings":   {"CHASE", "SAV"},
		"Checking":  {"CHASE", "Savings"},
		"Brokerage": {"chase "},
	}

	for i := 0; i < 50; i++ {
		m := NewMap(sets)

		key, _ := m.Canonical("chase")
		require.Equal(t, "brokerage", key, "first canonical name in sorted order wins")

		key, _ = m.Canonical("savings")
		require.Equal(t, "savings", key, "a canonical name is never folded into another set")
	}
}

func TestReadCSV(t *testing.T) {
	input := "Chase Checking,Amex\nCHASE CHECKING,AMEX GOLD\nChecking,\n"

	m, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	key, _ := m.Canonical("checking")
	assert.Equal(t, "chase checking", key)
	key, _ = m.Canonical("AMEX GOLD")
	assert.Equal(t, "amex", key)
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLoadCSV_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "account_name_map.csv")
	require.NoError(t, os.WriteFile(path, []byte("Savings\nMY SAVINGS\n"), 0644))

	m, err := LoadCSV(path)
	require.NoError(t, err)
	key, ok := m.Canonical("my savings")
	assert.True(t, ok)
	assert.Equal(t, "savings", key)
}

func TestMerge(t *testing.T) {
	a := NewMap(map[string][]string{"Checking": {"CHK"}})
	b := NewMap(map[string][]string{"Primary Checking": {"CHK"}})

	merged := Merge(a, nil, b)
	key, _ := merged.Canonical("chk")
	assert.Equal(t, "primary checking", key, "later maps win")
	assert.Equal(t, 3, merged.Len())
}
