// Package accounts folds source-specific account display names into one
// canonical grouping key.
//
// The same physical account often shows up under different names in each
// export ("CHASE CHECKING" in one file, "Chase Checking (1234)" in the other).
// A Map holds synonym sets, one canonical name per set.
//
// Example usage:
//
//	m := accounts.NewMap(map[string][]string{
//		"Chase Checking": {"CHASE CHECKING", "Chase Checking (1234)"},
//	})
//	key, ok := m.Canonical("chase checking (1234)") // "chase checking", true
package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Mapper resolves a display name to its canonical account identity
type Mapper interface {
	Canonical(name string) (string, bool)
}

// Map is an immutable synonym table
type Map struct {
	lookup map[string]string // normalized synonym -> normalized canonical
}

// Compile-time check that Map implements Mapper
var _ Mapper = (*Map)(nil)

// Identity is the mapper used when no synonym table is configured
var Identity = NewMap(nil)

// NewMap builds a map from canonical name to its synonyms.
// The canonical name is always a synonym of itself. A synonym listed under
// several canonical names belongs to the first of them in sorted order.
func NewMap(sets map[string][]string) *Map {
	m := &Map{lookup: make(map[string]string)}

	names := make([]string, 0, len(sets))
	for canonical := range sets {
		if key := normalize(canonical); key != "" {
			m.lookup[key] = key
			names = append(names, canonical)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return normalize(names[i]) < normalize(names[j])
	})

	for _, canonical := range names {
		key := normalize(canonical)
		for _, s := range sets[canonical] {
			n := normalize(s)
			if n == "" {
				continue
			}
			if _, taken := m.lookup[n]; !taken {
				m.lookup[n] = key
			}
		}
	}
	return m
}

// Canonical returns the grouping key for name. Names outside every synonym
// set fold to their own normalized form. Empty names are unmappable.
func (m *Map) Canonical(name string) (string, bool) {
	n := normalize(name)
	if n == "" {
		return "", false
	}
	if canonical, ok := m.lookup[n]; ok {
		return canonical, true
	}
	return n, true
}

// Len returns the number of known synonyms
func (m *Map) Len() int {
	return len(m.lookup)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LoadCSV reads a synonym file laid out as one column per account: the header
// row holds the canonical names and each column lists that account's synonyms.
func LoadCSV(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open account map %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f)
}

// ReadCSV parses the column-oriented synonym layout from r
func ReadCSV(r io.Reader) (*Map, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return NewMap(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading account map header: %w", err)
	}

	sets := make(map[string][]string, len(header))
	for _, canonical := range header {
		sets[canonical] = nil
	}

	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading account map at row %d: %w", row, err)
		}
		for i, synonym := range record {
			if i >= len(header) || strings.TrimSpace(synonym) == "" {
				continue
			}
			sets[header[i]] = append(sets[header[i]], synonym)
		}
		row++
	}

	return NewMap(sets), nil
}

// Merge returns a map holding the synonyms of every input.
// Later maps win when a synonym appears in more than one.
func Merge(maps ...*Map) *Map {
	out := &Map{lookup: make(map[string]string)}
	for _, m := range maps {
		if m == nil {
			continue
		}
		for k, v := range m.lookup {
			out.lookup[k] = v
		}
	}
	return out
}
