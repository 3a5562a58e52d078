package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// row is one CSV record addressed by header name
type row struct {
	line   int
	header []string
	index  map[string]int
	values []string
}

// get returns the first non-empty value among the named columns
func (r row) get(names ...string) string {
	for _, name := range names {
		i, ok := r.index[strings.ToLower(name)]
		if !ok || i >= len(r.values) {
			continue
		}
		if v := strings.TrimSpace(r.values[i]); v != "" {
			return v
		}
	}
	return ""
}

// has reports whether the header contains the column
func (r row) has(name string) bool {
	_, ok := r.index[strings.ToLower(name)]
	return ok
}

// extras returns the columns not listed in known
func (r row) extras(known map[string]bool) map[string]string {
	var out map[string]string
	for i, name := range r.header {
		if name == "" || known[strings.ToLower(strings.TrimSpace(name))] || i >= len(r.values) {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[name] = r.values[i]
	}
	return out
}

// parseRows reads a CSV with a header line and applies parseFn to every
// following line, collecting the results in order.
func parseRows[T any](r io.Reader, parseFn func(row row) (*T, error)) ([]*T, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var result []*T
	rowIndex := 0
	for {
		values, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error reading CSV at row %d: %w", rowIndex, err)
		}

		item, err := parseFn(row{line: rowIndex, header: header, index: index, values: values})
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", rowIndex, err)
		}
		if item != nil {
			result = append(result, item)
		}
		rowIndex++
	}

	return result, nil
}

// parseAmount parses a currency string like "-42.50", "$1,234.56" or
// "(12.00)". Empty input is not valid.
func parseAmount(s string) (decimal.NullDecimal, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return decimal.NullDecimal{}, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}
	if strings.HasPrefix(cleaned, "-") {
		negative = !negative
		cleaned = strings.TrimPrefix(cleaned, "-")
	}
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d), nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
}

// parseDate parses the date formats seen in Lunch Money and Mint exports,
// including the short form a spreadsheet round trip produces
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", s)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "t", "y":
		return true
	}
	return false
}

// Lunch Money tags arrive either as a comma list or as a serialized list of
// objects: [{'name': 'Not-Duplicate', 'id': 12}]
var tagNamePattern = regexp.MustCompile(`['"]name['"]\s*:\s*['"]([^'"]*)['"]`)

func parseTags(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var tags []string
		for _, m := range tagNamePattern.FindAllStringSubmatch(s, -1) {
			tags = append(tags, m[1])
		}
		return tags
	}
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
