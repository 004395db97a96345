package core

// convert.go turns raw logbook cells into typed values.
//
// Logbook exports are hand-edited often enough that every converter is
// lenient: empty cells are zero values, and the boolean result tells the
// caller whether a non-empty cell had to be discarded.

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Date layouts, ISO first since that is what ForeFlight writes.
var (
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06",
	}
)

// ParseFlightDate parses a Date cell. ok is false for empty or unrecognised input.
func ParseFlightDate(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// time.Parse maps two-digit years 69-99 to the 1900s and 00-68 to the 2000s.
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseHours parses an hour or distance cell.
// Empty cells are zero and ok. Malformed or negative values are zero and not ok.
func ParseHours(s string) (decimal.Decimal, bool) {
	s = CleanCell(s)
	if s == "" {
		return decimal.Zero, true
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching; the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Has reports whether any of the named columns is present.
func (h HeaderIndex) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := h[strings.ToLower(n)]; ok {
			return true
		}
	}
	return false
}

// Cell returns the cleaned value of the first named column present in row.
// Missing columns and short rows yield "".
func (h HeaderIndex) Cell(row []string, names ...string) string {
	for _, n := range names {
		i, ok := h[strings.ToLower(n)]
		if !ok {
			continue
		}
		if i < len(row) {
			return CleanCell(row[i])
		}
		return ""
	}
	return ""
}

// CleanCell removes common CSV artifacts from a cell value:
// whitespace, an Excel formula prefix (="...") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// NormalizeAircraftID canonicalises a tail number for lookups.
func NormalizeAircraftID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
