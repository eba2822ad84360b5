package core

// convert.go turns raw spreadsheet cells into typed booking values.
//
// Dates are parsed against an explicit layout list, never guessed: a value
// that matches none of the configured layouts is a bad_type error. Workbook
// cells formatted as dates arrive as serial day numbers and are converted
// with the 1900 date system.

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultDateLayouts is the accepted date format set when none is configured.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02 Jan 2006",
	"Jan 2 2006",
}

// Serial numbers outside this window are not treated as dates. 1 is
// 1900-01-01, 109574 is 2199-12-31.
const (
	minSerialDate = 1
	maxSerialDate = 109574
)

// ParseDate parses s against layouts. When serial is true a plain number is
// read as a spreadsheet serial date. The result is a UTC midnight.
func ParseDate(s string, layouts []string, serial bool) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}

	if serial {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minSerialDate && f <= maxSerialDate {
			t, err := excelize.ExcelDateToTime(f, false)
			if err == nil {
				return dateOnly(t), true
			}
		}
	}

	return time.Time{}, false
}

// ParseStatus parses a booking status. Empty input yields DefaultStatus.
func ParseStatus(s string) (BookingStatus, bool) {
	switch strings.ToLower(CleanCell(s)) {
	case "":
		return DefaultStatus, true
	case "confirmed":
		return StatusConfirmed, true
	case "pending":
		return StatusPending, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return "", false
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// FoldName normalises a name for comparison: trimmed, NFC composed and
// Unicode case folded, so "Straße" and "STRASSE" compare equal.
func FoldName(s string) string {
	// Casers carry state, so each call gets its own.
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
