// Package coerce converts raw cell values into the types a column declares.
//
// Every function is pure and never fails loudly: when a value cannot be
// coerced the second return value is false and the caller decides which
// validation error, if any, to raise.
package coerce

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/workbook-validation-api/internal/models"
)

// ExcelEpoch is day zero of spreadsheet serial dates. Using 1899-12-30 keeps
// compatibility with the 1900 leap-year bug of common spreadsheet formats.
var ExcelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerialDays bounds serial dates to the range a spreadsheet can represent
const maxSerialDays = 1e8

var (
	truthy = map[string]bool{"true": true, "t": true, "1": true, "yes": true, "y": true, "si": true, "sí": true}
	falsy  = map[string]bool{"false": true, "f": true, "0": true, "no": true, "n": true}

	// commaDecimal matches European notation such as "1.234,56"
	commaDecimal = regexp.MustCompile(`,\d+$`)
	clockTime    = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?$`)
)

// DateLayouts is the ordered list of layouts tried for date strings.
// ISO forms come first. Slash dates are month-first (01/02/2006 is
// January 2nd); dotted and dashed dates with a trailing year are day-first.
var DateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2.1.2006",
	"2-1-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"Mon, 2 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// IsBlank reports whether v is null or whitespace-only text
func IsBlank(v models.Value) bool {
	if v.IsNull() {
		return true
	}
	if s, ok := v.Text(); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Boolean coerces booleans, numbers (non-zero is true) and the fixed
// yes/no synonym sets.
func Boolean(v models.Value) (bool, bool) {
	switch v.Kind() {
	case models.KindBool:
		b, _ := v.Bool()
		return b, true
	case models.KindNumber:
		n, _ := v.Number()
		return n != 0, true
	case models.KindText:
		s, _ := v.Text()
		s = strings.ToLower(strings.TrimSpace(s))
		if truthy[s] {
			return true, true
		}
		if falsy[s] {
			return false, true
		}
	}
	return false, false
}

// Number coerces finite numbers and numeric text. Text ending in a comma
// followed by digits is read as European notation ("1.234,56"); otherwise
// commas are thousands separators ("1,234.56").
func Number(v models.Value) (float64, bool) {
	switch v.Kind() {
	case models.KindNumber:
		n, _ := v.Number()
		if isFinite(n) {
			return n, true
		}
	case models.KindText:
		s, _ := v.Text()
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		if commaDecimal.MatchString(s) {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
		n, err := strconv.ParseFloat(s, 64)
		if err == nil && isFinite(n) {
			return n, true
		}
	}
	return 0, false
}

// Date coerces date values, spreadsheet serial numbers and date text
// (see DateLayouts).
func Date(v models.Value) (time.Time, bool) {
	switch v.Kind() {
	case models.KindDate:
		t, _ := v.Time()
		return t, !t.IsZero()
	case models.KindNumber:
		n, _ := v.Number()
		return FromSerial(n)
	case models.KindText:
		s, _ := v.Text()
		return ParseDate(s)
	}
	return time.Time{}, false
}

// FromSerial converts a spreadsheet serial day count to a UTC time
func FromSerial(n float64) (time.Time, bool) {
	if !isFinite(n) || math.Abs(n) > maxSerialDays {
		return time.Time{}, false
	}
	days := math.Floor(n)
	ms := math.Round((n - days) * 24 * 60 * 60 * 1000)
	return ExcelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond), true
}

// ParseDate parses s with the first matching layout in DateLayouts
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateISO formats t as YYYY-MM-DD using its own calendar fields
func DateISO(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// TimeHHMMSS coerces date values, day fractions in [0,1) and H:M[:S] text
// to a 24-hour "HH:MM:SS" string.
func TimeHHMMSS(v models.Value) (string, bool) {
	switch v.Kind() {
	case models.KindDate:
		t, _ := v.Time()
		if t.IsZero() {
			return "", false
		}
		return formatClock(t.Hour(), t.Minute(), t.Second()), true
	case models.KindNumber:
		n, _ := v.Number()
		if !isFinite(n) || n < 0 || n >= 1 {
			return "", false
		}
		total := int(math.Round(n * 24 * 60 * 60))
		return formatClock(total/3600, (total%3600)/60, total%60), true
	case models.KindText:
		s, _ := v.Text()
		m := clockTime.FindStringSubmatch(strings.TrimSpace(s))
		if m == nil {
			return "", false
		}
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		ss := 0
		if m[3] != "" {
			ss, _ = strconv.Atoi(m[3])
		}
		if h > 23 || mm > 59 || ss > 59 {
			return "", false
		}
		return formatClock(h, mm, ss), true
	}
	return "", false
}

func formatClock(h, m, s int) string {
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func isFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}
