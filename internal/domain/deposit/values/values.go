// Package values handles regional money and date parsing for mapped report
// cells. Converts the formats vendors actually ship into canonical values.
package values

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount format")
	ErrInvalidDate   = errors.New("invalid date format")
)

// Number format hints carried on a mapping's options block.
const (
	NumberFormatAmerican = "american" // 1,234.56
	NumberFormatEuropean = "european" // 1.234,56
)

// ParseDecimal converts a raw cell to a decimal amount. Currency symbols
// and grouping separators are stripped according to the format hint; an
// empty or symbol-only cell parses as zero.
func ParseDecimal(raw string, formatHint string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)

	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, nil
	}

	// Parenthesized accounting negatives: (1,234.56)
	negative := strings.HasPrefix(cleaned, "-") ||
		(strings.Contains(raw, "(") && strings.Contains(raw, ")"))
	cleaned = strings.TrimPrefix(cleaned, "-")

	if formatHint == NumberFormatEuropean {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseRate converts a raw cell to a fractional commission rate. A
// trailing percent sign, or any bare value above 1, is read as a
// percentage and divided by 100.
func ParseRate(raw string, formatHint string) (decimal.Decimal, error) {
	d, err := ParseDecimal(raw, formatHint)
	if err != nil {
		return decimal.Zero, err
	}
	if strings.Contains(raw, "%") || d.Abs().GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(decimal.NewFromInt(100))
	}
	return d, nil
}

// Date formats seen across vendor commission reports.
var dateFormats = []string{
	// American (MM-DD-YYYY variants)
	"01-02-2006",
	"01/02/2006",
	"1/2/2006",

	// European (DD-MM-YYYY variants)
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",

	// ISO (YYYY-MM-DD)
	"2006-01-02",
	"2006/01/02",

	// Month names
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",

	// With time
	"01/02/2006 15:04",
	"02-01-2006 15:04",
	"2006-01-02 15:04:05",
}

// ParseFlexibleDate attempts to parse a date using the hint format first,
// then every known vendor format.
func ParseFlexibleDate(raw string, formatHint string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}

	if loc == nil {
		loc = time.UTC
	}

	if formatHint != "" {
		goFormat := convertDateFormat(formatHint)
		if t, err := time.ParseInLocation(goFormat, raw, loc); err == nil {
			return t, nil
		}
	}

	for _, format := range dateFormats {
		if t, err := time.ParseInLocation(format, raw, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrInvalidDate
}

// convertDateFormat converts user-facing format strings to Go layouts,
// e.g. "MM/DD/YYYY" -> "01/02/2006".
func convertDateFormat(format string) string {
	replacements := []struct{ pattern, layout string }{
		{"YYYY", "2006"},
		{"YY", "06"},
		{"MM", "01"},
		{"DD", "02"},
		{"HH", "15"},
		{"mm", "04"},
		{"ss", "05"},
	}

	result := format
	for _, r := range replacements {
		result = strings.ReplaceAll(result, r.pattern, r.layout)
	}
	return result
}

// DetectDateFormat guesses the date format from sample cells so the hint
// can be stored on the mapping for later uploads.
func DetectDateFormat(samples []string) string {
	if len(samples) == 0 {
		return "MM/DD/YYYY"
	}

	sample := strings.TrimSpace(samples[0])

	dayFirstPattern := regexp.MustCompile(`^\d{1,2}[-/]\d{1,2}[-/]\d{4}$`)
	isoPattern := regexp.MustCompile(`^\d{4}[-/]\d{1,2}[-/]\d{1,2}$`)

	if isoPattern.MatchString(sample) {
		if strings.Contains(sample, "/") {
			return "YYYY/MM/DD"
		}
		return "YYYY-MM-DD"
	}

	if dayFirstPattern.MatchString(sample) {
		parts := strings.FieldsFunc(sample, func(r rune) bool {
			return r == '-' || r == '/'
		})
		if len(parts) >= 2 {
			first, _ := strconv.Atoi(parts[0])
			if first > 12 {
				if strings.Contains(sample, "/") {
					return "DD/MM/YYYY"
				}
				return "DD-MM-YYYY"
			}
		}

		// US vendors dominate this corpus, so month-first wins the
		// ambiguous case.
		if strings.Contains(sample, "/") {
			return "MM/DD/YYYY"
		}
		return "MM-DD-YYYY"
	}

	return "MM/DD/YYYY"
}

var spacePattern = regexp.MustCompile(`\s+`)

// CleanText normalizes free-text cells such as descriptions and customer
// names.
func CleanText(raw string) string {
	return spacePattern.ReplaceAllString(strings.TrimSpace(raw), " ")
}
