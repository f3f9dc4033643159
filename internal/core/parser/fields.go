package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/shopspring/decimal"
)

var datePatterns = []struct {
	re    *regexp.Regexp
	parse func(m []string) (time.Time, bool)
}{
	// DD/MM/YYYY, DD-MM-YY
	{regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`), func(m []string) (time.Time, bool) {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return calendarDate(year, m[2], m[1])
	}},
	// YYYY-MM-DD
	{regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`), func(m []string) (time.Time, bool) {
		return calendarDate(m[1], m[2], m[3])
	}},
	// DD MMM YYYY
	{regexp.MustCompile(`(?i)\b(\d{1,2})\s+([a-z]{3,9})\.?\s+(\d{4})\b`), func(m []string) (time.Time, bool) {
		month, ok := monthNames[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		return calendarDate(m[3], strconv.Itoa(int(month)), m[1])
	}},
}

var monthNames = func() map[string]time.Month {
	out := map[string]time.Month{"sept": time.September}
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		out[full] = m
		out[full[:3]] = m
	}
	return out
}()

var (
	reTotalAmount   = regexp.MustCompile(`\$?\s*(\d+\.\d{2})`)
	reReceiptNumber = regexp.MustCompile(`(?i)(?:receipt|rn|invoice)\s*[#:]?\s*(\d+)`)
)

// ExtractStoreName looks at the first header lines only. Known chain patterns
// are tried first, then plain chain keywords, then an all-caps line that is
// not receipt boilerplate. The matched line is returned trimmed, case preserved.
func ExtractStoreName(lines []string) *string {
	header := lines
	if len(header) > constants.StoreHeaderLines {
		header = header[:constants.StoreHeaderLines]
	}

	patterns := constants.StorePatterns()
	for _, line := range header {
		lower := strings.ToLower(line)
		for _, p := range patterns {
			if p.Pattern.MatchString(lower) {
				return ptr(strings.TrimSpace(line))
			}
		}
	}

	for _, line := range header {
		lower := strings.ToLower(line)
		for _, kw := range constants.StoreKeywords {
			if strings.Contains(lower, kw) {
				return ptr(strings.TrimSpace(line))
			}
		}
		trimmed := strings.TrimSpace(line)
		n := len([]rune(trimmed))
		if isUpper(line) && n >= 3 && n <= 50 && !containsAny(lower, constants.StoreHeaderExclusions) {
			return ptr(trimmed)
		}
	}
	return nil
}

// ExtractDate returns the first line/pattern pair that yields a real calendar date.
func ExtractDate(lines []string) *time.Time {
	for _, line := range lines {
		for _, p := range datePatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if d, ok := p.parse(m); ok {
				return &d
			}
		}
	}
	return nil
}

// Totals holds the summary amounts printed at the foot of a receipt.
type Totals struct {
	Subtotal *decimal.Decimal
	Tax      *decimal.Decimal
	Total    *decimal.Decimal
}

// ExtractTotals classifies each line by keyword; the last qualifying line wins.
func ExtractTotals(lines []string) Totals {
	var t Totals
	for _, line := range lines {
		lower := strings.ToLower(line)
		var slot **decimal.Decimal
		switch {
		case strings.Contains(lower, "total") && !strings.Contains(lower, "subtotal"):
			slot = &t.Total
		case strings.Contains(lower, "subtotal"):
			slot = &t.Subtotal
		case strings.Contains(lower, "tax") || strings.Contains(lower, "gst"):
			slot = &t.Tax
		default:
			continue
		}
		m := reTotalAmount.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if d, err := decimal.NewFromString(m[1]); err == nil {
			*slot = &d
		}
	}
	return t
}

// ExtractReceiptNumber returns the digits following receipt/rn/invoice on the first matching line.
func ExtractReceiptNumber(lines []string) *string {
	for _, line := range lines {
		if m := reReceiptNumber.FindStringSubmatch(strings.ToLower(line)); m != nil {
			return ptr(m[1])
		}
	}
	return nil
}

func calendarDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil || y < 1 || mo < 1 || mo > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject instead.
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, false
	}
	return t, true
}

// isUpper mirrors "has at least one cased letter and none are lower case".
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T { return &v }
