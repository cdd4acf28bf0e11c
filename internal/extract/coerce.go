package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/currency"

	"github.com/joseph-ayodele/po2so/internal/entity"
)

var (
	reCurrencyCode = regexp.MustCompile(`^[A-Z]{3}$`)
	reNumberBody   = regexp.MustCompile(`^\d+(\.\d+)?$`)
	reISODate      = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	reNumericDate  = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{2}|\d{4})$`)
	reDayMonthName = regexp.MustCompile(`^(\d{1,2})[\s-]+([A-Za-z]{3,9})[\s-]+(\d{2}|\d{4})$`)
	reMonthNameDay = regexp.MustCompile(`^([A-Za-z]{3,9})\s+(\d{1,2}),?\s+(\d{4})$`)
	reOrdinal      = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)
	reMonthAbbrev  = regexp.MustCompile(`([A-Za-z]{3})\.`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ocrDigits maps letters OCR commonly reads in place of digits.
var ocrDigits = strings.NewReplacer("O", "0", "o", "0", "l", "1", "I", "1", "|", "1")

const ocrLetters = "OolI|"

// ParseDecimal reads an amount in any of the common locale forms: 1,234.56,
// 1.234,56, 1 234,56 and 1'234.56, with optional currency symbol or code and
// parenthesised or signed negatives. decimalSep is the separator to prefer
// when a lone separator is followed by exactly three digits.
func ParseDecimal(raw, decimalSep string) (*apd.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	s = stripCurrencyCode(strings.TrimSpace(s))
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(s[1:])
	} else if strings.HasSuffix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(s[:len(s)-1])
	}
	if digitLike(s) {
		s = ocrDigits.Replace(s)
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "", "\u2019", "").Replace(s)

	body, err := normalizeSeparators(s, decimalSep)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", raw, err)
	}
	if !reNumberBody.MatchString(body) {
		return nil, fmt.Errorf("amount %q: not a number", raw)
	}
	if neg {
		body = "-" + body
	}
	d, _, err := apd.NewFromString(body)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", raw, err)
	}
	return d, nil
}

// stripCurrencyCode drops an ISO 4217 code standing as its own word before or
// after the number, as in "USD 99.90" or "99,90 EUR".
func stripCurrencyCode(s string) string {
	words := strings.Fields(s)
	if len(words) < 2 {
		return s
	}
	isCode := func(w string) bool {
		if !reCurrencyCode.MatchString(w) {
			return false
		}
		_, err := currency.ParseISO(w)
		return err == nil
	}
	switch {
	case isCode(words[0]):
		words = words[1:]
	case isCode(words[len(words)-1]):
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// digitLike reports whether s is one word made of digits, separators and
// letters OCR confuses with digits, with at least as many digits as letters.
func digitLike(s string) bool {
	digits, letters := 0, 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune(ocrLetters, r):
			letters++
		case r == '.' || r == ',' || r == '\'' || r == '\u2019':
		default:
			return false
		}
	}
	return letters > 0 && digits >= letters
}

// normalizeSeparators rewrites s so '.' is the only, decimal, separator.
func normalizeSeparators(s, decimalSep string) (string, error) {
	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			return strings.ReplaceAll(s, ",", ""), nil
		}
		return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1), nil
	case lastDot < 0 && lastComma < 0:
		return s, nil
	}
	sep := "."
	if lastComma >= 0 {
		sep = ","
	}
	parts := strings.Split(s, sep)
	if len(parts) > 2 {
		for _, p := range parts[1:] {
			if len(p) != 3 {
				return "", fmt.Errorf("misplaced %q separator", sep)
			}
		}
		return strings.Join(parts, ""), nil
	}
	if len(parts[1]) == 3 && sep != decimalSep {
		return parts[0] + parts[1], nil
	}
	return parts[0] + "." + parts[1], nil
}

// ParseDate reads ISO, numeric and month-name dates. Numeric dates are
// month-first unless dayFirst is set or the first number cannot be a month.
func ParseDate(raw string, dayFirst bool) (time.Time, error) {
	s := strings.Join(strings.Fields(strings.Trim(strings.TrimSpace(raw), ".,;")), " ")
	s = reOrdinal.ReplaceAllString(s, "$1")
	s = reMonthAbbrev.ReplaceAllString(s, "$1")

	if m := reISODate.FindStringSubmatch(s); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), raw)
	}
	if m := reNumericDate.FindStringSubmatch(s); m != nil {
		a, b, y := atoi(m[1]), atoi(m[2]), year(m[3])
		switch {
		case a > 12:
			return makeDate(y, b, a, raw)
		case b > 12:
			return makeDate(y, a, b, raw)
		case dayFirst:
			return makeDate(y, b, a, raw)
		default:
			return makeDate(y, a, b, raw)
		}
	}
	if m := reDayMonthName.FindStringSubmatch(s); m != nil {
		if mon, ok := monthByName(m[2]); ok {
			return makeDate(year(m[3]), int(mon), atoi(m[1]), raw)
		}
	}
	if m := reMonthNameDay.FindStringSubmatch(s); m != nil {
		if mon, ok := monthByName(m[1]); ok {
			return makeDate(atoi(m[3]), int(mon), atoi(m[2]), raw)
		}
	}
	return time.Time{}, fmt.Errorf("date %q: unrecognized format", raw)
}

func makeDate(y, m, d int, raw string) (time.Time, error) {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("date %q: out of range", raw)
	}
	return t, nil
}

func monthByName(s string) (time.Month, bool) {
	if len(s) < 3 {
		return 0, false
	}
	m, ok := months[strings.ToLower(s[:3])]
	return m, ok
}

func year(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		y += 2000
	}
	return y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// coerce fills the typed value of f from f.Raw. A failure marks the field
// invalid and flagged; the raw text is kept either way.
func coerce(f *entity.ExtractedField, opts Options) {
	raw := strings.TrimSpace(f.Raw)
	var err error
	switch f.Type {
	case entity.TypeDecimal:
		f.Decimal, err = ParseDecimal(raw, opts.DecimalSeparator)
	case entity.TypeInteger:
		var d *apd.Decimal
		if d, err = ParseDecimal(raw, opts.DecimalSeparator); err == nil {
			f.Int, err = d.Int64()
		}
	case entity.TypeDate:
		f.Date, err = ParseDate(raw, opts.DayFirst)
	default:
		f.Text = strings.TrimSpace(strings.TrimRight(raw, ",;:"))
		if f.Text == "" {
			err = fmt.Errorf("empty value")
		}
	}
	if err != nil {
		f.Invalid = true
		f.NeedsReview = true
	}
}
