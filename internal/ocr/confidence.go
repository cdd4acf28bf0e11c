package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}$`)
	reCurr   = regexp.MustCompile(`^(usd|eur|gbp|cad|aud|inr|jpy|chf)$|^[$£€¥]`)
	reAmount = regexp.MustCompile(`^[($£€¥-]?\d{1,3}([,.' ]\d{3})*([.,]\d{1,2})?\)?$|^\d+([.,]\d+)?$`)
	reWord   = regexp.MustCompile(`^[\p{L}][\p{L}'\-]*[.,:;#]?$`)
	reCode   = regexp.MustCompile(`^[\p{L}\d][\p{L}\d\-/#.]*[\p{L}\d]:?$`)
	reVowel  = regexp.MustCompile(`[aeiouyàáâäèéêëìíîïòóôöùúûü]`)
)

func hasDatePattern(s string) bool     { return reDate.MatchString(s) }
func hasCurrencyPattern(s string) bool { return reCurr.MatchString(s) }
func hasAmountPattern(s string) bool   { return reAmount.MatchString(s) }

// plausibleWord reports whether a recognized word looks like something a
// purchase order would contain. Text read at the wrong rotation tends to
// come back as consonant soup or punctuation.
func plausibleWord(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	if l == "" {
		return false
	}
	if hasDatePattern(l) || hasCurrencyPattern(l) || hasAmountPattern(l) {
		return true
	}
	if reWord.MatchString(l) {
		return len([]rune(l)) <= 2 || reVowel.MatchString(l)
	}
	return reCode.MatchString(l) && strings.ContainsAny(l, "0123456789")
}

// orientationScore is mean word confidence times the share of plausible words.
func orientationScore(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	plausible := 0
	for _, w := range words {
		sum += w.Confidence
		if plausibleWord(w.Text) {
			plausible++
		}
	}
	n := float64(len(words))
	return (sum / n) * (float64(plausible) / n)
}
