// Package fields canonicalizes and validates field values and keeps document status in sync.
package fields

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

const StrictTextMaxLen = 50

var (
	strictTextNoise  = regexp.MustCompile(`[^A-Za-z0-9 ]`)
	asciiLetter      = regexp.MustCompile(`[A-Za-z]`)
	currencyNoise    = regexp.MustCompile(`[^0-9.,]`)
	nonDigit         = regexp.MustCompile(`[^0-9]`)
	repeatedSlash    = regexp.MustCompile(`/{2,}`)
	dateSeparatorMap = strings.NewReplacer(".", "/", "-", "/")
)

// Sanitize rewrites raw into the canonical form for the kind of key. It never fails;
// the worst case is an empty string. Sanitize(k, Sanitize(k, v)) == Sanitize(k, v).
func Sanitize(key, raw string) string {
	value := strings.TrimSpace(raw)

	switch domain.KindOf(key) {
	case domain.KindStrictText:
		return sanitizeStrictText(value)
	case domain.KindNumericStrict:
		return nonDigit.ReplaceAllString(value, "")
	case domain.KindCurrency:
		return sanitizeCurrency(value)
	case domain.KindPercentage:
		return strings.ToUpper(value)
	case domain.KindDate:
		return sanitizeDate(value)
	default:
		return strings.Join(strings.Fields(value), " ")
	}
}

func sanitizeStrictText(value string) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, value)
	value = strings.TrimSpace(strictTextNoise.ReplaceAllString(value, ""))
	if len(value) > StrictTextMaxLen {
		value = value[:StrictTextMaxLen]
	}
	return strings.TrimSpace(value)
}

// sanitizeCurrency rejects values with letters outright: "10k" is ambiguous, not 10.
func sanitizeCurrency(value string) string {
	if asciiLetter.MatchString(value) {
		return ""
	}
	digits := nonDigit.ReplaceAllString(currencyNoise.ReplaceAllString(value, ""), "")
	if digits == "" {
		return ""
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return ""
	}
	return "$" + strings.ReplaceAll(humanize.Comma(amount), ",", ".")
}

func sanitizeDate(value string) string {
	value = dateSeparatorMap.Replace(value)
	value = repeatedSlash.ReplaceAllString(value, "/")
	value = strings.TrimRightFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	return strings.TrimSpace(value)
}
