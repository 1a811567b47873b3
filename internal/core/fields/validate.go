package fields

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

const MessageEmpty = "empty field"

var (
	allDigits         = regexp.MustCompile(`^[0-9]+$`)
	anyDigit          = regexp.MustCompile(`[0-9]`)
	percentagePattern = regexp.MustCompile(`(?i)([0-9]+.*%)|([0-9]+.*VALOR\s*COMERCIAL)`)
	datePattern       = regexp.MustCompile(`^[0-9]{2}/[0-9]{2}/[0-9]{4}(\s[0-9]{2}:[0-9]{2})?$`)
)

// Validate checks value against the format of the kind of key.
// It returns an empty string when the value is acceptable.
func Validate(key, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return MessageEmpty
	}

	switch domain.KindOf(key) {
	case domain.KindStrictText:
		if n := utf8.RuneCountInString(value); n > StrictTextMaxLen {
			return fmt.Sprintf("text exceeds the %d character limit (current: %d)", StrictTextMaxLen, n)
		}
	case domain.KindNumericStrict:
		if !allDigits.MatchString(value) || len(value) < 4 {
			return "digits only, at least 4"
		}
	case domain.KindCurrency:
		if !anyDigit.MatchString(value) {
			return "invalid currency amount"
		}
	case domain.KindPercentage:
		if !percentagePattern.MatchString(value) {
			return "must state a percentage (e.g. 100% VALOR COMERCIAL)"
		}
	case domain.KindDate:
		if !datePattern.MatchString(value) {
			return "invalid date, expected dd/mm/yyyy or dd/mm/yyyy hh:mm"
		}
	}
	return ""
}
