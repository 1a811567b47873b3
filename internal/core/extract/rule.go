// Package extract pulls type-specific fields out of OCR text with declarative pattern rules.
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// Cleaner removes capture noise from a matched value.
type Cleaner func(string) string

// Rule captures one field. Pattern must have exactly one capturing group.
type Rule struct {
	Key     string
	Pattern *regexp.Regexp
	Clean   Cleaner
}

// newRule compiles pattern case-insensitive with '.' matching newlines.
func newRule(key, pattern string, clean Cleaner) Rule {
	return Rule{
		Key:     key,
		Pattern: regexp.MustCompile(`(?is)` + pattern),
		Clean:   clean,
	}
}

// Apply returns the cleaned capture of the first match. A miss or an empty capture reports false.
func (r Rule) Apply(text string) (string, bool) {
	match := r.Pattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return "", false
	}
	value := strings.TrimSpace(match[1])
	if value == "" {
		return "", false
	}
	if r.Clean != nil {
		value = r.Clean(value)
	}
	return value, true
}

type Casing int

const (
	Upper Casing = iota
	Lower
)

// RuleSet is the ordered rule list of one document type plus its text normalization.
type RuleSet struct {
	Type          domain.DocumentType
	Casing        Casing
	CollapseSpace bool
	Rules         []Rule
}

func (rs RuleSet) Normalize(text string) string {
	text = norm.NFC.String(text)
	if rs.Casing == Lower {
		text = strings.ToLower(text)
	} else {
		text = strings.ToUpper(text)
	}
	if rs.CollapseSpace {
		text = CollapseSpace(text)
	}
	return text
}

func (rs RuleSet) Extract(text string) map[string]string {
	normalized := rs.Normalize(text)
	out := make(map[string]string, len(rs.Rules))
	for _, rule := range rs.Rules {
		if value, ok := rule.Apply(normalized); ok {
			out[rule.Key] = value
		}
	}
	return out
}

func (rs RuleSet) Keys() []string {
	keys := make([]string, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		keys = append(keys, rule.Key)
	}
	return keys
}

var (
	nonDigitPattern    = regexp.MustCompile(`[^0-9]`)
	nonCurrencyPattern = regexp.MustCompile(`[^0-9.,$]`)
)

func DigitsOnly(value string) string {
	return nonDigitPattern.ReplaceAllString(value, "")
}

func CurrencyChars(value string) string {
	return strings.TrimSpace(nonCurrencyPattern.ReplaceAllString(value, ""))
}

func CollapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
