package validation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/openintake/intaked/internal/schema"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// craPattern matches a nine-digit business number root with an optional
// program account suffix (two letters + four digits, RC0001 style).
var craPattern = regexp.MustCompile(`^\d{9}([A-Z]{2}\d{4})?$`)

// dateLayouts are the accepted input shapes, tried in order. All parse
// results canonicalize to 2006-01-02.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// patternCache holds compiled field patterns. Schema validation already
// proved they compile; the cache just avoids recompiling per call.
var patternCache sync.Map

func compiledPattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// ValidateField checks a single raw value against its spec. A nil
// return means the value passed (or is empty and optional). All
// outcomes are returned as values; nothing panics on bad input.
func ValidateField(f *schema.FieldSpec, raw string) *Issue {
	value := canonicalInput(raw)

	if value == "" {
		if f.Required {
			return &Issue{
				Field:    f.Name,
				Kind:     IssueMissing,
				Severity: SeverityError,
				Message:  missingMessage(f),
			}
		}
		return nil
	}

	switch f.Type {
	case schema.FieldTypeEmail:
		if !emailPattern.MatchString(value) {
			return formatIssue(f, "Enter a valid email address.")
		}

	case schema.FieldTypeDate:
		if _, ok := parseDate(value); !ok {
			return formatIssue(f, "Enter the date as YYYY-MM-DD.")
		}

	case schema.FieldTypeEnum:
		if _, ok := matchOption(f.Options, value); !ok {
			return &Issue{
				Field:    f.Name,
				Kind:     IssueUnsupportedValue,
				Severity: SeverityError,
				Message: fmt.Sprintf("'%s' is not a supported value for %s. Available: %s",
					value, f.Label(schema.LanguageEN), strings.Join(f.Options, ", ")),
			}
		}

	case schema.FieldTypeSIN:
		digits := stripSeparators(value)
		if len(digits) != 9 || !digitsOnly.MatchString(digits) {
			return formatIssue(f, "A Social Insurance Number is nine digits.")
		}

	case schema.FieldTypeCRABusinessNumber:
		id := strings.ToUpper(stripSeparators(value))
		if !craPattern.MatchString(id) {
			return formatIssue(f, "A CRA business number is nine digits, optionally followed by a program account suffix.")
		}
	}

	if f.Pattern != "" {
		re, err := compiledPattern(f.Pattern)
		if err != nil || !re.MatchString(value) {
			return formatIssue(f, fmt.Sprintf("%s does not match the expected format.", f.Label(schema.LanguageEN)))
		}
	}

	return nil
}

func formatIssue(f *schema.FieldSpec, message string) *Issue {
	return &Issue{
		Field:    f.Name,
		Kind:     IssueInvalidFormat,
		Severity: SeverityError,
		Message:  message,
	}
}

// missingMessage reuses the field's English prompt when one exists, the
// way the intake UI phrases its questions.
func missingMessage(f *schema.FieldSpec) string {
	if p := f.Prompt(schema.LanguageEN); p != "" {
		return p
	}
	return fmt.Sprintf("%s is required.", f.Label(schema.LanguageEN))
}

// canonicalInput applies NFC normalization and trims surrounding
// whitespace. Every comparison and normalization starts from this form.
func canonicalInput(raw string) string {
	return strings.TrimSpace(norm.NFC.String(raw))
}

func stripSeparators(value string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, value)
}

// matchOption finds the declared option equal to the value under case
// folding, returning the declared spelling as the canonical form.
func matchOption(options []string, value string) (string, bool) {
	folded := strings.ToLower(value)
	for _, opt := range options {
		if strings.ToLower(opt) == folded {
			return opt, true
		}
	}
	return "", false
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
