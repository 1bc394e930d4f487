package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openintake/intaked/internal/schema"
)

// supportedLanguages is the closed envelope set; programs may serve a
// subset of it.
var supportedLanguages = []string{schema.LanguageEN, schema.LanguageFR}

// Validate checks a full submission against a program schema and
// returns the normalized submission plus an ordered issue list.
//
// The ordering is fixed so identical inputs always yield identical
// output: declared fields in schema order, then unrecognized submission
// fields in sorted order, then business rules in declared order. The
// normalized submission carries only schema-declared fields and is
// authoritative once the issue list has no error-severity entries.
func Validate(s *schema.ProgramSchema, sub Submission) (Normalized, []Issue) {
	normalized := Normalized{
		ProgramID: s.ID,
		Language:  NormalizeLanguage(sub.Language),
		Channel:   NormalizeChannel(sub.Channel),
		Fields:    make(map[string]string, len(s.Fields)),
	}

	var issues []Issue

	for i := range s.Fields {
		f := &s.Fields[i]
		raw := sub.Fields[f.Name]
		if issue := ValidateField(f, raw); issue != nil {
			issues = append(issues, *issue)
			continue
		}
		if canonicalInput(raw) != "" {
			normalized.Fields[f.Name] = NormalizeValue(f, raw)
		}
	}

	issues = append(issues, unrecognizedFieldIssues(s, sub)...)

	for _, rule := range s.Rules {
		switch rule.Kind {
		case schema.RuleRequireOneOf:
			issues = appendOneOfIssue(issues, s, rule, normalized)
		case schema.RuleSupportedChannel:
			issues = appendChannelIssue(issues, s, normalized.Channel)
		case schema.RuleSupportedLanguage:
			issues = appendLanguageIssue(issues, s, normalized.Language)
		}
	}

	return normalized, issues
}

// unrecognizedFieldIssues records submission fields outside the schema.
// They are dropped from the normalized output, not fatal: the issues
// carry warning severity so a stray key never blocks completion.
func unrecognizedFieldIssues(s *schema.ProgramSchema, sub Submission) []Issue {
	var unknown []string
	for name := range sub.Fields {
		if _, ok := s.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)

	issues := make([]Issue, 0, len(unknown))
	for _, name := range unknown {
		issues = append(issues, Issue{
			Field:    name,
			Kind:     IssueUnsupportedValue,
			Severity: SeverityWarning,
			Message:  "unrecognized field",
		})
	}
	return issues
}

func appendOneOfIssue(issues []Issue, s *schema.ProgramSchema, rule schema.BusinessRule, normalized Normalized) []Issue {
	for _, name := range rule.Fields {
		if normalized.Fields[name] != "" {
			return issues
		}
	}
	return append(issues, Issue{
		Field:    "",
		Kind:     IssueMissing,
		Severity: SeverityError,
		Message:  fmt.Sprintf("At least one of %s is required.", strings.Join(rule.Fields, ", ")),
	})
}

func appendChannelIssue(issues []Issue, s *schema.ProgramSchema, channel string) []Issue {
	if channel == "" {
		return append(issues, Issue{
			Field:    FieldPreferredChannel,
			Kind:     IssueMissing,
			Severity: SeverityError,
			Message:  "Preferred channel cannot be empty.",
		})
	}
	if len(s.Channels) == 0 {
		return append(issues, Issue{
			Field:    FieldPreferredChannel,
			Kind:     IssueBusinessRuleViolation,
			Severity: SeverityWarning,
			Message:  "Channel metadata is missing for this program.",
		})
	}
	if !s.SupportsChannel(channel) {
		return append(issues, Issue{
			Field:    FieldPreferredChannel,
			Kind:     IssueUnsupportedValue,
			Severity: SeverityError,
			Message: fmt.Sprintf("Channel '%s' is not supported. Available: %s",
				channel, strings.Join(s.Channels, ", ")),
		})
	}
	return issues
}

func appendLanguageIssue(issues []Issue, s *schema.ProgramSchema, lang string) []Issue {
	if lang == "" {
		return append(issues, Issue{
			Field:    FieldPreferredLanguage,
			Kind:     IssueMissing,
			Severity: SeverityError,
			Message:  "Preferred language cannot be empty.",
		})
	}
	known := false
	for _, l := range supportedLanguages {
		if l == lang {
			known = true
			break
		}
	}
	if !known {
		return append(issues, Issue{
			Field:    FieldPreferredLanguage,
			Kind:     IssueUnsupportedValue,
			Severity: SeverityError,
			Message: fmt.Sprintf("Language '%s' is not supported. Available: %s",
				lang, strings.Join(supportedLanguages, ", ")),
		})
	}
	if !s.ServesLanguage(lang) {
		message := fmt.Sprintf("Content in '%s' is not available for this program.", lang)
		switch lang {
		case schema.LanguageEN:
			message = "English content is not available for this program."
		case schema.LanguageFR:
			message = "French content is not available for this program."
		}
		return append(issues, Issue{
			Field:    FieldPreferredLanguage,
			Kind:     IssueBusinessRuleViolation,
			Severity: SeverityError,
			Message:  message,
		})
	}
	return issues
}
