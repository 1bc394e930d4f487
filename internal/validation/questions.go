package validation

import (
	"fmt"
	"strings"

	"github.com/openintake/intaked/internal/schema"
)

// NextQuestions selects the minimal question set for the blocking
// issues of one validation pass: one question per distinct field,
// required declared fields first, then optional declared fields, then
// envelope and cross-field questions last. Prompts render in the
// requested language with English fallback. The selection is
// deterministic for identical inputs.
func NextQuestions(s *schema.ProgramSchema, issues []Issue, lang string) []Question {
	blocking := Errors(issues)
	if len(blocking) == 0 {
		return nil
	}

	flagged := make(map[string]bool, len(blocking))
	for _, issue := range blocking {
		if issue.Field != "" {
			flagged[issue.Field] = true
		}
	}

	var questions []Question
	asked := make(map[string]bool)

	appendQuestion := func(q Question) {
		if q.Field != "" && asked[q.Field] {
			return
		}
		asked[q.Field] = true
		questions = append(questions, q)
	}

	// Declared fields in schema order, required before optional.
	for _, wantRequired := range []bool{true, false} {
		for i := range s.Fields {
			f := &s.Fields[i]
			if f.Required != wantRequired || !flagged[f.Name] {
				continue
			}
			appendQuestion(fieldQuestion(f, lang))
		}
	}

	// Envelope and cross-field questions keep issue order. Cross-field
	// issues carry no field name; they pair positionally with the
	// schema's require_one_of rules, which produce them in declared
	// order.
	ruleIdx := 0
	for _, issue := range blocking {
		switch issue.Field {
		case FieldPreferredChannel:
			appendQuestion(channelQuestion(s, lang))
		case FieldPreferredLanguage:
			appendQuestion(languageQuestion(s, lang))
		case "":
			if rule, ok := nextOneOfRule(s, &ruleIdx); ok {
				appendQuestion(oneOfQuestion(s, rule, lang))
			}
		}
	}

	return questions
}

func fieldQuestion(f *schema.FieldSpec, lang string) Question {
	prompt := f.Prompt(lang)
	if prompt == "" {
		if lang == schema.LanguageFR {
			prompt = fmt.Sprintf("Veuillez fournir : %s.", f.Label(lang))
		} else {
			prompt = fmt.Sprintf("Please provide %s.", f.Label(lang))
		}
	}
	return Question{
		Field:   f.Name,
		Label:   f.Label(lang),
		Prompt:  prompt,
		Type:    string(f.Type),
		Options: f.Options,
	}
}

func channelQuestion(s *schema.ProgramSchema, lang string) Question {
	available := strings.Join(s.Channels, ", ")
	prompt := fmt.Sprintf("How would you like to be contacted? Available: %s", available)
	label := "Preferred channel"
	if lang == schema.LanguageFR {
		prompt = fmt.Sprintf("Comment souhaitez-vous être joint? Choix : %s", available)
		label = "Canal préféré"
	}
	return Question{
		Field:   FieldPreferredChannel,
		Label:   label,
		Prompt:  prompt,
		Type:    string(schema.FieldTypeEnum),
		Options: s.Channels,
	}
}

func languageQuestion(s *schema.ProgramSchema, lang string) Question {
	options := make([]string, 0, len(supportedLanguages))
	for _, l := range supportedLanguages {
		if s.ServesLanguage(l) {
			options = append(options, l)
		}
	}
	if len(options) == 0 {
		options = supportedLanguages
	}

	available := strings.Join(options, ", ")
	prompt := fmt.Sprintf("Which language should we use? Available: %s", available)
	label := "Preferred language"
	if lang == schema.LanguageFR {
		prompt = fmt.Sprintf("Quelle langue devons-nous utiliser? Choix : %s", available)
		label = "Langue préférée"
	}
	return Question{
		Field:   FieldPreferredLanguage,
		Label:   label,
		Prompt:  prompt,
		Type:    string(schema.FieldTypeEnum),
		Options: options,
	}
}

func oneOfQuestion(s *schema.ProgramSchema, rule schema.BusinessRule, lang string) Question {
	labels := make([]string, 0, len(rule.Fields))
	for _, name := range rule.Fields {
		if f, ok := s.Field(name); ok {
			labels = append(labels, f.Label(lang))
		} else {
			labels = append(labels, name)
		}
	}

	prompt := fmt.Sprintf("Provide at least one of: %s.", strings.Join(labels, ", "))
	if lang == schema.LanguageFR {
		prompt = fmt.Sprintf("Fournissez au moins un des éléments suivants : %s.", strings.Join(labels, ", "))
	}

	q := Question{
		Field:  rule.Fields[0],
		Prompt: prompt,
	}
	if f, ok := s.Field(rule.Fields[0]); ok {
		q.Label = f.Label(lang)
		q.Type = string(f.Type)
	}
	return q
}

func nextOneOfRule(s *schema.ProgramSchema, idx *int) (schema.BusinessRule, bool) {
	for *idx < len(s.Rules) {
		rule := s.Rules[*idx]
		*idx++
		if rule.Kind == schema.RuleRequireOneOf {
			return rule, true
		}
	}
	return schema.BusinessRule{}, false
}
