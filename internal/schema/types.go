package schema

// Languages a program can serve. Prompt rendering falls back to English
// when a field has no text in the requested language.
const (
	LanguageEN = "en"
	LanguageFR = "fr"
)

// Well-known identifier field names referenced by catalog synthesis and
// business rules.
const (
	FieldSIN               = "sin"
	FieldCRABusinessNumber = "cra_business_number"
)

// FieldType selects the validation policy for a field value.
type FieldType string

const (
	// FieldTypeText accepts any non-empty string, optionally constrained
	// by a pattern.
	FieldTypeText FieldType = "text"

	// FieldTypeEmail requires an address-shaped value.
	FieldTypeEmail FieldType = "email"

	// FieldTypeDate requires a calendar date, canonicalized to YYYY-MM-DD.
	FieldTypeDate FieldType = "date"

	// FieldTypeEnum requires one of the declared options (case-insensitive).
	FieldTypeEnum FieldType = "enum"

	// FieldTypeSIN requires a nine-digit Social Insurance Number.
	FieldTypeSIN FieldType = "sin"

	// FieldTypeCRABusinessNumber requires a nine-digit CRA business number
	// root, optionally followed by a program account suffix (RC0001 style).
	FieldTypeCRABusinessNumber FieldType = "cra_business_number"
)

// knownFieldTypes is the closed set accepted by schema validation.
var knownFieldTypes = map[FieldType]bool{
	FieldTypeText:              true,
	FieldTypeEmail:             true,
	FieldTypeDate:              true,
	FieldTypeEnum:              true,
	FieldTypeSIN:               true,
	FieldTypeCRABusinessNumber: true,
}

// RuleKind identifies a cross-field business rule.
type RuleKind string

const (
	// RuleRequireOneOf demands that at least one of the listed fields
	// carries a valid value.
	RuleRequireOneOf RuleKind = "require_one_of"

	// RuleSupportedChannel checks the preferred channel against the
	// program's supported channel set.
	RuleSupportedChannel RuleKind = "supported_channel"

	// RuleSupportedLanguage checks the preferred language against the
	// languages the program serves.
	RuleSupportedLanguage RuleKind = "supported_language"
)

var knownRuleKinds = map[RuleKind]bool{
	RuleRequireOneOf:      true,
	RuleSupportedChannel:  true,
	RuleSupportedLanguage: true,
}

// BusinessRule is a cross-field constraint evaluated after per-field
// validation, in the order rules are declared on the schema.
type BusinessRule struct {
	Kind   RuleKind `json:"kind"`
	Fields []string `json:"fields,omitempty"`
}

// FieldSpec describes a single named datum collected for a program.
// Immutable once loaded.
type FieldSpec struct {
	Name     string            `json:"name"`
	Type     FieldType         `json:"type"`
	Required bool              `json:"required"`
	Options  []string          `json:"options,omitempty"`
	Pattern  string            `json:"pattern,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Prompts  map[string]string `json:"prompts,omitempty"`
}

// Label returns the short display label in the requested language,
// falling back to English and then to the field name.
func (f *FieldSpec) Label(lang string) string {
	if l, ok := f.Labels[lang]; ok && l != "" {
		return l
	}
	if l, ok := f.Labels[LanguageEN]; ok && l != "" {
		return l
	}
	return f.Name
}

// Prompt returns the question text in the requested language, falling
// back to English.
func (f *FieldSpec) Prompt(lang string) string {
	if p, ok := f.Prompts[lang]; ok && p != "" {
		return p
	}
	return f.Prompts[LanguageEN]
}

// ProgramSchema is the full intake description for one program: an
// ordered field list plus the cross-field rules and catalog metadata
// (names, channels, identifier requirements).
//
// Schemas are immutable after load; the registry hands out shared
// pointers and callers must not modify them.
type ProgramSchema struct {
	ID          string            `json:"id"`
	Names       map[string]string `json:"names"`
	Department  map[string]string `json:"department,omitempty"`
	FiscalYear  string            `json:"fiscal_year,omitempty"`
	Channels    []string          `json:"channels,omitempty"`
	RequiresSIN bool              `json:"requires_sin,omitempty"`
	RequiresCRA bool              `json:"requires_cra,omitempty"`
	Fields      []FieldSpec       `json:"fields"`
	Rules       []BusinessRule    `json:"rules,omitempty"`
}

// Name returns the program name in the requested language, falling back
// to English and then to the program id.
func (s *ProgramSchema) Name(lang string) string {
	if n, ok := s.Names[lang]; ok && n != "" {
		return n
	}
	if n, ok := s.Names[LanguageEN]; ok && n != "" {
		return n
	}
	return s.ID
}

// Field returns the spec declared under the given name.
func (s *ProgramSchema) Field(name string) (*FieldSpec, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// ServesLanguage reports whether the program has content in the given
// language. A program serves a language only if it carries a name in it.
func (s *ProgramSchema) ServesLanguage(lang string) bool {
	n, ok := s.Names[lang]
	return ok && n != ""
}

// SupportsChannel reports whether the channel is in the program's
// supported set. Channels are stored lowercase.
func (s *ProgramSchema) SupportsChannel(channel string) bool {
	for _, c := range s.Channels {
		if c == channel {
			return true
		}
	}
	return false
}
