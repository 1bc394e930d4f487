package validation

// Envelope field names. A submission carries the preferred language and
// channel alongside the schema-declared field map; answers keyed by
// these names update the envelope on merge.
const (
	FieldPreferredLanguage = "preferred_language"
	FieldPreferredChannel  = "preferred_channel"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	// IssueMissing marks a required value that is empty or absent.
	IssueMissing IssueKind = "MISSING"

	// IssueInvalidFormat marks a value that fails its declared format,
	// pattern, or identifier shape.
	IssueInvalidFormat IssueKind = "INVALID_FORMAT"

	// IssueUnsupportedValue marks a value outside an allowed set, and
	// submission fields outside the schema.
	IssueUnsupportedValue IssueKind = "UNSUPPORTED_VALUE"

	// IssueBusinessRuleViolation marks a cross-field rule failure.
	IssueBusinessRuleViolation IssueKind = "BUSINESS_RULE_VIOLATION"
)

// Severity separates blocking findings from shortcomings. A submission
// completes once no error-severity issues remain; warnings are recorded
// but never block.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Field is empty for findings that
// span multiple fields. Issues are produced fresh on every validation
// pass and never mutated.
type Issue struct {
	Field    string    `json:"field"`
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// Submission is a raw client submission: the program reference, the
// communication envelope, and the field map. Field values are strings;
// insertion order is irrelevant.
type Submission struct {
	ProgramID string            `json:"program_id"`
	Language  string            `json:"preferred_language"`
	Channel   string            `json:"preferred_channel"`
	Fields    map[string]string `json:"fields"`
}

// Clone returns a deep copy.
func (s Submission) Clone() Submission {
	out := s
	if s.Fields != nil {
		out.Fields = make(map[string]string, len(s.Fields))
		for k, v := range s.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// Merge returns a new submission with the answers applied over this
// one. New answers override prior values for the same field; fields
// not answered keep their prior values. An empty-string answer clears
// a previously provided value. Envelope keys route to the envelope.
func (s Submission) Merge(answers map[string]string) Submission {
	out := s.Clone()
	for k, v := range answers {
		switch k {
		case FieldPreferredLanguage:
			out.Language = v
		case FieldPreferredChannel:
			out.Channel = v
		default:
			if out.Fields == nil {
				out.Fields = make(map[string]string, len(answers))
			}
			out.Fields[k] = v
		}
	}
	return out
}

// Normalized is a submission whose values passed validation and were
// canonicalized. Fields holds only schema-declared names. It is
// authoritative only when the issue list that accompanied it carries
// no error-severity entries.
type Normalized struct {
	ProgramID string            `json:"program_id"`
	Language  string            `json:"preferred_language"`
	Channel   string            `json:"preferred_channel"`
	Fields    map[string]string `json:"fields"`
}

// Question is one clarification prompt posed to the client, rendered
// in the session's preferred language.
type Question struct {
	Field   string   `json:"field"`
	Label   string   `json:"label,omitempty"`
	Prompt  string   `json:"prompt"`
	Type    string   `json:"type,omitempty"`
	Options []string `json:"options,omitempty"`
}

// Valid reports whether the issue list allows completion: no
// error-severity entries.
func Valid(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns the blocking subset of issues.
func Errors(issues []Issue) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns the non-blocking subset of issues.
func Warnings(issues []Issue) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Severity == SeverityWarning {
			out = append(out, issue)
		}
	}
	return out
}
