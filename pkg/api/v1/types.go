// Package v1 defines the wire-level contract of the intaked HTTP API:
// request and response bodies exchanged on /api/v1 plus the error
// sentinels clients use to classify failures.
package v1

import (
	"encoding/json"
	"time"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// ProgramSummary is one catalog row in GET /api/v1/programs.
type ProgramSummary struct {
	ID          string            `json:"id"`
	Names       map[string]string `json:"names"`
	FiscalYear  string            `json:"fiscal_year,omitempty"`
	Channels    []string          `json:"channels,omitempty"`
	RequiresSIN bool              `json:"requires_sin"`
	RequiresCRA bool              `json:"requires_cra"`
	FieldCount  int               `json:"field_count"`
}

// FieldDoc describes one collected field for form-rendering clients.
type FieldDoc struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Required bool              `json:"required"`
	Options  []string          `json:"options,omitempty"`
	Pattern  string            `json:"pattern,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Prompts  map[string]string `json:"prompts,omitempty"`
}

// RuleDoc describes one cross-field business rule.
type RuleDoc struct {
	Kind   string   `json:"kind"`
	Fields []string `json:"fields,omitempty"`
}

// ProgramSchemaDoc is the response body for GET /api/v1/programs/:id/schema.
type ProgramSchemaDoc struct {
	ID          string            `json:"id"`
	Names       map[string]string `json:"names"`
	Department  map[string]string `json:"department,omitempty"`
	FiscalYear  string            `json:"fiscal_year,omitempty"`
	Channels    []string          `json:"channels,omitempty"`
	RequiresSIN bool              `json:"requires_sin"`
	RequiresCRA bool              `json:"requires_cra"`
	Fields      []FieldDoc        `json:"fields"`
	Rules       []RuleDoc         `json:"rules,omitempty"`
}

// SubmissionRequest is the request body for POST /api/v1/validate and
// POST /api/v1/sessions. Field values are raw strings as entered by the
// client; the engine normalizes them.
type SubmissionRequest struct {
	ProgramID string            `json:"program_id"`
	Language  string            `json:"preferred_language,omitempty"`
	Channel   string            `json:"preferred_channel,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// AnswersRequest is the request body for POST /api/v1/sessions/:id/answers.
// An empty answer set is valid and still consumes a turn.
type AnswersRequest struct {
	Answers map[string]string `json:"answers"`
}

// IssueDoc is one validation finding. Warning-severity findings are
// recorded but never block completion.
type IssueDoc struct {
	Field    string `json:"field,omitempty"`
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// QuestionDoc is one clarification prompt, rendered in the session's
// preferred language.
type QuestionDoc struct {
	Field   string   `json:"field"`
	Label   string   `json:"label,omitempty"`
	Prompt  string   `json:"prompt"`
	Type    string   `json:"type,omitempty"`
	Options []string `json:"options,omitempty"`
}

// NormalizedDoc is the canonical submission released when a session
// completes. Fields holds only schema-declared names.
type NormalizedDoc struct {
	ProgramID string            `json:"program_id"`
	Language  string            `json:"preferred_language"`
	Channel   string            `json:"preferred_channel"`
	Fields    map[string]string `json:"fields"`
}

// ValidationReport is the response body for POST /api/v1/validate.
// Valid is true when no error-severity issues remain; Normalized is
// present only in that case.
type ValidationReport struct {
	ProgramID  string         `json:"program_id"`
	Valid      bool           `json:"valid"`
	Issues     []IssueDoc     `json:"issues"`
	Normalized *NormalizedDoc `json:"normalized,omitempty"`
}

// TurnReply is the response body for every session endpoint: the
// session's state after the operation, the open issues, and either the
// next questions or the completed normalized submission.
type TurnReply struct {
	SessionID  string         `json:"session_id"`
	ProgramID  string         `json:"program_id"`
	State      string         `json:"state"`
	Reason     string         `json:"reason,omitempty"`
	Turn       int            `json:"turn"`
	Issues     []IssueDoc     `json:"issues"`
	Questions  []QuestionDoc  `json:"questions,omitempty"`
	Normalized *NormalizedDoc `json:"normalized,omitempty"`
}

// Terminal reports whether the reply describes a finished session.
func (r *TurnReply) Terminal() bool {
	return r.State == "COMPLETE" || r.State == "FAILED"
}

// AuditEntryDoc is one hash-chained audit trail entry. Payload is the
// canonical JSON the chain hashes cover; decode it into EntryPayload
// for structured access.
type AuditEntryDoc struct {
	EntryID      string          `json:"entry_id"`
	SessionID    string          `json:"session_id"`
	TurnIndex    int             `json:"turn_index"`
	Timestamp    time.Time       `json:"timestamp"`
	Payload      json.RawMessage `json:"payload"`
	PayloadHash  string          `json:"payload_hash"`
	PreviousHash string          `json:"previous_hash"`
	EntryHash    string          `json:"entry_hash"`
}

// EntryPayload is the structured form of an audit entry payload.
type EntryPayload struct {
	Type      string            `json:"type"`
	ProgramID string            `json:"program_id"`
	State     string            `json:"state"`
	Reason    string            `json:"reason,omitempty"`
	Questions []QuestionRef     `json:"questions,omitempty"`
	Answers   map[string]string `json:"answers,omitempty"`
	Issues    []IssueDoc        `json:"issues,omitempty"`
}

// QuestionRef is the audit-trail record of a posed question.
type QuestionRef struct {
	Field  string `json:"field"`
	Prompt string `json:"prompt"`
}

// AuditTrailDoc is the response body for GET /api/v1/sessions/:id/audit.
// Verified reports the server-side hash chain check over the returned
// entries.
type AuditTrailDoc struct {
	SessionID string          `json:"session_id"`
	Verified  bool            `json:"verified"`
	Entries   []AuditEntryDoc `json:"entries"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}
