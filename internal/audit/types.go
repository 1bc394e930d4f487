package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryType categorizes what produced an audit entry.
type EntryType string

const (
	// EntryTypeStarted records session creation and the first validation pass.
	EntryTypeStarted EntryType = "session_started"
	// EntryTypeAnswers records an answer merge and the validation pass that followed.
	EntryTypeAnswers EntryType = "answers_merged"
	// EntryTypeCancelled records an explicit caller abandonment.
	EntryTypeCancelled EntryType = "session_cancelled"
	// EntryTypeExpired records an idle-timeout failure recorded by the sweeper.
	EntryTypeExpired EntryType = "session_expired"
)

// QuestionRecord is one posed clarification question as recorded in the trail.
type QuestionRecord struct {
	Field  string `json:"field"`
	Prompt string `json:"prompt"`
}

// IssueRecord is one validation issue as recorded in the trail.
type IssueRecord struct {
	Field    string `json:"field,omitempty"`
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// EntryData is the caller-supplied payload for a single audit entry: the
// resulting session state, the questions posed, the raw answers received
// (pre-validation), and the validation issue snapshot after merging.
type EntryData struct {
	Type      EntryType         `json:"type"`
	ProgramID string            `json:"program_id"`
	State     string            `json:"state"`
	Reason    string            `json:"reason,omitempty"`
	Questions []QuestionRecord  `json:"questions,omitempty"`
	Answers   map[string]string `json:"answers,omitempty"`
	Issues    []IssueRecord     `json:"issues,omitempty"`
}

// Entry is one immutable link in a session's audit chain. The first entry
// of a session chains from a seed derived from the session id; every later
// entry chains from its predecessor's hash.
type Entry struct {
	EntryID      string          `json:"entry_id"`
	SessionID    string          `json:"session_id"`
	TurnIndex    int             `json:"turn_index"`
	Timestamp    time.Time       `json:"timestamp"`
	Payload      json.RawMessage `json:"payload"`
	PayloadHash  string          `json:"payload_hash"`
	PreviousHash string          `json:"previous_hash"`
	EntryHash    string          `json:"entry_hash"`
}

// Data decodes the entry payload back into its structured form.
func (e *Entry) Data() (EntryData, error) {
	var data EntryData
	if err := json.Unmarshal(e.Payload, &data); err != nil {
		return EntryData{}, fmt.Errorf("decode entry payload: %w", err)
	}
	return data, nil
}

// EntryHandler is called once for every appended entry.
type EntryHandler func(entry *Entry)
