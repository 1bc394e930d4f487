package dialogue

import (
	"time"

	"github.com/openintake/intaked/internal/validation"
)

// State is a session's position in the dialogue state machine.
type State string

const (
	// StateCollecting is the initial state while a session is assembled.
	StateCollecting State = "COLLECTING"
	// StateValidating is transient while a validation pass runs.
	StateValidating State = "VALIDATING"
	// StateAwaitingAnswers means blocking issues remain and questions are posed.
	StateAwaitingAnswers State = "AWAITING_ANSWERS"
	// StateComplete is terminal; the normalized submission is ready for handoff.
	StateComplete State = "COMPLETE"
	// StateFailed is terminal; Reason says why.
	StateFailed State = "FAILED"
)

// Terminal reports whether no further transition may leave the state.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Failure reasons attached to FAILED sessions.
const (
	ReasonMaxTurns  = "max turns exceeded"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// Session is the stored record of one dialogue. The submission snapshot
// reflects exactly the answers merged up to and including the latest
// audit entry; Turn counts answer merges since creation.
type Session struct {
	ID         string                 `json:"id"`
	ProgramID  string                 `json:"program_id"`
	State      State                  `json:"state"`
	Reason     string                 `json:"reason,omitempty"`
	Turn       int                    `json:"turn"`
	Submission validation.Submission  `json:"submission"`
	Issues     []validation.Issue     `json:"issues,omitempty"`
	Questions  []validation.Question  `json:"questions,omitempty"`
	Normalized *validation.Normalized `json:"normalized,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	ExpiresAt  time.Time              `json:"expires_at"`
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	out := *s
	out.Submission = s.Submission.Clone()

	if s.Issues != nil {
		out.Issues = make([]validation.Issue, len(s.Issues))
		copy(out.Issues, s.Issues)
	}

	if s.Questions != nil {
		out.Questions = make([]validation.Question, len(s.Questions))
		for i, q := range s.Questions {
			out.Questions[i] = q
			if q.Options != nil {
				out.Questions[i].Options = append([]string(nil), q.Options...)
			}
		}
	}

	if s.Normalized != nil {
		normalized := *s.Normalized
		if s.Normalized.Fields != nil {
			normalized.Fields = make(map[string]string, len(s.Normalized.Fields))
			for k, v := range s.Normalized.Fields {
				normalized.Fields[k] = v
			}
		}
		out.Normalized = &normalized
	}

	return &out
}

// Result is what a caller receives after any session operation: either a
// next-question set, a final normalized payload, or an explicit terminal
// failure reason.
type Result struct {
	SessionID  string                 `json:"session_id"`
	ProgramID  string                 `json:"program_id"`
	State      State                  `json:"state"`
	Reason     string                 `json:"reason,omitempty"`
	Turn       int                    `json:"turn"`
	Issues     []validation.Issue     `json:"issues"`
	Questions  []validation.Question  `json:"questions,omitempty"`
	Normalized *validation.Normalized `json:"normalized,omitempty"`
}

// resultOf snapshots a session into a caller-facing result.
func resultOf(session *Session) *Result {
	return &Result{
		SessionID:  session.ID,
		ProgramID:  session.ProgramID,
		State:      session.State,
		Reason:     session.Reason,
		Turn:       session.Turn,
		Issues:     session.Issues,
		Questions:  session.Questions,
		Normalized: session.Normalized,
	}
}
