package v1

import "errors"

// Common API errors.
var (
	ErrProgramRequired = errors.New("program_id is required")
	ErrSessionRequired = errors.New("session_id is required")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNotFound        = errors.New("resource not found")
	ErrTerminalSession = errors.New("session is in a terminal state")
	ErrAuditIntegrity  = errors.New("audit trail failed verification")
	ErrRateLimited     = errors.New("rate limit exceeded")
)
