// Package dialogue runs the clarification loop that turns a partial
// submission into a normalized one.
//
// Each session is a small state machine: created in COLLECTING, it
// validates immediately and then alternates between AWAITING_ANSWERS and
// VALIDATING until no blocking issues remain (COMPLETE) or the session
// fails (FAILED with a reason: max turns exceeded, timeout, cancelled).
// COMPLETE and FAILED are immutable; acting on them returns
// ErrTerminalState. Every observable transition appends exactly one audit
// entry before the call returns.
//
// Sessions execute concurrently but each session's transitions are
// serialized by a per-session lock. A background sweeper fails idle
// sessions past their TTL and later evicts terminal sessions together
// with their audit chains.
package dialogue
