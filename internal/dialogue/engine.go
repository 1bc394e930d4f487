package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/openintake/intaked/internal/audit"
	"github.com/openintake/intaked/internal/schema"
	"github.com/openintake/intaked/internal/validation"
)

const instrumentationName = "github.com/openintake/intaked/internal/dialogue"

// ErrTerminalState indicates an attempt to act on a COMPLETE or FAILED
// session. Terminal sessions are immutable.
var ErrTerminalState = errors.New("session is in a terminal state")

// Service orchestrates dialogue sessions.
type Service interface {
	// Start creates a session for a program, runs the first validation
	// pass, and returns the next questions or the completed result.
	Start(ctx context.Context, programID string, submission validation.Submission) (*Result, error)

	// SubmitAnswers merges answers into the session snapshot, increments
	// the turn counter, and re-validates.
	SubmitAnswers(ctx context.Context, sessionID string, answers map[string]string) (*Result, error)

	// Cancel abandons a session, failing it with reason "cancelled".
	Cancel(ctx context.Context, sessionID string) (*Result, error)

	// Get returns the session's current result without acting on it.
	Get(ctx context.Context, sessionID string) (*Result, error)

	// AuditTrail returns the session's audit entries after verifying the
	// hash chain end-to-end.
	AuditTrail(ctx context.Context, sessionID string) ([]audit.Entry, error)

	// StartSweeper begins the background TTL sweep.
	StartSweeper(ctx context.Context)

	// Close stops the sweeper and rejects further operations.
	Close() error
}

// Config configures the dialogue engine.
type Config struct {
	// MaxTurns bounds clarification turns per session (default: 5).
	MaxTurns int

	// SessionTTL fails idle sessions and retains terminal ones before
	// eviction (default: 30m).
	SessionTTL time.Duration

	// SweepInterval is the TTL sweep period (default: 1m).
	SweepInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxTurns:      5,
		SessionTTL:    30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// engine implements the Service interface.
type engine struct {
	cfg      *Config
	registry *schema.Registry
	store    Store
	trail    *audit.Trail
	logger   *zap.Logger

	// Telemetry
	tracer           trace.Tracer
	meter            metric.Meter
	startCounter     metric.Int64Counter
	completeCounter  metric.Int64Counter
	failCounter      metric.Int64Counter
	turnCounter      metric.Int64Counter
	issueCounter     metric.Int64Counter
	validateDuration metric.Float64Histogram

	// Per-session locks serialize transitions within a session.
	locks sync.Map // session id -> *sync.Mutex

	mu       sync.RWMutex
	closed   bool
	sweeping bool

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewEngine creates a dialogue engine.
func NewEngine(cfg *Config, registry *schema.Registry, store Store, trail *audit.Trail, logger *zap.Logger) (Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if registry == nil {
		return nil, errors.New("schema registry is required")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if trail == nil {
		return nil, errors.New("audit trail is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultConfig()
	if cfg.MaxTurns < 1 {
		cfg.MaxTurns = defaults.MaxTurns
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaults.SessionTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}

	e := &engine{
		cfg:       cfg,
		registry:  registry,
		store:     store,
		trail:     trail,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}

	e.initMetrics()

	return e, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (e *engine) initMetrics() {
	var err error

	e.startCounter, err = e.meter.Int64Counter(
		"intaked.dialogue.sessions_started_total",
		metric.WithDescription("Total number of sessions started"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		e.logger.Warn("failed to create start counter", zap.Error(err))
	}

	e.completeCounter, err = e.meter.Int64Counter(
		"intaked.dialogue.sessions_completed_total",
		metric.WithDescription("Total number of sessions completed"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		e.logger.Warn("failed to create complete counter", zap.Error(err))
	}

	e.failCounter, err = e.meter.Int64Counter(
		"intaked.dialogue.sessions_failed_total",
		metric.WithDescription("Total number of sessions failed"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		e.logger.Warn("failed to create fail counter", zap.Error(err))
	}

	e.turnCounter, err = e.meter.Int64Counter(
		"intaked.dialogue.turns_total",
		metric.WithDescription("Total number of clarification turns taken"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		e.logger.Warn("failed to create turn counter", zap.Error(err))
	}

	e.issueCounter, err = e.meter.Int64Counter(
		"intaked.dialogue.issues_total",
		metric.WithDescription("Total number of validation issues reported"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		e.logger.Warn("failed to create issue counter", zap.Error(err))
	}

	e.validateDuration, err = e.meter.Float64Histogram(
		"intaked.dialogue.validation_duration_seconds",
		metric.WithDescription("Time spent on validation passes"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1),
	)
	if err != nil {
		e.logger.Warn("failed to create validation duration histogram", zap.Error(err))
	}
}

// Start creates a session and runs its first validation pass.
func (e *engine) Start(ctx context.Context, programID string, submission validation.Submission) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "dialogue.start")
	defer span.End()

	span.SetAttributes(attribute.String("program_id", programID))

	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	sch, err := e.registry.Get(programID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := time.Now().UTC()
	session := &Session{
		ID:         uuid.New().String(),
		ProgramID:  programID,
		State:      StateCollecting,
		Submission: submission.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(e.cfg.SessionTTL),
	}
	session.Submission.ProgramID = programID

	e.evaluate(ctx, sch, session)

	if err := e.store.Put(ctx, session); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := e.record(ctx, session, audit.EntryTypeStarted, nil); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("session_id", session.ID),
		attribute.String("state", string(session.State)),
	)
	if e.startCounter != nil {
		e.startCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("program_id", programID),
		))
	}
	e.countOutcome(ctx, session)

	e.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("program_id", programID),
		zap.String("state", string(session.State)),
		zap.Int("issues", len(session.Issues)),
	)

	return resultOf(session), nil
}

// SubmitAnswers merges answers into the session and re-validates.
func (e *engine) SubmitAnswers(ctx context.Context, sessionID string, answers map[string]string) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "dialogue.submit_answers")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int("answer_count", len(answers)),
	)

	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if session.State.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrTerminalState, sessionID, session.State)
	}

	now := time.Now().UTC()
	if now.After(session.ExpiresAt) {
		// The answer arrived after the idle deadline but before the
		// sweeper; the timeout transition wins and the answers are not
		// merged.
		if err := e.failSession(ctx, session, ReasonTimeout, audit.EntryTypeExpired); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		return resultOf(session), nil
	}

	sch, err := e.registry.Get(session.ProgramID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	session.Submission = session.Submission.Merge(answers)
	session.Turn++
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(e.cfg.SessionTTL)

	e.evaluate(ctx, sch, session)

	if err := e.store.Put(ctx, session); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := e.record(ctx, session, audit.EntryTypeAnswers, answers); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("state", string(session.State)),
		attribute.Int("turn", session.Turn),
	)
	if e.turnCounter != nil {
		e.turnCounter.Add(ctx, 1)
	}
	e.countOutcome(ctx, session)

	e.logger.Debug("answers merged",
		zap.String("session_id", session.ID),
		zap.Int("turn", session.Turn),
		zap.String("state", string(session.State)),
		zap.Int("issues", len(session.Issues)),
	)

	return resultOf(session), nil
}

// Cancel abandons a session.
func (e *engine) Cancel(ctx context.Context, sessionID string) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "dialogue.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if session.State.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrTerminalState, sessionID, session.State)
	}

	if err := e.failSession(ctx, session, ReasonCancelled, audit.EntryTypeCancelled); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return resultOf(session), nil
}

// Get returns the session's current result without mutating it.
func (e *engine) Get(ctx context.Context, sessionID string) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "dialogue.get")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return resultOf(session), nil
}

// AuditTrail returns the session's audit entries after verifying the chain.
func (e *engine) AuditTrail(ctx context.Context, sessionID string) ([]audit.Entry, error) {
	ctx, span := e.tracer.Start(ctx, "dialogue.audit_trail")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	entries, err := e.trail.Read(sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := e.trail.Verify(ctx, sessionID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return entries, nil
}

// StartSweeper begins the background TTL sweep. Starting twice is a no-op.
func (e *engine) StartSweeper(ctx context.Context) {
	e.mu.Lock()
	if e.closed || e.sweeping {
		e.mu.Unlock()
		return
	}
	e.sweeping = true
	e.mu.Unlock()

	go e.sweepLoop(ctx)
}

// Close stops the sweeper and rejects further operations.
func (e *engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	sweeping := e.sweeping
	e.mu.Unlock()

	if sweeping {
		close(e.sweepStop)
		<-e.sweepDone
	}
	return nil
}

// checkOpen rejects calls on a closed engine.
func (e *engine) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return errors.New("engine is closed")
	}
	return nil
}

// lockSession takes the per-session lock and returns its release func.
func (e *engine) lockSession(sessionID string) func() {
	v, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// evaluate runs one validation pass and resolves the session's next state:
// no blocking issues completes it, exhausted turns fail it, anything else
// poses the next question set.
func (e *engine) evaluate(ctx context.Context, sch *schema.ProgramSchema, session *Session) {
	session.State = StateValidating

	start := time.Now()
	normalized, issues := validation.Validate(sch, session.Submission)
	if e.validateDuration != nil {
		e.validateDuration.Record(ctx, time.Since(start).Seconds())
	}
	e.countIssues(ctx, issues)

	session.Issues = issues

	blocking := validation.Errors(issues)
	switch {
	case len(blocking) == 0:
		session.State = StateComplete
		session.Reason = ""
		session.Normalized = &normalized
		session.Questions = nil
	case session.Turn >= e.cfg.MaxTurns:
		session.State = StateFailed
		session.Reason = ReasonMaxTurns
		session.Questions = nil
	default:
		session.State = StateAwaitingAnswers
		session.Questions = validation.NextQuestions(sch, issues, questionLanguage(session.Submission))
	}
}

// failSession moves a session to FAILED, persists it, and records the
// terminal audit entry.
func (e *engine) failSession(ctx context.Context, session *Session, reason string, entryType audit.EntryType) error {
	now := time.Now().UTC()
	session.State = StateFailed
	session.Reason = reason
	session.Questions = nil
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(e.cfg.SessionTTL)

	if err := e.store.Put(ctx, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if err := e.record(ctx, session, entryType, nil); err != nil {
		return err
	}

	e.countOutcome(ctx, session)
	return nil
}

// record appends the session's transition to the audit trail. Exactly one
// entry is appended per observable transition, after the session mutation
// and before control returns to the caller.
func (e *engine) record(ctx context.Context, session *Session, entryType audit.EntryType, answers map[string]string) error {
	data := audit.EntryData{
		Type:      entryType,
		ProgramID: session.ProgramID,
		State:     string(session.State),
		Reason:    session.Reason,
		Questions: questionRecords(session.Questions),
		Answers:   answers,
		Issues:    issueRecords(session.Issues),
	}

	if _, err := e.trail.Append(ctx, session.ID, data); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// countOutcome records terminal-state counters for a transition.
func (e *engine) countOutcome(ctx context.Context, session *Session) {
	switch session.State {
	case StateComplete:
		if e.completeCounter != nil {
			e.completeCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("program_id", session.ProgramID),
			))
		}
		e.logger.Info("session completed",
			zap.String("session_id", session.ID),
			zap.String("program_id", session.ProgramID),
			zap.Int("turn", session.Turn),
		)
	case StateFailed:
		if e.failCounter != nil {
			e.failCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("reason", session.Reason),
			))
		}
		e.logger.Info("session failed",
			zap.String("session_id", session.ID),
			zap.String("program_id", session.ProgramID),
			zap.String("reason", session.Reason),
			zap.Int("turn", session.Turn),
		)
	}
}

// countIssues records per-kind issue counters for one validation pass.
func (e *engine) countIssues(ctx context.Context, issues []validation.Issue) {
	if e.issueCounter == nil {
		return
	}
	for _, issue := range issues {
		e.issueCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(issue.Kind)),
			attribute.String("severity", string(issue.Severity)),
		))
	}
}

// sweepLoop runs the periodic TTL sweep until stopped.
func (e *engine) sweepLoop(ctx context.Context) {
	defer close(e.sweepDone)

	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	e.logger.Info("session sweeper started",
		zap.Duration("interval", e.cfg.SweepInterval),
		zap.Duration("session_ttl", e.cfg.SessionTTL),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.sweepStop:
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

// sweep fails idle sessions past their deadline and evicts terminal
// sessions past retention, dropping their audit chains with them.
func (e *engine) sweep(ctx context.Context) {
	ctx, span := e.tracer.Start(ctx, "dialogue.sweep")
	defer span.End()

	sessions, err := e.store.List(ctx)
	if err != nil {
		e.logger.Warn("session sweep failed", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	var expired, evicted int

	for _, stale := range sessions {
		if !now.After(stale.ExpiresAt) {
			continue
		}

		unlock := e.lockSession(stale.ID)

		session, err := e.store.Get(ctx, stale.ID)
		if err != nil {
			unlock()
			continue
		}

		switch {
		case !session.State.Terminal() && now.After(session.ExpiresAt):
			if err := e.failSession(ctx, session, ReasonTimeout, audit.EntryTypeExpired); err != nil {
				e.logger.Error("failed to expire session",
					zap.String("session_id", session.ID),
					zap.Error(err),
				)
			} else {
				expired++
			}
		case session.State.Terminal() && now.After(session.ExpiresAt):
			if err := e.store.Delete(ctx, session.ID); err != nil {
				e.logger.Warn("failed to evict session",
					zap.String("session_id", session.ID),
					zap.Error(err),
				)
			} else {
				e.trail.Evict(session.ID)
				e.locks.Delete(session.ID)
				evicted++
			}
		}

		unlock()
	}

	if expired > 0 || evicted > 0 {
		e.logger.Info("session sweep finished",
			zap.Int("expired", expired),
			zap.Int("evicted", evicted),
		)
	}
}

// questionLanguage picks the prompt language from the submission envelope.
func questionLanguage(sub validation.Submission) string {
	if validation.NormalizeLanguage(sub.Language) == schema.LanguageFR {
		return schema.LanguageFR
	}
	return schema.LanguageEN
}

// questionRecords converts posed questions into audit records.
func questionRecords(questions []validation.Question) []audit.QuestionRecord {
	if len(questions) == 0 {
		return nil
	}
	out := make([]audit.QuestionRecord, len(questions))
	for i, q := range questions {
		out[i] = audit.QuestionRecord{Field: q.Field, Prompt: q.Prompt}
	}
	return out
}

// issueRecords converts validation issues into audit records.
func issueRecords(issues []validation.Issue) []audit.IssueRecord {
	if len(issues) == 0 {
		return nil
	}
	out := make([]audit.IssueRecord, len(issues))
	for i, issue := range issues {
		out[i] = audit.IssueRecord{
			Field:    issue.Field,
			Kind:     string(issue.Kind),
			Severity: string(issue.Severity),
			Message:  issue.Message,
		}
	}
	return out
}
