package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/openintake/intaked/internal/audit"
	"github.com/openintake/intaked/internal/dialogue"
	"github.com/openintake/intaked/internal/schema"
	"github.com/openintake/intaked/internal/validation"
	v1 "github.com/openintake/intaked/pkg/api/v1"
)

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, v1.HealthResponse{Status: "ok", Service: serviceName})
}

// handlePrograms lists the loaded program catalog.
func (s *Server) handlePrograms(c echo.Context) error {
	programs := s.registry.Programs()

	out := make([]v1.ProgramSummary, 0, len(programs))
	for _, p := range programs {
		out = append(out, v1.ProgramSummary{
			ID:          p.ID,
			Names:       p.Names,
			FiscalYear:  p.FiscalYear,
			Channels:    p.Channels,
			RequiresSIN: p.RequiresSIN,
			RequiresCRA: p.RequiresCRA,
			FieldCount:  len(p.Fields),
		})
	}

	return c.JSON(http.StatusOK, out)
}

// handleProgramSchema returns the full field layout of one program.
func (s *Server) handleProgramSchema(c echo.Context) error {
	sch, err := s.registry.Get(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, schemaDoc(sch))
}

// handleValidate validates a submission without opening a session.
func (s *Server) handleValidate(c echo.Context) error {
	var req v1.SubmissionRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid validate request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ProgramID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "program_id field is required")
	}

	sch, err := s.registry.Get(req.ProgramID)
	if err != nil {
		return mapError(err)
	}

	normalized, issues := validation.Validate(sch, submissionOf(req))

	report := v1.ValidationReport{
		ProgramID: sch.ID,
		Valid:     validation.Valid(issues),
		Issues:    issueDocs(issues),
	}
	if report.Valid {
		report.Normalized = normalizedDoc(&normalized)
	}

	return c.JSON(http.StatusOK, report)
}

// handleStartSession opens a dialogue session from an initial submission.
func (s *Server) handleStartSession(c echo.Context) error {
	var req v1.SubmissionRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid session request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ProgramID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "program_id field is required")
	}

	result, err := s.engine.Start(c.Request().Context(), req.ProgramID, submissionOf(req))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, turnReply(result))
}

// handleAnswers merges one turn of answers into a session.
func (s *Server) handleAnswers(c echo.Context) error {
	var req v1.AnswersRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid answers request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.engine.SubmitAnswers(c.Request().Context(), c.Param("id"), req.Answers)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, turnReply(result))
}

// handleCancel abandons a session.
func (s *Server) handleCancel(c echo.Context) error {
	result, err := s.engine.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, turnReply(result))
}

// handleGetSession returns a session's current state without acting on it.
func (s *Server) handleGetSession(c echo.Context) error {
	result, err := s.engine.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, turnReply(result))
}

// handleAuditTrail returns the session's audit chain. Entries are
// released only after the server-side hash chain check passes, so a
// 200 response always carries verified=true; a broken chain is a 500.
func (s *Server) handleAuditTrail(c echo.Context) error {
	sessionID := c.Param("id")

	entries, err := s.engine.AuditTrail(c.Request().Context(), sessionID)
	if err != nil {
		return mapError(err)
	}

	doc := v1.AuditTrailDoc{
		SessionID: sessionID,
		Verified:  true,
		Entries:   make([]v1.AuditEntryDoc, 0, len(entries)),
	}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, v1.AuditEntryDoc{
			EntryID:      e.EntryID,
			SessionID:    e.SessionID,
			TurnIndex:    e.TurnIndex,
			Timestamp:    e.Timestamp,
			Payload:      e.Payload,
			PayloadHash:  e.PayloadHash,
			PreviousHash: e.PreviousHash,
			EntryHash:    e.EntryHash,
		})
	}

	return c.JSON(http.StatusOK, doc)
}

// mapError translates engine sentinels onto transport status codes.
func mapError(err error) error {
	switch {
	case errors.Is(err, schema.ErrNotFound),
		errors.Is(err, dialogue.ErrSessionNotFound),
		errors.Is(err, audit.ErrNoTrail):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, dialogue.ErrTerminalState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func submissionOf(req v1.SubmissionRequest) validation.Submission {
	return validation.Submission{
		ProgramID: req.ProgramID,
		Language:  req.Language,
		Channel:   req.Channel,
		Fields:    req.Fields,
	}
}

func issueDocs(issues []validation.Issue) []v1.IssueDoc {
	out := make([]v1.IssueDoc, 0, len(issues))
	for _, issue := range issues {
		out = append(out, v1.IssueDoc{
			Field:    issue.Field,
			Kind:     string(issue.Kind),
			Severity: string(issue.Severity),
			Message:  issue.Message,
		})
	}
	return out
}

func questionDocs(questions []validation.Question) []v1.QuestionDoc {
	if len(questions) == 0 {
		return nil
	}
	out := make([]v1.QuestionDoc, 0, len(questions))
	for _, q := range questions {
		out = append(out, v1.QuestionDoc{
			Field:   q.Field,
			Label:   q.Label,
			Prompt:  q.Prompt,
			Type:    q.Type,
			Options: q.Options,
		})
	}
	return out
}

func normalizedDoc(n *validation.Normalized) *v1.NormalizedDoc {
	if n == nil {
		return nil
	}
	return &v1.NormalizedDoc{
		ProgramID: n.ProgramID,
		Language:  n.Language,
		Channel:   n.Channel,
		Fields:    n.Fields,
	}
}

func turnReply(result *dialogue.Result) v1.TurnReply {
	return v1.TurnReply{
		SessionID:  result.SessionID,
		ProgramID:  result.ProgramID,
		State:      string(result.State),
		Reason:     result.Reason,
		Turn:       result.Turn,
		Issues:     issueDocs(result.Issues),
		Questions:  questionDocs(result.Questions),
		Normalized: normalizedDoc(result.Normalized),
	}
}

func schemaDoc(sch *schema.ProgramSchema) v1.ProgramSchemaDoc {
	doc := v1.ProgramSchemaDoc{
		ID:          sch.ID,
		Names:       sch.Names,
		Department:  sch.Department,
		FiscalYear:  sch.FiscalYear,
		Channels:    sch.Channels,
		RequiresSIN: sch.RequiresSIN,
		RequiresCRA: sch.RequiresCRA,
		Fields:      make([]v1.FieldDoc, 0, len(sch.Fields)),
	}
	for i := range sch.Fields {
		f := &sch.Fields[i]
		doc.Fields = append(doc.Fields, v1.FieldDoc{
			Name:     f.Name,
			Type:     string(f.Type),
			Required: f.Required,
			Options:  f.Options,
			Pattern:  f.Pattern,
			Labels:   f.Labels,
			Prompts:  f.Prompts,
		})
	}
	for _, r := range sch.Rules {
		doc.Rules = append(doc.Rules, v1.RuleDoc{Kind: string(r.Kind), Fields: r.Fields})
	}
	return doc
}
