package audit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is the subject prefix used when none is configured.
const DefaultSubjectPrefix = "intake.audit"

// Publisher mirrors appended audit entries onto NATS so compliance and
// observability consumers can follow sessions without touching the engine.
//
// Entries are published to subjects:
//
//	{prefix}.{program_id}
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewPublisher creates a publisher on an established NATS connection.
func NewPublisher(nc *nats.Conn, prefix string, logger *zap.Logger) (*Publisher, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Publisher{
		nc:     nc,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Publish sends one entry to its program's audit subject.
func (p *Publisher) Publish(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	if err := p.nc.Publish(p.subject(entry), data); err != nil {
		return fmt.Errorf("publish audit entry: %w", err)
	}

	return nil
}

// Handler returns an EntryHandler for Trail.AddHandler. Publish failures are
// logged and do not interrupt the session that appended the entry.
func (p *Publisher) Handler() EntryHandler {
	return func(entry *Entry) {
		if err := p.Publish(entry); err != nil {
			p.logger.Warn("audit entry publish failed",
				zap.String("session_id", entry.SessionID),
				zap.Int("turn_index", entry.TurnIndex),
				zap.Error(err),
			)
		}
	}
}

// subject builds the NATS subject for an entry.
func (p *Publisher) subject(entry *Entry) string {
	program := "unknown"
	if data, err := entry.Data(); err == nil && data.ProgramID != "" {
		program = data.ProgramID
	}
	return p.prefix + "." + program
}
