package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/openintake/intaked/internal/audit"

var (
	// ErrNoTrail indicates no entries have ever been appended for the session.
	ErrNoTrail = errors.New("no audit trail for session")

	// ErrChainBroken indicates tampering or storage corruption in a session's
	// hash chain. It must always reach the caller; nothing recovers from it.
	ErrChainBroken = errors.New("audit hash chain is broken")
)

// chain is the append-only entry sequence for one session.
type chain struct {
	entries []*Entry
	head    string
}

// Trail is the append-only audit store. Each session id keys an independent
// hash chain; Append is the only mutation and Verify recomputes a chain
// end-to-end.
type Trail struct {
	mu       sync.RWMutex
	chains   map[string]*chain
	handlers []EntryHandler
	logger   *zap.Logger

	meter          metric.Meter
	entryCounter   metric.Int64Counter
	verifyFailures metric.Int64Counter
}

// NewTrail creates an empty audit trail.
func NewTrail(logger *zap.Logger) *Trail {
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Trail{
		chains: make(map[string]*chain),
		logger: logger,
		meter:  otel.Meter(instrumentationName),
	}

	t.initMetrics()

	return t
}

// initMetrics initializes OpenTelemetry metrics.
func (t *Trail) initMetrics() {
	var err error

	t.entryCounter, err = t.meter.Int64Counter(
		"intaked.audit.entries_total",
		metric.WithDescription("Total number of audit entries appended"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		t.logger.Warn("failed to create entry counter", zap.Error(err))
	}

	t.verifyFailures, err = t.meter.Int64Counter(
		"intaked.audit.verify_failures_total",
		metric.WithDescription("Total number of failed hash chain verifications"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		t.logger.Warn("failed to create verify failure counter", zap.Error(err))
	}
}

// Append adds one entry to the session's chain, assigning the next turn
// index and linking the entry to the chain head. The first append for a
// session starts its chain from the session seed.
func (t *Trail) Append(ctx context.Context, sessionID string, data EntryData) (*Entry, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal entry payload: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.chains[sessionID]
	if !ok {
		c = &chain{head: chainSeed(sessionID)}
		t.chains[sessionID] = c
	}

	entry := &Entry{
		EntryID:      uuid.New().String(),
		SessionID:    sessionID,
		TurnIndex:    len(c.entries),
		Timestamp:    time.Now().UTC(),
		Payload:      payload,
		PayloadHash:  computeHash(payload),
		PreviousHash: c.head,
	}

	entryHash, err := computeEntryHash(entry)
	if err != nil {
		return nil, fmt.Errorf("compute entry hash: %w", err)
	}
	entry.EntryHash = entryHash

	c.head = entry.EntryHash
	c.entries = append(c.entries, entry)

	if t.entryCounter != nil {
		t.entryCounter.Add(ctx, 1)
	}

	for _, h := range t.handlers {
		h(entry)
	}

	return entry, nil
}

// Verify recomputes the session's hash chain from its seed and compares it
// entry by entry. Any mismatch returns ErrChainBroken; an unknown session
// returns ErrNoTrail.
func (t *Trail) Verify(ctx context.Context, sessionID string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.chains[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoTrail, sessionID)
	}

	if err := t.verifyChain(sessionID, c); err != nil {
		if t.verifyFailures != nil {
			t.verifyFailures.Add(ctx, 1)
		}
		t.logger.Error("audit chain verification failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// verifyChain checks one chain under the caller's lock.
func (t *Trail) verifyChain(sessionID string, c *chain) error {
	expectedPrev := chainSeed(sessionID)

	for i, entry := range c.entries {
		if entry.TurnIndex != i {
			return fmt.Errorf("%w: entry %d has turn index %d", ErrChainBroken, i, entry.TurnIndex)
		}
		if entry.PreviousHash != expectedPrev {
			return fmt.Errorf("%w: entry %d has previous_hash %s but expected %s",
				ErrChainBroken, i, entry.PreviousHash, expectedPrev)
		}
		if computeHash(entry.Payload) != entry.PayloadHash {
			return fmt.Errorf("%w: entry %d payload hash mismatch", ErrChainBroken, i)
		}

		computed, err := computeEntryHash(entry)
		if err != nil {
			return fmt.Errorf("%w: entry %d hash computation failed: %v", ErrChainBroken, i, err)
		}
		if computed != entry.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch (computed %s, stored %s)",
				ErrChainBroken, i, computed, entry.EntryHash)
		}

		expectedPrev = entry.EntryHash
	}

	return nil
}

// Read returns the session's entries in append order. The returned entries
// are value copies; callers must treat the payload bytes as read-only.
func (t *Trail) Read(sessionID string) ([]Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.chains[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTrail, sessionID)
	}

	out := make([]Entry, len(c.entries))
	for i, entry := range c.entries {
		out[i] = *entry
	}
	return out, nil
}

// Evict discards a session's chain. Only call this after the session record
// itself has been evicted; a live session's trail is never deleted.
func (t *Trail) Evict(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.chains, sessionID)
}

// AddHandler registers a handler invoked once per appended entry.
func (t *Trail) AddHandler(h EntryHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, h)
}

// chainSeed derives the genesis hash for a session's chain.
func chainSeed(sessionID string) string {
	return computeHash([]byte("genesis:" + sessionID))
}

// computeHash computes the SHA-256 hash of data.
func computeHash(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// computeEntryHash computes the hash of an entry for chaining. The entry id
// is excluded so the hash covers only chain-ordered content.
func computeEntryHash(entry *Entry) (string, error) {
	hashable := struct {
		SessionID    string    `json:"session_id"`
		TurnIndex    int       `json:"turn_index"`
		Timestamp    time.Time `json:"timestamp"`
		PayloadHash  string    `json:"payload_hash"`
		PreviousHash string    `json:"previous_hash"`
	}{
		SessionID:    entry.SessionID,
		TurnIndex:    entry.TurnIndex,
		Timestamp:    entry.Timestamp,
		PayloadHash:  entry.PayloadHash,
		PreviousHash: entry.PreviousHash,
	}

	data, err := json.Marshal(hashable)
	if err != nil {
		return "", fmt.Errorf("marshal entry for hashing: %w", err)
	}
	return computeHash(data), nil
}
