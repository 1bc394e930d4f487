package dialogue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openintake/intaked/internal/validation"
)

func testSession(id string) *Session {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Session{
		ID:        id,
		ProgramID: "income-support",
		State:     StateAwaitingAnswers,
		Turn:      1,
		Submission: validation.Submission{
			ProgramID: "income-support",
			Language:  "en",
			Channel:   "email",
			Fields:    map[string]string{"sin": "123456789"},
		},
		Issues: []validation.Issue{
			{Field: "preferred_language", Kind: validation.IssueMissing, Severity: validation.SeverityError, Message: "Preferred language cannot be empty."},
		},
		Questions: []validation.Question{
			{Field: "preferred_language", Prompt: "Which language should we use? Available: en, fr", Options: []string{"en", "fr"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
}

func TestMemoryStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	want := testSession("s-1")
	require.NoError(t, store.Put(ctx, want))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMemoryStore_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, testSession("s-1")))

	first, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	first.State = StateFailed
	first.Submission.Fields["sin"] = "tampered"
	first.Questions[0].Options[0] = "tampered"

	second, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingAnswers, second.State)
	assert.Equal(t, "123456789", second.Submission.Fields["sin"])
	assert.Equal(t, "en", second.Questions[0].Options[0])
}

func TestMemoryStore_PutStoresCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	session := testSession("s-1")
	require.NoError(t, store.Put(ctx, session))
	session.Submission.Fields["sin"] = "tampered"

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "123456789", got.Submission.Fields["sin"])
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_PutRequiresID(t *testing.T) {
	store := NewMemoryStore()

	err := store.Put(context.Background(), &Session{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session id is required")
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, testSession("s-1")))

	require.NoError(t, store.Delete(ctx, "s-1"))
	require.NoError(t, store.Delete(ctx, "s-1"))

	_, err := store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_ListOrderedByID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, testSession("s-c")))
	require.NoError(t, store.Put(ctx, testSession("s-a")))
	require.NoError(t, store.Put(ctx, testSession("s-b")))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "s-a", sessions[0].ID)
	assert.Equal(t, "s-b", sessions[1].ID)
	assert.Equal(t, "s-c", sessions[2].ID)
}

func TestSession_CloneIsDeep(t *testing.T) {
	original := testSession("s-1")
	original.Normalized = &validation.Normalized{
		ProgramID: "income-support",
		Fields:    map[string]string{"sin": "123456789"},
	}

	clone := original.Clone()
	clone.Submission.Fields["sin"] = "changed"
	clone.Issues[0].Message = "changed"
	clone.Questions[0].Options[1] = "changed"
	clone.Normalized.Fields["sin"] = "changed"

	assert.Equal(t, "123456789", original.Submission.Fields["sin"])
	assert.Equal(t, "Preferred language cannot be empty.", original.Issues[0].Message)
	assert.Equal(t, "fr", original.Questions[0].Options[1])
	assert.Equal(t, "123456789", original.Normalized.Fields["sin"])
}
