package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	v1 "github.com/openintake/intaked/pkg/api/v1"
)

// buildTestTrail chains payloads the same way the server does, so a
// freshly built trail must verify and any mutation must not.
func buildTestTrail(t *testing.T, sessionID string, payloads []v1.EntryPayload) *v1.AuditTrailDoc {
	t.Helper()

	trail := &v1.AuditTrailDoc{SessionID: sessionID, Verified: true}
	prev := hashBytes([]byte("genesis:" + sessionID))
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	for i, p := range payloads {
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("failed to marshal payload %d: %v", i, err)
		}

		entry := v1.AuditEntryDoc{
			EntryID:      fmt.Sprintf("entry-%d", i),
			SessionID:    sessionID,
			TurnIndex:    i,
			Timestamp:    base.Add(time.Duration(i) * time.Second),
			Payload:      data,
			PayloadHash:  hashBytes(data),
			PreviousHash: prev,
		}
		hash, err := entryHash(&entry)
		if err != nil {
			t.Fatalf("failed to hash entry %d: %v", i, err)
		}
		entry.EntryHash = hash
		prev = hash

		trail.Entries = append(trail.Entries, entry)
	}

	return trail
}

func sessionPayloads() []v1.EntryPayload {
	return []v1.EntryPayload{
		{
			Type:      "session_started",
			ProgramID: "benefits-renewal",
			State:     "AWAITING_ANSWERS",
		},
		{
			Type:      "answers_merged",
			ProgramID: "benefits-renewal",
			State:     "AWAITING_ANSWERS",
			Answers:   map[string]string{"client_name": "Avery Chen"},
		},
		{
			Type:      "answers_merged",
			ProgramID: "benefits-renewal",
			State:     "COMPLETE",
			Answers:   map[string]string{"sin": "046454286"},
		},
	}
}

func TestVerifyTrail(t *testing.T) {
	trail := buildTestTrail(t, "session-1", sessionPayloads())
	if err := verifyTrail(trail); err != nil {
		t.Fatalf("verifyTrail() on intact chain returned %v", err)
	}
}

func TestVerifyTrailEmpty(t *testing.T) {
	trail := &v1.AuditTrailDoc{SessionID: "session-1"}
	if err := verifyTrail(trail); err != nil {
		t.Fatalf("verifyTrail() on empty trail returned %v", err)
	}
}

// TestVerifyTrailRoundTrip checks that hashes survive a JSON round trip,
// which is exactly what the CLI sees after decoding the server response.
func TestVerifyTrailRoundTrip(t *testing.T) {
	trail := buildTestTrail(t, "session-1", sessionPayloads())

	data, err := json.Marshal(trail)
	if err != nil {
		t.Fatalf("failed to marshal trail: %v", err)
	}
	var decoded v1.AuditTrailDoc
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal trail: %v", err)
	}

	if err := verifyTrail(&decoded); err != nil {
		t.Fatalf("verifyTrail() after round trip returned %v", err)
	}
}

func TestVerifyTrailTampered(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(trail *v1.AuditTrailDoc)
		wantMsg string
	}{
		{
			name: "payload edited",
			mutate: func(trail *v1.AuditTrailDoc) {
				trail.Entries[1].Payload = json.RawMessage(
					strings.Replace(string(trail.Entries[1].Payload), "Avery Chen", "Someone Else", 1))
			},
			wantMsg: "payload hash mismatch",
		},
		{
			name: "payload and payload hash edited together",
			mutate: func(trail *v1.AuditTrailDoc) {
				edited := json.RawMessage(
					strings.Replace(string(trail.Entries[1].Payload), "Avery Chen", "Someone Else", 1))
				trail.Entries[1].Payload = edited
				trail.Entries[1].PayloadHash = hashBytes(edited)
			},
			wantMsg: "hash mismatch",
		},
		{
			name: "entry removed from the middle",
			mutate: func(trail *v1.AuditTrailDoc) {
				trail.Entries = append(trail.Entries[:1], trail.Entries[2:]...)
			},
			wantMsg: "turn index",
		},
		{
			name: "entries swapped",
			mutate: func(trail *v1.AuditTrailDoc) {
				trail.Entries[0], trail.Entries[1] = trail.Entries[1], trail.Entries[0]
			},
			wantMsg: "turn index",
		},
		{
			name: "previous hash rewritten",
			mutate: func(trail *v1.AuditTrailDoc) {
				trail.Entries[2].PreviousHash = hashBytes([]byte("forged"))
			},
			wantMsg: "previous_hash",
		},
		{
			name: "timestamp edited",
			mutate: func(trail *v1.AuditTrailDoc) {
				trail.Entries[1].Timestamp = trail.Entries[1].Timestamp.Add(time.Hour)
			},
			wantMsg: "hash mismatch",
		},
		{
			name: "session id changed",
			mutate: func(trail *v1.AuditTrailDoc) {
				trail.SessionID = "session-2"
			},
			wantMsg: "previous_hash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trail := buildTestTrail(t, "session-1", sessionPayloads())
			tt.mutate(trail)

			err := verifyTrail(trail)
			if err == nil {
				t.Fatal("verifyTrail() on tampered chain returned nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("verifyTrail() error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}
