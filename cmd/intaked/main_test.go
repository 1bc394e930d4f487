package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testPort = "18084"

// writeTestSchemaDoc writes a minimal program document for the daemon to
// load at startup.
func writeTestSchemaDoc(t *testing.T) string {
	t.Helper()

	doc := `[
  {
    "id": "benefits-renewal",
    "names": {"en": "Benefits Renewal", "fr": "Renouvellement des prestations"},
    "channels": ["email", "phone"],
    "fields": [
      {
        "name": "client_name",
        "type": "text",
        "required": true,
        "prompts": {"en": "What is your full name?"}
      }
    ],
    "rules": [{"kind": "supported_channel"}, {"kind": "supported_language"}]
  }
]`

	path := filepath.Join(t.TempDir(), "programs.json")
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("Failed to write schema document: %v", err)
	}
	return path
}

// waitForHealth polls the health endpoint until the server answers.
func waitForHealth(t *testing.T, url string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("server did not become healthy in time")
}

func TestMainIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	// Point the default config path at an empty temp home so the daemon
	// runs on defaults plus the environment below.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("INTAKED_SERVER_PORT", testPort)
	t.Setenv("INTAKED_SCHEMA_PATH", writeTestSchemaDoc(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, "")
	}()

	base := "http://localhost:" + testPort
	waitForHealth(t, base+"/health")

	// The schema document was loaded and serves through the API.
	resp, err := http.Get(base + "/api/v1/programs")
	if err != nil {
		t.Fatalf("GET /api/v1/programs failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/v1/programs status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var programs []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&programs); err != nil {
		t.Fatalf("decoding programs: %v", err)
	}
	if len(programs) != 1 || programs[0].ID != "benefits-renewal" {
		t.Errorf("programs = %+v, want one entry benefits-renewal", programs)
	}

	// Cancel context to shutdown server
	cancel()

	// Wait for server to stop
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}
