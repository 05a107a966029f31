// Package testutil provides fake Stitch endpoints and config helpers for
// end-to-end tests.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// FakeGate is an in-process stand-in for the Stitch import API. It records
// every request body it receives.
type FakeGate struct {
	server *httptest.Server

	mu     sync.Mutex
	bodies [][]byte

	// Status is the response code returned to senders. Defaults to 201.
	Status int
}

// NewFakeGate starts a fake gate server. Callers must Close it.
func NewFakeGate() *FakeGate {
	g := &FakeGate{Status: http.StatusCreated}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		g.mu.Lock()
		g.bodies = append(g.bodies, body)
		status := g.Status
		g.mu.Unlock()
		w.WriteHeader(status)
	}))
	return g
}

// URL returns the fake gate's base URL.
func (g *FakeGate) URL() string {
	return g.server.URL
}

// Bodies returns a copy of all received request bodies.
func (g *FakeGate) Bodies() [][]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([][]byte, len(g.bodies))
	copy(out, g.bodies)
	return out
}

// Close shuts the fake gate down.
func (g *FakeGate) Close() {
	g.server.Close()
}

// WriteConfig writes a minimal config file pointing at the given gate URL
// and returns its path.
func WriteConfig(t *testing.T, gateURL string) string {
	t.Helper()

	configYAML := fmt.Sprintf(`client_id: 42
token: test-token
gate_url: %s
flush_interval: 0s
`, gateURL)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
