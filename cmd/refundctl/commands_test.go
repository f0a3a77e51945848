package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeAPI struct {
	mu          sync.Mutex
	status      string
	taxYear     int
	demo        bool
	failLatest  bool
	noLifecycle bool
	queries     []string
	simulated   []string
	logouts     int
}

func newFakeAPI(t *testing.T, api *fakeAPI) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()

		writeError := func(code int, msg string) {
			w.WriteHeader(code)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
		}

		switch r.URL.Path {
		case "/api/user/login", "/api/user/register":
			var creds struct{ Login, Password string }
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "secret" {
				writeError(http.StatusUnauthorized, "Invalid login or password")
				return
			}
			w.Header().Set("Authorization", "Bearer tok-"+creds.Login)
			w.WriteHeader(http.StatusOK)
			return
		case "/api/user/logout":
			api.logouts++
			w.WriteHeader(http.StatusNoContent)
			return
		case "/api/refund/lifecycle":
			if api.noLifecycle {
				writeError(http.StatusNotFound, "not found")
				return
			}
			_, _ = w.Write([]byte(`{"statuses":["RECEIVED","PROCESSING","APPROVED","SENT","AVAILABLE"]}`))
			return
		}

		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
			writeError(http.StatusUnauthorized, "Authentication required")
			return
		}

		switch r.URL.Path {
		case "/api/refund/latest":
			api.queries = append(api.queries, r.URL.RawQuery)
			if api.failLatest {
				writeError(http.StatusInternalServerError, "Failed to load")
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"taxYear":       api.taxYear,
				"status":        api.status,
				"lastUpdatedAt": time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
				"aiExplanation": "Your return is being processed.",
			})
		case "/api/refund/simulate":
			if !api.demo {
				writeError(http.StatusNotFound, "Demo mode is disabled")
				return
			}
			var req struct{ Status string }
			_ = json.NewDecoder(r.Body).Decode(&req)
			api.simulated = append(api.simulated, req.Status)
			api.status = req.Status
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(http.StatusNotFound, "not found")
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, ctx context.Context, server, tokenFile string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(append([]string{"--server", server, "--token-file", tokenFile}, args...))
	code := execute(ctx, root, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func loggedIn(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("tok-alice\n"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	return path
}

func TestLoginSavesToken(t *testing.T) {
	server := newFakeAPI(t, &fakeAPI{})
	tokenFile := filepath.Join(t.TempDir(), "nested", "token")

	res := runCLI(t, context.Background(), server, tokenFile, "login", "alice", "--password", "secret")
	if res.code != 0 {
		t.Fatalf("login failed: %s", res.stderr)
	}
	data, err := os.ReadFile(tokenFile)
	if err != nil || strings.TrimSpace(string(data)) != "tok-alice" {
		t.Fatalf("expected saved token, got %q %v", data, err)
	}

	res = runCLI(t, context.Background(), server, tokenFile, "register", "bob", "--password", "wrong")
	if res.code != 1 || !strings.Contains(res.stderr, "Invalid login or password") {
		t.Fatalf("expected server message on failed register, got %d %q", res.code, res.stderr)
	}

	res = runCLI(t, context.Background(), server, tokenFile, "login", "alice")
	if res.code != 1 || !strings.Contains(res.stderr, "password is required") {
		t.Fatalf("expected missing password error, got %q", res.stderr)
	}
}

func TestStatusPrintsSnapshot(t *testing.T) {
	api := &fakeAPI{status: "PROCESSING", taxYear: 2025}
	server := newFakeAPI(t, api)
	tokenFile := loggedIn(t)

	res := runCLI(t, context.Background(), server, tokenFile, "status")
	if res.code != 0 {
		t.Fatalf("status failed: %s", res.stderr)
	}
	if !strings.Contains(res.stdout, "PROCESSING") || !strings.Contains(res.stdout, "2025") ||
		!strings.Contains(res.stdout, "Your return is being processed.") {
		t.Fatalf("unexpected output %q", res.stdout)
	}

	res = runCLI(t, context.Background(), server, tokenFile, "status", "--year", "2024")
	if res.code != 0 {
		t.Fatalf("status failed: %s", res.stderr)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.queries[0] != "" || api.queries[1] != "taxYear=2024" {
		t.Fatalf("unexpected queries %v", api.queries)
	}
}

func TestStatusRequiresLogin(t *testing.T) {
	server := newFakeAPI(t, &fakeAPI{status: "RECEIVED"})
	res := runCLI(t, context.Background(), server, filepath.Join(t.TempDir(), "missing"), "status")
	if res.code != 1 || !strings.Contains(res.stderr, "not logged in") {
		t.Fatalf("expected login hint, got %d %q", res.code, res.stderr)
	}
}

func TestLoadFailureReportedOnce(t *testing.T) {
	server := newFakeAPI(t, &fakeAPI{failLatest: true})
	res := runCLI(t, context.Background(), server, loggedIn(t), "status")
	if res.code != 1 {
		t.Fatalf("expected failure exit code, got %d", res.code)
	}
	if strings.Count(res.stderr, "error: Failed to load") != 1 {
		t.Fatalf("expected exactly one error line, got %q", res.stderr)
	}
}

func TestAdvance(t *testing.T) {
	api := &fakeAPI{status: "PROCESSING", taxYear: 2025, demo: true}
	server := newFakeAPI(t, api)
	tokenFile := loggedIn(t)

	res := runCLI(t, context.Background(), server, tokenFile, "advance")
	if res.code != 0 {
		t.Fatalf("advance failed: %s", res.stderr)
	}
	if !strings.Contains(res.stdout, "PROCESSING -> APPROVED") {
		t.Fatalf("unexpected output %q", res.stdout)
	}

	api.mu.Lock()
	api.status = "AVAILABLE"
	api.mu.Unlock()
	res = runCLI(t, context.Background(), server, tokenFile, "advance")
	if res.code != 0 || !strings.Contains(res.stdout, "nothing to advance") {
		t.Fatalf("expected no-op at terminal status, got %d %q", res.code, res.stdout)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.simulated) != 1 || api.simulated[0] != "APPROVED" {
		t.Fatalf("unexpected simulations %v", api.simulated)
	}
}

func TestAdvanceDemoDisabled(t *testing.T) {
	server := newFakeAPI(t, &fakeAPI{status: "RECEIVED", taxYear: 2025})
	res := runCLI(t, context.Background(), server, loggedIn(t), "advance")
	if res.code != 1 {
		t.Fatalf("expected failure exit code, got %d", res.code)
	}
	if strings.Count(res.stderr, "error: Demo mode is disabled") != 1 {
		t.Fatalf("expected exactly one error line, got %q", res.stderr)
	}
}

func TestLifecycleFallsBackToDefault(t *testing.T) {
	server := newFakeAPI(t, &fakeAPI{noLifecycle: true})
	res := runCLI(t, context.Background(), server, loggedIn(t), "lifecycle")
	if res.code != 0 {
		t.Fatalf("lifecycle failed: %s", res.stderr)
	}
	if !strings.Contains(res.stdout, "1. RECEIVED") || !strings.Contains(res.stdout, "5. AVAILABLE") {
		t.Fatalf("unexpected output %q", res.stdout)
	}
}

func TestWatchPrintsUntilCancelled(t *testing.T) {
	server := newFakeAPI(t, &fakeAPI{status: "SENT", taxYear: 2025})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res := runCLI(t, ctx, server, loggedIn(t), "watch", "--interval", "10ms")
	if res.code != 0 {
		t.Fatalf("watch failed: %s", res.stderr)
	}
	if strings.Count(res.stdout, "Status:") != 1 {
		t.Fatalf("expected unchanged snapshot to be printed once, got %q", res.stdout)
	}
}

func TestLogoutRemovesToken(t *testing.T) {
	api := &fakeAPI{}
	server := newFakeAPI(t, api)
	tokenFile := loggedIn(t)

	res := runCLI(t, context.Background(), server, tokenFile, "logout")
	if res.code != 0 || !strings.Contains(res.stdout, "Logged out") {
		t.Fatalf("logout failed: %d %q %q", res.code, res.stdout, res.stderr)
	}
	if _, err := os.Stat(tokenFile); !os.IsNotExist(err) {
		t.Fatalf("expected token file removed, got %v", err)
	}

	res = runCLI(t, context.Background(), server, tokenFile, "logout")
	if res.code != 0 || !strings.Contains(res.stdout, "Already logged out") {
		t.Fatalf("expected idempotent logout, got %d %q", res.code, res.stdout)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.logouts != 1 {
		t.Fatalf("expected one server logout, got %d", api.logouts)
	}
}

func TestInterruptedLoadFailureStillReported(t *testing.T) {
	server := newFakeAPI(t, &fakeAPI{status: "RECEIVED", taxYear: 2025})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := runCLI(t, ctx, server, loggedIn(t), "status")
	if res.code != 1 {
		t.Fatalf("expected failure exit code, got %d", res.code)
	}
	var reported []string
	for _, line := range strings.Split(res.stderr, "\n") {
		if strings.HasPrefix(line, "error: ") {
			reported = append(reported, line)
		}
	}
	if len(reported) != 1 || !strings.Contains(reported[0], "context canceled") {
		t.Fatalf("expected exactly one reported failure, got %q", res.stderr)
	}
}
