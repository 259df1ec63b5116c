package main

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tidalctl/internal/services"
	"github.com/desertthunder/tidalctl/internal/session"
	"github.com/desertthunder/tidalctl/internal/shared"
	mocks "github.com/desertthunder/tidalctl/internal/testing"
	"golang.org/x/oauth2"
)

func newTestRunner(t *testing.T, authed bool) (*Runner, *bytes.Buffer) {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	sessions, err := session.NewManager(session.Options{
		ClientID:    "test_client",
		SessionPath: filepath.Join(t.TempDir(), "session.json"),
		NewProvider: func(*oauth2.Config) services.Provider { return &mocks.MockProvider{} },
		Now:         func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}

	if authed {
		sessions.Store().Save(&session.Record{
			AccessToken:  "at",
			RefreshToken: "rt",
			ExpiresAt:    float64(now.Unix() + 3600),
			UserID:       "42",
		})
	}

	config := shared.DefaultConfig()
	config.Database.Path = ":memory:"

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Sessions: sessions,
		Output:   output,
		Logger:   shared.NewLogger(output),
	})
	t.Cleanup(runner.Close)

	return runner, output
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output == nil {
				t.Error("expected default output to be set")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner, _ := newTestRunner(t, false)
		commands := runner.register()

		want := map[string]bool{
			"setup": false, "auth": false, "search": false, "get": false,
			"playlist": false, "favorites": false, "cache": false,
		}
		for _, cmd := range commands {
			if _, ok := want[cmd.Name]; ok {
				want[cmd.Name] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s command to be registered", name)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		runner, output := newTestRunner(t, false)

		if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
			t.Fatalf("writeJSON failed: %v", err)
		}
		if !strings.Contains(output.String(), `"key":"value"`) {
			t.Errorf("unexpected output: %s", output.String())
		}

		output.Reset()
		if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
			t.Fatalf("pretty writeJSON failed: %v", err)
		}
		if !strings.Contains(output.String(), "\n  ") {
			t.Errorf("pretty output should be indented: %s", output.String())
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		runner, output := newTestRunner(t, false)

		if err := runner.writePlain("hello %s\n", "world"); err != nil {
			t.Fatalf("writePlain failed: %v", err)
		}
		if output.String() != "hello world\n" {
			t.Errorf("unexpected output: %q", output.String())
		}
	})

	t.Run("ensureSessionsReusesInjected", func(t *testing.T) {
		runner, _ := newTestRunner(t, false)

		sessions, err := runner.ensureSessions()
		if err != nil {
			t.Fatalf("ensureSessions failed: %v", err)
		}
		if sessions != runner.sessions {
			t.Error("injected session manager should be reused")
		}
	})

	t.Run("ensureServiceBuildsFacadeOnce", func(t *testing.T) {
		runner, _ := newTestRunner(t, true)

		first, err := runner.ensureService()
		if err != nil {
			t.Fatalf("ensureService failed: %v", err)
		}
		second, err := runner.ensureService()
		if err != nil {
			t.Fatalf("second ensureService failed: %v", err)
		}
		if first != second {
			t.Error("facade should be built once and reused")
		}
	})

	t.Run("trackRepositoryRunsMigrations", func(t *testing.T) {
		runner, _ := newTestRunner(t, false)

		repo, err := runner.trackRepository()
		if err != nil {
			t.Fatalf("trackRepository failed: %v", err)
		}

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("count should work on a migrated database: %v", err)
		}
		if count != 0 {
			t.Errorf("expected empty track cache, got %d", count)
		}
	})
}
