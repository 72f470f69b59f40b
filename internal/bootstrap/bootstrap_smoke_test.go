package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	platformerrors "image-sizer-go/internal/platform/errors"
	platformlogging "image-sizer-go/internal/platform/logging"
	ptesting "image-sizer-go/internal/platform/testing"
)

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"observability:setup-hooks",
		"storage:init-handles",
		"catalog:load",
		"render:init-engines",
		"jobs:init-manager",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestExecuteInitGraph(t *testing.T) {
	cfg := ptesting.SetupTestConfig(t)
	state := &appState{opts: Options{Config: cfg, Console: &bytes.Buffer{}}}
	if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	defer state.close()

	if state.config == nil {
		t.Fatal("config is nil after init")
	}
	if state.logger == nil {
		t.Fatal("logger is nil after init")
	}
	if state.observabilityShutdown == nil {
		t.Fatal("observability shutdown hook not set")
	}
	if state.handleStore == nil || state.catalog == nil || state.serverEngine == nil || state.jobs == nil {
		t.Fatal("domain graph incomplete after init")
	}
}

func TestExecuteInitGraph_SQLiteHandles(t *testing.T) {
	cfg := ptesting.SetupTestConfig(t)
	cfg.Handles.Driver = "sqlite"
	cfg.Handles.SQLite.DSN = filepath.Join(t.TempDir(), "handles.db")

	state := &appState{opts: Options{Config: cfg, Console: &bytes.Buffer{}}}
	if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	defer state.close()

	if state.db == nil {
		t.Fatal("sqlite driver should open a database")
	}
}

func TestExecuteInitSteps_MissingDependency(t *testing.T) {
	steps := []initStep{{
		ID:        "b",
		DependsOn: []string{"a"},
		Execute:   func(context.Context, *appState) error { return nil },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
}

func TestExecuteInitSteps_WrapsWithStepKind(t *testing.T) {
	steps := []initStep{{
		ID:      "storage:boom",
		Kind:    platformerrors.KindStorage,
		Execute: func(context.Context, *appState) error { return errors.New("boom") },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := ptesting.SetupTestConfig(t)
	cfg.Server.Port = 0
	_, err := Build(context.Background(), Options{Config: cfg, Console: &bytes.Buffer{}})
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestBuild_LoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "server:\n  port: 18181\nlog:\n  log_level: warn\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	app, err := Build(context.Background(), Options{ConfigPath: path, Console: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer app.Close()

	if app.Config.Server.Port != 18181 {
		t.Fatalf("port not loaded from file: %d", app.Config.Server.Port)
	}
	if app.Path != path {
		t.Fatalf("config path: got %q want %q", app.Path, path)
	}
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	var buf bytes.Buffer
	provider := platformlogging.NewConsole("info", &buf)
	logBootstrapGraph(InitGraph(), provider.Legacy())
	_ = provider.Close()

	out := buf.String()
	for _, step := range InitGraph() {
		if !strings.Contains(out, step.ID) {
			t.Fatalf("log output missing step %s: %s", step.ID, out)
		}
	}
}

func TestHandlerSmoke(t *testing.T) {
	cfg := ptesting.SetupTestConfig(t)
	app, err := Build(context.Background(), Options{Config: cfg, Console: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer app.Close()

	handler, wsServer, err := NewHandler(context.Background(), app)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	defer wsServer.Stop()

	cases := []struct {
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"/api/health", http.StatusOK, "application/json", `"status"`},
		{"/api/presets", http.StatusOK, "application/json", `"favicon"`},
		{"/openapi.json", http.StatusOK, "application/json", `"/resize"`},
		{"/docs", http.StatusOK, "text/html", "api-reference"},
		{"/nope", http.StatusNotFound, "application/json", ""},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.status {
				t.Fatalf("status: got %d want %d", rec.Code, tc.status)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, tc.contentType) {
				t.Fatalf("content type: got %q want %q", ct, tc.contentType)
			}
			if tc.contains != "" && !strings.Contains(rec.Body.String(), tc.contains) {
				t.Fatalf("body missing %q: %s", tc.contains, rec.Body.String())
			}
		})
	}
}
