package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aicommandcenter/aicc/pkg/ollama"
	"github.com/aicommandcenter/aicc/pkg/probe"
	"github.com/aicommandcenter/aicc/pkg/types"
)

// --- fakes ------------------------------------------------------------------

type fakeHealth struct{ agg types.AggregateHealth }

func (f fakeHealth) GetAll(context.Context) types.AggregateHealth { return f.agg }

type fakeModels struct {
	models  []ollama.Model
	err     error
	pulled  []string
	removed []string
}

func (f *fakeModels) List(context.Context) ([]ollama.Model, error) { return f.models, f.err }

func (f *fakeModels) Pull(_ context.Context, name string) error {
	f.pulled = append(f.pulled, name)
	return f.err
}

func (f *fakeModels) Remove(_ context.Context, name string) error {
	f.removed = append(f.removed, name)
	return f.err
}

// --- helpers ----------------------------------------------------------------

func allHealthy() types.AggregateHealth {
	var agg types.AggregateHealth
	for _, id := range types.Services {
		agg = agg.With(id, types.HealthStatus{Service: string(id), Healthy: true, Message: "OK", LatencyMS: types.Millis(1)})
	}
	return agg
}

func newApp(t *testing.T, agg types.AggregateHealth, models *fakeModels) (*app, *bytes.Buffer, *bytes.Buffer, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if models == nil {
		models = &fakeModels{}
	}
	a := &app{
		stdout:    &stdout,
		stderr:    &stderr,
		newHealth: func(probe.Options) HealthSource { return fakeHealth{agg: agg} },
		models:    models,
	}
	return a, &stdout, &stderr, t.TempDir()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- tests ------------------------------------------------------------------

func TestRun_Usage(t *testing.T) {
	a, _, stderr, dir := newApp(t, allHealthy(), nil)
	if code := a.run(context.Background(), []string{"--config-dir", dir}); code != exitUsage {
		t.Errorf("no command: got %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr.String(), "usage: acc") {
		t.Errorf("stderr: got %q", stderr.String())
	}
	if code := a.run(context.Background(), []string{"--config-dir", dir, "restart"}); code != exitUsage {
		t.Errorf("unknown command: got %d, want %d", code, exitUsage)
	}
}

func TestHealth_ExitCodes(t *testing.T) {
	a, stdout, _, dir := newApp(t, allHealthy(), nil)
	if code := a.run(context.Background(), []string{"--config-dir", dir, "health"}); code != exitOK {
		t.Errorf("healthy: got %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "5/5 healthy") {
		t.Errorf("stdout: got %q", stdout.String())
	}

	down := allHealthy().With(types.ServiceCache, types.HealthStatus{Service: "Redis", Message: "Unexpected response: LOADING"})
	a, _, _, dir = newApp(t, down, nil)
	if code := a.run(context.Background(), []string{"--config-dir", dir, "health"}); code != exitFail {
		t.Errorf("unhealthy: got %d, want 1", code)
	}
}

func TestHealth_JSON(t *testing.T) {
	a, stdout, _, dir := newApp(t, allHealthy(), nil)
	if code := a.run(context.Background(), []string{"--config-dir", dir, "health", "--json"}); code != exitOK {
		t.Fatalf("exit: got %d", code)
	}
	var got map[string]map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, stdout.String())
	}
	for _, id := range types.Services {
		if got[string(id)]["healthy"] != true {
			t.Errorf("%s: got %v", id, got[string(id)])
		}
	}
}

func TestLogs(t *testing.T) {
	a, stdout, _, dir := newApp(t, allHealthy(), nil)
	writeFile(t, filepath.Join(dir, "logs", "router.out.log"), "one\ntwo\nthree\n")

	if code := a.run(context.Background(), []string{"--config-dir", dir, "logs", "router", "-n", "2"}); code != exitOK {
		t.Fatalf("exit: got %d", code)
	}
	if got := stdout.String(); got != "two\nthree\n" {
		t.Errorf("stdout: got %q", got)
	}
}

func TestLogs_MissingFileIsInformational(t *testing.T) {
	a, stdout, _, dir := newApp(t, allHealthy(), nil)
	if code := a.run(context.Background(), []string{"--config-dir", dir, "logs", "litellm"}); code != exitOK {
		t.Fatalf("exit: got %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "Log file not found: ") {
		t.Errorf("stdout: got %q", stdout.String())
	}
}

func TestLogs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no service", []string{"logs"}, exitUsage},
		{"bad lines", []string{"logs", "router", "-n", "0"}, exitUsage},
		{"unknown service", []string{"logs", "postgres"}, exitFail},
		{"service without log", []string{"logs", "redis"}, exitFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _, dir := newApp(t, allHealthy(), nil)
			args := append([]string{"--config-dir", dir}, tt.args...)
			if code := a.run(context.Background(), args); code != tt.want {
				t.Errorf("exit: got %d, want %d", code, tt.want)
			}
		})
	}
}

const validConfig = `model_list:
  - model_name: llama-fast
    litellm_params:
      model: ollama/llama3.2:3b
      api_base: http://localhost:11434
`

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		out     string
	}{
		{"valid", validConfig, exitOK, "config is valid"},
		{"invalid", "model_list: []\n", exitFail, "error: at least one model must be configured"},
		{"parse error", "model_list: [\n", exitFail, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, stdout, _, dir := newApp(t, allHealthy(), nil)
			writeFile(t, filepath.Join(dir, "config.yaml"), tt.content)
			if code := a.run(context.Background(), []string{"--config-dir", dir, "config", "validate"}); code != tt.want {
				t.Errorf("exit: got %d, want %d", code, tt.want)
			}
			if !strings.Contains(stdout.String(), tt.out) {
				t.Errorf("stdout: got %q, want %q", stdout.String(), tt.out)
			}
		})
	}
}

func TestConfig_ShowMissing(t *testing.T) {
	a, _, stderr, dir := newApp(t, allHealthy(), nil)
	if code := a.run(context.Background(), []string{"--config-dir", dir, "config", "show"}); code != exitFail {
		t.Errorf("exit: got %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "not found") {
		t.Errorf("stderr: got %q", stderr.String())
	}
}

func TestConfig_ShowKeepsUnknownFields(t *testing.T) {
	a, stdout, _, dir := newApp(t, allHealthy(), nil)
	writeFile(t, filepath.Join(dir, "config.yaml"), validConfig+"custom_section:\n  enabled: true\n")
	if code := a.run(context.Background(), []string{"--config-dir", dir, "config", "show"}); code != exitOK {
		t.Fatalf("exit: got %d", code)
	}
	for _, want := range []string{"llama-fast", "custom_section:", "enabled: true"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestPolicy_Show(t *testing.T) {
	a, stdout, _, dir := newApp(t, allHealthy(), nil)
	writeFile(t, filepath.Join(dir, "routing", "policy.yaml"), "version: \"1\"\nprivacy:\n  enabled: true\n")
	if code := a.run(context.Background(), []string{"--config-dir", dir, "policy", "show"}); code != exitOK {
		t.Fatalf("exit: got %d", code)
	}
	if !strings.Contains(stdout.String(), "enabled: true") {
		t.Errorf("stdout: got %q", stdout.String())
	}
}

func TestModels(t *testing.T) {
	models := &fakeModels{models: []ollama.Model{{Name: "llama3.2:3b", ID: "a80c4f17acd5", Size: "2.0 GB", Modified: "2 days ago"}}}
	a, stdout, _, dir := newApp(t, allHealthy(), models)

	if code := a.run(context.Background(), []string{"--config-dir", dir, "models", "list"}); code != exitOK {
		t.Fatalf("list exit: got %d", code)
	}
	if !strings.Contains(stdout.String(), "llama3.2:3b") {
		t.Errorf("list: got %q", stdout.String())
	}

	if code := a.run(context.Background(), []string{"--config-dir", dir, "models", "pull", "qwen2.5:7b"}); code != exitOK {
		t.Errorf("pull exit: got %d", code)
	}
	if code := a.run(context.Background(), []string{"--config-dir", dir, "models", "rm", "llama3.2:3b"}); code != exitOK {
		t.Errorf("rm exit: got %d", code)
	}
	if len(models.pulled) != 1 || models.pulled[0] != "qwen2.5:7b" {
		t.Errorf("pulled: got %v", models.pulled)
	}
	if len(models.removed) != 1 || models.removed[0] != "llama3.2:3b" {
		t.Errorf("removed: got %v", models.removed)
	}
}

func TestModels_Failure(t *testing.T) {
	models := &fakeModels{err: errors.New("ollama: command failed: pull model manifest: file does not exist")}
	a, _, stderr, dir := newApp(t, allHealthy(), models)
	if code := a.run(context.Background(), []string{"--config-dir", dir, "models", "pull", "nope"}); code != exitFail {
		t.Errorf("exit: got %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "file does not exist") {
		t.Errorf("stderr: got %q", stderr.String())
	}
	if code := a.run(context.Background(), []string{"--config-dir", dir, "models", "pull"}); code != exitUsage {
		t.Errorf("missing name: got %d, want %d", code, exitUsage)
	}
}
