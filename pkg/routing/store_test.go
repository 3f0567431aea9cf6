package routing

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/aicommandcenter/aicc/pkg/paths"
)

const sampleConfig = `model_list:
  - model_name: llama-fast
    litellm_params:
      model: ollama/llama3.2:3b
      api_base: http://localhost:11434
      rpm: 60
  - model_name: qwen-coder
    litellm_params:
      model: ollama/qwen2.5-coder:7b
      api_base: http://localhost:11434
litellm_settings:
  drop_params: true
  success_callback: [langfuse]
router_settings:
  routing_strategy: simple-shuffle
  fallbacks:
    - qwen-coder: [llama-fast]
general_settings:
  master_key: os.environ/LITELLM_MASTER_KEY
environment_variables:
  LANGFUSE_HOST: http://localhost:3001
`

const samplePolicy = `version: "1.0"
privacy:
  enabled: true
  pii_regexes:
    - '\b\d{3}-\d{2}-\d{4}\b'
  entropy_threshold: 4.5
  min_token_length: 20
  sensitive_model: llama-fast
injection:
  enabled: true
  patterns: ["ignore previous instructions"]
  block_on_injection: false
routing:
  default: llama-fast
  tiers: [simple, medium, complex]
`

// value decodes an opaque node for comparison.
func value(t *testing.T, n yaml.Node) any {
	t.Helper()
	v, err := SectionValue(n)
	if err != nil {
		t.Fatalf("SectionValue: %v", err)
	}
	return v
}

func node(t *testing.T, v any) yaml.Node {
	t.Helper()
	n, err := NewSection(v)
	if err != nil {
		t.Fatalf("NewSection: %v", err)
	}
	return n
}

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(paths.Layout{Dir: t.TempDir()})
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	s := newStore(t)
	write(t, s.ConfigPath, sampleConfig)

	cfg, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.ModelNames(); !reflect.DeepEqual(got, []string{"llama-fast", "qwen-coder"}) {
		t.Errorf("ModelNames: got %v", got)
	}
	if cfg.ModelList[0].Params.APIBase != "http://localhost:11434" {
		t.Errorf("APIBase: got %q", cfg.ModelList[0].Params.APIBase)
	}
	if got := value(t, cfg.ModelList[0].Params.Extra["rpm"]); got != 60 {
		t.Errorf("params extra rpm: got %v", got)
	}
	if _, ok := cfg.Extra["environment_variables"]; !ok {
		t.Error("unknown top-level key environment_variables was dropped")
	}
	settings, ok := value(t, cfg.LiteLLMSettings).(map[string]any)
	if !ok || settings["drop_params"] != true {
		t.Errorf("litellm_settings: got %#v", settings)
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	s := newStore(t)
	write(t, s.ConfigPath, sampleConfig)

	orig, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := s.SaveConfig(orig); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(got, orig) {
		t.Errorf("round trip changed config:\n got  %#v\n want %#v", got, orig)
	}
}

func TestConfig_SaveLeavesNoTempFiles(t *testing.T) {
	s := newStore(t)
	cfg := Config{ModelList: []ModelEntry{{ModelName: "m", Params: LiteLLMParams{Model: "x", APIBase: "http://h"}}}}
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(s.ConfigPath))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	data, _ := os.ReadFile(s.ConfigPath)
	if strings.Contains(string(data), "null") {
		t.Errorf("absent opaque sections written as null:\n%s", data)
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := newStore(t).LoadConfig()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLoadConfig_ParseErrors(t *testing.T) {
	tests := map[string]string{
		"malformed yaml":     "model_list: [\n  - broken",
		"missing model_list": "litellm_settings:\n  drop_params: true\n",
		"empty document":     "",
		"wrong type":         "model_list: 42\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			write(t, s.ConfigPath, content)
			_, err := s.LoadConfig()
			if !errors.Is(err, ErrParse) {
				t.Fatalf("want ErrParse, got %v", err)
			}
		})
	}
}

func TestLoadConfig_EmptyModelListIsNotAParseError(t *testing.T) {
	s := newStore(t)
	write(t, s.ConfigPath, "model_list: []\n")
	cfg, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.ModelList) != 0 {
		t.Errorf("got %d models", len(cfg.ModelList))
	}
}

func TestSaveConfig_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the config directory should be.
	blocker := filepath.Join(dir, "blocked")
	write(t, blocker, "x")
	s := NewStore(paths.Layout{Dir: blocker})

	err := s.SaveConfig(Config{})
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("want ErrWrite, got %v", err)
	}
}

func TestLoadPolicy_MissingSubPoliciesAreZero(t *testing.T) {
	s := newStore(t)
	write(t, s.PolicyPath, samplePolicy)

	p, err := s.LoadPolicy()
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if p.Version != "1.0" {
		t.Errorf("Version: got %q", p.Version)
	}
	if !p.Privacy.Enabled || p.Privacy.SensitiveModel != "llama-fast" || p.Privacy.EntropyThreshold != 4.5 {
		t.Errorf("Privacy: got %+v", p.Privacy)
	}
	if !reflect.DeepEqual(p.Complexity, ComplexityPolicy{}) {
		t.Errorf("Complexity: want zero value, got %+v", p.Complexity)
	}
	if len(p.Injection.Patterns) != 1 || p.Injection.BlockOnInjection {
		t.Errorf("Injection: got %+v", p.Injection)
	}
}

func TestPolicy_RoundTripCreatesRoutingDir(t *testing.T) {
	s := newStore(t)
	p := Policy{
		Version:    "2",
		Complexity: ComplexityPolicy{Enabled: true, SimpleMaxTokens: 200, MediumMaxTokens: 2000, CodeSignals: []string{"def ", "func "}},
		Routing:    node(t, map[string]any{"default": "llama-fast"}),
		Extra:      Extra{"experimental": node(t, map[string]any{"shadow": true})},
	}
	if err := s.SavePolicy(p); err != nil {
		t.Fatalf("SavePolicy: %v", err)
	}
	got, err := s.LoadPolicy()
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if got.Version != "2" || got.Complexity.SimpleMaxTokens != 200 || got.Complexity.MediumMaxTokens != 2000 {
		t.Errorf("Complexity: got %+v", got.Complexity)
	}
	if !reflect.DeepEqual(got.Complexity.CodeSignals, p.Complexity.CodeSignals) {
		t.Errorf("CodeSignals: got %q", got.Complexity.CodeSignals)
	}
	if !reflect.DeepEqual(value(t, got.Routing), value(t, p.Routing)) {
		t.Errorf("Routing: got %#v", value(t, got.Routing))
	}
	if !reflect.DeepEqual(value(t, got.Extra["experimental"]), map[string]any{"shadow": true}) {
		t.Errorf("Extra: got %#v", got.Extra)
	}

	// A second save of what was loaded is stable.
	if err := s.SavePolicy(got); err != nil {
		t.Fatalf("second SavePolicy: %v", err)
	}
	again, err := s.LoadPolicy()
	if err != nil {
		t.Fatalf("second LoadPolicy: %v", err)
	}
	if !reflect.DeepEqual(again, got) {
		t.Errorf("second round trip:\n got  %#v\n want %#v", again, got)
	}
}

func TestLoadPolicy_Errors(t *testing.T) {
	s := newStore(t)
	if _, err := s.LoadPolicy(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: want ErrNotFound, got %v", err)
	}
	write(t, s.PolicyPath, "privacy: [not, a, map]\n")
	if _, err := s.LoadPolicy(); !errors.Is(err, ErrParse) {
		t.Fatalf("malformed: want ErrParse, got %v", err)
	}
}

func TestConfig_JSONKeepsExtraFields(t *testing.T) {
	in := `{"model_list":[{"model_name":"a","litellm_params":{"model":"m","api_base":"http://x","timeout":30},"tpm":1000}],"router_settings":{"num_retries":2},"environment_variables":{"K":"V"}}`

	var cfg Config
	if err := json.Unmarshal([]byte(in), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := value(t, cfg.ModelList[0].Extra["tpm"]); got != 1000 {
		t.Errorf("entry extra: got %v", got)
	}
	if got := value(t, cfg.ModelList[0].Params.Extra["timeout"]); got != 30 {
		t.Errorf("params extra: got %v", got)
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var a, b map[string]any
	_ = json.Unmarshal([]byte(in), &a)
	_ = json.Unmarshal(out, &b)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("json round trip:\n got  %s\n want %s", out, in)
	}
}

const scalarConfig = `model_list:
  - model_name: llama-fast
    litellm_params:
      model: ollama/llama3.2:3b
      api_base: http://localhost:11434
      temperature: 0.0
litellm_settings: {temperature: 1.0}
router_settings: null
general_settings:
  ratio: 2.0
  retries: 2
`

func TestConfig_RoundTripKeepsScalarTypesAndNulls(t *testing.T) {
	s := newStore(t)
	write(t, s.ConfigPath, scalarConfig)

	orig, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := s.SaveConfig(orig); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	data, err := os.ReadFile(s.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"temperature: 1.0", "router_settings: null", "ratio: 2.0", "retries: 2", "temperature: 0.0"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("saved file missing %q:\n%s", want, data)
		}
	}

	got, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(got, orig) {
		t.Errorf("round trip changed config:\n got  %#v\n want %#v", got, orig)
	}
	general, _ := value(t, got.GeneralSettings).(map[string]any)
	if _, ok := general["ratio"].(float64); !ok {
		t.Errorf("ratio: got %T, want float64", general["ratio"])
	}
	if _, ok := general["retries"].(int); !ok {
		t.Errorf("retries: got %T, want int", general["retries"])
	}
	if got.RouterSettings.Kind == 0 || got.RouterSettings.ShortTag() != "!!null" {
		t.Errorf("router_settings: want explicit null, got kind %v tag %q", got.RouterSettings.Kind, got.RouterSettings.ShortTag())
	}
}

func TestConfig_JSONKeepsScalarTypesAndNulls(t *testing.T) {
	s := newStore(t)
	write(t, s.ConfigPath, scalarConfig)
	cfg, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"temperature":1.0`, `"router_settings":null`, `"ratio":2.0`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("json missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(string(out), `"Kind"`) {
		t.Errorf("json leaks node fields:\n%s", out)
	}

	// What a client PUTs back is saved with the same scalar types.
	var back Config
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.SaveConfig(back); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	data, err := os.ReadFile(s.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"temperature: 1.0", "router_settings: null", "ratio: 2.0"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("saved file missing %q:\n%s", want, data)
		}
	}
}

func TestConfig_AbsentSectionsStayAbsent(t *testing.T) {
	s := newStore(t)
	cfg := Config{ModelList: []ModelEntry{{ModelName: "m", Params: LiteLLMParams{Model: "x", APIBase: "http://h"}}}}
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	data, err := os.ReadFile(s.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"litellm_settings", "router_settings", "general_settings"} {
		if strings.Contains(string(data), key) {
			t.Errorf("absent section %s was written:\n%s", key, data)
		}
	}
	out, _ := json.Marshal(cfg)
	if strings.Contains(string(out), "settings") {
		t.Errorf("absent sections in json: %s", out)
	}
}
