package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aicommandcenter/aicc/pkg/probe"
	"github.com/aicommandcenter/aicc/pkg/types"
)

// Default values for the daemon configuration.
const (
	DefaultListen       = "127.0.0.1:7777"
	DefaultPollInterval = 15 * time.Second
	DefaultWSInterval   = 5 * time.Second
	DefaultSnapshotTTL  = 5 * time.Minute
	DefaultLogLevel     = "info"
	DefaultLogMaxSizeMB = 10
	DefaultLogBackups   = 3
	DefaultLogMaxAge    = 28
)

// DefaultAllowedOrigins covers the desktop UI and local dev servers.
var DefaultAllowedOrigins = []string{
	"tauri://localhost",
	"http://tauri.localhost",
	"https://tauri.localhost",
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// Config holds all accd settings.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Probes  ProbesConfig  `yaml:"probes"`
	Logging LoggingConfig `yaml:"logging"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

// ServerConfig controls the HTTP surface and the poll loop.
type ServerConfig struct {
	// Listen is the host:port for the REST API, websocket and /metrics.
	// Keep it on loopback: the API has no authentication.
	Listen string `yaml:"listen"`

	PollInterval time.Duration `yaml:"poll_interval"`

	// WSInterval is how often connected websocket clients receive a snapshot.
	WSInterval time.Duration `yaml:"ws_interval"`

	// AllowedOrigins lists the browser origins that may call the API and
	// open the websocket. An entry may contain one '*' wildcard. Requests
	// without an Origin header (CLI, curl) are not affected.
	AllowedOrigins []string `yaml:"allowed_origins"`

	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// SnapshotConfig controls in-memory status retention.
type SnapshotConfig struct {
	// TTL is how long a service entry stays in the store after its last
	// update. Default: 5m.
	TTL time.Duration `yaml:"ttl"`
}

// ProbesConfig tunes the health probes.
type ProbesConfig struct {
	Timeout time.Duration `yaml:"timeout"`

	// Services overrides the built-in target of a service, keyed by service id.
	Services map[string]ProbeOverride `yaml:"services"`
}

// ProbeOverride replaces parts of a service's built-in probe target. Empty
// fields keep the built-in value.
type ProbeOverride struct {
	URL                string   `yaml:"url"`
	Command            []string `yaml:"command"`
	Expect             string   `yaml:"expect"`
	CAFile             string   `yaml:"ca_file"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

// LoggingConfig controls accd's own log output.
type LoggingConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// File enables the rotated log file under the logs directory.
	File       bool `yaml:"file"`
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "healthy == false",
	// "latency_ms > 2000", "uptime_pct < 90".
	Condition string `yaml:"condition"`

	// Service restricts the rule to one service id. Empty matches all.
	Service string `yaml:"service"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Targets returns the probe target of every service with overrides applied,
// in types.Services order.
func (p ProbesConfig) Targets() []probe.Target {
	targets := probe.DefaultTargets()
	for i, t := range targets {
		o, ok := p.Services[string(t.Service)]
		if !ok {
			continue
		}
		if o.URL != "" {
			t.Kind = probe.KindHTTP
			t.URL = o.URL
			t.Command = nil
		}
		if len(o.Command) > 0 {
			t.Kind = probe.KindCommand
			t.Command = o.Command
			t.URL = ""
		}
		if o.Expect != "" {
			t.Expect = o.Expect
		}
		t.CAFile = o.CAFile
		t.InsecureSkipVerify = o.InsecureSkipVerify
		targets[i] = t
	}
	return targets
}

// Load reads and parses the config file at path. A missing file is not an
// error: the defaults are returned. Missing fields are filled with defaults
// before validation.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:         DefaultListen,
			PollInterval:   DefaultPollInterval,
			WSInterval:     DefaultWSInterval,
			AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
			Snapshot: SnapshotConfig{
				TTL: DefaultSnapshotTTL,
			},
		},
		Probes: ProbesConfig{
			Timeout: probe.DefaultTimeout,
		},
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			File:       true,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogBackups,
			MaxAgeDays: DefaultLogMaxAge,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if cfg.Server.PollInterval <= 0 {
		return fmt.Errorf("server.poll_interval must be positive")
	}
	if cfg.Server.WSInterval <= 0 {
		return fmt.Errorf("server.ws_interval must be positive")
	}
	if cfg.Server.Snapshot.TTL <= 0 {
		return fmt.Errorf("server.snapshot.ttl must be positive")
	}
	for i, o := range cfg.Server.AllowedOrigins {
		if o == "*" {
			return fmt.Errorf("server.allowed_origins[%d]: \"*\" would let any web page drive accd", i)
		}
		if strings.Count(o, "*") > 1 {
			return fmt.Errorf("server.allowed_origins[%d]: %q has more than one wildcard", i, o)
		}
	}
	if cfg.Probes.Timeout <= 0 {
		return fmt.Errorf("probes.timeout must be positive")
	}
	for id, o := range cfg.Probes.Services {
		if _, err := types.ParseServiceID(id); err != nil {
			return fmt.Errorf("probes.services: %w", err)
		}
		if o.URL != "" && len(o.Command) > 0 {
			return fmt.Errorf("probes.services.%s: url and command are mutually exclusive", id)
		}
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q unknown: want debug|info|warn|error", cfg.Logging.Level)
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d]: condition must not be empty", i)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d].severity %q unknown: want critical|warning|info", i, r.Severity)
		}
		if r.Service != "" {
			if _, err := types.ParseServiceID(r.Service); err != nil {
				return fmt.Errorf("alerts.rules[%d]: %w", i, err)
			}
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d].type %q unknown: want slack|teams|http", i, w.Type)
		}
	}
	return nil
}
