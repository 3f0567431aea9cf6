// Package paths resolves the on-disk layout shared by the daemon and the CLI:
//
//	~/.config/ai-command-center/
//	    config.yaml             routing config (model list + gateway settings)
//	    routing/policy.yaml     routing policy
//	    command-center.yaml     daemon settings
//	    logs/<service>.out.log  service logs
//
// AICC_CONFIG_DIR overrides the base directory.
package paths

import (
	"errors"
	"os"
	"path/filepath"
)

// EnvConfigDir names the environment variable that overrides the base directory.
const EnvConfigDir = "AICC_CONFIG_DIR"

// ErrNoHome is returned when neither AICC_CONFIG_DIR nor a home directory is available.
var ErrNoHome = errors.New("paths: could not find home directory")

// Layout is a resolved configuration directory.
type Layout struct {
	Dir string
}

// Default resolves the layout from the environment.
func Default() (Layout, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return Layout{Dir: dir}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return Layout{}, ErrNoHome
	}
	return Layout{Dir: filepath.Join(home, ".config", "ai-command-center")}, nil
}

// ConfigFile is the routing config document.
func (l Layout) ConfigFile() string { return filepath.Join(l.Dir, "config.yaml") }

// PolicyFile is the routing policy document.
func (l Layout) PolicyFile() string { return filepath.Join(l.Dir, "routing", "policy.yaml") }

// DaemonFile is the accd settings document.
func (l Layout) DaemonFile() string { return filepath.Join(l.Dir, "command-center.yaml") }

// LogsDir holds per-service log files.
func (l Layout) LogsDir() string { return filepath.Join(l.Dir, "logs") }
