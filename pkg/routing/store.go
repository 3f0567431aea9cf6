package routing

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aicommandcenter/aicc/pkg/paths"
)

var (
	// ErrNotFound indicates the document does not exist on disk.
	ErrNotFound = errors.New("routing: document not found")

	// ErrParse indicates the document exists but is not valid.
	ErrParse = errors.New("routing: parse failure")

	// ErrWrite indicates the document could not be persisted.
	ErrWrite = errors.New("routing: write failure")
)

// Store reads and writes the routing documents of one config directory.
// It holds no cached state; every call goes to disk.
type Store struct {
	ConfigPath string
	PolicyPath string
}

// NewStore returns a Store for the documents in layout.
func NewStore(layout paths.Layout) *Store {
	return &Store{
		ConfigPath: layout.ConfigFile(),
		PolicyPath: layout.PolicyFile(),
	}
}

// LoadConfig reads and parses the routing config.
func (s *Store) LoadConfig() (Config, error) {
	var cfg Config
	data, err := readDocument(s.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrParse, s.ConfigPath, err)
	}
	if cfg.ModelList == nil {
		var keys map[string]any
		if err := yaml.Unmarshal(data, &keys); err != nil || keys == nil || !hasKey(keys, "model_list") {
			return Config{}, fmt.Errorf("%w: %s: missing field model_list", ErrParse, s.ConfigPath)
		}
	}
	cfg.forgetPositions()
	return cfg, nil
}

// SaveConfig atomically replaces the routing config with cfg.
func (s *Store) SaveConfig(cfg Config) error {
	return writeDocument(s.ConfigPath, cfg)
}

// LoadPolicy reads and parses the routing policy.
func (s *Store) LoadPolicy() (Policy, error) {
	var p Policy
	data, err := readDocument(s.PolicyPath)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("%w: %s: %w", ErrParse, s.PolicyPath, err)
	}
	p.forgetPositions()
	return p, nil
}

// SavePolicy atomically replaces the routing policy with p, creating the
// routing directory if needed.
func (s *Store) SavePolicy(p Policy) error {
	return writeDocument(s.PolicyPath, p)
}

func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("routing: read %q: %w", path, err)
	}
	return data, nil
}

// writeDocument encodes doc as YAML and renames a fully written temp file
// over path, so file watchers never see a partial document.
func writeDocument(path string, doc any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrWrite, path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrWrite, path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
