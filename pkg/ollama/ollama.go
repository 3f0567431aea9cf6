// Package ollama manages the local model runner's model inventory through
// its command-line client.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aicommandcenter/aicc/pkg/runner"
)

// Binary is the model runner's command-line client.
const Binary = "ollama"

// ErrCommand indicates the client ran but reported failure. The wrapped
// message is the client's stderr.
var ErrCommand = errors.New("ollama: command failed")

// Model is one installed model as reported by `ollama list`.
type Model struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Size     string `json:"size"`
	Modified string `json:"modified"`
}

// Client runs the model runner's CLI.
type Client struct {
	runner runner.Runner
}

// New returns a Client using r, or the os/exec runner when r is nil.
func New(r runner.Runner) *Client {
	if r == nil {
		r = runner.Exec{}
	}
	return &Client{runner: r}
}

// List returns the installed models.
func (c *Client) List(ctx context.Context) ([]Model, error) {
	out, err := c.run(ctx, "list")
	if err != nil {
		return nil, err
	}
	return ParseList(out), nil
}

// Pull downloads name.
func (c *Client) Pull(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("ollama: pull: model name is empty")
	}
	_, err := c.run(ctx, "pull", name)
	return err
}

// Remove deletes name.
func (c *Client) Remove(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("ollama: rm: model name is empty")
	}
	_, err := c.run(ctx, "rm", name)
	return err
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	res, err := c.runner.Run(ctx, Binary, args...)
	if err != nil {
		return "", fmt.Errorf("ollama: %s: %w", args[0], err)
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		return "", fmt.Errorf("%w: %s: %s", ErrCommand, runner.CommandLine(Binary, args...), msg)
	}
	return string(res.Stdout), nil
}

// ParseList parses the table printed by `ollama list`:
//
//	NAME               ID              SIZE      MODIFIED
//	llama3.2:3b        a80c4f17acd5    2.0 GB    3 days ago
//
// The header and blank lines are skipped, as are rows with too few columns.
// SIZE is a number followed by a unit; both are kept.
func ParseList(out string) []Model {
	models := []Model{}
	lines := strings.Split(out, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		m := Model{Name: fields[0], ID: fields[1]}
		rest := fields[2:]
		if len(rest) >= 3 && isUnit(rest[1]) {
			m.Size = rest[0] + " " + rest[1]
			rest = rest[2:]
		} else {
			m.Size = rest[0]
			rest = rest[1:]
		}
		m.Modified = strings.Join(rest, " ")
		models = append(models, m)
	}
	return models
}

func isUnit(s string) bool {
	switch strings.ToUpper(s) {
	case "B", "KB", "MB", "GB", "TB":
		return true
	}
	return false
}
