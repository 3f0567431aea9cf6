package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/aicommandcenter/aicc/pkg/runner"
	"github.com/aicommandcenter/aicc/pkg/types"
)

type commandProbe struct {
	target  Target
	runner  runner.Runner
	timeout time.Duration
}

// Probe runs the target's health command and compares trimmed stdout with
// the expected literal.
func (p *commandProbe) Probe(ctx context.Context) types.HealthStatus {
	name := p.target.Name
	if len(p.target.Command) == 0 {
		return Unhealthy(name, types.FailureConfig, "Error: no health command configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.runner.Run(ctx, p.target.Command[0], p.target.Command[1:]...)
	if err != nil {
		return Unhealthy(name, commandFailure(err), fmt.Sprintf("Error: %v", err))
	}

	out := strings.TrimSpace(string(res.Stdout))
	if out == p.target.Expect {
		return types.HealthStatus{Service: name, Healthy: true, Message: out}
	}
	return Unhealthy(name, types.FailureReply, fmt.Sprintf("Unexpected response: %s", out))
}

func commandFailure(err error) types.Failure {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return types.FailureNoCommand
	case errors.Is(err, context.DeadlineExceeded):
		return types.FailureTimeout
	default:
		return types.FailureCommand
	}
}
