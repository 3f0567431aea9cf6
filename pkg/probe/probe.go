package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/aicommandcenter/aicc/pkg/runner"
	"github.com/aicommandcenter/aicc/pkg/types"
)

var (
	// ErrUnreachable classifies a backend that could not be contacted.
	ErrUnreachable = errors.New("probe: unreachable")

	// ErrTimeout classifies a backend that did not answer within the timeout.
	ErrTimeout = errors.New("probe: timeout")
)

// Prober performs one health check. Implementations are safe for concurrent
// use and never block longer than their configured timeout.
type Prober interface {
	Probe(ctx context.Context) types.HealthStatus
}

// Options tunes probes built by New.
type Options struct {
	// Timeout bounds each probe. Zero means DefaultTimeout.
	Timeout time.Duration
	// Runner executes command probes. Nil means runner.Exec.
	Runner runner.Runner
}

// New returns the Prober for t. Construction never fails: a target whose
// client cannot be built yields a Prober that reports unhealthy.
func New(t Target, opts Options) Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Runner == nil {
		opts.Runner = runner.Exec{}
	}
	switch t.Kind {
	case KindHTTP:
		return newHTTPProbe(t, opts.Timeout)
	case KindCommand:
		return &commandProbe{target: t, runner: opts.Runner, timeout: opts.Timeout}
	default:
		return failed{name: t.Name, msg: fmt.Sprintf("Error: unsupported probe kind %q", t.Kind)}
	}
}

// Classify maps a transport error to ErrTimeout or ErrUnreachable.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrUnreachable
}

// FailureOf maps a transport error to the failure recorded on the status.
func FailureOf(err error) types.Failure {
	switch {
	case errors.Is(Classify(err), ErrTimeout):
		return types.FailureTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return types.FailureRefused
	default:
		return types.FailureUnreachable
	}
}

// Unhealthy builds a failed status with no latency.
func Unhealthy(name string, kind types.Failure, msg string) types.HealthStatus {
	return types.HealthStatus{Service: name, Healthy: false, Message: msg, Failure: kind}
}

// failed is a Prober that always reports the same unhealthy status.
type failed struct {
	name string
	msg  string
}

func (f failed) Probe(context.Context) types.HealthStatus {
	return Unhealthy(f.name, types.FailureConfig, f.msg)
}
