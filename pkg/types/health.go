package types

import "fmt"

// ServiceID identifies one of the managed services. The set is closed: the
// control surface knows exactly five backends.
type ServiceID string

const (
	ServiceRouter      ServiceID = "router"
	ServiceGateway     ServiceID = "litellm"
	ServiceModelRunner ServiceID = "ollama"
	ServiceCache       ServiceID = "redis"
	ServiceTelemetry   ServiceID = "langfuse"
)

// Services lists every ServiceID in display order.
var Services = []ServiceID{
	ServiceRouter,
	ServiceGateway,
	ServiceModelRunner,
	ServiceCache,
	ServiceTelemetry,
}

// ParseServiceID returns the ServiceID named by s.
func ParseServiceID(s string) (ServiceID, error) {
	for _, id := range Services {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown service %q", s)
}

// HealthStatus is the normalized outcome of one probe. It is immutable once
// built. LatencyMS is nil when no timed round-trip happened (transport
// failure, CLI probes).
type HealthStatus struct {
	Service   string  `json:"service"`
	Healthy   bool    `json:"healthy"`
	Message   string  `json:"message"`
	LatencyMS *uint64 `json:"latency_ms"`

	// Failure classifies an unhealthy status; empty when healthy.
	Failure Failure `json:"failure,omitempty"`
}

// Failure is the machine-readable reason a probe failed. Message carries
// the human-readable text.
type Failure string

const (
	// FailureRefused: nothing is listening.
	FailureRefused Failure = "refused"
	// FailureTimeout: no answer within the probe timeout.
	FailureTimeout Failure = "timeout"
	// FailureUnreachable: any other transport error.
	FailureUnreachable Failure = "unreachable"
	// FailureStatus: the HTTP endpoint answered with a non-2xx status.
	FailureStatus Failure = "bad_status"
	// FailureNoCommand: the health command is not installed.
	FailureNoCommand Failure = "no_command"
	// FailureCommand: the health command could not be run.
	FailureCommand Failure = "command"
	// FailureReply: the health command printed something unexpected.
	FailureReply Failure = "unexpected_reply"
	// FailureConfig: the probe itself could not be built.
	FailureConfig Failure = "config"
	// FailureInternal: the probe panicked.
	FailureInternal Failure = "internal"
)

// Latency returns the recorded latency and whether one was recorded.
func (h HealthStatus) Latency() (uint64, bool) {
	if h.LatencyMS == nil {
		return 0, false
	}
	return *h.LatencyMS, true
}

// Millis returns a pointer suitable for HealthStatus.LatencyMS.
func Millis(ms uint64) *uint64 {
	return &ms
}

// AggregateHealth holds one HealthStatus per managed service. Every slot is
// always populated; a failed probe leaves an unhealthy status, never a gap.
type AggregateHealth struct {
	Router      HealthStatus `json:"router"`
	Gateway     HealthStatus `json:"litellm"`
	ModelRunner HealthStatus `json:"ollama"`
	Cache       HealthStatus `json:"redis"`
	Telemetry   HealthStatus `json:"langfuse"`
}

// Get returns the status stored for id.
func (a AggregateHealth) Get(id ServiceID) (HealthStatus, bool) {
	switch id {
	case ServiceRouter:
		return a.Router, true
	case ServiceGateway:
		return a.Gateway, true
	case ServiceModelRunner:
		return a.ModelRunner, true
	case ServiceCache:
		return a.Cache, true
	case ServiceTelemetry:
		return a.Telemetry, true
	default:
		return HealthStatus{}, false
	}
}

// With returns a copy of a with the slot for id replaced by st.
func (a AggregateHealth) With(id ServiceID, st HealthStatus) AggregateHealth {
	switch id {
	case ServiceRouter:
		a.Router = st
	case ServiceGateway:
		a.Gateway = st
	case ServiceModelRunner:
		a.ModelRunner = st
	case ServiceCache:
		a.Cache = st
	case ServiceTelemetry:
		a.Telemetry = st
	}
	return a
}

// AllHealthy reports whether every slot is healthy.
func (a AggregateHealth) AllHealthy() bool {
	for _, id := range Services {
		if st, _ := a.Get(id); !st.Healthy {
			return false
		}
	}
	return true
}
