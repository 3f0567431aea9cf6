package probe

import (
	"time"

	"github.com/aicommandcenter/aicc/pkg/types"
)

// DefaultTimeout bounds one HTTP probe, connect plus response.
const DefaultTimeout = 5 * time.Second

// Kind selects how a Target is probed.
type Kind string

const (
	KindHTTP    Kind = "http"
	KindCommand Kind = "command"
)

// Target describes one backend to probe.
type Target struct {
	// Service is the slot this target fills in the aggregate.
	Service types.ServiceID
	// Name is the human-readable service name reported in HealthStatus.Service.
	Name string
	Kind Kind

	// URL is the health endpoint for KindHTTP.
	URL string
	// CAFile optionally adds a PEM bundle to the trusted roots for https URLs.
	CAFile string
	// InsecureSkipVerify disables TLS verification for https URLs.
	InsecureSkipVerify bool

	// Command is argv for KindCommand.
	Command []string
	// Expect is the literal trimmed stdout that means healthy.
	Expect string
}

// DefaultTargets returns the fixed well-known endpoint for every service, in
// types.Services order.
func DefaultTargets() []Target {
	return []Target{
		{Service: types.ServiceRouter, Name: "Smart Router", Kind: KindHTTP, URL: "http://localhost:4000/health"},
		{Service: types.ServiceGateway, Name: "LiteLLM", Kind: KindHTTP, URL: "http://localhost:4001/health"},
		{Service: types.ServiceModelRunner, Name: "Ollama", Kind: KindHTTP, URL: "http://localhost:11434/api/tags"},
		{Service: types.ServiceCache, Name: "Redis", Kind: KindCommand, Command: []string{"redis-cli", "ping"}, Expect: "PONG"},
		{Service: types.ServiceTelemetry, Name: "Langfuse", Kind: KindHTTP, URL: "http://localhost:3001/api/public/health"},
	}
}
