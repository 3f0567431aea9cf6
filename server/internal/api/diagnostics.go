package api

import (
	"fmt"
	"strings"

	"github.com/aicommandcenter/aicc/pkg/types"
	"github.com/aicommandcenter/aicc/server/internal/store"
)

// slowThresholdMS marks a healthy response as slow.
const slowThresholdMS = 1000

// DiagnosticHint is one human-readable insight about a service's health.
// The UI displays these as chips on the service card; clicking one shows
// Detail, a plain-English explanation of the problem and what to try.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint (e.g. latency).
	Value *float64 `json:"value,omitempty"`
}

// serviceHints describes where each service is expected to run.
var serviceHints = map[types.ServiceID]string{
	types.ServiceRouter:      "The Smart Router should listen on localhost:4000. Check router.out.log in the logs directory for startup errors.",
	types.ServiceGateway:     "LiteLLM should listen on localhost:4001. Check litellm.out.log in the logs directory; a bad config.yaml is the most common reason it exits at startup.",
	types.ServiceModelRunner: "Ollama should listen on localhost:11434. Start it with `ollama serve` or the desktop app.",
	types.ServiceCache:       "Redis should answer `redis-cli ping` on the default port 6379. Start it with `redis-server` or your service manager.",
	types.ServiceTelemetry:   "Langfuse should listen on localhost:3001. If it runs in Docker, check that the container is up with `docker ps`.",
}

// computeDiagnostics derives human-readable diagnostic hints from a store
// entry. Failure hints come first; uptime hints follow.
func computeDiagnostics(e store.Entry) []DiagnosticHint {
	hints := make([]DiagnosticHint, 0, 2)
	st := e.Status
	where := serviceHints[e.Service]

	switch {
	// ── Reachable and fast ──────────────────────────────────────────────────
	case st.Healthy:
		if ms, ok := st.Latency(); ok && ms >= slowThresholdMS {
			v := float64(ms)
			hints = append(hints, DiagnosticHint{
				Key:   "slow_response",
				Level: "warning",
				Title: fmt.Sprintf("Slow: %d ms", ms),
				Detail: fmt.Sprintf(
					"%s answered its health check, but it took %d ms. "+
						"A healthy local service usually answers in well under a second. "+
						"The machine may be under memory pressure, or a model is loading.",
					st.Service, ms,
				),
				Value: &v,
			})
		} else {
			hints = append(hints, DiagnosticHint{
				Key:    "ok",
				Level:  "ok",
				Title:  "Responding",
				Detail: fmt.Sprintf("%s answered its health check normally.", st.Service),
			})
		}

	// ── Not listening ───────────────────────────────────────────────────────
	case st.Failure == types.FailureRefused:
		hints = append(hints, DiagnosticHint{
			Key:    "not_running",
			Level:  "critical",
			Title:  "Not running",
			Detail: fmt.Sprintf("Nothing is accepting connections for %s. %s", st.Service, where),
		})

	// ── Listening but hanging ───────────────────────────────────────────────
	case st.Failure == types.FailureTimeout:
		hints = append(hints, DiagnosticHint{
			Key:   "timed_out",
			Level: "critical",
			Title: "Timed out",
			Detail: fmt.Sprintf(
				"%s did not answer within the probe timeout. The process may be hung "+
					"or still starting. %s", st.Service, where),
		})

	// ── Answered with an error status ───────────────────────────────────────
	case st.Failure == types.FailureStatus:
		hints = append(hints, DiagnosticHint{
			Key:   "bad_status",
			Level: "warning",
			Title: "Unhealthy status",
			Detail: fmt.Sprintf(
				"%s is running but reported %q. It is often still warming up or "+
					"cannot reach one of its own dependencies.",
				st.Service, strings.TrimPrefix(st.Message, "Status: ")),
		})

	// ── CLI probe could not start ───────────────────────────────────────────
	case st.Failure == types.FailureNoCommand:
		hints = append(hints, DiagnosticHint{
			Key:   "cli_missing",
			Level: "critical",
			Title: "CLI not installed",
			Detail: fmt.Sprintf(
				"The command used to check %s is not on PATH, so its health is unknown. "+
					"Install the client tools (for Redis: `brew install redis` or your "+
					"distribution's redis-tools package).", st.Service),
		})

	case st.Failure == types.FailureReply:
		hints = append(hints, DiagnosticHint{
			Key:   "unexpected_reply",
			Level: "warning",
			Title: "Unexpected reply",
			Detail: fmt.Sprintf(
				"%s answered, but not with the expected reply (%s). "+
					"It may require a password or be loading its dataset.",
				st.Service, strings.TrimPrefix(st.Message, "Unexpected response: ")),
		})

	// ── Anything else ───────────────────────────────────────────────────────
	default:
		hints = append(hints, DiagnosticHint{
			Key:    "unreachable",
			Level:  "critical",
			Title:  "Can't reach service",
			Detail: fmt.Sprintf("The last check failed with: %q. %s", st.Message, where),
		})
	}

	// ── Flapping ─────────────────────────────────────────────────────────────
	if e.Polls > 1 && e.UptimePct > 0 && e.UptimePct < 100 {
		v := e.UptimePct
		level := "info"
		if v < 90 {
			level = "warning"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "uptime",
			Level: level,
			Title: fmt.Sprintf("%.0f%% uptime", v),
			Detail: fmt.Sprintf(
				"%s passed %.0f%% of its recent health checks. Intermittent failures "+
					"usually mean the process is restarting or running out of memory.",
				st.Service, v),
			Value: &v,
		})
	}

	return hints
}
