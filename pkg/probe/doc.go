// Package probe runs a single health check against one backend and normalizes
// the outcome into a types.HealthStatus.
//
// Two kinds of target are supported:
//   - http: GET the endpoint; 2xx is healthy. Latency is recorded whenever a
//     response arrived, including non-2xx responses.
//   - command: run a CLI health command (redis-cli ping) and compare trimmed
//     stdout with an expected literal. No latency is recorded.
//
// Probes never return errors. Transport failures, timeouts, unbuildable
// clients and spawn failures all degrade to an unhealthy status so that the
// aggregator can always fill every slot.
//
// DefaultTargets returns the five well-known local endpoints.
package probe
