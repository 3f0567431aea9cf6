package api

import "github.com/aicommandcenter/aicc/pkg/types"

// ServiceResponse is one service entry in GET /api/v1/snapshot.
type ServiceResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Healthy     bool             `json:"healthy"`
	Message     string           `json:"message"`
	LatencyMS   *uint64          `json:"latency_ms"`
	UptimePct   float64          `json:"uptime_pct"`
	Polls       int              `json:"polls"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
	LastSeen    string           `json:"last_seen"` // RFC3339
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Services     []ServiceResponse `json:"services"`
	HealthyCount int               `json:"healthy_count"`
	ServiceCount int               `json:"service_count"`
	GeneratedAt  string            `json:"generated_at"` // RFC3339
}

// ServiceHealthResponse is the payload for GET /api/v1/health/{service}.
type ServiceHealthResponse struct {
	ID     types.ServiceID    `json:"id"`
	Status types.HealthStatus `json:"status"`
}

// LogsResponse is the payload for GET /api/v1/logs/{service}.
type LogsResponse struct {
	Service string   `json:"service"`
	Path    string   `json:"path"`
	Lines   []string `json:"lines"`
}

// SaveResponse confirms a document write.
type SaveResponse struct {
	Saved bool   `json:"saved"`
	Path  string `json:"path"`
}

// PullRequest is the body of POST /api/v1/models/pull.
type PullRequest struct {
	Name string `json:"name"`
}

// ModelActionResponse confirms a pull or remove.
type ModelActionResponse struct {
	Model  string `json:"model"`
	Action string `json:"action"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
