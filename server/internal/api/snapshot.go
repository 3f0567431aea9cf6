package api

import (
	"time"

	"github.com/aicommandcenter/aicc/server/internal/store"
)

// BuildSnapshot assembles the snapshot payload from live store entries.
// It is shared by GET /api/v1/snapshot and the websocket hub.
func BuildSnapshot(entries []store.Entry, now time.Time) SnapshotResponse {
	resp := SnapshotResponse{
		Services:     make([]ServiceResponse, 0, len(entries)),
		ServiceCount: len(entries),
		GeneratedAt:  now.UTC().Format(time.RFC3339),
	}
	for _, e := range entries {
		if e.Status.Healthy {
			resp.HealthyCount++
		}
		resp.Services = append(resp.Services, toServiceResponse(e))
	}
	return resp
}

func toServiceResponse(e store.Entry) ServiceResponse {
	return ServiceResponse{
		ID:          string(e.Service),
		Name:        e.Status.Service,
		Healthy:     e.Status.Healthy,
		Message:     e.Status.Message,
		LatencyMS:   e.Status.LatencyMS,
		UptimePct:   e.UptimePct,
		Polls:       e.Polls,
		Diagnostics: computeDiagnostics(e),
		LastSeen:    e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
