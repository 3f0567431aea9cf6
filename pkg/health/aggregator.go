// Package health fans out the five service probes concurrently and merges
// their results into one types.AggregateHealth.
package health

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/aicommandcenter/aicc/pkg/probe"
	"github.com/aicommandcenter/aicc/pkg/types"
)

// Aggregator holds one Prober per service. It is immutable after New and safe
// for concurrent use; GetAll may be called from many goroutines at once.
type Aggregator struct {
	probers map[types.ServiceID]probe.Prober
	names   map[types.ServiceID]string
}

// New builds an Aggregator from targets. Every service in types.Services must
// end up with a prober: services missing from targets fall back to
// probe.DefaultTargets, and targets for unknown services are ignored.
func New(targets []probe.Target, opts probe.Options) *Aggregator {
	byService := make(map[types.ServiceID]probe.Target, len(types.Services))
	for _, t := range probe.DefaultTargets() {
		byService[t.Service] = t
	}
	for _, t := range targets {
		if _, ok := byService[t.Service]; !ok {
			slog.Warn("health: ignoring target for unknown service", "service", t.Service)
			continue
		}
		byService[t.Service] = t
	}

	a := &Aggregator{
		probers: make(map[types.ServiceID]probe.Prober, len(byService)),
		names:   make(map[types.ServiceID]string, len(byService)),
	}
	for id, t := range byService {
		a.probers[id] = probe.New(t, opts)
		a.names[id] = t.Name
	}
	return a
}

// NewWithProbers builds an Aggregator from ready-made probers. Services
// without a prober report unhealthy on every call.
func NewWithProbers(probers map[types.ServiceID]probe.Prober) *Aggregator {
	a := &Aggregator{
		probers: make(map[types.ServiceID]probe.Prober, len(probers)),
		names:   make(map[types.ServiceID]string, len(types.Services)),
	}
	for id, p := range probers {
		a.probers[id] = p
	}
	for _, id := range types.Services {
		a.names[id] = string(id)
	}
	return a
}

// GetAll runs every probe concurrently and returns once all of them finished.
// Total latency is bounded by the slowest probe, not their sum. A failing or
// panicking probe only affects its own slot.
func (a *Aggregator) GetAll(ctx context.Context) types.AggregateHealth {
	results := make([]types.HealthStatus, len(types.Services))

	var g errgroup.Group
	for i, id := range types.Services {
		g.Go(func() error {
			results[i] = a.run(ctx, id)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	var agg types.AggregateHealth
	for i, id := range types.Services {
		agg = agg.With(id, results[i])
	}
	return agg
}

// Probe runs the probe for a single service.
func (a *Aggregator) Probe(ctx context.Context, id types.ServiceID) (types.HealthStatus, error) {
	if _, err := types.ParseServiceID(string(id)); err != nil {
		return types.HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	return a.run(ctx, id), nil
}

func (a *Aggregator) run(ctx context.Context, id types.ServiceID) (st types.HealthStatus) {
	name := a.names[id]
	if name == "" {
		name = string(id)
	}

	p, ok := a.probers[id]
	if !ok {
		return probe.Unhealthy(name, types.FailureConfig, "Error: no probe configured")
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("health: probe panicked", "service", id, "panic", r)
			st = probe.Unhealthy(name, types.FailureInternal, fmt.Sprintf("Error: probe panicked: %v", r))
		}
	}()
	return p.Probe(ctx)
}
