// Package poller runs the aggregator on a fixed interval and feeds each
// result to the status store and the alert engine.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/aicommandcenter/aicc/pkg/types"
	"github.com/aicommandcenter/aicc/server/internal/store"
)

// Source produces one aggregate health result per call.
type Source interface {
	GetAll(ctx context.Context) types.AggregateHealth
}

// Evaluator receives the store entries after every poll.
type Evaluator interface {
	EvaluateAll(entries []store.Entry)
}

// Poller periodically records aggregate health.
type Poller struct {
	source   Source
	store    *store.Store
	alerts   Evaluator
	interval time.Duration
	onPoll   func(types.AggregateHealth)
}

// New returns a Poller. alerts may be nil.
func New(source Source, st *store.Store, alerts Evaluator, interval time.Duration) *Poller {
	return &Poller{source: source, store: st, alerts: alerts, interval: interval}
}

// OnPoll registers fn to run after every poll, once results are stored.
func (p *Poller) OnPoll(fn func(types.AggregateHealth)) {
	p.onPoll = fn
}

// Run polls immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Poll(ctx)

	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one aggregate probe and records the result.
func (p *Poller) Poll(ctx context.Context) types.AggregateHealth {
	start := time.Now()
	agg := p.source.GetAll(ctx)
	if ctx.Err() != nil {
		// Results cut short by shutdown would all read as failures.
		return agg
	}
	p.store.PutAll(agg)

	healthy := 0
	for _, id := range types.Services {
		if st, _ := agg.Get(id); st.Healthy {
			healthy++
		}
	}
	slog.Debug("poller: poll complete",
		"healthy", healthy,
		"total", len(types.Services),
		"elapsed", time.Since(start),
	)

	if p.alerts != nil {
		p.alerts.EvaluateAll(p.store.List())
	}
	if p.onPoll != nil {
		p.onPoll(agg)
	}
	return agg
}
