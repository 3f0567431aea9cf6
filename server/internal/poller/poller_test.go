package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aicommandcenter/aicc/pkg/types"
	"github.com/aicommandcenter/aicc/server/internal/store"
)

type fakeSource struct {
	calls   atomic.Int32
	healthy bool
}

func (f *fakeSource) GetAll(context.Context) types.AggregateHealth {
	f.calls.Add(1)
	var agg types.AggregateHealth
	for _, id := range types.Services {
		agg = agg.With(id, types.HealthStatus{Service: string(id), Healthy: f.healthy, Message: "OK"})
	}
	return agg
}

type recorder struct {
	got [][]store.Entry
}

func (r *recorder) EvaluateAll(entries []store.Entry) { r.got = append(r.got, entries) }

func TestPoll_StoresAndEvaluates(t *testing.T) {
	src := &fakeSource{healthy: true}
	st := store.New(time.Minute)
	rec := &recorder{}
	p := New(src, st, rec, time.Hour)

	var hooked bool
	p.OnPoll(func(types.AggregateHealth) { hooked = true })

	p.Poll(context.Background())

	if st.Count() != len(types.Services) {
		t.Errorf("store count: got %d, want %d", st.Count(), len(types.Services))
	}
	if len(rec.got) != 1 || len(rec.got[0]) != len(types.Services) {
		t.Errorf("evaluator: got %+v", rec.got)
	}
	if !hooked {
		t.Error("OnPoll hook not called")
	}
}

func TestPoll_CancelledContextSkipsStore(t *testing.T) {
	src := &fakeSource{}
	st := store.New(time.Minute)
	p := New(src, st, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Poll(ctx)

	if st.Count() != 0 {
		t.Errorf("store written after cancellation: %d entries", st.Count())
	}
}

func TestRun_PollsImmediatelyThenOnInterval(t *testing.T) {
	src := &fakeSource{healthy: true}
	st := store.New(time.Minute)
	p := New(src, st, nil, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if n := src.calls.Load(); n < 3 {
		t.Errorf("polls: got %d, want at least 3", n)
	}
}
