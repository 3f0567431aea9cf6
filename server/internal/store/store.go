package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aicommandcenter/aicc/pkg/types"
)

// UptimeWindow is the number of recent poll outcomes tracked for uptime %.
const UptimeWindow = 20

// Entry is a service's latest status together with the time it was recorded.
type Entry struct {
	Service   types.ServiceID    `json:"id"`
	Status    types.HealthStatus `json:"status"`
	UpdatedAt time.Time          `json:"updated_at"`

	// UptimePct is the share of healthy outcomes among the last UptimeWindow
	// polls, 0-100.
	UptimePct float64 `json:"uptime_pct"`
	Polls     int     `json:"polls"`
}

type serviceState struct {
	entry   Entry
	history []bool // newest last, at most UptimeWindow long
}

// Store is a thread-safe in-memory status store, keyed by service.
// A background goroutine (Run) periodically evicts entries that have not
// been updated within the configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[types.ServiceID]*serviceState
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[types.ServiceID]*serviceState),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put records one poll outcome for id.
func (s *Store) Put(id types.ServiceID, st types.HealthStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(id, st, s.now())
}

// PutAll records one poll outcome for every service in agg, all stamped with
// the same time.
func (s *Store) PutAll(agg types.AggregateHealth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, id := range types.Services {
		st, _ := agg.Get(id)
		s.put(id, st, now)
	}
}

func (s *Store) put(id types.ServiceID, st types.HealthStatus, now time.Time) {
	state, ok := s.data[id]
	if !ok {
		state = &serviceState{}
		s.data[id] = state
	}
	if len(state.history) >= UptimeWindow {
		state.history = state.history[1:]
	}
	state.history = append(state.history, st.Healthy)

	state.entry = Entry{
		Service:   id,
		Status:    st,
		UpdatedAt: now,
		UptimePct: uptimePct(state.history),
		Polls:     state.entry.Polls + 1,
	}
}

func uptimePct(history []bool) float64 {
	if len(history) == 0 {
		return 0
	}
	ok := 0
	for _, h := range history {
		if h {
			ok++
		}
	}
	return float64(ok) / float64(len(history)) * 100
}

// Get returns the Entry for id and whether one was found. The entry may be
// stale if the TTL has elapsed.
func (s *Store) Get(id types.ServiceID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.data[id]
	if !ok {
		return Entry{}, false
	}
	return state.entry, true
}

// List returns the entries whose UpdatedAt is within the TTL, in
// types.Services order. Stale entries that have not yet been evicted are
// excluded.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]Entry, 0, len(s.data))
	for _, id := range types.Services {
		state, ok := s.data[id]
		if ok && state.entry.UpdatedAt.After(cutoff) {
			out = append(out, state.entry)
		}
	}
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, state := range s.data {
		if !state.entry.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second) so entries are evicted promptly. Run blocks until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale entries", "count", n)
			}
		}
	}
}
