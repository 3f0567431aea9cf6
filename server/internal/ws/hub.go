package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aicommandcenter/aicc/server/internal/api"
	"github.com/aicommandcenter/aicc/server/internal/store"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10

	// queueDepth is how many snapshots may wait for a slow client before
	// the hub drops it.
	queueDepth = 16
)

// Causes reported in Message.Cause.
const (
	CauseConnect = "connect"
	CauseTick    = "tick"
	CausePoll    = "poll"
)

// Message is the JSON envelope pushed to clients.
type Message struct {
	Event string               `json:"event"`
	Cause string               `json:"cause"`
	Data  api.SnapshotResponse `json:"data"`
}

// Hub streams service snapshots to websocket clients. All client
// bookkeeping and every send happen on the goroutine running Run; other
// goroutines only hand it requests through channels.
type Hub struct {
	store    *store.Store
	interval time.Duration
	upgrader websocket.Upgrader

	join  chan *session
	leave chan *session
	poll  chan struct{} // buffered 1; coalesces poll notifications
	done  chan struct{} // closed when Run returns

	clients atomic.Int32
}

// session is one connected client. out is written and closed only by Run.
type session struct {
	conn *websocket.Conn
	out  chan []byte
}

// New returns a Hub reading from st that refreshes clients every interval.
// checkOrigin vets the Origin header of upgrade requests; nil keeps
// gorilla's same-host check.
func New(st *store.Store, interval time.Duration, checkOrigin func(*http.Request) bool) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		join:  make(chan *session),
		leave: make(chan *session),
		poll:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Broadcast asks Run to push a fresh snapshot, typically right after a poll.
// It never blocks; calls made while one is pending are merged.
func (h *Hub) Broadcast() {
	select {
	case h.poll <- struct{}{}:
	default:
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	return int(h.clients.Load())
}

// Run owns the client set until ctx is cancelled, then disconnects every
// client. Upgrades block until Run is running.
func (h *Hub) Run(ctx context.Context) {
	tick := time.NewTicker(h.interval)
	defer tick.Stop()

	sessions := make(map[*session]struct{})
	drop := func(s *session) {
		if _, ok := sessions[s]; !ok {
			return
		}
		delete(sessions, s)
		close(s.out)
		h.clients.Store(int32(len(sessions)))
	}
	push := func(cause string, targets ...*session) {
		msg, err := h.encode(cause)
		if err != nil {
			slog.Error("ws: encode snapshot", "err", err)
			return
		}
		for _, s := range targets {
			select {
			case s.out <- msg:
			default:
				slog.Warn("ws: client too slow, disconnecting", "remote", s.conn.RemoteAddr().String())
				drop(s)
			}
		}
	}
	all := func() []*session {
		list := make([]*session, 0, len(sessions))
		for s := range sessions {
			list = append(list, s)
		}
		return list
	}

	defer func() {
		for s := range sessions {
			drop(s)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.join:
			sessions[s] = struct{}{}
			h.clients.Store(int32(len(sessions)))
			push(CauseConnect, s)
		case s := <-h.leave:
			drop(s)
		case <-h.poll:
			if len(sessions) > 0 {
				push(CausePoll, all()...)
			}
		case <-tick.C:
			if len(sessions) > 0 {
				push(CauseTick, all()...)
			}
		}
	}
}

// ServeHTTP upgrades the request and streams snapshots until the client
// goes away or the hub stops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already replied
	}
	s := &session{conn: conn, out: make(chan []byte, queueDepth)}

	select {
	case h.join <- s:
	case <-h.done:
		conn.Close()
		return
	}

	go s.writeLoop()
	s.readLoop()

	select {
	case h.leave <- s:
	case <-h.done:
	}
}

func (h *Hub) encode(cause string) ([]byte, error) {
	return json.Marshal(Message{
		Event: "snapshot",
		Cause: cause,
		Data:  api.BuildSnapshot(h.store.List(), time.Now()),
	})
}

// writeLoop sends queued snapshots and keepalive pings. It exits when out is
// closed or a write fails, closing the connection either way.
func (s *session) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		var err error
		select {
		case msg, ok := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")) //nolint:errcheck
				return
			}
			err = s.conn.WriteMessage(websocket.TextMessage, msg)
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = s.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// readLoop discards client frames; it exists to process pongs and notice
// when the client disconnects.
func (s *session) readLoop() {
	defer s.conn.Close()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			return
		}
	}
}
