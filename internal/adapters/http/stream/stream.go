// Package stream pushes CoP readings to browsers over a websocket.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/balanceboard/internal/adapters/http/api"
	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/pkg/logger"
	"github.com/okian/balanceboard/pkg/metrics"
)

// Default stream timings.
const (
	DefaultInterval   = 50 * time.Millisecond
	DefaultPingPeriod = 30 * time.Second
	DefaultWriteWait  = 5 * time.Second
)

var upgrader = websocket.Upgrader{ //nolint:gochecknoglobals // shared upgrader
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Source is the read-only view of the latest reading.
type Source interface {
	Snapshot() (model.Snapshot, bool)
}

// Handler upgrades requests on /ws and streams each new reading as a
// CoP frame. Every connection polls the source on its own ticker and sends
// only when the sequence number has moved.
type Handler struct {
	src        Source
	interval   time.Duration
	pingPeriod time.Duration
	pongWait   time.Duration
	writeWait  time.Duration

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	wg    sync.WaitGroup

	logger logger.Logger
}

// New creates a stream handler reading from src.
func New(src Source, opts ...Option) *Handler {
	h := &Handler{
		src:        src,
		interval:   DefaultInterval,
		pingPeriod: DefaultPingPeriod,
		pongWait:   DefaultPingPeriod * 10 / 9,
		writeWait:  DefaultWriteWait,
		conns:      make(map[*websocket.Conn]struct{}),
		logger:     logger.Get().Named("stream"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register attaches the websocket route to mux.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.ServeHTTP)
}

// Clients returns the number of open connections.
func (h *Handler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// ServeHTTP upgrades the request and blocks until the client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(fmt.Errorf("%w: %w", ErrUpgrade, err)))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()
	metrics.AddStreamClients(1)

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		_ = conn.Close()
		metrics.AddStreamClients(-1)
		h.wg.Done()
	}()

	closed := make(chan struct{})
	go h.readPump(conn, closed)
	h.writePump(r.Context(), conn, closed)
}

// Shutdown closes all open connections and waits for their handlers to
// return.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	for c := range h.conns {
		deadline := time.Now().Add(h.writeWait)
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
		_ = c.Close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stream shutdown: %w", ctx.Err())
	}
}

// readPump drains client frames so control messages are processed and
// closes closed when the peer disconnects or stops answering pings.
func (h *Handler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, closed <-chan struct{}) {
	tick := time.NewTicker(h.interval)
	defer tick.Stop()
	ping := time.NewTicker(h.pingPeriod)
	defer ping.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-tick.C:
			snap, ok := h.src.Snapshot()
			if !ok || snap.Seq == last {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := conn.WriteJSON(api.NewCoPResponse(snap)); err != nil {
				h.logger.Debug(ctx, "stream write failed", logger.Error(fmt.Errorf("%w: %w", ErrWrite, err)))
				return
			}
			last = snap.Seq
			metrics.RecordStreamFrame()
		}
	}
}
