package theme

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

const (
	subscriberBuffer = 4
	writeTimeout     = 5 * time.Second
)

// Hub pushes theme swaps to pages connected over a websocket.
type Hub struct {
	mu      sync.Mutex
	subs    map[chan Swap]struct{}
	current func() (Link, bool)
	logger  *zap.Logger
	closed  bool
}

var _ Broadcaster = (*Hub)(nil)

// NewHub builds a hub. current, when set, reports the active link sent to
// each new subscriber.
func NewHub(current func() (Link, bool), logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[chan Swap]struct{}), current: current, logger: logger}
}

// Broadcast queues swap for every subscriber. Slow subscribers drop the
// oldest pending swap; only the latest one matters.
func (h *Hub) Broadcast(swap Swap) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- swap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- swap:
			default:
			}
		}
	}
}

// Subscribers reports the number of connected pages.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() (chan Swap, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan Swap, subscriberBuffer)
	h.subs[ch] = struct{}{}
	return ch, true
}

func (h *Hub) unsubscribe(ch chan Swap) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// ServeHTTP upgrades to a websocket and streams swaps until the page goes
// away or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("theme websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ch, ok := h.subscribe()
	if !ok {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.unsubscribe(ch)

	// Pages never send anything; CloseRead handles pings and close frames.
	ctx := conn.CloseRead(r.Context())

	if h.current != nil {
		if link, ok := h.current(); ok {
			if err := h.write(ctx, conn, Swap{New: link}); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case swap, open := <-ch:
			if !open {
				conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := h.write(ctx, conn, swap); err != nil {
				if websocket.CloseStatus(err) == -1 {
					h.logger.Debug("theme websocket write", zap.Error(err))
				}
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, swap Swap) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, swap)
}
