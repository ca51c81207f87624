package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ordercast/ordercast/internal/model"
	"github.com/ordercast/ordercast/internal/query"
	"github.com/ordercast/ordercast/internal/store"
)

// Config holds hub configuration.
type Config struct {
	SendBuffer   int           // Outbound queue per subscriber (default: 16)
	WriteTimeout time.Duration // Per-frame write deadline (default: 5s)
	PingInterval time.Duration // Keepalive ping cadence (default: 30s)
	ReadLimit    int64         // Max inbound frame size (default: 4KiB)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:   16,
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
		ReadLimit:    4 * 1024,
	}
}

// Stats provides hub statistics.
type Stats struct {
	Subscribers int
	Broadcasts  int64
	Dropped     int64
}

// Hub manages subscriber connections and snapshot fan-out.
type Hub struct {
	cfg     Config
	store   *store.Store
	queries *query.Facade
	logger  *slog.Logger

	upgrader websocket.Upgrader

	mu         sync.Mutex
	subs       map[uuid.UUID]*subscriber
	closed     bool
	broadcasts int64
	dropped    int64

	wg sync.WaitGroup
}

// New creates a new Hub reading from the given store.
func New(cfg Config, st *store.Store, queries *query.Facade, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}

	return &Hub{
		cfg:     cfg,
		store:   st,
		queries: queries,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The feed is read-only and unauthenticated; browser origin
			// checks are the collaborator layer's concern.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[uuid.UUID]*subscriber),
	}
}

// Stop disconnects all subscribers and waits for their pumps.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.subs = make(map[uuid.UUID]*subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub stopped", "disconnected", len(subs))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Subscribers: len(h.subs),
		Broadcasts:  h.broadcasts,
		Dropped:     h.dropped,
	}
}

// ServeWS upgrades an HTTP request to a subscriber connection, pushes the
// current snapshot to it, and starts its pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := newSubscriber(conn, h.cfg.SendBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return errors.New("hub is shutting down")
	}
	// Connect-time push: the current snapshot, to this subscriber only.
	// Enqueued under the same lock that admits the subscriber to the
	// broadcast set, so the next change cannot interleave.
	snap := h.store.Current()
	sub.lastSig = snap.Signature
	sub.send <- newSnapshotMsg(snap)
	h.subs[sub.id] = sub
	total := len(h.subs)
	h.mu.Unlock()

	h.wg.Add(2)
	go h.writePump(sub)
	go h.readPump(sub)

	h.logger.Info("subscriber connected",
		"subscriber", sub.id,
		"total", total,
	)

	return nil
}

// HandleChange pushes the adopted snapshot to every subscriber. All sends
// are issued before it returns, so the poller cannot start the next
// cycle mid-broadcast.
func (h *Hub) HandleChange(snap *model.Snapshot) {
	msg := newSnapshotMsg(snap)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.broadcasts++
	for _, sub := range h.subs {
		// A subscriber that connected after the store swap already got
		// this snapshot as its connect-time push.
		if sub.lastSig == snap.Signature {
			continue
		}
		sub.lastSig = snap.Signature
		select {
		case sub.send <- msg:
		default:
			// Send queue full: this subscriber cannot keep up. Drop it
			// rather than stall the cycle; it reconnects to a fresh
			// snapshot.
			h.dropped++
			delete(h.subs, sub.id)
			sub.close()
			h.logger.Warn("dropping slow subscriber", "subscriber", sub.id)
		}
	}
}

// unregister removes a subscriber and closes its connection.
func (h *Hub) unregister(sub *subscriber, reason string) {
	h.mu.Lock()
	_, present := h.subs[sub.id]
	delete(h.subs, sub.id)
	total := len(h.subs)
	h.mu.Unlock()

	sub.close()

	if present {
		h.logger.Info("subscriber disconnected",
			"subscriber", sub.id,
			"reason", reason,
			"total", total,
		)
	}
}

// readPump consumes subscriber frames: filter requests and control
// traffic. Runs until the connection drops.
func (h *Hub) readPump(sub *subscriber) {
	defer h.wg.Done()
	defer h.unregister(sub, "read closed")

	sub.conn.SetReadLimit(h.cfg.ReadLimit)
	pongWait := h.cfg.PingInterval * 2
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("subscriber read error", "subscriber", sub.id, "err", err)
			}
			return
		}

		var req clientRequest
		if err := json.Unmarshal(data, &req); err != nil {
			// The connection is fine, the frame is not.
			if !h.trySend(sub, errorMsg{Type: typeError, Code: codeBadRequest, Message: "request must be a JSON object"}) {
				return
			}
			continue
		}

		h.handleRequest(sub, req)
	}
}

// handleRequest answers a single subscriber request. Replies go only to
// the requester; filter results are never broadcast.
func (h *Hub) handleRequest(sub *subscriber, req clientRequest) {
	switch req.Action {
	case "filter":
		o, err := h.queries.FindOrder(req.OrderID)
		switch {
		case errors.Is(err, query.ErrInvalidID):
			h.trySend(sub, errorMsg{Type: typeError, Code: codeInvalidArgument, Message: "order_id is required"})
		case errors.Is(err, query.ErrNotFound):
			h.trySend(sub, errorMsg{Type: typeError, Code: codeNotFound, Message: "Order not found"})
		default:
			h.trySend(sub, orderMsg{Type: typeOrder, Order: o})
		}

	case "snapshot":
		// Explicit re-sync request.
		h.trySend(sub, newSnapshotMsg(h.store.Current()))

	default:
		h.trySend(sub, errorMsg{
			Type:    typeError,
			Code:    codeBadRequest,
			Message: "unknown action",
		})
	}
}

// trySend enqueues without blocking; a full queue drops the subscriber.
// Returns false if the subscriber was dropped.
func (h *Hub) trySend(sub *subscriber, msg any) bool {
	select {
	case sub.send <- msg:
		return true
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		h.unregister(sub, "slow consumer")
		return false
	}
}

// writePump serializes all writes for one subscriber and keeps the
// connection alive.
func (h *Hub) writePump(sub *subscriber) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.done:
			return

		case msg := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := sub.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("subscriber write error", "subscriber", sub.id, "err", err)
				h.unregister(sub, "write failed")
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := sub.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.unregister(sub, "ping failed")
				return
			}
		}
	}
}
