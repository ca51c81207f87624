package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// subscriber is one connected client.
type subscriber struct {
	id   uuid.UUID
	conn *websocket.Conn

	// send carries outbound envelopes to the write pump. Enqueueing never
	// blocks; a full buffer drops the subscriber instead.
	send chan any

	// lastSig is the signature of the last snapshot pushed to this
	// subscriber. Guarded by the hub mutex. It makes the connect-time
	// push and the change broadcast idempotent per cycle.
	lastSig string

	done      chan struct{}
	closeOnce sync.Once
}

func newSubscriber(conn *websocket.Conn, sendBuffer int) *subscriber {
	return &subscriber{
		id:   uuid.New(),
		conn: conn,
		send: make(chan any, sendBuffer),
		done: make(chan struct{}),
	}
}

// close shuts the subscriber down once; safe from any goroutine.
func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
	})
}
