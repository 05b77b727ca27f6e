package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait is the deadline for a single websocket write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames.
	maxMessageSize = 64 * 1024

	// sendBuffer is the per-connection outbound queue. A connection
	// that cannot drain it is dropped rather than allowed to stall
	// the whole room.
	sendBuffer = 256
)

// Conn is one live websocket connection.
type Conn struct {
	id  string
	hub *Hub
	ws  *websocket.Conn

	send chan []byte

	// rooms holds the room keys this connection has joined. Guarded
	// by hub.mu.
	rooms map[string]struct{}

	// mu guards closed; the hub's deliver loop enqueues outside
	// hub.mu, so a disconnect can race an in-flight broadcast.
	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
}

// enqueue queues an outbound frame without blocking. Frames addressed
// to a closed connection are dropped; a full queue means the client
// has stopped reading and the connection is closed.
func (c *Conn) enqueue(data []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- data:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.hub.logger.Warn("relay: dropping slow connection",
			zap.String("conn_id", c.id),
		)
		c.close()
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.hub.unregister(c)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// writePump drains the send queue onto the wire and keeps the
// connection alive with pings. One writer goroutine per connection;
// gorilla/websocket allows at most one concurrent writer.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
