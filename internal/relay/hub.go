package relay

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/pkg/logger"
	"github.com/elicheradice/support-platform/pkg/metrics"
)

const (
	// subjectPrefix scopes all relay traffic on the transport.
	subjectPrefix = "chat"

	// globalSubject carries broadcasts addressed to every connection.
	globalSubject = subjectPrefix + ".global"
)

// roomSubject returns the transport subject for a conversation room.
func roomSubject(conversationID string) string {
	return subjectPrefix + ".room." + conversationID
}

// roomName returns the room key for a conversation.
func roomName(conversationID string) string {
	return "conversation:" + conversationID
}

// frame is the unit that traverses the transport: an event envelope
// plus addressing. Room is empty for global broadcasts; Exclude names
// a connection that must not receive the frame (typing indicators are
// never echoed to their origin).
type frame struct {
	Room    string          `json:"room,omitempty"`
	Exclude string          `json:"exclude,omitempty"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hub tracks live connections and their room memberships, and fans
// broadcast frames out to them. All frames, including locally
// originated ones, arrive through the transport subscription, so a
// frame is delivered exactly once regardless of which instance
// published it.
type Hub struct {
	transport Transport
	logger    *logger.Logger

	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]map[string]*Conn

	unsubscribe func() error
}

// NewHub creates a hub on the given transport.
func NewHub(transport Transport, log *logger.Logger) *Hub {
	return &Hub{
		transport: transport,
		logger:    log,
		conns:     make(map[string]*Conn),
		rooms:     make(map[string]map[string]*Conn),
	}
}

// Start subscribes the hub to all relay traffic on the transport.
func (h *Hub) Start() error {
	unsub, err := h.transport.Subscribe(subjectPrefix+".>", func(subject string, data []byte) {
		h.deliver(data)
	})
	if err != nil {
		return fmt.Errorf("relay: subscribe: %w", err)
	}
	h.unsubscribe = unsub
	return nil
}

// Stop detaches the hub from the transport and closes every
// connection.
func (h *Hub) Stop() {
	if h.unsubscribe != nil {
		_ = h.unsubscribe()
	}

	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// BroadcastRoom publishes an event to every connection in a
// conversation's room, including the originator.
func (h *Hub) BroadcastRoom(conversationID, event string, payload any) {
	h.publish(roomSubject(conversationID), frame{
		Room:  roomName(conversationID),
		Event: event,
		Data:  mustMarshal(payload),
	})
}

// BroadcastRoomExcept publishes an event to a room, skipping one
// connection.
func (h *Hub) BroadcastRoomExcept(conversationID, excludeConnID, event string, payload any) {
	h.publish(roomSubject(conversationID), frame{
		Room:    roomName(conversationID),
		Exclude: excludeConnID,
		Event:   event,
		Data:    mustMarshal(payload),
	})
}

// BroadcastGlobal publishes an event to every connection.
func (h *Hub) BroadcastGlobal(event string, payload any) {
	h.publish(globalSubject, frame{
		Event: event,
		Data:  mustMarshal(payload),
	})
}

func (h *Hub) publish(subject string, f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("relay: marshal frame", zap.Error(err))
		return
	}
	if err := h.transport.Publish(subject, data); err != nil {
		h.logger.Error("relay: publish frame",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}
	metrics.RoomBroadcastsTotal.WithLabelValues(f.Event).Inc()
}

// deliver routes a transport frame to local connections.
func (h *Hub) deliver(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		h.logger.Warn("relay: drop malformed frame", zap.Error(err))
		return
	}

	envelope, err := json.Marshal(model.Envelope{Event: f.Event, Data: f.Data})
	if err != nil {
		return
	}

	h.mu.RLock()
	var targets []*Conn
	if f.Room == "" {
		targets = make([]*Conn, 0, len(h.conns))
		for _, c := range h.conns {
			targets = append(targets, c)
		}
	} else {
		for _, c := range h.rooms[f.Room] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if f.Exclude != "" && c.id == f.Exclude {
			continue
		}
		c.enqueue(envelope)
	}
}

// register adds a connection to the hub.
func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	metrics.WSConnectionsActive.Inc()
}

// unregister drops a connection and its room memberships.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.id)
	for room := range c.rooms {
		members := h.rooms[room]
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
	metrics.WSConnectionsActive.Dec()
}

// join adds a connection to a conversation room. No-op if already a
// member.
func (h *Hub) join(c *Conn, conversationID string) {
	room := roomName(conversationID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := c.rooms[room]; ok {
		return
	}
	c.rooms[room] = struct{}{}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Conn)
	}
	h.rooms[room][c.id] = c
}

// RoomSize reports the number of connections in a conversation's room.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomName(conversationID)])
}

func mustMarshal(payload any) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}
