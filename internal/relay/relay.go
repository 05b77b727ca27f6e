package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/classifier"
	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/internal/service"
	"github.com/elicheradice/support-platform/internal/settings"
	"github.com/elicheradice/support-platform/pkg/logger"
)

// AutoResponder drafts and injects an operator-attributed reply after a
// customer message. Implementations must never block the caller.
type AutoResponder interface {
	Respond(ctx context.Context, conversationID, latestText string)
}

// Relay consumes client events from websocket connections, invokes the
// services, and fans the resulting state out through the hub.
type Relay struct {
	hub           *Hub
	conversations *service.ConversationService
	messages      *service.MessageService
	settings      *settings.Store
	responder     AutoResponder
	logger        *logger.Logger

	// baseCtx bounds work spawned outside a request, like the
	// auto-responder path. Cancelled at shutdown.
	baseCtx context.Context

	upgrader websocket.Upgrader
}

// NewRelay creates the relay. responder may be nil when no LLM client
// is configured; allowedOrigin scopes browser upgrades to the frontend
// and may be empty to accept any origin.
func NewRelay(
	ctx context.Context,
	hub *Hub,
	conversations *service.ConversationService,
	messages *service.MessageService,
	aiSettings *settings.Store,
	responder AutoResponder,
	allowedOrigin string,
	log *logger.Logger,
) *Relay {
	return &Relay{
		hub:           hub,
		conversations: conversations,
		messages:      messages,
		settings:      aiSettings,
		responder:     responder,
		logger:        log,
		baseCtx:       ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigin),
		},
	}
}

// checkOrigin accepts upgrades from the allowed origin. Requests
// without an Origin header come from non-browser clients and pass;
// an empty or wildcard allowed origin disables the check.
func checkOrigin(allowed string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed == "" || allowed == "*" {
			return true
		}
		return strings.EqualFold(origin, allowed)
	}
}

// Hub exposes the hub for HTTP-path broadcasts.
func (r *Relay) Hub() *Hub {
	return r.hub
}

// ServeWS upgrades an HTTP request to a websocket connection and runs
// it until disconnect.
func (r *Relay) ServeWS(w http.ResponseWriter, req *http.Request) {
	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("relay: upgrade failed", zap.Error(err))
		return
	}

	c := &Conn{
		id:    uuid.New().String(),
		hub:   r.hub,
		ws:    ws,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}
	r.hub.register(c)
	r.logger.Info("relay: client connected",
		zap.String("conn_id", c.id),
		zap.String("remote_addr", req.RemoteAddr),
	)

	go c.writePump()
	r.readPump(c)
}

func (r *Relay) readPump(c *Conn) {
	defer func() {
		c.close()
		r.logger.Info("relay: client disconnected", zap.String("conn_id", c.id))
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			r.sendError(c, "Malformed event")
			continue
		}
		r.handleEvent(c, env)
	}
}

// handleEvent dispatches one inbound event. Any panic is converted to
// a local error event; a bad event must never take down the connection
// or the process.
func (r *Relay) handleEvent(c *Conn, env model.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("relay: panic in event handler",
				zap.String("event", env.Event),
				zap.Any("panic", rec),
			)
			r.sendError(c, "Internal error")
		}
	}()

	switch env.Event {
	case model.EventSubscribe:
		r.handleSubscribe(c, env.Data)
	case model.EventCustomerMessage:
		r.handleCustomerMessage(c, env.Data)
	case model.EventOperatorMessage:
		r.handleOperatorMessage(c, env.Data)
	case model.EventTypingStart:
		r.handleTyping(c, env.Data, true)
	case model.EventTypingStop:
		r.handleTyping(c, env.Data, false)
	default:
		r.logger.Debug("relay: ignoring unknown event",
			zap.String("event", env.Event),
		)
	}
}

// handleSubscribe joins the connection to a conversation room. The
// payload is either a bare conversation id string or an object with a
// conversationId field.
func (r *Relay) handleSubscribe(c *Conn, data json.RawMessage) {
	conversationID := parseConversationID(data)
	if conversationID == "" {
		return
	}
	r.hub.join(c, conversationID)
	r.logger.Debug("relay: joined room",
		zap.String("conn_id", c.id),
		zap.String("conversation_id", conversationID),
	)
}

// handleCustomerMessage runs the customer-message sequence: classify,
// persist, touch, reprioritize when warranted, broadcast, then hand
// off to the auto-responder without blocking.
func (r *Relay) handleCustomerMessage(c *Conn, data json.RawMessage) {
	var payload model.InboundMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil ||
		payload.ConversationID == "" || payload.Content == "" {
		r.sendError(c, "Missing conversationId or content")
		return
	}

	result := classifier.Classify(payload.Content)

	msg, err := r.messages.Create(r.baseCtx, payload.ConversationID, model.SenderCustomer, payload.Content)
	if err != nil {
		r.logger.Error("relay: customer message failed", zap.Error(err))
		r.sendError(c, "Failed to save message")
		return
	}

	if _, err := r.conversations.TouchLastMessage(r.baseCtx, payload.ConversationID); err != nil {
		r.logger.Warn("relay: touch failed", zap.Error(err))
	}

	if result.Priority != model.PriorityNormal {
		if _, err := r.conversations.SetPriority(r.baseCtx, payload.ConversationID, result.Priority); err != nil {
			r.logger.Warn("relay: priority update failed", zap.Error(err))
		}
	}

	r.hub.BroadcastRoom(payload.ConversationID, model.EventMessageReceived, model.MessageReceivedPayload{
		Message:  *msg,
		Priority: result.Priority,
	})

	// Auto-response runs detached: its latency or failure must not
	// delay the acknowledgment broadcast above. Critical messages
	// always wait for a human.
	if r.responder != nil && r.settings.Enabled() && result.Priority != model.PriorityCritical {
		go r.responder.Respond(r.baseCtx, payload.ConversationID, payload.Content)
	}
}

// handleOperatorMessage persists and broadcasts an operator message.
// No classification, no priority mutation.
func (r *Relay) handleOperatorMessage(c *Conn, data json.RawMessage) {
	var payload model.InboundMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil ||
		payload.ConversationID == "" || payload.Content == "" {
		r.sendError(c, "Missing conversationId or content")
		return
	}

	msg, err := r.messages.Create(r.baseCtx, payload.ConversationID, model.SenderOperator, payload.Content)
	if err != nil {
		r.logger.Error("relay: operator message failed", zap.Error(err))
		r.sendError(c, "Failed to send message")
		return
	}

	if _, err := r.conversations.TouchLastMessage(r.baseCtx, payload.ConversationID); err != nil {
		r.logger.Warn("relay: touch failed", zap.Error(err))
	}

	r.hub.BroadcastRoom(payload.ConversationID, model.EventMessageReceived, model.MessageReceivedPayload{
		Message: *msg,
	})
}

// handleTyping relays a typing flag to everyone in the room except the
// origin connection.
func (r *Relay) handleTyping(c *Conn, data json.RawMessage, typing bool) {
	conversationID := parseConversationID(data)
	if conversationID == "" {
		return
	}
	r.hub.BroadcastRoomExcept(conversationID, c.id, model.EventTypingStart, typing)
}

func (r *Relay) sendError(c *Conn, message string) {
	data, err := json.Marshal(model.Envelope{
		Event: model.EventMessageError,
		Data:  mustMarshal(model.ErrorPayload{Error: message}),
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}

// parseConversationID accepts either a bare JSON string or an object
// with a conversationId field.
func parseConversationID(data json.RawMessage) string {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id
	}
	var payload model.SubscribePayload
	if err := json.Unmarshal(data, &payload); err == nil {
		return payload.ConversationID
	}
	return ""
}
