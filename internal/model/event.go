package model

import (
	"encoding/json"
)

// Real-time event names. The inbound set is what clients send over the
// websocket; the outbound set is what the relay broadcasts.
const (
	// Inbound (client → server)
	EventSubscribe       = "conversation:subscribe"
	EventCustomerMessage = "message:new"
	EventOperatorMessage = "message:operator"
	EventTypingStart     = "operator:typing"
	EventTypingStop      = "operator:typing:stop"

	// Outbound (server → clients)
	EventMessageReceived    = "message:received"
	EventMessageError       = "message:error"
	EventConversationNew    = "conversation:new"
	EventConversationStatus = "conversation:status"
)

// Envelope is the wire format for every websocket frame in both
// directions: a named event plus its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SubscribePayload joins the sending connection to a conversation room.
type SubscribePayload struct {
	ConversationID string `json:"conversationId"`
}

// InboundMessagePayload is the body of message:new and message:operator.
type InboundMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// TypingPayload carries the conversation a typing indicator refers to.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
}

// MessageReceivedPayload is broadcast to a room after a message is
// persisted. Priority is present only on the customer path; IsAI marks
// auto-responder messages.
type MessageReceivedPayload struct {
	Message  Message  `json:"message"`
	Priority Priority `json:"priority,omitempty"`
	IsAI     bool     `json:"isAI,omitempty"`
}

// ErrorPayload is sent back to the originating connection only.
type ErrorPayload struct {
	Error string `json:"error"`
}

// ConversationNewPayload is the global announcement of a new conversation.
type ConversationNewPayload struct {
	ConversationID string   `json:"conversationId"`
	CustomerID     string   `json:"customerId"`
	CustomerName   string   `json:"customerName,omitempty"`
	CustomerPhone  string   `json:"customerPhone,omitempty"`
	Priority       Priority `json:"priority"`
}

// ConversationStatusPayload announces a status change to a room.
type ConversationStatusPayload struct {
	ConversationID string `json:"conversationId"`
	Status         Status `json:"status"`
}
