package model

import (
	"time"
)

// Sender identifies which side of the conversation authored a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderOperator Sender = "operator"
)

// Valid reports whether s is one of the allowed sender values.
func (s Sender) Valid() bool {
	return s == SenderCustomer || s == SenderOperator
}

// Message represents one chat turn within a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`
}

// CreateMessageRequest is the request to append a message to a conversation.
type CreateMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Sender         Sender `json:"sender"`
	Content        string `json:"content"`
}
