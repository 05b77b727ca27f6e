// Package model defines data structures for the support chat platform.
package model

import (
	"time"
)

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusActive   Status = "active"
	StatusWaiting  Status = "waiting"
	StatusResolved Status = "resolved"
)

// Valid reports whether s is one of the allowed status values.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusWaiting, StatusResolved:
		return true
	}
	return false
}

// Rank returns the sort rank used by the all-conversations listing:
// active first, then waiting, then resolved, unknown values last.
func (s Status) Rank() int {
	switch s {
	case StatusActive:
		return 1
	case StatusWaiting:
		return 2
	case StatusResolved:
		return 3
	}
	return 4
}

// Priority is the urgency tier of a conversation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
)

// Valid reports whether p is one of the allowed priority values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal:
		return true
	}
	return false
}

// Conversation represents a customer-support thread.
type Conversation struct {
	ID               string    `json:"id"`
	CustomerID       string    `json:"customerId"`
	Status           Status    `json:"status"`
	Priority         Priority  `json:"priority"`
	CreatedAt        time.Time `json:"createdAt"`
	LastMessageAt    time.Time `json:"lastMessageAt"`
	AssignedOperator string    `json:"assignedOperator,omitempty"`
	CustomerName     string    `json:"customerName,omitempty"`
	CustomerPhone    string    `json:"customerPhone,omitempty"`
}

// ConversationWithMessages is a conversation with its full message history
// embedded, as returned by the single-conversation endpoint.
type ConversationWithMessages struct {
	Conversation
	Messages []Message `json:"messages"`
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	CustomerID    string   `json:"customerId"`
	Priority      Priority `json:"priority,omitempty"`
	CustomerName  string   `json:"customerName,omitempty"`
	CustomerPhone string   `json:"customerPhone,omitempty"`
}

// UpdateStatusRequest is the request to change a conversation's status.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// UpdatePriorityRequest is the request to change a conversation's priority.
type UpdatePriorityRequest struct {
	Priority Priority `json:"priority"`
}

// UpdateCustomerInfoRequest is the request to overwrite customer metadata.
type UpdateCustomerInfoRequest struct {
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
}

// CustomerInfo is the trimmed response of a customer-info update.
type CustomerInfo struct {
	ID            string `json:"id"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
}
