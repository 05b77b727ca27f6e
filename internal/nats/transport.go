package nats

import (
	"github.com/nats-io/nats.go"
)

// Transport adapts the NATS connection to the relay's broadcast
// transport. Core pub/sub only: broadcast frames are ephemeral and do
// not need replay.
type Transport struct {
	conn *nats.Conn
}

// NewTransport creates a relay transport over an established client.
func NewTransport(client *Client) *Transport {
	return &Transport{conn: client.Conn()}
}

// Publish sends a frame to a subject.
func (t *Transport) Publish(subject string, data []byte) error {
	return t.conn.Publish(subject, data)
}

// Subscribe registers a handler for a subject pattern. NATS wildcard
// semantics apply, so the relay's trailing ">" works unchanged.
func (t *Transport) Subscribe(pattern string, handler func(subject string, data []byte)) (func() error, error) {
	sub, err := t.conn.Subscribe(pattern, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}
